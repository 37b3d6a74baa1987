package settings

// Setting keys understood by the engine, the analyzers and the CVE database.
const (
	KeyAutoUpdate             = "autoupdate"
	KeySuppressionFile        = "suppression.file"
	KeyHintsFile              = "hints.file"
	KeyAdditionalZipExtension = "extensions.zip"
	KeyDataDirectory          = "data.directory"
	KeyTempDirectory          = "temp.directory"

	KeyAnalyzerExperimental    = "analyzer.experimental.enabled"
	KeyAnalyzerArchive         = "analyzer.archive.enabled"
	KeyAnalyzerJar             = "analyzer.jar.enabled"
	KeyAnalyzerCentral         = "analyzer.central.enabled"
	KeyAnalyzerCentralURL      = "analyzer.central.url"
	KeyAnalyzerNexus           = "analyzer.nexus.enabled"
	KeyAnalyzerNexusURL        = "analyzer.nexus.url"
	KeyAnalyzerNexusProxy      = "analyzer.nexus.proxy"
	KeyAnalyzerNodePackage     = "analyzer.node.package.enabled"
	KeyAnalyzerComposerLock    = "analyzer.composer.lock.enabled"
	KeyAnalyzerPyDist          = "analyzer.python.distribution.enabled"
	KeyAnalyzerPyPackage       = "analyzer.python.package.enabled"
	KeyAnalyzerRubyGemspec     = "analyzer.ruby.gemspec.enabled"
	KeyAnalyzerBundleAudit     = "analyzer.bundle.audit.enabled"
	KeyAnalyzerBundleAuditPath = "analyzer.bundle.audit.path"
	KeyAnalyzerNuspec          = "analyzer.nuspec.enabled"
	KeyAnalyzerAssembly        = "analyzer.assembly.enabled"
	KeyAnalyzerAssemblyMono    = "analyzer.assembly.mono.path"
	KeyAnalyzerCMake           = "analyzer.cmake.enabled"
	KeyAnalyzerAutoconf        = "analyzer.autoconf.enabled"
	KeyAnalyzerOpenSSL         = "analyzer.openssl.enabled"
	KeyAnalyzerCocoapods       = "analyzer.cocoapods.enabled"
	KeyAnalyzerSwift           = "analyzer.swift.package.manager.enabled"
	KeyAnalyzerGolangMod       = "analyzer.golang.mod.enabled"
	KeyAnalyzerCargo           = "analyzer.cargo.enabled"
	KeyAnalyzerHint            = "analyzer.hint.enabled"
	KeyAnalyzerCPE             = "analyzer.cpe.enabled"
	KeyAnalyzerNvdCve          = "analyzer.nvdcve.enabled"
	KeyAnalyzerSuppression     = "analyzer.suppression.enabled"
	KeyAnalyzerTyposquat       = "analyzer.typosquat.enabled"

	KeyProxyServer       = "proxy.server"
	KeyProxyPort         = "proxy.port"
	KeyProxyUsername     = "proxy.username"
	KeyProxyPassword     = "proxy.password"
	KeyConnectionTimeout = "connection.timeout"

	KeyDBDriverName       = "database.driver.name"
	KeyDBConnectionString = "database.connection.string"
	KeyDBUser             = "database.user"
	KeyDBPassword         = "database.password"

	KeyCveURLBase       = "cve.url.base"
	KeyCveURLModified   = "cve.url.modified"
	KeyCveValidForHours = "cve.check.validforhours"
	KeyCveStartYear     = "cve.startyear"
)
