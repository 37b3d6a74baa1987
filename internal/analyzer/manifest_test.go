package analyzer

import (
	"context"
	"testing"

	"github.com/kvesta/depcheck/pkg/dependency"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileAnalyzers(t *testing.T) {
	tests := []struct {
		name      string
		analyzer  Analyzer
		file      string
		content   string
		ecosystem string
		depName   string
		version   string
		vendor    string
	}{
		{
			name:      "package.json",
			analyzer:  newNodePackageAnalyzer(),
			file:      "node_modules/@babel/core/package.json",
			content:   `{"name": "@babel/core", "version": "7.22.5", "author": "The Babel Team", "license": "MIT"}`,
			ecosystem: "npm",
			depName:   "@babel/core",
			version:   "7.22.5",
			vendor:    "babel",
		},
		{
			name:      "dist-info METADATA",
			analyzer:  newPythonDistributionAnalyzer(),
			file:      "site-packages/requests-2.31.0.dist-info/METADATA",
			content:   "Metadata-Version: 2.1\nName: requests\nVersion: 2.31.0\nHome-page: https://github.com/psf/requests\n\nbody",
			ecosystem: "pypi",
			depName:   "requests",
			version:   "2.31.0",
			vendor:    "psf",
		},
		{
			name:      "setup.py",
			analyzer:  newPythonPackageAnalyzer(),
			file:      "proj/setup.py",
			content:   "from setuptools import setup\nsetup(name='flask', version='2.0.1', author='Armin')\n",
			ecosystem: "pypi",
			depName:   "flask",
			version:   "2.0.1",
			vendor:    "Armin",
		},
		{
			name:      "__init__.py",
			analyzer:  newPythonPackageAnalyzer(),
			file:      "proj/jinja2/__init__.py",
			content:   "__version__ = \"3.1.2\"\n",
			ecosystem: "pypi",
			depName:   "jinja2",
			version:   "3.1.2",
			vendor:    "jinja2",
		},
		{
			name:      "gemspec",
			analyzer:  newRubyGemspecAnalyzer(),
			file:      "gems/rake.gemspec",
			content:   "Gem::Specification.new do |s|\n  s.name = \"rake\"\n  s.version = \"13.0.6\"\n  s.authors = [\"Hiroshi SHIBATA\"]\nend\n",
			ecosystem: "rubygems",
			depName:   "rake",
			version:   "13.0.6",
			vendor:    "rake",
		},
		{
			name:      "podspec",
			analyzer:  newCocoaPodsAnalyzer(),
			file:      "Pods/AFNetworking.podspec",
			content:   "Pod::Spec.new do |s|\n  s.name = 'AFNetworking'\n  s.version = '4.0.1'\nend\n",
			ecosystem: "cocoapods",
			depName:   "AFNetworking",
			version:   "4.0.1",
			vendor:    "AFNetworking",
		},
		{
			name:      "nuspec",
			analyzer:  newNuspecAnalyzer(),
			file:      "packages/Newtonsoft.Json.nuspec",
			content:   `<package><metadata><id>Newtonsoft.Json</id><version>12.0.1</version><authors>James Newton-King</authors></metadata></package>`,
			ecosystem: "nuget",
			depName:   "Newtonsoft.Json",
			version:   "12.0.1",
			vendor:    "James Newton-King",
		},
		{
			name:      "configure.ac",
			analyzer:  newAutoconfAnalyzer(),
			file:      "src/configure.ac",
			content:   "AC_INIT([GNU Hello], [2.10], [bug-hello@gnu.org], [hello], [https://www.gnu.org/software/hello/])\n",
			ecosystem: "native",
			depName:   "GNU Hello",
			version:   "2.10",
			vendor:    "gnu",
		},
		{
			name:      "opensslv.h",
			analyzer:  newOpenSSLAnalyzer(),
			file:      "include/openssl/opensslv.h",
			content:   "# define OPENSSL_VERSION_NUMBER  0x1000207fL\n",
			ecosystem: "native",
			depName:   "openssl",
			version:   "1.0.2g",
			vendor:    "openssl",
		},
		{
			name:      "CMakeLists.txt",
			analyzer:  newCMakeAnalyzer(),
			file:      "zlib/CMakeLists.txt",
			content:   "cmake_minimum_required(VERSION 2.4.4)\nproject(zlib C)\nset(VERSION \"1.2.11\")\n",
			ecosystem: "native",
			depName:   "zlib",
			version:   "1.2.11",
			vendor:    "zlib",
		},
		{
			name:      "Package.swift",
			analyzer:  newSwiftPackageAnalyzer(),
			file:      "Alamofire/Package.swift",
			content:   "let package = Package(name: \"Alamofire\", products: [])\n",
			ecosystem: "swift",
			depName:   "Alamofire",
			vendor:    "Alamofire",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := writeDep(t, tt.file, tt.content)
			require.True(t, tt.analyzer.Accepts(d))

			require.NoError(t, tt.analyzer.Analyze(context.Background(), d, newFakeEngine(t)))

			assert.Equal(t, tt.ecosystem, d.Ecosystem)
			assert.Equal(t, tt.depName, d.Name)
			assert.Equal(t, tt.version, d.Version)
			assert.Contains(t, evidenceValues(d, dependency.Vendor), tt.vendor)
		})
	}
}

func TestPythonPackageAnalyzerDropsUnversionedInit(t *testing.T) {
	d := writeDep(t, "proj/util/__init__.py", "import os\n")
	e := newFakeEngine(t)

	require.NoError(t, newPythonPackageAnalyzer().Analyze(context.Background(), d, e))
	assert.Equal(t, []*dependency.Dependency{d}, e.removed)
	assert.Empty(t, d.Evidence)
}

func TestPythonDistributionAccepts(t *testing.T) {
	a := newPythonDistributionAnalyzer()

	assert.True(t, a.Accepts(&dependency.Dependency{ActualFilePath: "/lib/six-1.16.0.dist-info/METADATA"}))
	assert.True(t, a.Accepts(&dependency.Dependency{ActualFilePath: "/lib/six.egg-info/PKG-INFO"}))
	assert.True(t, a.Accepts(&dependency.Dependency{ActualFilePath: "/lib/EGG-INFO/PKG-INFO"}))
	assert.False(t, a.Accepts(&dependency.Dependency{ActualFilePath: "/docs/METADATA"}))
}

func TestComposerLockAnalyzer(t *testing.T) {
	d := writeDep(t, "app/composer.lock", `{
  "packages": [
    {"name": "symfony/http-kernel", "version": "v4.4.13"},
    {"name": "topthink/framework", "version": "v5.0.23"}
  ],
  "packages-dev": [
    {"name": "phpunit/phpunit", "version": "9.5.0"}
  ]
}`)
	e := newFakeEngine(t)

	require.NoError(t, newComposerLockAnalyzer().Analyze(context.Background(), d, e))
	require.Len(t, e.added, 3)

	kernel := e.added[0]
	assert.True(t, kernel.Virtual)
	assert.Equal(t, "symfony/http-kernel", kernel.Name)
	assert.Equal(t, "4.4.13", kernel.Version)
	assert.Contains(t, evidenceValues(kernel, dependency.Vendor), "symfony")
	assert.Contains(t, evidenceValues(kernel, dependency.Product), "http-kernel")
	assert.Equal(t, "pkg:composer/symfony/http-kernel@4.4.13", kernel.IdentifiersOf(dependency.IdentifierPURL)[0].Value)

	assert.Contains(t, evidenceValues(e.added[1], dependency.Product), "thinkphp")
}

func TestGolangModAnalyzer(t *testing.T) {
	d := writeDep(t, "svc/go.mod", `module example.com/svc

go 1.21

require (
	github.com/spf13/cobra v1.8.0
	github.com/docker/docker v20.10.7+incompatible // indirect
)
`)
	e := newFakeEngine(t)

	require.NoError(t, newGolangModAnalyzer().Analyze(context.Background(), d, e))

	assert.Equal(t, "golang", d.Ecosystem)
	assert.Equal(t, "example.com/svc", d.Name)
	require.Len(t, e.added, 2)

	cobra := e.added[0]
	assert.Equal(t, "github.com/spf13/cobra", cobra.Name)
	assert.Equal(t, []string{"cobra"}, evidenceValues(cobra, dependency.Product))
	assert.Contains(t, evidenceValues(cobra, dependency.Vendor), "spf13")
	assert.Equal(t, []string{"1.8.0"}, evidenceValues(cobra, dependency.Version))
	assert.Equal(t, "github.com/spf13/cobra@v1.8.0", cobra.IdentifiersOf(dependency.IdentifierGolang)[0].Value)
	assert.Equal(t, "pkg:golang/github.com/spf13/cobra@v1.8.0", cobra.IdentifiersOf(dependency.IdentifierPURL)[0].Value)

	assert.Equal(t, []string{"20.10.7"}, evidenceValues(e.added[1], dependency.Version))
}

func TestCargoLockAnalyzer(t *testing.T) {
	d := writeDep(t, "crate/Cargo.lock", `version = 3

[[package]]
name = "mycrate"
version = "0.1.0"

[[package]]
name = "smallvec"
version = "1.6.0"
source = "registry+https://github.com/rust-lang/crates.io-index"
`)
	e := newFakeEngine(t)

	require.NoError(t, newCargoLockAnalyzer().Analyze(context.Background(), d, e))

	assert.Equal(t, "mycrate", d.Name)
	require.Len(t, e.added, 1)
	assert.Equal(t, "smallvec", e.added[0].Name)
	assert.Equal(t, "1.6.0", e.added[0].Version)
	assert.Equal(t, "pkg:cargo/smallvec@1.6.0", e.added[0].IdentifiersOf(dependency.IdentifierPURL)[0].Value)
}

func TestBinaryAnalyzersIgnoreOtherExecutables(t *testing.T) {
	d := writeDep(t, "bin/tool", "#!/bin/sh\necho hi\n")
	e := newFakeEngine(t)

	assert.NoError(t, newGolangBinaryAnalyzer().Analyze(context.Background(), d, e))
	assert.NoError(t, newRustBinaryAnalyzer().Analyze(context.Background(), d, e))
	assert.Empty(t, e.added)
}
