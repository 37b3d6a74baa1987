package cli

import (
	"fmt"
	"os"

	"github.com/kvesta/depcheck/internal/task"
	"github.com/spf13/cobra"
)

type boolFlag struct {
	name  string
	usage string
	field func(c *task.Check) **bool
}

// analyzerFlags turn single analyzers off.
var analyzerFlags = []boolFlag{
	{"disableJar", "disable the Jar analyzer", func(c *task.Check) **bool { return &c.JarAnalyzerEnabled }},
	{"disableArchive", "disable the Archive analyzer", func(c *task.Check) **bool { return &c.ArchiveAnalyzerEnabled }},
	{"disableAssembly", "disable the .NET Assembly analyzer", func(c *task.Check) **bool { return &c.AssemblyAnalyzerEnabled }},
	{"disableNuspec", "disable the Nuspec analyzer", func(c *task.Check) **bool { return &c.NuspecAnalyzerEnabled }},
	{"disableComposer", "disable the PHP Composer lock analyzer", func(c *task.Check) **bool { return &c.ComposerAnalyzerEnabled }},
	{"disableAutoconf", "disable the Autoconf analyzer", func(c *task.Check) **bool { return &c.AutoconfAnalyzerEnabled }},
	{"disableCmake", "disable the CMake analyzer", func(c *task.Check) **bool { return &c.CMakeAnalyzerEnabled }},
	{"disableBundleAudit", "disable the Ruby bundler-audit analyzer", func(c *task.Check) **bool { return &c.BundleAuditAnalyzerEnabled }},
	{"disableCocoapods", "disable the CocoaPods analyzer", func(c *task.Check) **bool { return &c.CocoapodsAnalyzerEnabled }},
	{"disableSwiftPackageManager", "disable the Swift Package Manager analyzer", func(c *task.Check) **bool { return &c.SwiftPackageManagerAnalyzerEnabled }},
	{"disableOpenSSL", "disable the OpenSSL analyzer", func(c *task.Check) **bool { return &c.OpensslAnalyzerEnabled }},
	{"disableNodeJS", "disable the Node.js package analyzer", func(c *task.Check) **bool { return &c.NodeAnalyzerEnabled }},
	{"disableRubygems", "disable the Ruby gemspec analyzer", func(c *task.Check) **bool { return &c.RubygemsAnalyzerEnabled }},
	{"disablePyPkg", "disable the Python package analyzer", func(c *task.Check) **bool { return &c.PyPackageAnalyzerEnabled }},
	{"disablePyDist", "disable the Python distribution analyzer", func(c *task.Check) **bool { return &c.PyDistributionAnalyzerEnabled }},
	{"disableCentral", "disable the Maven Central analyzer", func(c *task.Check) **bool { return &c.CentralAnalyzerEnabled }},
	{"disableNexus", "disable the Nexus analyzer", func(c *task.Check) **bool { return &c.NexusAnalyzerEnabled }},
	{"disableGolangMod", "disable the go.mod analyzer", func(c *task.Check) **bool { return &c.GolangModAnalyzerEnabled }},
	{"disableCargo", "disable the Cargo analyzer", func(c *task.Check) **bool { return &c.CargoAnalyzerEnabled }},
}

type checkStringFlag struct {
	name  string
	usage string
	field func(c *task.Check) **string
}

var checkStringFlags = []checkStringFlag{
	{"suppression", "path or URL of the suppression file", func(c *task.Check) **string { return &c.SuppressionFile }},
	{"hints", "path of the hints file", func(c *task.Check) **string { return &c.HintsFile }},
	{"nexus", "URL of the Nexus server", func(c *task.Check) **string { return &c.NexusURL }},
	{"zipExtensions", "comma separated extensions to treat as zip archives", func(c *task.Check) **string { return &c.ZipExtensions }},
	{"bundleAudit", "path to bundle-audit", func(c *task.Check) **string { return &c.BundleAuditPath }},
	{"mono", "path to mono for the .NET Assembly analyzer", func(c *task.Check) **string { return &c.PathToMono }},
	{"applicationName", "deprecated, use --project", func(c *task.Check) **string { return &c.ApplicationName }},
}

var (
	analyzerValues = map[string]*bool{}
	checkValues    = map[string]*string{}

	projectName    string
	outDir         string
	reportFormat   string
	failOnCVSS     float64
	noUpdate       bool
	updateOnly     bool
	noSummary      bool
	experimental   bool
	nexusUsesProxy bool
)

func applyCheckFlags(cmd *cobra.Command, c *task.Check) {
	flags := cmd.Flags()

	if flags.Changed("project") {
		c.ProjectName = projectName
	}
	if flags.Changed("out") {
		c.ReportOutputDirectory = outDir
	}
	if flags.Changed("format") {
		c.ReportFormat = reportFormat
	}
	if flags.Changed("failOnCVSS") {
		c.FailBuildOnCVSS = failOnCVSS
	}
	if flags.Changed("noupdate") {
		c.AutoUpdate = boolPtr(!noUpdate)
	}
	if flags.Changed("updateonly") {
		c.UpdateOnly = updateOnly
	}
	if flags.Changed("noSummary") {
		c.ShowSummary = !noSummary
	}
	if flags.Changed("enableExperimental") {
		c.EnableExperimental = boolPtr(experimental)
	}
	if flags.Changed("nexusUsesProxy") {
		c.NexusUsesProxy = boolPtr(nexusUsesProxy)
	}

	for _, f := range analyzerFlags {
		if flags.Changed(f.name) {
			*f.field(c) = boolPtr(!*analyzerValues[f.name])
		}
	}
	for _, f := range checkStringFlags {
		if flags.Changed(f.name) {
			v := *checkValues[f.name]
			*f.field(c) = &v
		}
	}

	applyUpdateFlags(cmd, &c.Update)
}

// addPaths scans the given paths: directories recursively, files as they are.
func addPaths(c *task.Check, paths []string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("unable to scan %s: %w", path, err)
		}

		var rc task.ResourceCollection = &task.FileResource{Path: path}
		if info.IsDir() {
			rc = &task.FileSet{Dir: path, Excludes: excludes}
		}
		if err := c.Add(rc); err != nil {
			return err
		}
	}
	return nil
}

var excludes []string

func check() {
	rootCmd.AddCommand(newCheckCmd())
}

func newCheckCmd() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check [PATH...]",
		Short: "Scan project dependencies for known vulnerabilities",
		Long: `Examples:
  # Check the check section of ./depcheck.yaml
  $ depcheck check

  # Check a directory, writing an HTML report to ./reports
  $ depcheck check --project shop --out reports ./lib

  # Fail on any vulnerability scored 7.0 or above
  $ depcheck check --failOnCVSS 7 --format ALL app.war

  # Check offline with a suppression file
  $ depcheck check --noupdate --suppression suppressions.xml ./vendor`,
		RunE: func(cmd *cobra.Command, args []string) error {
			bf, err := loadBuildFile()
			if err != nil {
				return err
			}

			c := bf.Check
			if c == nil {
				c = task.NewCheck(bf.Project)
			}
			applyCheckFlags(cmd, c)

			if err := addPaths(c, args); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			return c.Execute(ctx)
		},
	}

	flags := checkCmd.Flags()
	flags.StringVar(&projectName, "project", "dependency-check", "name of the project being scanned")
	flags.StringVarP(&outDir, "out", "o", ".", "directory the reports are written to")
	flags.StringVar(&reportFormat, "format", "HTML", "report format: XML, HTML, VULN, JSON, CSV, METRICS or ALL")
	flags.Float64Var(&failOnCVSS, "failOnCVSS", 11, "fail when a vulnerability scores at or above this CVSS (0-10)")
	flags.BoolVarP(&noUpdate, "noupdate", "n", false, "do not update the NVD data before the check")
	flags.BoolVar(&updateOnly, "updateonly", false, "only update the NVD data, deprecated in favour of the update command")
	flags.BoolVar(&noSummary, "noSummary", false, "do not print the vulnerability summary")
	flags.BoolVar(&experimental, "enableExperimental", false, "enable the experimental analyzers")
	flags.BoolVar(&nexusUsesProxy, "nexusUsesProxy", true, "use the proxy to reach the Nexus server")
	flags.StringSliceVar(&excludes, "exclude", nil, "patterns excluded when scanning directories")

	for _, f := range analyzerFlags {
		v := new(bool)
		analyzerValues[f.name] = v
		flags.BoolVar(v, f.name, false, f.usage)
	}
	for _, f := range checkStringFlags {
		v := new(string)
		checkValues[f.name] = v
		flags.StringVar(v, f.name, "", f.usage)
	}

	addUpdateFlags(checkCmd)
	return checkCmd
}
