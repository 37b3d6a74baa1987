package task

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kvesta/depcheck/internal/engine"
	"github.com/kvesta/depcheck/internal/report"
	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/settings"
)

const defaultProjectName = "dependency-check"

// Check scans the files of its resource collections, analyzes them, writes
// the reports and optionally fails the build on vulnerable dependencies.
type Check struct {
	Update `yaml:",inline"`

	ProjectName           string  `yaml:"projectName"`
	ApplicationName       *string `yaml:"applicationName"`
	ReportOutputDirectory string  `yaml:"reportOutputDirectory"`
	FailBuildOnCVSS       float64 `yaml:"failBuildOnCVSS"`
	AutoUpdate            *bool   `yaml:"autoUpdate"`
	UpdateOnly            bool    `yaml:"updateOnly"`
	ReportFormat          string  `yaml:"reportFormat"`
	SuppressionFile       *string `yaml:"suppressionFile"`
	HintsFile             *string `yaml:"hintsFile"`
	ShowSummary           bool    `yaml:"showSummary"`

	EnableExperimental                 *bool   `yaml:"enableExperimental"`
	JarAnalyzerEnabled                 *bool   `yaml:"jarAnalyzerEnabled"`
	ArchiveAnalyzerEnabled             *bool   `yaml:"archiveAnalyzerEnabled"`
	AssemblyAnalyzerEnabled            *bool   `yaml:"assemblyAnalyzerEnabled"`
	NuspecAnalyzerEnabled              *bool   `yaml:"nuspecAnalyzerEnabled"`
	ComposerAnalyzerEnabled            *bool   `yaml:"composerAnalyzerEnabled"`
	AutoconfAnalyzerEnabled            *bool   `yaml:"autoconfAnalyzerEnabled"`
	CMakeAnalyzerEnabled               *bool   `yaml:"cmakeAnalyzerEnabled"`
	BundleAuditAnalyzerEnabled         *bool   `yaml:"bundleAuditAnalyzerEnabled"`
	BundleAuditPath                    *string `yaml:"bundleAuditPath"`
	CocoapodsAnalyzerEnabled           *bool   `yaml:"cocoapodsAnalyzerEnabled"`
	SwiftPackageManagerAnalyzerEnabled *bool   `yaml:"swiftPackageManagerAnalyzerEnabled"`
	OpensslAnalyzerEnabled             *bool   `yaml:"opensslAnalyzerEnabled"`
	NodeAnalyzerEnabled                *bool   `yaml:"nodeAnalyzerEnabled"`
	RubygemsAnalyzerEnabled            *bool   `yaml:"rubygemsAnalyzerEnabled"`
	PyPackageAnalyzerEnabled           *bool   `yaml:"pyPackageAnalyzerEnabled"`
	PyDistributionAnalyzerEnabled      *bool   `yaml:"pyDistributionAnalyzerEnabled"`
	CentralAnalyzerEnabled             *bool   `yaml:"centralAnalyzerEnabled"`
	NexusAnalyzerEnabled               *bool   `yaml:"nexusAnalyzerEnabled"`
	NexusURL                           *string `yaml:"nexusUrl"`
	NexusUsesProxy                     *bool   `yaml:"nexusUsesProxy"`
	ZipExtensions                      *string `yaml:"zipExtensions"`
	PathToMono                         *string `yaml:"pathToMono"`
	GolangModAnalyzerEnabled           *bool   `yaml:"golangModAnalyzerEnabled"`
	CargoAnalyzerEnabled               *bool   `yaml:"cargoAnalyzerEnabled"`

	mu    sync.Mutex
	path  *Resources
	refID string
}

func NewCheck(p *Project) *Check {
	c := &Check{
		ProjectName:           defaultProjectName,
		ReportOutputDirectory: ".",
		FailBuildOnCVSS:       11,
		ReportFormat:          string(report.HTML),
		ShowSummary:           true,
	}
	c.Project = p
	c.taskName = "dependency-check"
	return c
}

// Add appends a nested resource collection.
func (t *Check) Add(rc ResourceCollection) error {
	if t.IsReference() {
		return buildError("Nested elements are not allowed when using the refId attribute.")
	}
	t.getPath().Add(rc)
	return nil
}

func (t *Check) getPath() *Resources {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.path == nil {
		t.path = NewResources(true)
	}
	return t.path
}

func (t *Check) IsReference() bool {
	return t.refID != ""
}

// SetRefID uses a resource collection defined elsewhere in the project.
func (t *Check) SetRefID(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.path != nil {
		return buildError("Nested elements are not allowed when using the refId attribute.")
	}
	t.refID = id
	return nil
}

func (t *Check) dealWithReferences() error {
	if !t.IsReference() {
		return nil
	}

	o, ok := t.project().Reference(t.refID)
	if !ok {
		return buildError(fmt.Sprintf("Reference %s not found.", t.refID))
	}
	rc, ok := o.(ResourceCollection)
	if !ok {
		return buildError(fmt.Sprintf("refId '%s' does not refer to a resource collection.", t.refID))
	}

	t.getPath().Add(rc)
	return nil
}

// projectName falls back to the deprecated applicationName.
func (t *Check) projectName() string {
	if t.ApplicationName != nil {
		t.log("Configuration 'applicationName' has been deprecated, please use 'projectName' instead", LevelWarn)
		if t.ProjectName == defaultProjectName {
			t.ProjectName = *t.ApplicationName
		}
	}
	return t.ProjectName
}

func (t *Check) validateConfiguration() error {
	t.mu.Lock()
	path := t.path
	t.mu.Unlock()

	if path == nil {
		return buildError("No project dependencies have been defined to analyze.")
	}
	if t.FailBuildOnCVSS < 0 || t.FailBuildOnCVSS > 11 {
		return buildError("Invalid configuration, failBuildOnCVSS must be between 0 and 11.")
	}
	if _, err := report.ParseFormat(t.ReportFormat); err != nil {
		return &BuildError{Msg: fmt.Sprintf("Invalid configuration, reportFormat: %v", err), Err: err}
	}
	return nil
}

func (t *Check) populateSettings(s *settings.Settings) error {
	if err := t.Update.populateSettings(s); err != nil {
		return err
	}

	s.SetBooleanIfNotNull(settings.KeyAutoUpdate, t.AutoUpdate)
	s.SetStringIfNotEmpty(settings.KeySuppressionFile, t.resolveLocation(t.SuppressionFile))
	s.SetStringIfNotEmpty(settings.KeyHintsFile, t.resolveLocation(t.HintsFile))
	s.SetBooleanIfNotNull(settings.KeyAnalyzerExperimental, t.EnableExperimental)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerJar, t.JarAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerPyDist, t.PyDistributionAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerPyPackage, t.PyPackageAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerRubyGemspec, t.RubygemsAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerOpenSSL, t.OpensslAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerCMake, t.CMakeAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerSwift, t.SwiftPackageManagerAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerCocoapods, t.CocoapodsAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerBundleAudit, t.BundleAuditAnalyzerEnabled)
	s.SetStringIfNotNull(settings.KeyAnalyzerBundleAuditPath, t.BundleAuditPath)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerAutoconf, t.AutoconfAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerComposerLock, t.ComposerAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerNodePackage, t.NodeAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerNuspec, t.NuspecAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerCentral, t.CentralAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerNexus, t.NexusAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerArchive, t.ArchiveAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerAssembly, t.AssemblyAnalyzerEnabled)
	s.SetStringIfNotEmpty(settings.KeyAnalyzerNexusURL, t.NexusURL)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerNexusProxy, t.NexusUsesProxy)
	s.SetStringIfNotEmpty(settings.KeyAdditionalZipExtension, t.ZipExtensions)
	s.SetStringIfNotEmpty(settings.KeyAnalyzerAssemblyMono, t.PathToMono)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerGolangMod, t.GolangModAnalyzerEnabled)
	s.SetBooleanIfNotNull(settings.KeyAnalyzerCargo, t.CargoAnalyzerEnabled)
	return nil
}

// resolveLocation makes a relative file path relative to the project base
// directory. URLs are kept as given.
func (t *Check) resolveLocation(loc *string) *string {
	if loc == nil || *loc == "" {
		return loc
	}
	lower := strings.ToLower(*loc)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return loc
	}
	resolved := t.project().Resolve(*loc)
	return &resolved
}

// Execute runs the check.
func (t *Check) Execute(ctx context.Context) error {
	if err := t.dealWithReferences(); err != nil {
		return err
	}
	if err := t.validateConfiguration(); err != nil {
		return err
	}

	s := settings.New()
	defer s.Cleanup(true)

	if err := t.populateSettings(s); err != nil {
		return err
	}

	e, err := newEngine(s)
	if err != nil {
		return t.handle(err)
	}
	defer e.Cleanup()

	if t.UpdateOnly {
		t.log("Deprecated 'UpdateOnly' property set; please use the UpdateTask instead", LevelWarn)
		if err := e.DoUpdates(ctx); err != nil {
			return t.handle(err)
		}
		return nil
	}

	if err := t.scan(e); err != nil {
		return err
	}

	if err := e.AnalyzeDependencies(ctx); err != nil {
		var exceptions *engine.ExceptionCollection
		if !errors.As(err, &exceptions) {
			return t.handle(err)
		}
		if t.IsFailOnError() {
			return &BuildError{Err: err}
		}
	}

	format, _ := report.ParseFormat(t.ReportFormat)
	if err := e.WriteReports(t.projectName(), t.project().Resolve(t.ReportOutputDirectory), format); err != nil {
		return t.handle(err)
	}

	deps := e.Dependencies()
	if t.FailBuildOnCVSS <= 10 {
		if err := t.checkForFailure(deps); err != nil {
			return err
		}
	}
	if t.ShowSummary {
		t.showSummary(deps)
	}
	return nil
}

func (t *Check) scan(e Engine) error {
	resources, err := t.getPath().Iterate()
	if err != nil {
		return &BuildError{Msg: "Unable to resolve the project dependencies", Err: err}
	}

	for _, r := range resources {
		fp, ok := r.(FileProvider)
		if !ok {
			continue
		}
		file := fp.File()
		if file == "" {
			continue
		}
		if _, err := os.Stat(file); err == nil {
			e.Scan(file)
		}
	}
	return nil
}

// handle maps engine failures onto build errors, or logs them when
// failOnError is off.
func (t *Check) handle(err error) error {
	var (
		dbErr     *engine.DatabaseError
		reportErr *engine.ReportError
		updErr    *engine.UpdateError
	)

	switch {
	case errors.As(err, &dbErr):
		return t.fail("Unable to connect to the dependency-check database; analysis has stopped", err)
	case errors.As(err, &reportErr):
		return t.fail("Unable to generate the dependency-check report", err)
	case errors.As(err, &updErr):
		if t.IsFailOnError() {
			return &BuildError{Err: err}
		}
		t.log(err.Error(), LevelError)
		return nil
	}
	return &BuildError{Err: err}
}

// checkForFailure fails the build when a vulnerability scores at or above
// FailBuildOnCVSS.
func (t *Check) checkForFailure(deps []*dependency.Dependency) error {
	var ids []string
	for _, d := range deps {
		for _, v := range d.Vulnerabilities {
			if v.CvssScore >= t.FailBuildOnCVSS {
				ids = append(ids, v.Name)
			}
		}
	}

	if len(ids) == 0 {
		return nil
	}

	return buildError(fmt.Sprintf("\n\nDependency-Check Failure:\n"+
		"One or more dependencies were identified with vulnerabilities that have a CVSS score greater than or equal to '%.1f': %s\n"+
		"See the dependency-check report for more details.\n\n", t.FailBuildOnCVSS, strings.Join(ids, ", ")))
}

// showSummary warns about every vulnerable dependency.
func (t *Check) showSummary(deps []*dependency.Dependency) {
	var summary strings.Builder
	for _, d := range deps {
		if len(d.Vulnerabilities) == 0 {
			continue
		}

		ids := make([]string, 0, len(d.Identifiers))
		for _, id := range d.Identifiers {
			ids = append(ids, id.Value)
		}
		names := make([]string, 0, len(d.Vulnerabilities))
		for _, v := range d.Vulnerabilities {
			names = append(names, v.Name)
		}

		fmt.Fprintf(&summary, "%s (%s) : %s\n", d.FileName, strings.Join(ids, ", "), strings.Join(names, ", "))
	}

	if summary.Len() == 0 {
		return
	}

	t.log(fmt.Sprintf("\n\nOne or more dependencies were identified with known vulnerabilities:\n\n%s"+
		"\n\nSee the dependency-check report for more details.\n\n", summary.String()), LevelWarn)

	if out := t.project().Out; out != nil {
		if err := report.ResolveDependencyData(out, deps); err != nil {
			t.logError("Unable to print the summary table", err)
		}
	}
}
