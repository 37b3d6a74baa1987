// Package analyzer holds the analyzers run by the engine. Each analyzer looks
// at one dependency at a time and records evidence, identifiers or
// vulnerabilities on it.
package analyzer

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/settings"
	"github.com/kvesta/depcheck/pkg/vulnlib"
)

type Phase int

const (
	Initial Phase = iota
	InformationCollection
	PreIdentifierAnalysis
	IdentifierAnalysis
	PostIdentifierAnalysis
	PreFindingAnalysis
	FindingAnalysis
	PostFindingAnalysis
	Final
)

var phaseNames = []string{
	"INITIAL",
	"INFORMATION_COLLECTION",
	"PRE_IDENTIFIER_ANALYSIS",
	"IDENTIFIER_ANALYSIS",
	"POST_IDENTIFIER_ANALYSIS",
	"PRE_FINDING_ANALYSIS",
	"FINDING_ANALYSIS",
	"POST_FINDING_ANALYSIS",
	"FINAL",
}

func (p Phase) String() string {
	if p < Initial || p > Final {
		return "UNKNOWN"
	}
	return phaseNames[p]
}

// Phases lists every phase in execution order.
func Phases() []Phase {
	phases := make([]Phase, 0, len(phaseNames))
	for p := Initial; p <= Final; p++ {
		phases = append(phases, p)
	}
	return phases
}

// Database is the part of the CVE store the analyzers read.
type Database interface {
	ProductExists(vendor, product string) (bool, error)
	VendorsForProduct(product string) ([]string, error)
	QueryVulnByProduct(vendor, product string) ([]*vulnlib.DBRow, error)
	QueryVulnByCVEID(cveid string) ([]*vulnlib.DBRow, error)
}

// Engine is what an analyzer may use from the engine running it.
type Engine interface {
	Settings() *settings.Settings
	Database() Database
	// Scan adds the files below path as new dependencies and returns them.
	// They are analyzed from the initial phase on.
	Scan(path string) []*dependency.Dependency
	AddDependency(d *dependency.Dependency)
	RemoveDependency(d *dependency.Dependency)
}

type Analyzer interface {
	Name() string
	Phase() Phase
	// Key is the settings key enabling the analyzer.
	Key() string
	Accepts(d *dependency.Dependency) bool
	Analyze(ctx context.Context, d *dependency.Dependency, e Engine) error
}

// Preparer is implemented by analyzers needing setup before the first
// dependency. An analyzer failing to prepare is disabled.
type Preparer interface {
	Prepare(ctx context.Context, e Engine) error
}

// Configurer is implemented by analyzers whose accepted files depend on the
// settings. The engine configures them before scanning.
type Configurer interface {
	Configure(s *settings.Settings)
}

// ParallelSafe analyzers may process the dependencies of a phase concurrently.
type ParallelSafe interface {
	ParallelSafe() bool
}

// Experimental analyzers only run when analyzer.experimental.enabled is set.
type Experimental interface {
	Experimental() bool
}

// Enabled reports whether a is switched on by s.
func Enabled(a Analyzer, s *settings.Settings) bool {
	if !s.Bool(a.Key()) {
		return false
	}
	if ex, ok := a.(Experimental); ok && ex.Experimental() {
		return s.Bool(settings.KeyAnalyzerExperimental)
	}
	return true
}

// IsParallelSafe reports whether a declares itself safe for concurrent use.
func IsParallelSafe(a Analyzer) bool {
	ps, ok := a.(ParallelSafe)
	return ok && ps.ParallelSafe()
}

// All returns every analyzer, enabled or not, ordered by phase.
func All() []Analyzer {
	return []Analyzer{
		newArchiveAnalyzer(),

		newJarAnalyzer(),
		newCentralAnalyzer(),
		newNexusAnalyzer(),
		newNodePackageAnalyzer(),
		newComposerLockAnalyzer(),
		newPythonDistributionAnalyzer(),
		newPythonPackageAnalyzer(),
		newRubyGemspecAnalyzer(),
		newNuspecAnalyzer(),
		newAssemblyAnalyzer(),
		newCMakeAnalyzer(),
		newAutoconfAnalyzer(),
		newOpenSSLAnalyzer(),
		newCocoaPodsAnalyzer(),
		newSwiftPackageAnalyzer(),
		newGolangModAnalyzer(),
		newGolangBinaryAnalyzer(),
		newCargoLockAnalyzer(),
		newRustBinaryAnalyzer(),

		newHintAnalyzer(),
		newCPEAnalyzer(),
		newTyposquatAnalyzer(),
		newSuppressionAnalyzer(PostIdentifierAnalysis),
		newBundleAuditAnalyzer(),
		newNvdCveAnalyzer(),
		newSuppressionAnalyzer(PostFindingAnalysis),
	}
}

type base struct {
	name  string
	phase Phase
	key   string
}

func (b *base) Name() string { return b.name }

func (b *base) Phase() Phase { return b.phase }

func (b *base) Key() string { return b.key }

// fileFilter matches dependencies backed by a file, by base name or extension.
type fileFilter struct {
	names []string
	exts  []string
}

func (f fileFilter) Accepts(d *dependency.Dependency) bool {
	if d.Virtual {
		return false
	}
	return f.match(d.ActualFilePath)
}

func (f fileFilter) match(path string) bool {
	name := filepath.Base(path)
	for _, n := range f.names {
		if strings.EqualFold(name, n) {
			return true
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range f.exts {
		if ext == e {
			return true
		}
	}
	return false
}
