package analyzer

import (
	"context"
	"os"

	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/packages"
	"github.com/kvesta/depcheck/pkg/settings"
)

// cargoLockAnalyzer reports the crates pinned by a Cargo.lock.
type cargoLockAnalyzer struct {
	base
	fileFilter
}

func newCargoLockAnalyzer() *cargoLockAnalyzer {
	return &cargoLockAnalyzer{
		base:       base{name: "Cargo.lock Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerCargo},
		fileFilter: fileFilter{names: []string{"Cargo.lock"}},
	}
}

func (a *cargoLockAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, e Engine) error {
	f, err := os.Open(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}
	defer f.Close()

	lock, err := packages.ParseCargoLock(f)
	if err != nil {
		return analyzeError(a, d, err)
	}

	if lock.Name != "" {
		d.Ecosystem = "cargo"
		d.Name = lock.Name
	}
	for _, c := range lock.Deps {
		addCrate(e, d, "Cargo.lock", c)
	}
	return nil
}

// rustBinaryAnalyzer reads the dependency list cargo-auditable embeds in
// Rust executables.
type rustBinaryAnalyzer struct {
	base
}

func newRustBinaryAnalyzer() *rustBinaryAnalyzer {
	return &rustBinaryAnalyzer{
		base: base{name: "Rust Binary Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerCargo},
	}
}

func (a *rustBinaryAnalyzer) Experimental() bool { return true }

func (a *rustBinaryAnalyzer) Accepts(d *dependency.Dependency) bool {
	return isExecutable(d)
}

func (a *rustBinaryAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, e Engine) error {
	f, err := os.Open(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}
	defer f.Close()

	bin, err := packages.ParseRustBinary(f)
	if err != nil {
		// no audit data
		return nil
	}

	d.Ecosystem = "cargo"
	for _, c := range bin.Deps {
		addCrate(e, d, "cargo-auditable", c)
	}
	return nil
}

func addCrate(e Engine, parent *dependency.Dependency, source string, c *packages.Cargo) {
	nd := addVirtual(e, parent, "cargo", source, packages.Package{Name: c.Name, Version: c.Version})
	addPurl(nd, "cargo", "", c.Name, c.Version)
}
