package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/packages"
	"github.com/kvesta/depcheck/pkg/settings"
)

// pythonDistributionAnalyzer reads the metadata of installed distributions,
// METADATA in *.dist-info and PKG-INFO in *.egg-info.
type pythonDistributionAnalyzer struct {
	base
}

func newPythonDistributionAnalyzer() *pythonDistributionAnalyzer {
	return &pythonDistributionAnalyzer{
		base: base{name: "Python Distribution Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerPyDist},
	}
}

func (a *pythonDistributionAnalyzer) ParallelSafe() bool { return true }

func (a *pythonDistributionAnalyzer) Accepts(d *dependency.Dependency) bool {
	if d.Virtual {
		return false
	}

	dir := filepath.Base(filepath.Dir(d.ActualFilePath))
	switch filepath.Base(d.ActualFilePath) {
	case "METADATA":
		return strings.HasSuffix(dir, ".dist-info")
	case "PKG-INFO":
		return strings.HasSuffix(dir, ".egg-info") || dir == "EGG-INFO"
	}
	return false
}

func (a *pythonDistributionAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	f, err := os.Open(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}
	defer f.Close()

	pip, err := packages.ParsePythonMetadata(f)
	if err != nil {
		return analyzeError(a, d, err)
	}

	if name, version, ok := packages.ParseDistInfoName(filepath.Base(filepath.Dir(d.ActualFilePath))); ok {
		d.AddEvidence(dependency.Product, "directory", "name", name, dependency.Medium)
		d.AddEvidence(dependency.Version, "directory", "version", version, dependency.Medium)
		if pip.Name == "" {
			pip.Name, pip.Version = name, version
		}
	}

	recordPackage(d, "pypi", "metadata", pip.Package, dependency.Highest)
	d.AddEvidence(dependency.Vendor, "metadata", "author", pip.Author, dependency.Low)
	addPurl(d, "pypi", "", strings.ToLower(pip.Name), pip.Version)

	return nil
}

// pythonPackageAnalyzer reads setup.py, pyproject.toml and the __version__ of
// package __init__.py files. An __init__.py without a version is dropped.
type pythonPackageAnalyzer struct {
	base
	fileFilter
}

func newPythonPackageAnalyzer() *pythonPackageAnalyzer {
	return &pythonPackageAnalyzer{
		base:       base{name: "Python Package Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerPyPackage},
		fileFilter: fileFilter{names: []string{"setup.py", "pyproject.toml", "__init__.py"}},
	}
}

func (a *pythonPackageAnalyzer) ParallelSafe() bool { return true }

func (a *pythonPackageAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, e Engine) error {
	f, err := os.Open(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}
	defer f.Close()

	var pip *packages.PIP

	switch strings.ToLower(filepath.Base(d.ActualFilePath)) {
	case "__init__.py":
		version := packages.ParseInitVersion(f)
		if version == "" {
			e.RemoveDependency(d)
			return nil
		}
		pip = &packages.PIP{Package: packages.Package{
			Name:    filepath.Base(filepath.Dir(d.ActualFilePath)),
			Version: version,
		}}
	case "pyproject.toml":
		pip, err = packages.ParsePyproject(f)
	default:
		pip, err = packages.ParseSetupPy(f)
	}
	if err != nil {
		return analyzeError(a, d, err)
	}
	if pip.Name == "" && pip.Version == "" {
		return nil
	}

	recordPackage(d, "pypi", "package", pip.Package, dependency.High)
	d.AddEvidence(dependency.Vendor, "package", "author", pip.Author, dependency.Low)
	addPurl(d, "pypi", "", strings.ToLower(pip.Name), pip.Version)

	return nil
}
