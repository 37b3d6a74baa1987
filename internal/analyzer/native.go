package analyzer

import (
	"context"
	"os"
	"strings"

	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/packages"
	"github.com/kvesta/depcheck/pkg/settings"
)

type cmakeAnalyzer struct {
	base
	fileFilter
}

func newCMakeAnalyzer() *cmakeAnalyzer {
	return &cmakeAnalyzer{
		base:       base{name: "CMake Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerCMake},
		fileFilter: fileFilter{names: []string{"CMakeLists.txt"}, exts: []string{".cmake"}},
	}
}

func (a *cmakeAnalyzer) ParallelSafe() bool { return true }

func (a *cmakeAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	f, err := os.Open(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}
	defer f.Close()

	projects, err := packages.ParseCMake(f)
	if err != nil {
		return analyzeError(a, d, err)
	}

	for i, p := range projects {
		conf := dependency.High
		if i > 0 {
			conf = dependency.Medium
		}
		recordPackage(d, "native", "cmake", *p, conf)
	}
	return nil
}

type autoconfAnalyzer struct {
	base
	fileFilter
}

func newAutoconfAnalyzer() *autoconfAnalyzer {
	return &autoconfAnalyzer{
		base:       base{name: "Autoconf Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerAutoconf},
		fileFilter: fileFilter{names: []string{"configure", "configure.ac", "configure.in"}},
	}
}

func (a *autoconfAnalyzer) ParallelSafe() bool { return true }

func (a *autoconfAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	f, err := os.Open(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}
	defer f.Close()

	p, err := packages.ParseAutoconf(f)
	if err != nil {
		// generated scripts of other build systems are also called configure
		return nil
	}

	recordPackage(d, "native", "configure", *p, dependency.High)
	return nil
}

type openSSLAnalyzer struct {
	base
	fileFilter
}

func newOpenSSLAnalyzer() *openSSLAnalyzer {
	return &openSSLAnalyzer{
		base:       base{name: "OpenSSL Source Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerOpenSSL},
		fileFilter: fileFilter{names: []string{"opensslv.h"}},
	}
}

func (a *openSSLAnalyzer) ParallelSafe() bool { return true }

func (a *openSSLAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	f, err := os.Open(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}
	defer f.Close()

	version, err := packages.ParseOpenSSLVersion(f)
	if err != nil {
		return analyzeError(a, d, err)
	}

	recordPackage(d, "native", "OpenSSL Source Analyzer", packages.Package{
		Name:    "openssl",
		Vendor:  "openssl",
		Version: version,
	}, dependency.Highest)
	return nil
}

type swiftPackageAnalyzer struct {
	base
	fileFilter
}

func newSwiftPackageAnalyzer() *swiftPackageAnalyzer {
	return &swiftPackageAnalyzer{
		base:       base{name: "SWIFT Package Manager Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerSwift},
		fileFilter: fileFilter{names: []string{"Package.swift"}},
	}
}

func (a *swiftPackageAnalyzer) Experimental() bool { return true }

func (a *swiftPackageAnalyzer) ParallelSafe() bool { return true }

func (a *swiftPackageAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	f, err := os.Open(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}
	defer f.Close()

	p, err := packages.ParseSwiftPackage(f)
	if err != nil {
		return analyzeError(a, d, err)
	}

	recordPackage(d, "swift", "Package.swift", *p, dependency.High)
	addPurl(d, "swift", "", strings.ToLower(p.Name), "")
	return nil
}
