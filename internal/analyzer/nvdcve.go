package analyzer

import (
	"context"
	"errors"
	"strings"

	"github.com/kvesta/depcheck/internal/vulnscan"
	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/settings"
)

// nvdCveAnalyzer looks up the vulnerabilities of every CPE identifier.
type nvdCveAnalyzer struct {
	base
	scanner *vulnscan.Scanner
}

func newNvdCveAnalyzer() *nvdCveAnalyzer {
	return &nvdCveAnalyzer{
		base: base{name: "NVD CVE Analyzer", phase: FindingAnalysis, key: settings.KeyAnalyzerNvdCve},
	}
}

func (a *nvdCveAnalyzer) ParallelSafe() bool { return true }

func (a *nvdCveAnalyzer) Prepare(_ context.Context, e Engine) error {
	db := e.Database()
	if db == nil {
		return errors.New("the CVE database is not available")
	}
	a.scanner = vulnscan.New(db)
	return nil
}

func (a *nvdCveAnalyzer) Accepts(d *dependency.Dependency) bool {
	return len(d.IdentifiersOf(dependency.IdentifierCPE)) > 0
}

func (a *nvdCveAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	for _, id := range d.IdentifiersOf(dependency.IdentifierCPE) {
		vendor, product, version, ok := splitCPE(id.Value)
		if !ok {
			continue
		}

		vulns, err := a.scanner.Scan(vendor, product, version)
		if err != nil {
			return analyzeError(a, d, err)
		}
		for _, v := range vulns {
			d.AddVulnerability(v)
		}
	}

	d.SortVulnerabilities()
	return nil
}

// splitCPE parses cpe:/a:vendor:product:version.
func splitCPE(cpe string) (vendor, product, version string, ok bool) {
	parts := strings.Split(strings.TrimPrefix(cpe, "cpe:/"), ":")
	if len(parts) < 4 || parts[0] != "a" {
		return "", "", "", false
	}
	return parts[1], parts[2], parts[3], true
}
