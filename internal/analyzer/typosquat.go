package analyzer

import (
	"context"
	"fmt"

	"github.com/kvesta/depcheck/config"
	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/match"
	"github.com/kvesta/depcheck/pkg/settings"
)

// typosquatAnalyzer flags npm and PyPI packages named like a popular package,
// and known malicious look-alikes.
type typosquatAnalyzer struct {
	base
}

func newTyposquatAnalyzer() *typosquatAnalyzer {
	return &typosquatAnalyzer{
		base: base{name: "Typosquatting Analyzer", phase: IdentifierAnalysis, key: settings.KeyAnalyzerTyposquat},
	}
}

func (a *typosquatAnalyzer) Experimental() bool { return true }

func (a *typosquatAnalyzer) ParallelSafe() bool { return true }

func (a *typosquatAnalyzer) Accepts(d *dependency.Dependency) bool {
	return d.Name != "" && (d.Ecosystem == "npm" || d.Ecosystem == "pypi")
}

func (a *typosquatAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	s := match.Match(d.Ecosystem, d.Name)

	switch s.Types {
	case match.Malware:
		config.Warnf("%s is a known malicious package", config.Red(d.Name))
		d.AddVulnerability(&dependency.Vulnerability{
			Name:        "MALICIOUS-PACKAGE",
			Description: fmt.Sprintf("%s is a known malicious package impersonating %s", d.Name, s.OriginPack),
			Severity:    "critical",
			CvssScore:   10,
			Source:      "typosquat",
		})
	case match.Confusion:
		d.AddVulnerability(&dependency.Vulnerability{
			Name: "TYPOSQUAT",
			Description: fmt.Sprintf("%s looks like a typo of the popular package %s (similarity %.2f)",
				d.Name, s.OriginPack, s.Ratio),
			Severity:  "medium",
			CvssScore: 5,
			Source:    "typosquat",
		})
	}

	return nil
}
