package analyzer

import (
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kvesta/depcheck/config"
	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/settings"
)

// property is a suppression value, matched literally or as a pattern.
type property struct {
	Value         string `xml:",chardata"`
	Regex         bool   `xml:"regex,attr"`
	CaseSensitive bool   `xml:"caseSensitive,attr"`

	re *regexp.Regexp
}

func (p *property) compile() error {
	p.Value = strings.TrimSpace(p.Value)
	if !p.Regex {
		return nil
	}

	expr := "^(?:" + p.Value + ")$"
	if !p.CaseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid suppression pattern %q: %w", p.Value, err)
	}
	p.re = re
	return nil
}

func (p *property) matches(s string) bool {
	if p.re != nil {
		return p.re.MatchString(s)
	}
	if p.CaseSensitive {
		return p.Value == s
	}
	return strings.EqualFold(p.Value, s)
}

// matchesCPE compares a literal cpe as a prefix, so cpe:/a:apache:struts
// covers every version.
func (p *property) matchesCPE(cpe string) bool {
	if p.re != nil {
		return p.re.MatchString(cpe)
	}
	value := strings.ToLower(p.Value)
	cpe = strings.ToLower(cpe)
	return cpe == value || strings.HasPrefix(cpe, value+":")
}

type suppressionRule struct {
	Until             string      `xml:"until,attr"`
	Notes             string      `xml:"notes"`
	FilePath          *property   `xml:"filePath"`
	SHA1              string      `xml:"sha1"`
	GAV               *property   `xml:"gav"`
	PackageURL        *property   `xml:"packageUrl"`
	CPE               []*property `xml:"cpe"`
	CVE               []string    `xml:"cve"`
	VulnerabilityName []*property `xml:"vulnerabilityName"`
	CvssBelow         []float64   `xml:"cvssBelow"`

	expired bool
}

type suppressions struct {
	XMLName xml.Name           `xml:"suppressions"`
	Rules   []*suppressionRule `xml:"suppress"`
}

// parseSuppressions reads a suppression document and compiles its patterns.
func parseSuppressions(data []byte, now time.Time) ([]*suppressionRule, error) {
	var doc suppressions
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid suppression file: %w", err)
	}

	for _, rule := range doc.Rules {
		props := append([]*property{rule.FilePath, rule.GAV, rule.PackageURL}, rule.CPE...)
		props = append(props, rule.VulnerabilityName...)
		for _, p := range props {
			if p == nil {
				continue
			}
			if err := p.compile(); err != nil {
				return nil, err
			}
		}

		if rule.Until != "" {
			until, err := time.Parse("2006-01-02", strings.TrimSuffix(rule.Until, "Z"))
			if err != nil {
				return nil, fmt.Errorf("invalid until date %q: %w", rule.Until, err)
			}
			rule.expired = !now.Before(until)
		}
	}

	return doc.Rules, nil
}

// appliesTo reports whether the dependency selectors of a rule match d.
func (r *suppressionRule) appliesTo(d *dependency.Dependency) bool {
	if r.FilePath != nil && !r.FilePath.matches(d.FilePath) {
		return false
	}
	if r.SHA1 != "" && !strings.EqualFold(strings.TrimSpace(r.SHA1), d.SHA1) {
		return false
	}
	if r.GAV != nil && !anyIdentifier(d, dependency.IdentifierMaven, r.GAV.matches) {
		return false
	}
	if r.PackageURL != nil && !anyIdentifier(d, dependency.IdentifierPURL, r.PackageURL.matches) {
		return false
	}
	return true
}

func (r *suppressionRule) hasVulnerabilityCriteria() bool {
	return len(r.CVE) > 0 || len(r.VulnerabilityName) > 0 || len(r.CvssBelow) > 0
}

func (r *suppressionRule) matchesCPE(cpe string) bool {
	for _, p := range r.CPE {
		if p.matchesCPE(cpe) {
			return true
		}
	}
	return false
}

func (r *suppressionRule) suppressesVulnerability(v *dependency.Vulnerability) bool {
	if len(r.CPE) > 0 && !r.matchesCPE(v.MatchedCPE) {
		return false
	}
	for _, cve := range r.CVE {
		if strings.EqualFold(strings.TrimSpace(cve), v.Name) {
			return true
		}
	}
	for _, name := range r.VulnerabilityName {
		if name.matches(v.Name) {
			return true
		}
	}
	for _, below := range r.CvssBelow {
		if v.CvssScore < below {
			return true
		}
	}
	return false
}

func anyIdentifier(d *dependency.Dependency, t string, match func(string) bool) bool {
	for _, id := range d.IdentifiersOf(t) {
		if match(id.Value) {
			return true
		}
	}
	return false
}

var now = time.Now

// suppressionAnalyzer removes false positives listed in suppression files.
// It runs twice: after identification for CPE rules and after the findings
// for vulnerability rules.
type suppressionAnalyzer struct {
	base
	rules []*suppressionRule
}

func newSuppressionAnalyzer(phase Phase) *suppressionAnalyzer {
	name := "Vulnerability Suppression Analyzer"
	if phase < FindingAnalysis {
		name = "Cpe Suppression Analyzer"
	}
	return &suppressionAnalyzer{
		base: base{name: name, phase: phase, key: settings.KeyAnalyzerSuppression},
	}
}

func (a *suppressionAnalyzer) ParallelSafe() bool { return true }

func (a *suppressionAnalyzer) Prepare(ctx context.Context, e Engine) error {
	s := e.Settings()
	for _, location := range s.StringSlice(settings.KeySuppressionFile) {
		data, err := loadResource(ctx, s, location)
		if err != nil {
			return fmt.Errorf("unable to load suppression file %s: %w", location, err)
		}

		rules, err := parseSuppressions(data, now())
		if err != nil {
			return fmt.Errorf("%s: %w", location, err)
		}

		for _, r := range rules {
			if r.expired {
				config.Warnf("Suppression rule expired on %s and is ignored: %s", r.Until, strings.TrimSpace(r.Notes))
				continue
			}
			a.rules = append(a.rules, r)
		}
	}
	return nil
}

func (a *suppressionAnalyzer) Accepts(*dependency.Dependency) bool {
	return len(a.rules) > 0
}

func (a *suppressionAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	for _, r := range a.rules {
		if !r.appliesTo(d) {
			continue
		}

		if len(r.CPE) > 0 && !r.hasVulnerabilityCriteria() {
			kept := d.Identifiers[:0]
			for _, id := range d.Identifiers {
				if id.Type == dependency.IdentifierCPE && r.matchesCPE(id.Value) {
					d.SuppressedIdentifiers = append(d.SuppressedIdentifiers, id)
					continue
				}
				kept = append(kept, id)
			}
			d.Identifiers = kept

			// vulnerabilities already found through the identifier go with it
			a.suppress(d, func(v *dependency.Vulnerability) bool { return r.matchesCPE(v.MatchedCPE) })
			continue
		}

		if r.hasVulnerabilityCriteria() {
			a.suppress(d, r.suppressesVulnerability)
		}
	}
	return nil
}

func (a *suppressionAnalyzer) suppress(d *dependency.Dependency, match func(*dependency.Vulnerability) bool) {
	kept := d.Vulnerabilities[:0]
	for _, v := range d.Vulnerabilities {
		if match(v) {
			d.SuppressedVulnerabilities = append(d.SuppressedVulnerabilities, v)
			continue
		}
		kept = append(kept, v)
	}
	d.Vulnerabilities = kept
}
