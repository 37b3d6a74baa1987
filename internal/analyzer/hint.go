package analyzer

import (
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/kvesta/depcheck/config"
	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/settings"
)

type hintEvidence struct {
	Type       string `xml:"type,attr"`
	Source     string `xml:"source,attr"`
	Name       string `xml:"name,attr"`
	Value      string `xml:"value,attr"`
	Regex      bool   `xml:"regex,attr"`
	Confidence string `xml:"confidence,attr"`

	re   *regexp.Regexp
	conf dependency.Confidence
}

type hintFileName struct {
	Contains      string `xml:"contains,attr"`
	Regex         bool   `xml:"regex,attr"`
	CaseSensitive bool   `xml:"caseSensitive,attr"`

	re *regexp.Regexp
}

type hintRule struct {
	Given struct {
		Evidence []*hintEvidence `xml:"evidence"`
		FileName []*hintFileName `xml:"fileName"`
	} `xml:"given"`
	Add struct {
		Evidence []*hintEvidence `xml:"evidence"`
	} `xml:"add"`
}

type vendorDuplicatingHint struct {
	Value     string `xml:"value,attr"`
	Duplicate string `xml:"duplicate,attr"`
}

type hints struct {
	XMLName    xml.Name                 `xml:"hints"`
	Hints      []*hintRule              `xml:"hint"`
	Duplicates []*vendorDuplicatingHint `xml:"vendorDuplicatingHint"`
}

// parseHints reads a hints document and compiles its patterns.
func parseHints(data []byte) (*hints, error) {
	var h hints
	if err := xml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("invalid hints file: %w", err)
	}

	for _, rule := range h.Hints {
		for _, ev := range append(append([]*hintEvidence{}, rule.Given.Evidence...), rule.Add.Evidence...) {
			if err := ev.compile(); err != nil {
				return nil, err
			}
		}
		for _, fn := range rule.Given.FileName {
			if !fn.Regex {
				continue
			}
			expr := fn.Contains
			if !fn.CaseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("invalid fileName pattern %q: %w", fn.Contains, err)
			}
			fn.re = re
		}
	}

	return &h, nil
}

func (ev *hintEvidence) compile() error {
	switch dependency.EvidenceType(strings.ToLower(ev.Type)) {
	case dependency.Vendor, dependency.Product, dependency.Version:
	default:
		return fmt.Errorf("unknown evidence type %q", ev.Type)
	}

	conf, err := dependency.ParseConfidence(ev.Confidence)
	if err != nil {
		return err
	}
	ev.conf = conf

	if ev.Regex {
		re, err := regexp.Compile("(?i)^(?:" + ev.Value + ")$")
		if err != nil {
			return fmt.Errorf("invalid evidence pattern %q: %w", ev.Value, err)
		}
		ev.re = re
	}
	return nil
}

// matches reports whether e satisfies the given evidence. Empty source and
// name match anything; a given confidence is a minimum.
func (ev *hintEvidence) matches(e *dependency.Evidence) bool {
	if string(e.Type) != strings.ToLower(ev.Type) {
		return false
	}
	if ev.Source != "" && !strings.EqualFold(ev.Source, e.Source) {
		return false
	}
	if ev.Name != "" && !strings.EqualFold(ev.Name, e.Name) {
		return false
	}
	if ev.Confidence != "" && e.Confidence < ev.conf {
		return false
	}
	if ev.re != nil {
		return ev.re.MatchString(e.Value)
	}
	return strings.EqualFold(ev.Value, e.Value)
}

func (fn *hintFileName) matches(name string) bool {
	if fn.re != nil {
		return fn.re.MatchString(name)
	}
	if fn.CaseSensitive {
		return strings.Contains(name, fn.Contains)
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(fn.Contains))
}

func (rule *hintRule) applies(d *dependency.Dependency) bool {
	for _, fn := range rule.Given.FileName {
		if fn.matches(d.FileName) {
			return true
		}
	}
	for _, given := range rule.Given.Evidence {
		for _, e := range d.Evidence {
			if given.matches(e) {
				return true
			}
		}
	}
	return false
}

// hintAnalyzer adds evidence described by a hints file when a dependency
// carries the given evidence or file name.
type hintAnalyzer struct {
	base
	rules *hints
}

func newHintAnalyzer() *hintAnalyzer {
	return &hintAnalyzer{
		base: base{name: "Hint Analyzer", phase: PreIdentifierAnalysis, key: settings.KeyAnalyzerHint},
	}
}

func (a *hintAnalyzer) ParallelSafe() bool { return true }

func (a *hintAnalyzer) Prepare(ctx context.Context, e Engine) error {
	s := e.Settings()
	location := s.String(settings.KeyHintsFile)
	if location == "" {
		return nil
	}

	data, err := loadResource(ctx, s, location)
	if err != nil {
		return fmt.Errorf("unable to load hints file %s: %w", location, err)
	}

	rules, err := parseHints(data)
	if err != nil {
		return err
	}

	config.Verbosef("Loaded %d hints from %s", len(rules.Hints)+len(rules.Duplicates), location)
	a.rules = rules
	return nil
}

func (a *hintAnalyzer) Accepts(*dependency.Dependency) bool {
	return a.rules != nil
}

func (a *hintAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	for _, rule := range a.rules.Hints {
		if !rule.applies(d) {
			continue
		}
		for _, add := range rule.Add.Evidence {
			source := add.Source
			if source == "" {
				source = "hint analyzer"
			}
			d.AddEvidence(dependency.EvidenceType(strings.ToLower(add.Type)), source, add.Name, add.Value, add.conf)
		}
	}

	for _, dup := range a.rules.Duplicates {
		for _, e := range d.EvidenceOf(dependency.Vendor) {
			if strings.EqualFold(e.Value, dup.Value) {
				d.AddEvidence(dependency.Vendor, e.Source, e.Name, dup.Duplicate, e.Confidence)
			}
		}
	}

	return nil
}
