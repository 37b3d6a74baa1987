package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kvesta/depcheck/config"
	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/packages"
	"github.com/kvesta/depcheck/pkg/settings"
)

type rubyGemspecAnalyzer struct {
	base
	fileFilter
}

func newRubyGemspecAnalyzer() *rubyGemspecAnalyzer {
	return &rubyGemspecAnalyzer{
		base:       base{name: "Ruby Gemspec Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerRubyGemspec},
		fileFilter: fileFilter{exts: []string{".gemspec"}},
	}
}

func (a *rubyGemspecAnalyzer) ParallelSafe() bool { return true }

func (a *rubyGemspecAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	gem, err := parseGemspecFile(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}

	recordPackage(d, "rubygems", "gemspec", gem.Package, dependency.Highest)
	d.AddEvidence(dependency.Vendor, "gemspec", "authors", gem.Authors, dependency.Low)
	addPurl(d, "gem", "", gem.Name, gem.Version)
	return nil
}

func parseGemspecFile(path string) (*packages.Gem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return packages.ParseGemspec(f)
}

// bundleAuditAnalyzer runs bundle-audit against a Gemfile.lock and records the
// advisories it reports on one dependency per vulnerable gem.
type bundleAuditAnalyzer struct {
	base
	fileFilter

	path string
}

func newBundleAuditAnalyzer() *bundleAuditAnalyzer {
	return &bundleAuditAnalyzer{
		base:       base{name: "Ruby Bundle Audit Analyzer", phase: PreFindingAnalysis, key: settings.KeyAnalyzerBundleAudit},
		fileFilter: fileFilter{names: []string{"Gemfile.lock"}},
	}
}

func (a *bundleAuditAnalyzer) Experimental() bool { return true }

func (a *bundleAuditAnalyzer) Prepare(ctx context.Context, e Engine) error {
	path := e.Settings().String(settings.KeyAnalyzerBundleAuditPath)
	if path == "" {
		path = "bundle-audit"
	}

	found, err := exec.LookPath(path)
	if err != nil {
		return fmt.Errorf("bundle-audit is not available at %s: %w", path, err)
	}

	if out, err := exec.CommandContext(ctx, found, "version").CombinedOutput(); err != nil {
		return fmt.Errorf("failed to run %s: %w: %s", found, err, bytes.TrimSpace(out))
	}

	a.path = found
	return nil
}

func (a *bundleAuditAnalyzer) Analyze(ctx context.Context, d *dependency.Dependency, e Engine) error {
	cmd := exec.CommandContext(ctx, a.path, "check", "--verbose")
	cmd.Dir = filepath.Dir(d.ActualFilePath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		// a non-zero exit status means vulnerabilities were found
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || len(out) == 0 {
			return analyzeError(a, d, fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes())))
		}
	}

	advisories, err := packages.ParseBundleAudit(bytes.NewReader(out))
	if err != nil {
		return analyzeError(a, d, err)
	}

	gems := map[string]*dependency.Dependency{}
	for _, adv := range advisories {
		key := adv.Name + "@" + adv.Version
		gem, ok := gems[key]
		if !ok {
			gem = dependency.NewVirtual(d, "rubygems", adv.Name, adv.Version)
			recordPackage(gem, "rubygems", "bundle-audit", packages.Package{Name: adv.Name, Version: adv.Version}, dependency.Highest)
			addPurl(gem, "gem", "", adv.Name, adv.Version)
			gems[key] = gem
			e.AddDependency(gem)
		}

		v := advisoryVulnerability(adv)
		if db := e.Database(); db != nil {
			enrichFromNvd(db, v)
		}
		gem.AddVulnerability(v)
	}

	if len(advisories) > 0 {
		config.Infof("bundle-audit reported %d advisories for %s", len(advisories), d.FilePath)
	}
	return nil
}

func advisoryVulnerability(adv *packages.Advisory) *dependency.Vulnerability {
	v := &dependency.Vulnerability{
		Name:              adv.ID,
		Description:       adv.Title,
		Severity:          adv.Criticality,
		Source:            "bundle-audit",
		VulnerableVersion: adv.Version,
	}

	switch adv.Criticality {
	case "critical":
		v.CvssScore = 9.5
	case "high":
		v.CvssScore = 8.5
	case "medium":
		v.CvssScore = 5.5
	case "low":
		v.CvssScore = 2.0
	default:
		v.Severity = "unknown"
	}

	if adv.URL != "" {
		v.References = append(v.References, adv.URL)
	}
	if adv.Solution != "" {
		v.Notes = "Solution: " + adv.Solution
	}
	if v.Name == "" {
		v.Name = adv.Title
	}
	return v
}

// enrichFromNvd takes the NVD score and description for advisories naming a CVE.
func enrichFromNvd(db Database, v *dependency.Vulnerability) {
	if !strings.HasPrefix(v.Name, "CVE-") {
		return
	}
	rows, err := db.QueryVulnByCVEID(v.Name)
	if err != nil {
		config.Warnf("Unable to look up %s in the CVE database: %v", v.Name, err)
		return
	}
	if len(rows) == 0 {
		return
	}

	row := rows[0]
	v.CvssScore = row.Score
	if row.Level != "" {
		v.Severity = row.Level
	}
	if row.Description != "" {
		v.Description = row.Description
	}
	for _, ref := range strings.Split(row.References, "\n") {
		if ref != "" && !slices.Contains(v.References, ref) {
			v.References = append(v.References, ref)
		}
	}
}

// cocoaPodsAnalyzer reads podspec files, which share the gemspec syntax.
type cocoaPodsAnalyzer struct {
	base
	fileFilter
}

func newCocoaPodsAnalyzer() *cocoaPodsAnalyzer {
	return &cocoaPodsAnalyzer{
		base:       base{name: "CocoaPods Package Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerCocoapods},
		fileFilter: fileFilter{exts: []string{".podspec"}},
	}
}

func (a *cocoaPodsAnalyzer) Experimental() bool { return true }

func (a *cocoaPodsAnalyzer) ParallelSafe() bool { return true }

func (a *cocoaPodsAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	pod, err := parseGemspecFile(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}

	recordPackage(d, "cocoapods", "podspec", pod.Package, dependency.Highest)
	d.AddEvidence(dependency.Vendor, "podspec", "authors", pod.Authors, dependency.Low)
	addPurl(d, "cocoapods", "", pod.Name, pod.Version)
	return nil
}
