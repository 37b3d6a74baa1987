package analyzer

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kvesta/depcheck/config"
	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/settings"
	"github.com/kvesta/depcheck/pkg/vulnlib"

	"github.com/tidwall/gjson"
)

// artifact is a maven coordinate returned by a repository lookup.
type artifact struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

// record adds the coordinate found for d's checksum.
func (m *artifact) record(d *dependency.Dependency, source string) {
	d.AddEvidence(dependency.Vendor, source, "groupid", m.GroupID, dependency.Highest)
	d.AddEvidence(dependency.Product, source, "artifactid", m.ArtifactID, dependency.Highest)
	d.AddEvidence(dependency.Version, source, "version", m.Version, dependency.Highest)
	if v := groupVendor(m.GroupID); v != "" {
		d.AddEvidence(dependency.Vendor, source, "groupid", v, dependency.High)
	}

	d.Ecosystem = "maven"
	d.Name = m.ArtifactID
	d.Version = m.Version
	addMavenIdentifier(d, m.GroupID, m.ArtifactID, m.Version, dependency.Highest)
}

func get(ctx context.Context, cli *http.Client, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "depcheck")
	return cli.Do(req)
}

// centralAnalyzer looks jar checksums up in the Maven Central search API.
type centralAnalyzer struct {
	base
	fileFilter

	cli     *http.Client
	baseURL string
}

func newCentralAnalyzer() *centralAnalyzer {
	return &centralAnalyzer{
		base:       base{name: "Central Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerCentral},
		fileFilter: fileFilter{exts: []string{".jar"}},
	}
}

func (a *centralAnalyzer) ParallelSafe() bool { return true }

func (a *centralAnalyzer) Prepare(_ context.Context, e Engine) error {
	s := e.Settings()
	a.baseURL = s.String(settings.KeyAnalyzerCentralURL)
	if a.baseURL == "" {
		return fmt.Errorf("%s is not configured", settings.KeyAnalyzerCentralURL)
	}
	a.cli = vulnlib.NewHTTPClient(s, true)
	return nil
}

func (a *centralAnalyzer) Analyze(ctx context.Context, d *dependency.Dependency, _ Engine) error {
	if d.SHA1 == "" {
		return nil
	}

	found, err := a.search(ctx, d.SHA1)
	if err != nil {
		return analyzeError(a, d, err)
	}

	if len(found) == 0 {
		config.Verbosef("Could not find artifact %s in Central", d.FileName)
		return nil
	}

	for _, m := range found {
		m.record(d, "central")
	}
	return nil
}

func (a *centralAnalyzer) search(ctx context.Context, sha1 string) ([]*artifact, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf(`1:"%s"`, sha1))
	q.Set("wt", "json")

	res, err := get(ctx, a.cli, a.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("central returned %s", res.Status)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("central returned an invalid response")
	}

	var found []*artifact
	gjson.GetBytes(data, "response.docs").ForEach(func(_, doc gjson.Result) bool {
		found = append(found, &artifact{
			GroupID:    doc.Get("g").String(),
			ArtifactID: doc.Get("a").String(),
			Version:    doc.Get("v").String(),
		})
		return true
	})

	return found, nil
}

// nexusAnalyzer identifies jars through a Nexus repository manager. It is
// skipped when the central analyzer is enabled.
type nexusAnalyzer struct {
	base
	fileFilter

	cli      *http.Client
	baseURL  string
	disabled bool
}

func newNexusAnalyzer() *nexusAnalyzer {
	return &nexusAnalyzer{
		base:       base{name: "Nexus Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerNexus},
		fileFilter: fileFilter{exts: []string{".jar"}},
	}
}

func (a *nexusAnalyzer) ParallelSafe() bool { return true }

func (a *nexusAnalyzer) Prepare(_ context.Context, e Engine) error {
	s := e.Settings()
	if s.Bool(settings.KeyAnalyzerCentral) {
		a.disabled = true
		return nil
	}

	a.baseURL = strings.TrimSuffix(s.String(settings.KeyAnalyzerNexusURL), "/")
	if a.baseURL == "" {
		return fmt.Errorf("%s is not configured", settings.KeyAnalyzerNexusURL)
	}
	a.cli = vulnlib.NewHTTPClient(s, s.Bool(settings.KeyAnalyzerNexusProxy))
	return nil
}

func (a *nexusAnalyzer) Accepts(d *dependency.Dependency) bool {
	return !a.disabled && a.fileFilter.Accepts(d)
}

func (a *nexusAnalyzer) Analyze(ctx context.Context, d *dependency.Dependency, _ Engine) error {
	if d.SHA1 == "" {
		return nil
	}

	res, err := get(ctx, a.cli, a.baseURL+"/identify/sha1/"+strings.ToLower(d.SHA1))
	if err != nil {
		return analyzeError(a, d, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		config.Verbosef("Could not find artifact %s in Nexus", d.FileName)
		return nil
	default:
		return analyzeError(a, d, fmt.Errorf("nexus returned %s", res.Status))
	}

	var m artifact
	if err := xml.NewDecoder(res.Body).Decode(&m); err != nil {
		return analyzeError(a, d, fmt.Errorf("invalid nexus response: %w", err))
	}
	if m.ArtifactID == "" {
		return nil
	}

	m.record(d, "nexus")
	return nil
}
