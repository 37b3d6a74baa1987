package analyzer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/settings"
	"github.com/kvesta/depcheck/pkg/vulnlib"

	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	rows map[string][]*vulnlib.DBRow
	cves map[string][]*vulnlib.DBRow
}

func (f *fakeDB) ProductExists(vendor, product string) (bool, error) {
	_, ok := f.rows[vendor+":"+product]
	return ok, nil
}

func (f *fakeDB) VendorsForProduct(product string) ([]string, error) {
	var vendors []string
	for key := range f.rows {
		if v, p, _ := strings.Cut(key, ":"); p == product {
			vendors = append(vendors, v)
		}
	}
	return vendors, nil
}

func (f *fakeDB) QueryVulnByProduct(vendor, product string) ([]*vulnlib.DBRow, error) {
	return f.rows[vendor+":"+product], nil
}

func (f *fakeDB) QueryVulnByCVEID(cveid string) ([]*vulnlib.DBRow, error) {
	return f.cves[cveid], nil
}

type fakeEngine struct {
	s       *settings.Settings
	db      Database
	added   []*dependency.Dependency
	removed []*dependency.Dependency
}

func newFakeEngine(t *testing.T) *fakeEngine {
	t.Helper()
	s := settings.New()
	s.SetString(settings.KeyTempDirectory, t.TempDir())
	t.Cleanup(func() { s.Cleanup(true) })
	return &fakeEngine{s: s}
}

func (f *fakeEngine) Settings() *settings.Settings { return f.s }

func (f *fakeEngine) Database() Database { return f.db }

func (f *fakeEngine) Scan(path string) []*dependency.Dependency {
	d, err := dependency.New(path)
	if err != nil {
		return nil
	}
	f.added = append(f.added, d)
	return []*dependency.Dependency{d}
}

func (f *fakeEngine) AddDependency(d *dependency.Dependency) {
	f.added = append(f.added, d)
}

func (f *fakeEngine) RemoveDependency(d *dependency.Dependency) {
	f.removed = append(f.removed, d)
}

// writeDep writes content below a temp dir and returns it as a dependency.
func writeDep(t *testing.T, rel, content string) *dependency.Dependency {
	t.Helper()
	path := filepath.Join(t.TempDir(), filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	d, err := dependency.New(path)
	require.NoError(t, err)
	return d
}

func evidenceValues(d *dependency.Dependency, t dependency.EvidenceType) []string {
	var values []string
	for _, e := range d.EvidenceOf(t) {
		values = append(values, e.Value)
	}
	return values
}
