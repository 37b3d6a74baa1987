package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/settings"
)

// maxTerms bounds the vendor/product candidates tried per dependency.
const maxTerms = 8

type term struct {
	value string
	conf  dependency.Confidence
}

// cpeAnalyzer turns vendor, product and version evidence into CPE
// identifiers for the products known to the CVE database.
type cpeAnalyzer struct {
	base

	db       Database
	products sync.Map
}

func newCPEAnalyzer() *cpeAnalyzer {
	return &cpeAnalyzer{
		base: base{name: "CPE Analyzer", phase: IdentifierAnalysis, key: settings.KeyAnalyzerCPE},
	}
}

func (a *cpeAnalyzer) ParallelSafe() bool { return true }

func (a *cpeAnalyzer) Prepare(_ context.Context, e Engine) error {
	a.db = e.Database()
	if a.db == nil {
		return errors.New("the CVE database is not available")
	}
	return nil
}

func (a *cpeAnalyzer) Accepts(d *dependency.Dependency) bool {
	return len(d.Evidence) > 0
}

func (a *cpeAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	versions := terms(d, dependency.Version)
	if len(versions) == 0 {
		return nil
	}
	version := versions[0].value

	vendors := terms(d, dependency.Vendor)
	products := terms(d, dependency.Product)

	var (
		best  dependency.Confidence
		found []term
	)

	for _, p := range products {
		for _, v := range vendors {
			conf := v.conf
			if p.conf < conf {
				conf = p.conf
			}
			if conf < best {
				continue
			}

			ok, err := a.exists(v.value, p.value)
			if err != nil {
				return analyzeError(a, d, err)
			}
			if !ok {
				continue
			}

			if conf > best {
				best, found = conf, nil
			}
			found = append(found, term{value: v.value + ":" + p.value, conf: conf})
		}
	}

	// a product published by a single vendor needs no vendor evidence
	if len(found) == 0 {
		for _, p := range products {
			if p.conf < dependency.High {
				break
			}
			vs, err := a.db.VendorsForProduct(p.value)
			if err != nil {
				return analyzeError(a, d, err)
			}
			if len(vs) == 1 {
				found = append(found, term{value: vs[0] + ":" + p.value, conf: dependency.Low})
				break
			}
		}
	}

	for _, f := range found {
		cpe := fmt.Sprintf("cpe:/a:%s:%s", f.value, version)
		d.AddIdentifier(&dependency.Identifier{
			Type:       dependency.IdentifierCPE,
			Value:      cpe,
			URL:        "https://nvd.nist.gov/vuln/search/results?form_type=Advanced&cves=on&cpe_version=" + url.QueryEscape(cpe),
			Confidence: f.conf,
		})
	}

	return nil
}

func (a *cpeAnalyzer) exists(vendor, product string) (bool, error) {
	key := vendor + ":" + product
	if v, ok := a.products.Load(key); ok {
		return v.(bool), nil
	}

	ok, err := a.db.ProductExists(vendor, product)
	if err != nil {
		return false, err
	}
	a.products.Store(key, ok)
	return ok, nil
}

// terms returns the distinct normalised evidence values of a type, highest
// confidence first.
func terms(d *dependency.Dependency, t dependency.EvidenceType) []term {
	seen := map[string]int{}
	var out []term

	for _, e := range d.EvidenceOf(t) {
		value := cpeTerm(e.Value, t)
		if value == "" {
			continue
		}
		if i, ok := seen[value]; ok {
			if e.Confidence > out[i].conf {
				out[i].conf = e.Confidence
			}
			continue
		}
		seen[value] = len(out)
		out = append(out, term{value: value, conf: e.Confidence})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].conf > out[j].conf
	})

	if len(out) > maxTerms {
		out = out[:maxTerms]
	}
	return out
}

func cpeTerm(value string, t dependency.EvidenceType) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if t == dependency.Version {
		value = strings.TrimPrefix(value, "v")
		if value == "" || strings.ContainsAny(value, " :") {
			return ""
		}
		return value
	}

	_, value = splitScope(value)
	if strings.ContainsAny(value, ":/") {
		return ""
	}
	return strings.ReplaceAll(value, " ", "_")
}
