package vulnscan

import (
	"fmt"

	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/vulnlib"
)

// Querier is the part of the CVE database the scanner reads from.
type Querier interface {
	QueryVulnByProduct(vendor, product string) ([]*vulnlib.DBRow, error)
}

type Scanner struct {
	VulnDB Querier
}

func New(db Querier) *Scanner {
	return &Scanner{VulnDB: db}
}

// Scan looks up a vendor/product pair and keeps the rows whose range holds version.
func (ps *Scanner) Scan(vendor, product, version string) ([]*dependency.Vulnerability, error) {
	rows, err := ps.VulnDB.QueryVulnByProduct(vendor, product)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s:%s: %w", vendor, product, err)
	}

	vulns, _ := compareVersion(rows, version)
	for _, v := range vulns {
		v.MatchedCPE = fmt.Sprintf("cpe:/a:%s:%s:%s", vendor, product, version)
	}

	sortSeverity(vulns)
	return vulns, nil
}
