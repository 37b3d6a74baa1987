package vulnscan

import (
	"strings"

	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/vulnlib"

	version2 "github.com/hashicorp/go-version"
	rpmversion "github.com/knqyf263/go-rpm-version"
)

// comparer orders a version against a bound: negative, zero or positive.
type comparer func(bound string) (int, bool)

func semverComparer(cv string) (comparer, bool) {
	currentVersion, err := version2.NewVersion(cv)
	if err != nil {
		return nil, false
	}

	return func(bound string) (int, bool) {
		v, err := version2.NewVersion(bound)
		if err != nil {
			return 0, false
		}
		return currentVersion.Compare(v), true
	}, true
}

func rpmComparer(cv string) comparer {
	currentVersion := rpmversion.NewVersion(cv)

	return func(bound string) (int, bool) {
		return currentVersion.Compare(rpmversion.NewVersion(bound)), true
	}
}

// compareVersion returns the rows whose range contains cv. Bounds starting
// with '=' are inclusive, an empty bound is open. Versions go-version cannot
// parse are compared with rpm ordering.
func compareVersion(rows []*vulnlib.DBRow, cv string) ([]*dependency.Vulnerability, bool) {
	cv = strings.TrimPrefix(strings.TrimSpace(cv), "v")
	if cv == "" {
		return nil, false
	}

	cmp, ok := semverComparer(cv)
	if !ok {
		cmp = rpmComparer(cv)
	}

	var isVulnerable = false
	vulns := []*dependency.Vulnerability{}

	for _, row := range rows {
		if row.MaxVersion == "*" {
			continue
		}

		if !inRange(cmp, row.MinVersion, row.MaxVersion) {
			continue
		}

		vulns = append(vulns, getInfo(row))
		isVulnerable = true
	}

	return vulns, isVulnerable
}

func inRange(cmp comparer, min, max string) bool {
	if min != "" {
		inclusive := strings.HasPrefix(min, "=")
		c, ok := cmp(strings.TrimPrefix(min, "="))
		if !ok {
			return false
		}
		if c < 0 || (c == 0 && !inclusive) {
			return false
		}
	}

	if max != "" {
		inclusive := strings.HasPrefix(max, "=")
		c, ok := cmp(strings.TrimPrefix(max, "="))
		if !ok {
			return false
		}
		if c > 0 || (c == 0 && !inclusive) {
			return false
		}
	}

	return true
}
