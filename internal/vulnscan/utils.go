package vulnscan

import (
	"sort"
	"strings"

	"github.com/kvesta/depcheck/config"
	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/vulnlib"
)

func getInfo(row *vulnlib.DBRow) *dependency.Vulnerability {
	level := strings.ToLower(row.Level)
	if level == "" {
		level = config.Severity(row.Score)
	}

	source := row.Source
	if source == "" {
		source = "NVD"
	}

	return &dependency.Vulnerability{
		Name:              row.CVEID,
		Description:       row.Description,
		Severity:          level,
		CvssScore:         row.Score,
		Source:            source,
		PublishDate:       row.PublishDate,
		VulnerableVersion: vulnerableRange(row.MinVersion, row.MaxVersion),
		References:        splitLines(row.References),
	}
}

// vulnerableRange renders bounds such as ">=2.0, <2.3.32".
func vulnerableRange(min, max string) string {
	if min != "" && min == max && strings.HasPrefix(min, "=") {
		return "=" + min[1:]
	}

	var parts []string
	if min != "" {
		if strings.HasPrefix(min, "=") {
			parts = append(parts, ">="+min[1:])
		} else {
			parts = append(parts, ">"+min)
		}
	}
	if max != "" {
		if strings.HasPrefix(max, "=") {
			parts = append(parts, "<="+max[1:])
		} else {
			parts = append(parts, "<"+max)
		}
	}

	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, ", ")
}

func sortSeverity(vulns []*dependency.Vulnerability) {
	sort.SliceStable(vulns, func(i, j int) bool {
		a, b := config.SeverityMap[vulns[i].Severity], config.SeverityMap[vulns[j].Severity]
		if a != b {
			return a > b
		}
		return vulns[i].CvssScore > vulns[j].CvssScore
	})
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
