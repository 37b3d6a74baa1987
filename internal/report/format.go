package report

import (
	"fmt"
	"strings"
)

// Format is a report output format.
type Format string

const (
	XML     Format = "XML"
	HTML    Format = "HTML"
	VULN    Format = "VULN"
	JSON    Format = "JSON"
	CSV     Format = "CSV"
	METRICS Format = "METRICS"
	ALL     Format = "ALL"
)

var formats = []Format{XML, HTML, VULN, JSON, CSV, METRICS, ALL}

// Formats lists the accepted format names.
func Formats() []string {
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		names = append(names, string(f))
	}
	return names
}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	for _, f := range formats {
		if strings.EqualFold(strings.TrimSpace(s), string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%q is not a valid report format, expected one of %s",
		s, strings.Join(Formats(), ", "))
}

func (f Format) fileName() string {
	switch f {
	case XML:
		return "dependency-check-report.xml"
	case HTML:
		return "dependency-check-report.html"
	case VULN:
		return "dependency-check-vulnerability.html"
	case JSON:
		return "dependency-check-report.json"
	case CSV:
		return "dependency-check-report.csv"
	case METRICS:
		return "dependency-check-metrics.prom"
	}
	return ""
}
