package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kvesta/depcheck/config"
	"github.com/kvesta/depcheck/pkg/dependency"

	"github.com/olekukonko/tablewriter"
)

// ResolveDependencyData prints the vulnerable dependencies as a table.
func ResolveDependencyData(w io.Writer, deps []*dependency.Dependency) error {
	critical, high, medium, low, total := 0, 0, 0, 0, 0

	for _, d := range deps {
		for _, v := range d.Vulnerabilities {
			total++
			switch strings.ToLower(v.Severity) {
			case "critical":
				critical += 1
			case "high":
				high += 1
			case "medium":
				medium += 1
			case "low":
				low += 1
			default:
				// ignore
			}
		}
	}

	fmt.Fprintf(w, "\nDetected %s vulnerabilities | "+
		"Critical: %s High: %s Medium: %s Low: %s\n\n",
		config.Yellow(total),
		config.Red(critical),
		config.Pink(high),
		config.Yellow(medium),
		config.Green(low))

	if total == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)

	table.SetHeader([]string{"ID", "Dependency", "Version", "CVEID", "Score", "Level", "Description"})
	table.SetRowLine(true)
	table.SetAutoMergeCellsByColumnIndex([]int{0, 1})

	var Des string
	id := 0
	for _, d := range deps {
		if len(d.Vulnerabilities) == 0 {
			continue
		}
		id++

		for _, v := range d.Vulnerabilities {
			score := fmt.Sprintf("%.1f", v.CvssScore)

			// Limit the length of description
			if len(v.Description) > 200 {
				Des = v.Description[:200] + " ..."
			} else {
				Des = v.Description
			}

			vulnData := []string{
				strconv.Itoa(id), d.DisplayName(),
				fmt.Sprintf("%s / %s", currentVersion(d), v.VulnerableVersion),
				v.Name, score, judgeSeverity(v.Severity), Des,
			}

			table.Append(vulnData)
		}
	}

	table.Render()

	return nil
}

func currentVersion(d *dependency.Dependency) string {
	if d.Version != "" {
		return d.Version
	}
	if ev := d.EvidenceOf(dependency.Version); len(ev) > 0 {
		return ev[0].Value
	}
	return "-"
}

func judgeSeverity(severity string) string {

	severityLow := strings.ToLower(severity)

	switch severityLow {
	case "critical":
		return config.Red("critical")
	case "high":
		return config.Pink("high")
	case "medium":
		return config.Yellow("medium")
	case "low":
		return config.Green("low")
	default:
		// ignore
	}
	return "unknown"
}
