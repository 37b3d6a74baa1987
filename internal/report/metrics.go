package report

import (
	"github.com/kvesta/depcheck/config"

	"github.com/prometheus/client_golang/prometheus"
)

// registry builds the gauges written to the METRICS text file, suitable for
// the node exporter textfile collector.
func (g *Generator) registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()

	labels := prometheus.Labels{"project": g.ProjectInfo.Name}

	dependencies := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "depcheck_dependencies",
		Help:        "Number of dependencies scanned.",
		ConstLabels: labels,
	})
	vulnerable := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "depcheck_vulnerable_dependencies",
		Help:        "Number of dependencies with at least one vulnerability.",
		ConstLabels: labels,
	})
	vulnerabilities := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "depcheck_vulnerabilities",
		Help:        "Number of vulnerabilities found, by severity.",
		ConstLabels: labels,
	}, []string{"severity"})
	suppressed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "depcheck_suppressed_vulnerabilities",
		Help:        "Number of vulnerabilities removed by suppression rules.",
		ConstLabels: labels,
	})
	highest := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "depcheck_highest_cvss_score",
		Help:        "Highest CVSS score among all vulnerabilities.",
		ConstLabels: labels,
	})

	reg.MustRegister(dependencies, vulnerable, vulnerabilities, suppressed, highest)

	for severity := range config.SeverityMap {
		vulnerabilities.WithLabelValues(severity)
	}

	dependencies.Set(float64(len(g.Dependencies)))

	var max float64
	for _, d := range g.Dependencies {
		suppressed.Add(float64(len(d.SuppressedVulnerabilities)))
		if len(d.Vulnerabilities) == 0 {
			continue
		}
		vulnerable.Inc()

		for _, v := range d.Vulnerabilities {
			severity := v.Severity
			if _, ok := config.SeverityMap[severity]; !ok {
				severity = config.Severity(v.CvssScore)
			}
			vulnerabilities.WithLabelValues(severity).Inc()
		}

		if s := d.HighestScore(); s > max {
			max = s
		}
	}
	highest.Set(max)

	return reg
}

func (g *Generator) writeMetrics(filename string) error {
	return prometheus.WriteToTextfile(filename, g.registry())
}
