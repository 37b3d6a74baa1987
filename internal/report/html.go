package report

import (
	"html/template"
	"io"
	"strings"

	"github.com/kvesta/depcheck/config"
	"github.com/kvesta/depcheck/pkg/dependency"
)

type htmlData struct {
	ProjectInfo     ProjectInfo
	VulnerableOnly  bool
	Dependencies    []*dependency.Dependency
	Scanned         int
	Vulnerable      int
	Vulnerabilities int
	Suppressed      int
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": func(ids []*dependency.Identifier) string {
		values := make([]string, 0, len(ids))
		for _, id := range ids {
			values = append(values, id.Value)
		}
		return strings.Join(values, ", ")
	},
	"severity": func(score float64) string { return config.Severity(score) },
	"score":    func(d *dependency.Dependency) float64 { return d.HighestScore() },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Dependency-Check Report{{if .VulnerableOnly}} (vulnerable dependencies){{end}}: {{.ProjectInfo.Name}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 13px; margin: 20px; }
table { border-collapse: collapse; width: 100%; margin-bottom: 20px; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; vertical-align: top; }
th { background: #eee; }
.critical { color: #b00; font-weight: bold; }
.high { color: #d60; font-weight: bold; }
.medium { color: #c90; }
.low { color: #390; }
.none { color: #666; }
</style>
</head>
<body>
<h1>Dependency-Check Report</h1>
<p>Project: <b>{{.ProjectInfo.Name}}</b><br>
Generated: {{.ProjectInfo.ReportDate}} by {{.ProjectInfo.Tool}}<br>
Dependencies scanned: {{.Scanned}}, vulnerable dependencies: {{.Vulnerable}},
vulnerabilities found: {{.Vulnerabilities}}, vulnerabilities suppressed: {{.Suppressed}}</p>

<h2>Summary</h2>
<table>
<tr><th>Dependency</th><th>Identifiers</th><th>Highest Severity</th><th>CVE Count</th></tr>
{{- range .Dependencies}}
<tr><td>{{.DisplayName}}</td><td>{{join .Identifiers}}</td>
<td class="{{severity (score .)}}">{{if .Vulnerabilities}}{{severity (score .)}}{{end}}</td>
<td>{{len .Vulnerabilities}}</td></tr>
{{- end}}
</table>

<h2>Dependencies</h2>
{{- range .Dependencies}}
<h3 id="{{.SHA1}}">{{.DisplayName}}</h3>
<p>File Path: {{.FilePath}}<br>
{{- if .SHA1}}SHA1: {{.SHA1}}<br>MD5: {{.MD5}}<br>{{end}}
{{- if .Description}}Description: {{.Description}}<br>{{end}}
{{- if .License}}License: {{.License}}<br>{{end}}</p>
{{- if .Evidence}}
<table>
<tr><th>Type</th><th>Source</th><th>Name</th><th>Value</th><th>Confidence</th></tr>
{{- range .Evidence}}
<tr><td>{{.Type}}</td><td>{{.Source}}</td><td>{{.Name}}</td><td>{{.Value}}</td><td>{{.Confidence}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .Vulnerabilities}}
<table>
<tr><th>Vulnerability</th><th>Score</th><th>Severity</th><th>Vulnerable Versions</th><th>Description</th></tr>
{{- range .Vulnerabilities}}
<tr><td>{{.Name}}</td><td>{{printf "%.1f" .CvssScore}}</td><td class="{{.Severity}}">{{.Severity}}</td>
<td>{{.VulnerableVersion}}</td><td>{{.Description}}{{range .References}}<br><a href="{{.}}">{{.}}</a>{{end}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .RelatedDependencies}}
<p>Related dependencies:{{range .RelatedDependencies}} {{.FilePath}}{{end}}</p>
{{- end}}
{{- end}}
</body>
</html>
`))

func (g *Generator) writeHTML(w io.Writer, vulnerableOnly bool) error {
	data := htmlData{
		ProjectInfo:    g.ProjectInfo,
		VulnerableOnly: vulnerableOnly,
		Scanned:        len(g.Dependencies),
	}

	for _, d := range g.Dependencies {
		data.Suppressed += len(d.SuppressedVulnerabilities)
		if len(d.Vulnerabilities) == 0 {
			if !vulnerableOnly {
				data.Dependencies = append(data.Dependencies, d)
			}
			continue
		}
		data.Vulnerable++
		data.Vulnerabilities += len(d.Vulnerabilities)
		data.Dependencies = append(data.Dependencies, d)
	}

	return htmlTemplate.Execute(w, data)
}
