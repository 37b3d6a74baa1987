package report

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/kvesta/depcheck/pkg/dependency"
)

type analysis struct {
	XMLName      xml.Name                 `json:"-" xml:"analysis"`
	ProjectInfo  ProjectInfo              `json:"projectInfo" xml:"projectInfo"`
	Dependencies []*dependency.Dependency `json:"dependencies" xml:"dependencies>dependency"`
}

func (g *Generator) analysis() *analysis {
	deps := g.Dependencies
	if deps == nil {
		deps = []*dependency.Dependency{}
	}
	return &analysis{ProjectInfo: g.ProjectInfo, Dependencies: deps}
}

func (g *Generator) writeXML(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(g.analysis()); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func (g *Generator) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g.analysis())
}

var csvHeader = []string{"Project", "DependencyName", "DependencyPath", "Description", "License",
	"Md5", "Sha1", "Identifiers", "CPE", "CVE", "CVSSv3_BaseSeverity", "CVSSv3_BaseScore",
	"Vulnerability", "Source", "PublishDate", "VulnerableVersion"}

// writeCSV emits one row per vulnerability.
func (g *Generator) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, d := range g.Dependencies {
		var ids, cpes []string
		for _, id := range d.Identifiers {
			if id.Type == dependency.IdentifierCPE {
				cpes = append(cpes, id.Value)
				continue
			}
			ids = append(ids, id.Value)
		}

		for _, v := range d.Vulnerabilities {
			row := []string{
				g.ProjectInfo.Name, d.DisplayName(), d.FilePath, d.Description, d.License,
				d.MD5, d.SHA1, strings.Join(ids, ", "), strings.Join(cpes, ", "),
				v.Name, strings.ToUpper(v.Severity), fmt.Sprintf("%.1f", v.CvssScore),
				v.Description, v.Source, v.PublishDate, v.VulnerableVersion,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
