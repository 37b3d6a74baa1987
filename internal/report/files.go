package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kvesta/depcheck/config"
	"github.com/kvesta/depcheck/pkg/dependency"
)

const toolName = "depcheck"

type ProjectInfo struct {
	Name       string `json:"name" xml:"name"`
	ReportDate string `json:"reportDate" xml:"reportDate"`
	Tool       string `json:"tool" xml:"tool"`
}

// Generator renders the results of an analysis.
type Generator struct {
	ProjectInfo  ProjectInfo
	Dependencies []*dependency.Dependency
}

var now = time.Now

func NewGenerator(projectName string, deps []*dependency.Dependency) *Generator {
	return &Generator{
		ProjectInfo: ProjectInfo{
			Name:       projectName,
			ReportDate: now().Format(time.RFC3339),
			Tool:       toolName,
		},
		Dependencies: deps,
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Write renders format into dir, creating dir when missing. ALL renders
// every format.
func (g *Generator) Write(dir string, format Format) error {
	if dir == "" {
		dir = "."
	}

	if !exists(dir) {
		err := os.MkdirAll(dir, os.FileMode(0755))
		if err != nil {
			return fmt.Errorf("failed to create report directory %s: %w", dir, err)
		}
	}

	if format == ALL {
		for _, f := range formats {
			if f == ALL {
				continue
			}
			if err := g.write(dir, f); err != nil {
				return err
			}
		}
		return nil
	}

	return g.write(dir, format)
}

func (g *Generator) write(dir string, format Format) error {
	name := format.fileName()
	if name == "" {
		return fmt.Errorf("unknown report format %q", format)
	}
	filename := filepath.Join(dir, name)

	var err error
	switch format {
	case METRICS:
		err = g.writeMetrics(filename)
	default:
		err = g.writeFile(filename, format)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s report: %w", format, err)
	}

	config.Infof("Output file is saved in: %s", config.Yellow(filename))
	return nil
}

func (g *Generator) writeFile(filename string, format Format) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	switch format {
	case XML:
		err = g.writeXML(f)
	case JSON:
		err = g.writeJSON(f)
	case CSV:
		err = g.writeCSV(f)
	case HTML:
		err = g.writeHTML(f, false)
	case VULN:
		err = g.writeHTML(f, true)
	}

	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
