package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kvesta/depcheck/config"
	"github.com/kvesta/depcheck/pkg/archive"
	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/settings"
)

// archiveAnalyzer unpacks zip and tar based archives and scans their content.
type archiveAnalyzer struct {
	base
	extra []string
}

func newArchiveAnalyzer() *archiveAnalyzer {
	return &archiveAnalyzer{
		base: base{name: "Archive Analyzer", phase: Initial, key: settings.KeyAnalyzerArchive},
	}
}

func (a *archiveAnalyzer) Configure(s *settings.Settings) {
	a.extra = s.StringSlice(settings.KeyAdditionalZipExtension)
}

func (a *archiveAnalyzer) Prepare(_ context.Context, e Engine) error {
	a.Configure(e.Settings())
	return nil
}

func (a *archiveAnalyzer) Accepts(d *dependency.Dependency) bool {
	return !d.Virtual && archive.Kind(d.ActualFilePath, a.extra) != ""
}

func (a *archiveAnalyzer) Analyze(ctx context.Context, d *dependency.Dependency, e Engine) error {
	tmp, err := e.Settings().TempDirectory()
	if err != nil {
		return analyzeError(a, d, err)
	}

	dest, err := os.MkdirTemp(tmp, "archive-")
	if err != nil {
		return analyzeError(a, d, err)
	}

	files, err := archive.Extract(d.ActualFilePath, dest, a.extra)
	if err != nil {
		if len(files) == 0 {
			config.Warnf("Unable to extract %s: %v", d.FilePath, err)
			return nil
		}
		config.Warnf("%s was partially extracted: %v", d.FilePath, err)
	}

	for _, f := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(dest, f)
		if err != nil {
			return analyzeError(a, d, fmt.Errorf("unexpected extracted path %s", f))
		}

		for _, nd := range e.Scan(f) {
			nd.FilePath = d.FilePath + "/" + filepath.ToSlash(rel)
		}
	}

	return nil
}
