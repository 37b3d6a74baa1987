package task

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/kvesta/depcheck/internal/engine"
	"github.com/kvesta/depcheck/internal/report"
	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/settings"
	"github.com/kvesta/depcheck/pkg/vulnlib"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	settings *settings.Settings

	scanned []string
	deps    []*dependency.Dependency

	analyzeErr error
	reportErr  error
	updateErr  error

	updated   bool
	analyzed  bool
	format    report.Format
	project   string
	reportDir string
	cleaned   bool
}

func (f *fakeEngine) Scan(path string) []*dependency.Dependency {
	f.scanned = append(f.scanned, path)
	return nil
}

func (f *fakeEngine) AnalyzeDependencies(context.Context) error {
	f.analyzed = true
	return f.analyzeErr
}

func (f *fakeEngine) WriteReports(projectName, dir string, format report.Format) error {
	f.project, f.reportDir, f.format = projectName, dir, format
	return f.reportErr
}

func (f *fakeEngine) DoUpdates(context.Context) error {
	f.updated = true
	return f.updateErr
}

func (f *fakeEngine) Dependencies() []*dependency.Dependency { return f.deps }

func (f *fakeEngine) Cleanup() { f.cleaned = true }

// useEngine swaps the engine constructor for the duration of the test.
func useEngine(t *testing.T, f *fakeEngine, err error) {
	t.Helper()
	orig := newEngine
	newEngine = func(s *settings.Settings) (Engine, error) {
		f.settings = s
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	t.Cleanup(func() { newEngine = orig })
}

func newTestProject(t *testing.T) (*Project, *bytes.Buffer) {
	t.Helper()
	p := NewProject("test", t.TempDir())
	p.Level = LevelDebug
	var buf bytes.Buffer
	p.SetOutput(&buf)
	return p, &buf
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func vulnerable(name string, scores map[string]float64) *dependency.Dependency {
	d := &dependency.Dependency{FileName: name, FilePath: "/lib/" + name}
	d.Identifiers = append(d.Identifiers, &dependency.Identifier{Type: "cpe", Value: "cpe:/a:apache:" + name})

	names := make([]string, 0, len(scores))
	for n := range scores {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		d.Vulnerabilities = append(d.Vulnerabilities, &dependency.Vulnerability{Name: n, CvssScore: scores[n]})
	}
	return d
}

func newCheckWithFile(t *testing.T, p *Project) (*Check, string) {
	t.Helper()
	file := filepath.Join(p.BaseDir, "struts.jar")
	require.NoError(t, os.WriteFile(file, []byte("jar"), 0o644))

	c := NewCheck(p)
	c.ShowSummary = false
	require.NoError(t, c.Add(&FileResource{Path: file}))
	return c, file
}

func TestCheckExecute(t *testing.T) {
	p, _ := newTestProject(t)
	c, file := newCheckWithFile(t, p)
	require.NoError(t, c.Add(&FileResource{Path: filepath.Join(p.BaseDir, "missing.jar")}))
	c.ReportFormat = "json"

	f := &fakeEngine{}
	useEngine(t, f, nil)

	require.NoError(t, c.Execute(context.Background()))
	assert.Equal(t, []string{file}, f.scanned)
	assert.True(t, f.analyzed)
	assert.False(t, f.updated)
	assert.True(t, f.cleaned)
	assert.Equal(t, report.JSON, f.format)
	assert.Equal(t, "dependency-check", f.project)
	assert.Equal(t, filepath.Join(p.BaseDir, "."), f.reportDir)
}

func TestCheckPopulateSettings(t *testing.T) {
	p, _ := newTestProject(t)
	c, _ := newCheckWithFile(t, p)
	c.AutoUpdate = boolPtr(false)
	c.JarAnalyzerEnabled = boolPtr(false)
	c.CargoAnalyzerEnabled = boolPtr(false)
	c.NexusURL = strPtr("")
	c.BundleAuditPath = strPtr("")
	c.ZipExtensions = strPtr("war,ear")
	c.CveStartYear = intPtr(2019)

	s := settings.New()
	require.NoError(t, c.populateSettings(s))

	assert.False(t, s.Bool(settings.KeyAutoUpdate))
	assert.False(t, s.Bool(settings.KeyAnalyzerJar))
	assert.False(t, s.Bool(settings.KeyAnalyzerCargo))
	assert.True(t, s.Bool(settings.KeyAnalyzerArchive))
	assert.Equal(t, "war,ear", s.String(settings.KeyAdditionalZipExtension))
	assert.Equal(t, 2019, s.Int(settings.KeyCveStartYear))
	assert.True(t, s.IsSet(settings.KeyAnalyzerBundleAuditPath))
	assert.NotEqual(t, "", s.String(settings.KeyAnalyzerNexusURL))
}

func intPtr(i int) *int { return &i }

func TestCheckResolvesRuleFiles(t *testing.T) {
	p, _ := newTestProject(t)

	tests := []struct {
		name string
		file *string
		want string
	}{
		{name: "unset", file: nil, want: ""},
		{name: "relative", file: strPtr("config/suppress.xml"), want: filepath.Join(p.BaseDir, "config", "suppress.xml")},
		{name: "absolute", file: strPtr(filepath.Join(p.BaseDir, "abs.xml")), want: filepath.Join(p.BaseDir, "abs.xml")},
		{name: "url", file: strPtr("https://example.com/suppress.xml"), want: "https://example.com/suppress.xml"},
		{name: "upper case url", file: strPtr("HTTP://example.com/s.xml"), want: "HTTP://example.com/s.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCheck(p)
			c.SuppressionFile = tt.file
			c.HintsFile = tt.file

			s := settings.New()
			require.NoError(t, c.populateSettings(s))
			assert.Equal(t, tt.want, s.String(settings.KeySuppressionFile))
			assert.Equal(t, tt.want, s.String(settings.KeyHintsFile))
		})
	}
}

func TestCheckValidateConfiguration(t *testing.T) {
	p, _ := newTestProject(t)

	tests := []struct {
		name  string
		setup func(c *Check)
		want  string
	}{
		{
			name:  "no resources",
			setup: func(c *Check) {},
			want:  "No project dependencies have been defined to analyze.",
		},
		{
			name: "cvss too high",
			setup: func(c *Check) {
				_ = c.Add(&FileList{})
				c.FailBuildOnCVSS = 12
			},
			want: "Invalid configuration, failBuildOnCVSS must be between 0 and 11.",
		},
		{
			name: "cvss negative",
			setup: func(c *Check) {
				_ = c.Add(&FileList{})
				c.FailBuildOnCVSS = -1
			},
			want: "Invalid configuration, failBuildOnCVSS must be between 0 and 11.",
		},
		{
			name: "bad format",
			setup: func(c *Check) {
				_ = c.Add(&FileList{})
				c.ReportFormat = "PDF"
			},
			want: "Invalid configuration, reportFormat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useEngine(t, &fakeEngine{}, nil)
			c := NewCheck(p)
			tt.setup(c)

			err := c.Execute(context.Background())
			var be *BuildError
			require.ErrorAs(t, err, &be)
			assert.Contains(t, be.Error(), tt.want)
		})
	}
}

func TestCheckReferences(t *testing.T) {
	p, _ := newTestProject(t)
	file := filepath.Join(p.BaseDir, "lib.jar")
	require.NoError(t, os.WriteFile(file, []byte("jar"), 0o644))
	p.AddReference("libs", &FileList{Dir: p.BaseDir, Files: []string{"lib.jar"}})
	p.AddReference("name", "not a collection")

	t.Run("resolved", func(t *testing.T) {
		f := &fakeEngine{}
		useEngine(t, f, nil)

		c := NewCheck(p)
		c.ShowSummary = false
		require.NoError(t, c.SetRefID("libs"))
		require.NoError(t, c.Execute(context.Background()))
		assert.Equal(t, []string{file}, f.scanned)
	})

	t.Run("nested after ref", func(t *testing.T) {
		c := NewCheck(p)
		require.NoError(t, c.SetRefID("libs"))
		err := c.Add(&FileResource{Path: file})
		assert.EqualError(t, err, "Nested elements are not allowed when using the refId attribute.")
	})

	t.Run("ref after nested", func(t *testing.T) {
		c := NewCheck(p)
		require.NoError(t, c.Add(&FileResource{Path: file}))
		err := c.SetRefID("libs")
		assert.EqualError(t, err, "Nested elements are not allowed when using the refId attribute.")
	})

	t.Run("not a collection", func(t *testing.T) {
		c := NewCheck(p)
		require.NoError(t, c.SetRefID("name"))
		err := c.Execute(context.Background())
		assert.EqualError(t, err, "refId 'name' does not refer to a resource collection.")
	})

	t.Run("missing", func(t *testing.T) {
		c := NewCheck(p)
		require.NoError(t, c.SetRefID("nope"))
		err := c.Execute(context.Background())
		assert.EqualError(t, err, "Reference nope not found.")
	})
}

func TestCheckUpdateOnly(t *testing.T) {
	updateErr := &engine.UpdateError{Err: errors.New("connection refused")}

	tests := []struct {
		name        string
		updateErr   error
		failOnError bool
		wantErr     bool
		wantLog     string
	}{
		{name: "success"},
		{name: "fail on error", updateErr: updateErr, failOnError: true, wantErr: true},
		{name: "log error", updateErr: updateErr, wantLog: "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, buf := newTestProject(t)
			c, _ := newCheckWithFile(t, p)
			c.UpdateOnly = true
			c.FailOnError = boolPtr(tt.failOnError)

			f := &fakeEngine{updateErr: tt.updateErr}
			useEngine(t, f, nil)

			err := c.Execute(context.Background())
			if tt.wantErr {
				var be *BuildError
				require.ErrorAs(t, err, &be)
				assert.ErrorIs(t, err, updateErr)
			} else {
				require.NoError(t, err)
			}

			assert.True(t, f.updated)
			assert.False(t, f.analyzed)
			assert.Empty(t, f.scanned)
			assert.Contains(t, buf.String(), "Deprecated 'UpdateOnly' property set; please use the UpdateTask instead")
			assert.Contains(t, buf.String(), tt.wantLog)
		})
	}
}

func TestCheckEngineErrors(t *testing.T) {
	dbErr := &engine.DatabaseError{Err: engine.ErrNoData}
	exceptions := &engine.ExceptionCollection{Errors: []error{errors.New("broken jar")}}

	tests := []struct {
		name        string
		engine      *fakeEngine
		newErr      error
		failOnError bool
		wantMsg     string
		wantLog     string
		wantReport  bool
	}{
		{
			name:        "database error",
			engine:      &fakeEngine{analyzeErr: dbErr},
			failOnError: true,
			wantMsg:     "Unable to connect to the dependency-check database; analysis has stopped",
		},
		{
			name:    "database error logged",
			engine:  &fakeEngine{analyzeErr: dbErr},
			wantLog: "Unable to connect to the dependency-check database; analysis has stopped",
		},
		{
			name:        "engine unavailable",
			engine:      &fakeEngine{},
			newErr:      dbErr,
			failOnError: true,
			wantMsg:     "Unable to connect to the dependency-check database; analysis has stopped",
		},
		{
			name:        "report error",
			engine:      &fakeEngine{reportErr: &engine.ReportError{Err: errors.New("read-only")}},
			failOnError: true,
			wantMsg:     "Unable to generate the dependency-check report",
			wantReport:  true,
		},
		{
			name:        "exceptions",
			engine:      &fakeEngine{analyzeErr: exceptions},
			failOnError: true,
			wantMsg:     "broken jar",
		},
		{
			name:       "exceptions ignored",
			engine:     &fakeEngine{analyzeErr: exceptions},
			wantReport: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, buf := newTestProject(t)
			c, _ := newCheckWithFile(t, p)
			c.FailOnError = boolPtr(tt.failOnError)
			useEngine(t, tt.engine, tt.newErr)

			err := c.Execute(context.Background())
			if tt.wantMsg != "" {
				var be *BuildError
				require.ErrorAs(t, err, &be)
				assert.Contains(t, be.Error(), tt.wantMsg)
			} else {
				require.NoError(t, err)
			}

			assert.Contains(t, buf.String(), tt.wantLog)
			assert.Equal(t, tt.wantReport, tt.engine.project != "")
		})
	}
}

func TestCheckForFailure(t *testing.T) {
	deps := []*dependency.Dependency{
		vulnerable("struts.jar", map[string]float64{"CVE-2012-0392": 9.3, "CVE-2011-3923": 6.8}),
		vulnerable("log4j.jar", map[string]float64{"CVE-2021-44228": 10}),
		{FileName: "clean.jar"},
	}

	tests := []struct {
		name    string
		cvss    float64
		wantErr string
	}{
		{
			name:    "seven",
			cvss:    7,
			wantErr: "'7.0': CVE-2012-0392, CVE-2021-44228\n",
		},
		{
			name:    "zero",
			cvss:    0,
			wantErr: "'0.0': CVE-2011-3923, CVE-2012-0392, CVE-2021-44228\n",
		},
		{
			name:    "boundary",
			cvss:    10,
			wantErr: "'10.0': CVE-2021-44228\n",
		},
		{
			name: "never",
			cvss: 11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProject(t)
			c, _ := newCheckWithFile(t, p)
			c.FailBuildOnCVSS = tt.cvss

			f := &fakeEngine{deps: deps}
			useEngine(t, f, nil)

			err := c.Execute(context.Background())
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), "Dependency-Check Failure:")
			assert.Contains(t, err.Error(), "greater than or equal to "+tt.wantErr)
			assert.Contains(t, err.Error(), "See the dependency-check report for more details.")
		})
	}
}

func TestCheckShowSummary(t *testing.T) {
	p, buf := newTestProject(t)
	var table bytes.Buffer
	p.Out = &table

	c, _ := newCheckWithFile(t, p)
	c.ShowSummary = true

	f := &fakeEngine{deps: []*dependency.Dependency{
		vulnerable("struts.jar", map[string]float64{"CVE-2011-3923": 6.8, "CVE-2012-0392": 9.3}),
		{FileName: "clean.jar"},
	}}
	useEngine(t, f, nil)

	require.NoError(t, c.Execute(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "One or more dependencies were identified with known vulnerabilities:")
	assert.Contains(t, out, "struts.jar (cpe:/a:apache:struts.jar) : CVE-2011-3923, CVE-2012-0392")
	assert.NotContains(t, out, "clean.jar")
	assert.Contains(t, table.String(), "CVE-2012-0392")
}

func TestCheckProjectName(t *testing.T) {
	p, buf := newTestProject(t)

	c := NewCheck(p)
	assert.Equal(t, "dependency-check", c.projectName())
	assert.Empty(t, buf.String())

	c.ApplicationName = strPtr("legacy")
	assert.Equal(t, "legacy", c.projectName())
	assert.Contains(t, buf.String(), "Configuration 'applicationName' has been deprecated, please use 'projectName' instead")

	c = NewCheck(p)
	c.ProjectName = "current"
	c.ApplicationName = strPtr("legacy")
	assert.Equal(t, "current", c.projectName())
}

func TestUpdateExecute(t *testing.T) {
	tests := []struct {
		name        string
		engine      *fakeEngine
		newErr      error
		failOnError bool
		wantErr     string
		wantLog     string
	}{
		{name: "success", engine: &fakeEngine{}},
		{
			name:        "update error",
			engine:      &fakeEngine{updateErr: &engine.UpdateError{Err: errors.New("timeout")}},
			failOnError: true,
			wantErr:     "timeout",
		},
		{
			name:    "update error logged",
			engine:  &fakeEngine{updateErr: &engine.UpdateError{Err: errors.New("timeout")}},
			wantLog: "timeout",
		},
		{
			name:        "database error",
			engine:      &fakeEngine{updateErr: &engine.DatabaseError{Err: errors.New("locked")}},
			failOnError: true,
			wantErr:     "Unable to connect to the dependency-check database; unable to update the NVD data",
		},
		{
			name:    "engine unavailable logged",
			engine:  &fakeEngine{},
			newErr:  &engine.DatabaseError{Err: errors.New("locked")},
			wantLog: "Unable to connect to the dependency-check database; unable to update the NVD data: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, buf := newTestProject(t)
			u := NewUpdate(p)
			u.FailOnError = boolPtr(tt.failOnError)
			u.ProxyServer = strPtr("proxy.local")
			useEngine(t, tt.engine, tt.newErr)

			err := u.Execute(context.Background())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Contains(t, buf.String(), tt.wantLog)
			assert.Equal(t, "proxy.local", tt.engine.settings.String(settings.KeyProxyServer))
		})
	}
}

func TestUpdateValidForHours(t *testing.T) {
	u := NewUpdate(nil)
	u.CveValidForHours = intPtr(-1)

	err := u.Execute(context.Background())
	assert.EqualError(t, err, "Invalid setting: `cveValidForHours` must be 0 or greater")
}

func TestPurgeExecute(t *testing.T) {
	p, buf := newTestProject(t)
	dir := t.TempDir()
	db := vulnlib.DatabaseFile(dir)
	require.NoError(t, os.WriteFile(db, []byte("sqlite"), 0o644))
	require.NoError(t, os.WriteFile(db+"-wal", []byte("wal"), 0o644))

	pg := NewPurge(p)
	pg.DataDirectory = &dir

	require.NoError(t, pg.Execute(context.Background()))
	assert.NoFileExists(t, db)
	assert.NoFileExists(t, db+"-wal")
	assert.Contains(t, buf.String(), "Database file purged; local copy of the NVD has been removed")

	err := pg.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to purge database; the database file does not exist")

	pg.FailOnError = boolPtr(false)
	require.NoError(t, pg.Execute(context.Background()))
	assert.Contains(t, buf.String(), "the database file does not exist")
}
