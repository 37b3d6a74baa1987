package buildfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kvesta/depcheck/internal/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
project: shop
basedir: app
resources:
  libs:
    - dir: lib
      includes: ["**/*.jar"]
      excludes: ["test/"]
    - file: vendor/extra.jar
check:
  projectName: Shop
  failBuildOnCVSS: 7
  reportFormat: ALL
  reportOutputDirectory: target
  autoUpdate: false
  failOnError: false
  jarAnalyzerEnabled: false
  nexusUrl: https://nexus.local/service/local/
  cveValidForHours: 12
  refId: libs
update:
  dataDirectory: data
  proxyServer: proxy.local
  cveStartYear: 2018
purge:
  dataDirectory: data
`

func TestParse(t *testing.T) {
	dir := t.TempDir()
	bf, err := Parse([]byte(sample), dir)
	require.NoError(t, err)

	assert.Equal(t, "shop", bf.Project.Name)
	assert.Equal(t, filepath.Join(dir, "app"), bf.Project.BaseDir)

	ref, ok := bf.Project.Reference("libs")
	require.True(t, ok)
	assert.Implements(t, (*task.ResourceCollection)(nil), ref)

	c := bf.Check
	require.NotNil(t, c)
	assert.Equal(t, "Shop", c.ProjectName)
	assert.Equal(t, 7.0, c.FailBuildOnCVSS)
	assert.Equal(t, "ALL", c.ReportFormat)
	assert.Equal(t, "target", c.ReportOutputDirectory)
	assert.True(t, c.ShowSummary)
	assert.True(t, c.IsReference())
	assert.False(t, c.IsFailOnError())
	require.NotNil(t, c.AutoUpdate)
	assert.False(t, *c.AutoUpdate)
	require.NotNil(t, c.JarAnalyzerEnabled)
	assert.False(t, *c.JarAnalyzerEnabled)
	assert.Nil(t, c.ArchiveAnalyzerEnabled)
	require.NotNil(t, c.NexusURL)
	assert.Equal(t, "https://nexus.local/service/local/", *c.NexusURL)
	require.NotNil(t, c.CveValidForHours)
	assert.Equal(t, 12, *c.CveValidForHours)
	assert.Same(t, bf.Project, c.Project)

	u := bf.Update
	require.NotNil(t, u)
	require.NotNil(t, u.ProxyServer)
	assert.Equal(t, "proxy.local", *u.ProxyServer)
	require.NotNil(t, u.CveStartYear)
	assert.Equal(t, 2018, *u.CveStartYear)
	assert.True(t, u.IsFailOnError())

	require.NotNil(t, bf.Purge)
	require.NotNil(t, bf.Purge.DataDirectory)
	assert.Equal(t, "data", *bf.Purge.DataDirectory)
}

func TestParseDefaults(t *testing.T) {
	dir := t.TempDir()
	bf, err := Parse([]byte("check:\n  resources:\n    - files: [a.jar, b.jar]\n"), dir)
	require.NoError(t, err)

	assert.Equal(t, dir, bf.Project.BaseDir)
	assert.Nil(t, bf.Update)
	assert.Nil(t, bf.Purge)

	c := bf.Check
	require.NotNil(t, c)
	assert.Equal(t, "dependency-check", c.ProjectName)
	assert.Equal(t, 11.0, c.FailBuildOnCVSS)
	assert.Equal(t, "HTML", c.ReportFormat)
	assert.False(t, c.IsReference())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "bad yaml",
			data: "check: [",
			want: "failed to parse build file",
		},
		{
			name: "empty resource",
			data: "resources:\n  libs:\n    - includes: ['*.jar']\n",
			want: "a resource needs a dir, a file or files",
		},
		{
			name: "file with dir",
			data: "check:\n  resources:\n    - file: a.jar\n      dir: lib\n",
			want: "cannot be combined",
		},
		{
			name: "ref and nested",
			data: "check:\n  refId: libs\n  resources:\n    - file: a.jar\n",
			want: "Nested elements are not allowed when using the refId attribute.",
		},
		{
			name: "bad attribute",
			data: "check:\n  failBuildOnCVSS: high\n",
			want: "check:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadResolvesFileSets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"lib/a.jar", "lib/test/b.jar", "lib/readme.txt", "vendor/extra.jar"} {
		path := filepath.Join(dir, "app", name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	file := filepath.Join(dir, DefaultName)
	require.NoError(t, os.WriteFile(file, []byte(sample), 0o644))

	bf, err := Load(file)
	require.NoError(t, err)

	ref, _ := bf.Project.Reference("libs")
	resources, err := ref.(task.ResourceCollection).Iterate()
	require.NoError(t, err)

	var files []string
	for _, r := range resources {
		files = append(files, r.(task.FileProvider).File())
	}
	assert.Equal(t, []string{
		filepath.Join(dir, "app", "lib", "a.jar"),
		filepath.Join(dir, "app", "vendor", "extra.jar"),
	}, files)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestPurgeFromBuildFile(t *testing.T) {
	dir := t.TempDir()
	bf, err := Parse([]byte("purge:\n  dataDirectory: "+filepath.Join(dir, "data")+"\n  failOnError: false\n"), dir)
	require.NoError(t, err)

	// No database yet: logged, not fatal.
	assert.NoError(t, bf.Purge.Execute(context.Background()))
}

func TestParseSections(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantCheck  bool
		wantUpdate bool
		wantPurge  bool
	}{
		{name: "none", data: "project: app\n"},
		{name: "empty mappings", data: "update: {}\npurge: {}\n", wantUpdate: true, wantPurge: true},
		{name: "null section", data: "check:\n", wantCheck: true},
		{name: "check only", data: "check:\n  projectName: app\n", wantCheck: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bf, err := Parse([]byte(tt.data), t.TempDir())
			require.NoError(t, err)
			assert.Equal(t, tt.wantCheck, bf.Check != nil)
			assert.Equal(t, tt.wantUpdate, bf.Update != nil)
			assert.Equal(t, tt.wantPurge, bf.Purge != nil)
		})
	}
}
