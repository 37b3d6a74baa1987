package task

import (
	"context"
	"errors"

	"github.com/kvesta/depcheck/internal/engine"
	"github.com/kvesta/depcheck/internal/report"
	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/settings"
)

// Engine is what the tasks need from the analysis engine.
type Engine interface {
	Scan(path string) []*dependency.Dependency
	AnalyzeDependencies(ctx context.Context) error
	WriteReports(projectName, dir string, format report.Format) error
	DoUpdates(ctx context.Context) error
	Dependencies() []*dependency.Dependency
	Cleanup()
}

var newEngine = func(s *settings.Settings) (Engine, error) {
	e, err := engine.New(s)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// SetEngineFactory replaces how the tasks create their engine. The returned
// function restores the previous factory.
func SetEngineFactory(f func(s *settings.Settings) (Engine, error)) (restore func()) {
	prev := newEngine
	newEngine = f
	return func() { newEngine = prev }
}

// Update refreshes the local copy of the NVD.
type Update struct {
	Purge `yaml:",inline"`

	ProxyServer        *string `yaml:"proxyServer"`
	ProxyPort          *string `yaml:"proxyPort"`
	ProxyUsername      *string `yaml:"proxyUsername"`
	ProxyPassword      *string `yaml:"proxyPassword"`
	ConnectionTimeout  *string `yaml:"connectionTimeout"`
	DatabaseDriverName *string `yaml:"databaseDriverName"`
	ConnectionString   *string `yaml:"connectionString"`
	DatabaseUser       *string `yaml:"databaseUser"`
	DatabasePassword   *string `yaml:"databasePassword"`
	CveURLModified     *string `yaml:"cveUrlModified"`
	CveURLBase         *string `yaml:"cveUrlBase"`
	CveValidForHours   *int    `yaml:"cveValidForHours"`
	CveStartYear       *int    `yaml:"cveStartYear"`
}

func NewUpdate(p *Project) *Update {
	return &Update{Purge: Purge{Project: p, taskName: "dependency-check-update"}}
}

func (t *Update) populateSettings(s *settings.Settings) error {
	if err := t.Purge.populateSettings(s); err != nil {
		return err
	}

	s.SetStringIfNotEmpty(settings.KeyProxyServer, t.ProxyServer)
	s.SetStringIfNotEmpty(settings.KeyProxyPort, t.ProxyPort)
	s.SetStringIfNotEmpty(settings.KeyProxyUsername, t.ProxyUsername)
	s.SetStringIfNotEmpty(settings.KeyProxyPassword, t.ProxyPassword)
	s.SetStringIfNotEmpty(settings.KeyConnectionTimeout, t.ConnectionTimeout)
	s.SetStringIfNotEmpty(settings.KeyDBDriverName, t.DatabaseDriverName)
	s.SetStringIfNotEmpty(settings.KeyDBConnectionString, t.ConnectionString)
	s.SetStringIfNotEmpty(settings.KeyDBUser, t.DatabaseUser)
	s.SetStringIfNotEmpty(settings.KeyDBPassword, t.DatabasePassword)
	s.SetStringIfNotEmpty(settings.KeyCveURLModified, t.CveURLModified)
	s.SetStringIfNotEmpty(settings.KeyCveURLBase, t.CveURLBase)

	if t.CveValidForHours != nil {
		if *t.CveValidForHours < 0 {
			return buildError("Invalid setting: `cveValidForHours` must be 0 or greater")
		}
		s.SetIntIfNotNull(settings.KeyCveValidForHours, t.CveValidForHours)
	}
	s.SetIntIfNotNull(settings.KeyCveStartYear, t.CveStartYear)
	return nil
}

func (t *Update) Execute(ctx context.Context) error {
	s := settings.New()
	defer s.Cleanup(true)

	if err := t.populateSettings(s); err != nil {
		return err
	}

	e, err := newEngine(s)
	if err != nil {
		return t.fail("Unable to connect to the dependency-check database; unable to update the NVD data", err)
	}
	defer e.Cleanup()

	return t.doUpdates(ctx, e)
}

func (t *Update) doUpdates(ctx context.Context, e Engine) error {
	err := e.DoUpdates(ctx)
	if err == nil {
		return nil
	}

	var dbErr *engine.DatabaseError
	if errors.As(err, &dbErr) {
		return t.fail("Unable to connect to the dependency-check database; unable to update the NVD data", err)
	}

	if t.IsFailOnError() {
		return &BuildError{Err: err}
	}
	t.log(err.Error(), LevelError)
	return nil
}
