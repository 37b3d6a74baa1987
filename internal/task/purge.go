package task

import (
	"context"
	"fmt"
	"os"

	"github.com/kvesta/depcheck/pkg/settings"
	"github.com/kvesta/depcheck/pkg/vulnlib"
)

// Purge is the base of the tasks working on the CVE database.
type Purge struct {
	Project *Project `yaml:"-"`

	DataDirectory *string `yaml:"dataDirectory"`
	FailOnError   *bool   `yaml:"failOnError"`

	taskName string
}

func (t *Purge) IsFailOnError() bool {
	return t.FailOnError == nil || *t.FailOnError
}

func (t *Purge) project() *Project {
	if t.Project == nil {
		return defaultProject
	}
	return t.Project
}

func (t *Purge) log(msg string, level Level) {
	p := t.project()
	name := t.taskName
	if name == "" {
		name = "dependency-check-purge"
	}
	p.Log(name, msg, level)
}

func (t *Purge) logError(msg string, err error) {
	if err != nil {
		msg += ": " + err.Error()
	}
	t.log(msg, LevelError)
}

// fail returns a build error when failOnError is set, otherwise logs it.
func (t *Purge) fail(msg string, err error) error {
	if t.IsFailOnError() {
		return &BuildError{Msg: msg, Err: err}
	}
	t.logError(msg, err)
	return nil
}

func (t *Purge) populateSettings(s *settings.Settings) error {
	if t.DataDirectory != nil && *t.DataDirectory != "" {
		s.SetString(settings.KeyDataDirectory, t.project().Resolve(*t.DataDirectory))
	}
	return nil
}

var defaultProject = NewProject("", ".")

func NewPurge(p *Project) *Purge {
	return &Purge{Project: p, taskName: "dependency-check-purge"}
}

// Execute deletes the embedded CVE database from the data directory.
func (t *Purge) Execute(_ context.Context) error {
	s := settings.New()
	defer s.Cleanup(true)

	if err := t.populateSettings(s); err != nil {
		return err
	}

	dir, err := s.DataDirectory()
	if err != nil {
		return t.fail("Unable to delete the database", err)
	}

	db := vulnlib.DatabaseFile(dir)
	if _, err := os.Stat(db); err != nil {
		return t.fail(fmt.Sprintf("Unable to purge database; the database file does not exist: %s", db), nil)
	}

	if err := os.Remove(db); err != nil {
		return t.fail(fmt.Sprintf("Unable to delete '%s'; please delete the file manually", db), err)
	}
	for _, suffix := range []string{"-journal", "-wal", "-shm"} {
		os.Remove(db + suffix)
	}

	t.log("Database file purged; local copy of the NVD has been removed", LevelInfo)
	return nil
}
