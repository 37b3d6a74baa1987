// Package engine scans files into dependencies, runs the analyzers over them
// phase by phase and writes the reports.
package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/kvesta/depcheck/config"
	"github.com/kvesta/depcheck/internal/analyzer"
	"github.com/kvesta/depcheck/internal/report"
	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/settings"
	"github.com/kvesta/depcheck/pkg/vulnlib"

	"golang.org/x/sync/errgroup"
)

var ErrNoData = errors.New("no vulnerability data exists, the database must be updated first")

type Engine struct {
	settings  *settings.Settings
	analyzers []analyzer.Analyzer
	db        *vulnlib.Client
	workers   int

	mu           sync.Mutex
	dependencies []*dependency.Dependency
	paths        map[string]bool
	analyzed     map[*dependency.Dependency]bool
	removed      map[*dependency.Dependency]bool
}

var _ analyzer.Engine = (*Engine)(nil)

// New prepares an engine with the analyzers enabled in s. The database is
// opened by AnalyzeDependencies or DoUpdates.
func New(s *settings.Settings) (*Engine, error) {
	db, err := vulnlib.New(s)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}

	e := &Engine{
		settings: s,
		db:       db,
		workers:  runtime.NumCPU(),
		paths:    map[string]bool{},
		analyzed: map[*dependency.Dependency]bool{},
		removed:  map[*dependency.Dependency]bool{},
	}

	for _, a := range analyzer.All() {
		if !analyzer.Enabled(a, s) {
			continue
		}
		if c, ok := a.(analyzer.Configurer); ok {
			c.Configure(s)
		}
		e.analyzers = append(e.analyzers, a)
	}

	return e, nil
}

func (e *Engine) Settings() *settings.Settings {
	return e.settings
}

// Database returns the opened CVE database, or nil.
func (e *Engine) Database() analyzer.Database {
	if e.db == nil || e.db.DB == nil {
		return nil
	}
	return e.db
}

// Analyzers lists the enabled analyzers in phase order.
func (e *Engine) Analyzers() []analyzer.Analyzer {
	return e.analyzers
}

// Scan adds path, or every file below it, as dependencies. Only files
// accepted by at least one enabled analyzer are kept.
func (e *Engine) Scan(path string) []*dependency.Dependency {
	info, err := os.Stat(path)
	if err != nil {
		config.Warnf("Unable to scan %s: %v", path, err)
		return nil
	}

	if !info.IsDir() {
		if d := e.scanFile(path); d != nil {
			return []*dependency.Dependency{d}
		}
		return nil
	}

	var found []*dependency.Dependency
	err = filepath.WalkDir(path, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			config.Warnf("Unable to read %s: %v", p, err)
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		if d := e.scanFile(p); d != nil {
			found = append(found, d)
		}
		return nil
	})
	if err != nil {
		config.Warnf("Unable to scan %s: %v", path, err)
	}

	return found
}

func (e *Engine) scanFile(path string) *dependency.Dependency {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	e.mu.Lock()
	seen := e.paths[abs]
	e.paths[abs] = true
	e.mu.Unlock()

	if seen || !e.accepts(abs) {
		return nil
	}

	d, err := dependency.New(abs)
	if err != nil {
		config.Warnf("Unable to read %s: %v", path, err)
		return nil
	}

	e.AddDependency(d)
	return d
}

func (e *Engine) accepts(path string) bool {
	candidate := &dependency.Dependency{
		FilePath:       path,
		ActualFilePath: path,
		FileName:       filepath.Base(path),
	}

	for _, a := range e.analyzers {
		if a.Accepts(candidate) {
			return true
		}
	}
	return false
}

func (e *Engine) AddDependency(d *dependency.Dependency) {
	e.mu.Lock()
	e.dependencies = append(e.dependencies, d)
	e.mu.Unlock()
}

// RemoveDependency drops d from the results; remaining analyzers skip it.
func (e *Engine) RemoveDependency(d *dependency.Dependency) {
	e.mu.Lock()
	e.removed[d] = true
	e.mu.Unlock()
}

func (e *Engine) isRemoved(d *dependency.Dependency) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removed[d]
}

// Dependencies returns the dependencies found so far, in discovery order.
func (e *Engine) Dependencies() []*dependency.Dependency {
	e.mu.Lock()
	defer e.mu.Unlock()

	deps := make([]*dependency.Dependency, 0, len(e.dependencies))
	for _, d := range e.dependencies {
		if !e.removed[d] {
			deps = append(deps, d)
		}
	}
	return deps
}

// pending returns the dependencies not analyzed yet and marks them.
func (e *Engine) pending() []*dependency.Dependency {
	e.mu.Lock()
	defer e.mu.Unlock()

	var batch []*dependency.Dependency
	for _, d := range e.dependencies {
		if !e.analyzed[d] && !e.removed[d] {
			e.analyzed[d] = true
			batch = append(batch, d)
		}
	}
	return batch
}

// AnalyzeDependencies opens the database and runs every enabled analyzer,
// phase by phase. Dependencies added during the analysis go through all
// phases as well. Analyzer failures are returned as an *ExceptionCollection
// once the analysis is complete; a database failure stops it with a
// *DatabaseError.
func (e *Engine) AnalyzeDependencies(ctx context.Context) error {
	start := time.Now()

	if err := e.openDatabase(ctx); err != nil {
		return err
	}

	exceptions := &ExceptionCollection{}
	active := e.prepare(ctx, exceptions)

	config.Infof("%s", config.Green("Analysis Started"))

	for {
		batch := e.pending()
		if len(batch) == 0 {
			break
		}

		for _, phase := range analyzer.Phases() {
			for _, a := range active {
				if a.Phase() != phase {
					continue
				}
				if err := e.run(ctx, a, batch, exceptions); err != nil {
					return err
				}
			}
		}
	}

	deps := bundle(e.Dependencies())
	e.mu.Lock()
	e.dependencies = deps
	e.mu.Unlock()

	config.Infof("Analysis Complete: %s dependencies in %s",
		config.Yellow(len(deps)), time.Since(start).Round(time.Millisecond))

	if exceptions.Len() > 0 {
		return exceptions
	}
	return nil
}

// prepare readies the analyzers; those failing to prepare are left out.
func (e *Engine) prepare(ctx context.Context, exceptions *ExceptionCollection) []analyzer.Analyzer {
	var active []analyzer.Analyzer

	for _, a := range e.analyzers {
		if p, ok := a.(analyzer.Preparer); ok {
			if err := p.Prepare(ctx, e); err != nil {
				config.Warnf("%s has been disabled: %v", a.Name(), err)
				exceptions.Add(err)
				continue
			}
		}
		active = append(active, a)
	}

	return active
}

func (e *Engine) run(ctx context.Context, a analyzer.Analyzer, batch []*dependency.Dependency, exceptions *ExceptionCollection) error {
	var targets []*dependency.Dependency
	for _, d := range batch {
		if !e.isRemoved(d) && a.Accepts(d) {
			targets = append(targets, d)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	if !analyzer.IsParallelSafe(a) {
		for _, d := range targets {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := a.Analyze(ctx, d, e); err != nil {
				config.Errorf("%v", err)
				exceptions.Add(err)
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, d := range targets {
		d := d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := a.Analyze(gctx, d, e); err != nil {
				config.Errorf("%v", err)
				exceptions.Add(err)
			}
			return nil
		})
	}

	return g.Wait()
}

// openDatabase connects to the CVE database, updating it first when
// autoupdate is set.
func (e *Engine) openDatabase(ctx context.Context) error {
	if e.db.DB == nil {
		if err := e.db.Init(); err != nil {
			return &DatabaseError{Err: err}
		}
	}

	if e.settings.Bool(settings.KeyAutoUpdate) {
		if err := e.db.Update(ctx); err != nil {
			config.Warnf("Unable to update the vulnerability database, the existing data is used: %v", err)
		}
	}

	ok, err := e.db.HasData()
	if err != nil {
		return &DatabaseError{Err: err}
	}
	if !ok {
		return &DatabaseError{Err: ErrNoData}
	}
	return nil
}

// DoUpdates refreshes the CVE database.
func (e *Engine) DoUpdates(ctx context.Context) error {
	if e.db.DB == nil {
		if err := e.db.Init(); err != nil {
			return &DatabaseError{Err: err}
		}
	}

	if err := e.db.Update(ctx); err != nil {
		return &UpdateError{Err: err}
	}
	return nil
}

// WriteReports renders the analysis of projectName into dir.
func (e *Engine) WriteReports(projectName, dir string, format report.Format) error {
	g := report.NewGenerator(projectName, e.Dependencies())
	if err := g.Write(dir, format); err != nil {
		return &ReportError{Err: err}
	}
	return nil
}

// Cleanup closes the database and removes extracted files.
func (e *Engine) Cleanup() {
	if err := e.db.Close(); err != nil {
		config.Warnf("Unable to close the vulnerability database: %v", err)
	}
	e.settings.Cleanup(true)
}
