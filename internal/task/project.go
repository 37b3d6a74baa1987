// Package task holds the build tasks driving the engine: Check, Update and
// Purge. A Project plays the part of the host build tool, providing the base
// directory, references between build file elements and logging.
package task

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/kvesta/depcheck/config"
)

// Level is the priority of a task message.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelVerbose
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelVerbose:
		return "VERBOSE"
	case LevelDebug:
		return "DEBUG"
	}
	return "UNKNOWN"
}

type Project struct {
	Name    string
	BaseDir string

	// Level is the highest priority that gets logged.
	Level Level
	// Out receives console tables, nil disables them.
	Out io.Writer

	logger *log.Logger

	mu         sync.Mutex
	references map[string]interface{}
}

func NewProject(name, baseDir string) *Project {
	return &Project{
		Name:       name,
		BaseDir:    baseDir,
		Level:      LevelInfo,
		logger:     log.New(os.Stderr, "", log.LstdFlags),
		references: map[string]interface{}{},
	}
}

// SetOutput redirects log messages.
func (p *Project) SetOutput(w io.Writer) {
	p.logger.SetOutput(w)
}

func (p *Project) AddReference(id string, v interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.references[id] = v
}

func (p *Project) Reference(id string) (interface{}, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.references[id]
	return v, ok
}

// Resolve returns path relative to the base directory.
func (p *Project) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.BaseDir, path)
}

// Log writes msg for task when level is within the project level.
func (p *Project) Log(task, msg string, level Level) {
	if level > p.Level {
		return
	}

	prefix := fmt.Sprintf("[%s]", task)
	switch level {
	case LevelError:
		prefix = config.Red(prefix)
	case LevelWarn:
		prefix = config.Yellow(prefix)
	}
	p.logger.Printf("%s %s", prefix, msg)
}
