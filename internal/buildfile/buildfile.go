// Package buildfile loads depcheck.yaml, the build file declaring the project,
// its named resource collections and the check, update and purge tasks.
package buildfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kvesta/depcheck/internal/task"
	"gopkg.in/yaml.v3"
)

// DefaultName is looked up in the working directory when no build file is given.
const DefaultName = "depcheck.yaml"

type yamlFile struct {
	Project   string                    `yaml:"project"`
	BaseDir   string                    `yaml:"basedir"`
	Resources map[string][]yamlResource `yaml:"resources"`
	Check     yaml.Node                 `yaml:"check"`
	Update    yaml.Node                 `yaml:"update"`
	Purge     yaml.Node                 `yaml:"purge"`
}

// yamlResource is a fileset, a single file or a file list, depending on
// which keys are present.
type yamlResource struct {
	Dir      string   `yaml:"dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	File     string   `yaml:"file"`
	Files    []string `yaml:"files"`
}

type yamlCheck struct {
	RefID     string         `yaml:"refId"`
	Resources []yamlResource `yaml:"resources"`
}

// BuildFile is a loaded build file. Tasks without a section are nil.
type BuildFile struct {
	Project *task.Project
	Check   *task.Check
	Update  *task.Update
	Purge   *task.Purge
}

// Load reads the build file at path. Relative paths inside it are resolved
// against its basedir, which defaults to the directory holding the file.
func Load(path string) (*BuildFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build file %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	return Parse(data, filepath.Dir(abs))
}

// Parse decodes a build file whose relative basedir is taken from dir.
func Parse(data []byte, dir string) (*BuildFile, error) {
	var raw yamlFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse build file: %w", err)
	}

	base := dir
	if raw.BaseDir != "" {
		base = raw.BaseDir
		if !filepath.IsAbs(base) {
			base = filepath.Join(dir, base)
		}
	}

	bf := &BuildFile{Project: task.NewProject(raw.Project, base)}

	for id, items := range raw.Resources {
		rc, err := bf.collection(items)
		if err != nil {
			return nil, fmt.Errorf("resources %s: %w", id, err)
		}
		bf.Project.AddReference(id, rc)
	}

	// Absent sections leave a zero node.
	if raw.Check.Kind != 0 {
		c, err := bf.decodeCheck(&raw.Check)
		if err != nil {
			return nil, err
		}
		bf.Check = c
	}

	if raw.Update.Kind != 0 {
		u := task.NewUpdate(bf.Project)
		if err := raw.Update.Decode(u); err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}
		bf.Update = u
	}

	if raw.Purge.Kind != 0 {
		p := task.NewPurge(bf.Project)
		if err := raw.Purge.Decode(p); err != nil {
			return nil, fmt.Errorf("purge: %w", err)
		}
		bf.Purge = p
	}

	return bf, nil
}

func (bf *BuildFile) decodeCheck(node *yaml.Node) (*task.Check, error) {
	c := task.NewCheck(bf.Project)
	if err := node.Decode(c); err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}

	var nested yamlCheck
	if err := node.Decode(&nested); err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}

	if nested.RefID != "" {
		if err := c.SetRefID(nested.RefID); err != nil {
			return nil, err
		}
	}

	for _, r := range nested.Resources {
		rc, err := bf.resource(r)
		if err != nil {
			return nil, fmt.Errorf("check: %w", err)
		}
		if err := c.Add(rc); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (bf *BuildFile) collection(items []yamlResource) (task.ResourceCollection, error) {
	rs := task.NewResources(false)
	for _, item := range items {
		rc, err := bf.resource(item)
		if err != nil {
			return nil, err
		}
		rs.Add(rc)
	}
	return rs, nil
}

func (bf *BuildFile) resource(r yamlResource) (task.ResourceCollection, error) {
	switch {
	case r.File != "":
		if r.Dir != "" || len(r.Files) > 0 {
			return nil, fmt.Errorf("file %s cannot be combined with dir or files", r.File)
		}
		return &task.FileResource{Path: bf.Project.Resolve(r.File)}, nil
	case len(r.Files) > 0:
		dir := bf.Project.BaseDir
		if r.Dir != "" {
			dir = bf.Project.Resolve(r.Dir)
		}
		return &task.FileList{Dir: dir, Files: r.Files}, nil
	case r.Dir != "":
		return &task.FileSet{Dir: bf.Project.Resolve(r.Dir), Includes: r.Includes, Excludes: r.Excludes}, nil
	}
	return nil, fmt.Errorf("a resource needs a dir, a file or files")
}
