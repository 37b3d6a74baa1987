package packages

import (
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	setupField   = regexp.MustCompile(`\b(name|version|description|author|url|license)\s*=\s*['"]([^'"]+)['"]`)
	initVersion  = regexp.MustCompile(`(?m)^__version__\s*=\s*['"]([^'"]+)['"]`)
	distInfoName = regexp.MustCompile(`^([A-Za-z0-9_.]+)-([^-]+)\.(dist-info|egg-info)$`)
)

type PIP struct {
	Package
	Author       string   `json:"author,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// ParsePythonMetadata reads the header block of a METADATA or PKG-INFO file.
func ParsePythonMetadata(r io.Reader) (*PIP, error) {
	pip := &PIP{}

	lines, err := readLines(r)
	if err != nil {
		return pip, err
	}

	for _, line := range lines {
		if line == "" {
			// description body
			break
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(key) {
		case "name":
			pip.Name = value
		case "version":
			pip.Version = value
		case "summary":
			pip.Description = value
		case "author":
			pip.Author = value
		case "home-page":
			pip.Homepage = value
		case "license":
			pip.License = value
		case "requires-dist":
			pip.Dependencies = append(pip.Dependencies, value)
		}
	}

	return pip, nil
}

// ParseSetupPy extracts the literal keyword arguments of a setup() call.
func ParseSetupPy(r io.Reader) (*PIP, error) {
	pip := &PIP{}

	data, err := io.ReadAll(r)
	if err != nil {
		return pip, err
	}

	for _, m := range setupField.FindAllStringSubmatch(string(data), -1) {
		switch m[1] {
		case "name":
			if pip.Name == "" {
				pip.Name = m[2]
			}
		case "version":
			if pip.Version == "" {
				pip.Version = m[2]
			}
		case "description":
			pip.Description = m[2]
		case "author":
			pip.Author = m[2]
		case "url":
			pip.Homepage = m[2]
		case "license":
			pip.License = m[2]
		}
	}

	return pip, nil
}

// ParseInitVersion returns the __version__ assigned in a module, if any.
func ParseInitVersion(r io.Reader) string {
	data, err := io.ReadAll(r)
	if err != nil {
		return ""
	}

	if m := initVersion.FindSubmatch(data); len(m) > 1 {
		return string(m[1])
	}
	return ""
}

type pyproject struct {
	Project struct {
		Name         string   `toml:"name"`
		Version      string   `toml:"version"`
		Description  string   `toml:"description"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name         string                 `toml:"name"`
			Version      string                 `toml:"version"`
			Description  string                 `toml:"description"`
			Homepage     string                 `toml:"homepage"`
			License      string                 `toml:"license"`
			Dependencies map[string]interface{} `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// ParsePyproject reads a pyproject.toml using either the PEP 621 or the poetry layout.
func ParsePyproject(r io.Reader) (*PIP, error) {
	pip := &PIP{}

	var config pyproject
	if _, err := toml.NewDecoder(r).Decode(&config); err != nil {
		return pip, err
	}

	if config.Project.Name != "" {
		pip.Name = config.Project.Name
		pip.Version = config.Project.Version
		pip.Description = config.Project.Description
		pip.Dependencies = config.Project.Dependencies
		return pip, nil
	}

	poetry := config.Tool.Poetry
	pip.Name = poetry.Name
	pip.Version = poetry.Version
	pip.Description = poetry.Description
	pip.Homepage = poetry.Homepage
	pip.License = poetry.License

	for name, version := range poetry.Dependencies {
		if name == "python" {
			continue
		}

		if v, ok := version.(string); ok && v != "*" {
			pip.Dependencies = append(pip.Dependencies, name+" "+v)
		} else {
			pip.Dependencies = append(pip.Dependencies, name)
		}
	}
	sort.Strings(pip.Dependencies)

	return pip, nil
}

// ParseDistInfoName splits a directory name such as requests-2.31.0.dist-info.
func ParseDistInfoName(dir string) (name, version string, ok bool) {
	m := distInfoName.FindStringSubmatch(dir)
	if len(m) < 3 {
		return "", "", false
	}
	return m[1], m[2], true
}
