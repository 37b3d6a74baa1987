package packages

import (
	"io"

	"github.com/BurntSushi/toml"
	"github.com/microsoft/go-rustaudit"
)

type Rust struct {
	Name string   `json:"name"`
	Path string   `json:"path"`
	Deps []*Cargo `json:"deps"`
}

type Cargo struct {
	Name    string `json:"name" toml:"name"`
	Version string `json:"version" toml:"version"`
	Source  string `json:"source,omitempty" toml:"source"`
}

// ParseRustBinary reads the dependency list embedded by cargo-auditable.
func ParseRustBinary(rt io.ReaderAt) (*Rust, error) {
	rust := &Rust{}
	deps := []*Cargo{}

	audit, err := rustaudit.GetDependencyInfo(rt)
	if err != nil {
		return rust, err
	}

	for _, dep := range audit.Packages {
		d := &Cargo{
			Name:    dep.Name,
			Version: dep.Version,
		}

		deps = append(deps, d)
	}

	rust.Deps = deps

	return rust, nil
}

// ParseCargoLock lists the registry and git packages pinned by a Cargo.lock.
// Workspace members, which have no source, are skipped.
func ParseCargoLock(r io.Reader) (*Rust, error) {
	rust := &Rust{}

	var lock struct {
		Package []*Cargo `toml:"package"`
	}
	if _, err := toml.NewDecoder(r).Decode(&lock); err != nil {
		return rust, err
	}

	for _, p := range lock.Package {
		if p.Source == "" {
			if rust.Name == "" {
				rust.Name = p.Name
			}
			continue
		}
		rust.Deps = append(rust.Deps, p)
	}

	return rust, nil
}
