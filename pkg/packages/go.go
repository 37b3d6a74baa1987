package packages

import (
	"debug/buildinfo"
	"io"
	"strings"

	"golang.org/x/mod/modfile"
)

type MOD struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Version  string `json:"version"`
	Indirect bool   `json:"indirect,omitempty"`
}

type GOBIN struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	GoVersion string `json:"goVersion"`
	Deps      []*MOD `json:"deps"`
}

// ParseGoBinary reads the module information embedded in a Go executable.
func ParseGoBinary(r io.ReaderAt) (*GOBIN, error) {
	gobin := &GOBIN{}
	mods := []*MOD{}

	info, err := buildinfo.Read(r)
	if err != nil {
		return gobin, err
	}

	gobin.Path = info.Main.Path
	gobin.Name = modName(info.Main.Path)
	gobin.GoVersion = info.GoVersion

	for _, dep := range info.Deps {
		if dep.Path == "" {
			continue
		}
		if dep.Replace != nil {
			dep = dep.Replace
		}

		mods = append(mods, &MOD{
			Name:    modName(dep.Path),
			Path:    dep.Path,
			Version: dep.Version,
		})
	}

	gobin.Deps = mods

	return gobin, nil
}

// ParseGoMod reads the require directives of a go.mod file. Replacements
// are applied so the reported path and version are the ones built.
func ParseGoMod(filename string, data []byte) (*GOBIN, error) {
	gomod := &GOBIN{}

	f, err := modfile.Parse(filename, data, nil)
	if err != nil {
		return gomod, err
	}

	if f.Module != nil {
		gomod.Path = f.Module.Mod.Path
		gomod.Name = modName(f.Module.Mod.Path)
	}
	if f.Go != nil {
		gomod.GoVersion = f.Go.Version
	}

	replaced := map[string]*modfile.Replace{}
	for _, r := range f.Replace {
		replaced[r.Old.Path] = r
	}

	for _, req := range f.Require {
		path, version := req.Mod.Path, req.Mod.Version
		if r, ok := replaced[path]; ok && r.New.Version != "" {
			path, version = r.New.Path, r.New.Version
		}

		gomod.Deps = append(gomod.Deps, &MOD{
			Name:     modName(path),
			Path:     path,
			Version:  version,
			Indirect: req.Indirect,
		})
	}

	return gomod, nil
}

// modName is the last path element, ignoring a major version suffix.
func modName(path string) string {
	parts := strings.Split(path, "/")
	name := parts[len(parts)-1]
	if len(parts) > 1 && len(name) > 1 && name[0] == 'v' && strings.Trim(name[1:], "0123456789") == "" {
		name = parts[len(parts)-2]
	}
	return name
}

// ModVendor is the organisation part of a module path, e.g. "spf13" for
// github.com/spf13/cobra, or the host for two element paths.
func ModVendor(path string) string {
	parts := strings.Split(path, "/")
	switch {
	case len(parts) > 2:
		return parts[1]
	case len(parts) == 2:
		return strings.Split(parts[0], ".")[0]
	}
	return ""
}
