package task

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Resource is an element of a resource collection.
type Resource interface {
	Name() string
}

// FileProvider is implemented by resources backed by a local file.
type FileProvider interface {
	File() string
}

// ResourceCollection yields resources, typically files.
type ResourceCollection interface {
	Iterate() ([]Resource, error)
}

type fileResource struct {
	name string
	path string
}

func (r *fileResource) Name() string { return r.name }

func (r *fileResource) File() string { return r.path }

// FileResource is a collection holding the single file Path.
type FileResource struct {
	Path string
}

func (f *FileResource) Iterate() ([]Resource, error) {
	return []Resource{&fileResource{name: filepath.Base(f.Path), path: f.Path}}, nil
}

// defaultExcludes are left out of every file set.
var defaultExcludes = []string{
	"**/.git/**",
	"**/.svn/**",
	"**/.hg/**",
	"**/CVS/**",
	"**/.DS_Store",
	"**/*~",
}

// FileSet selects the files below Dir matching one of Includes and none of
// Excludes. Patterns use doublestar syntax relative to Dir; a trailing slash
// stands for everything below a directory.
type FileSet struct {
	Dir      string   `yaml:"dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

func normalizePattern(p string) string {
	p = filepath.ToSlash(strings.TrimSpace(p))
	if strings.HasSuffix(p, "/") {
		p += "**"
	}
	return p
}

func matchAny(patterns []string, name string) (bool, error) {
	for _, p := range patterns {
		ok, err := doublestar.Match(normalizePattern(p), name)
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (f *FileSet) Iterate() ([]Resource, error) {
	if f.Dir == "" {
		return nil, fmt.Errorf("a fileset requires a dir")
	}

	info, err := os.Stat(f.Dir)
	if err != nil {
		return nil, fmt.Errorf("fileset dir %s: %w", f.Dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fileset dir %s is not a directory", f.Dir)
	}

	includes := f.Includes
	if len(includes) == 0 {
		includes = []string{"**"}
	}
	excludes := append(append([]string{}, defaultExcludes...), f.Excludes...)

	var found []Resource
	err = filepath.WalkDir(f.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(f.Dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		ok, err := matchAny(includes, rel)
		if err != nil || !ok {
			return err
		}
		ok, err = matchAny(excludes, rel)
		if err != nil || ok {
			return err
		}

		found = append(found, &fileResource{name: rel, path: path})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

// FileList names files below Dir. The files need not exist.
type FileList struct {
	Dir   string   `yaml:"dir"`
	Files []string `yaml:"files"`
}

func (f *FileList) Iterate() ([]Resource, error) {
	found := make([]Resource, 0, len(f.Files))
	for _, name := range f.Files {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(f.Dir, name)
		}
		found = append(found, &fileResource{name: name, path: path})
	}
	return found, nil
}

// Resources is the union of several collections. With caching enabled the
// collections are evaluated once.
type Resources struct {
	cache bool

	mu          sync.Mutex
	collections []ResourceCollection
	cached      []Resource
	evaluated   bool
}

func NewResources(cache bool) *Resources {
	return &Resources{cache: cache}
}

func (r *Resources) Add(rc ResourceCollection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections = append(r.collections, rc)
	r.evaluated = false
}

func (r *Resources) Iterate() ([]Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cache && r.evaluated {
		return r.cached, nil
	}

	var all []Resource
	for _, rc := range r.collections {
		items, err := rc.Iterate()
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}

	if r.cache {
		r.cached, r.evaluated = all, true
	}
	return all, nil
}
