package packages

import (
	"errors"
	"io"

	"github.com/tidwall/gjson"
)

type NPM struct {
	Package
	Author       string            `json:"author,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// ParseNodePackage reads a package.json document.
func ParseNodePackage(r io.Reader) (*NPM, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(data) {
		return nil, errors.New("package.json is not valid json")
	}

	doc := gjson.ParseBytes(data)

	npm := &NPM{
		Package: Package{
			Name:        doc.Get("name").String(),
			Version:     doc.Get("version").String(),
			Description: doc.Get("description").String(),
			Homepage:    doc.Get("homepage").String(),
		},
		Dependencies: map[string]string{},
	}

	// license and author are either strings or objects
	if l := doc.Get("license"); l.IsObject() {
		npm.License = l.Get("type").String()
	} else {
		npm.License = l.String()
	}

	if a := doc.Get("author"); a.IsObject() {
		npm.Author = a.Get("name").String()
	} else {
		npm.Author = a.String()
	}

	doc.Get("dependencies").ForEach(func(name, version gjson.Result) bool {
		npm.Dependencies[name.String()] = version.String()
		return true
	})

	return npm, nil
}
