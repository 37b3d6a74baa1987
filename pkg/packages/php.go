package packages

import (
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

type PHPPack struct {
	Name      string `json:"name"`
	Component string `json:"component"`
	Vendor    string `json:"vendor"`
	Version   string `json:"version"`
}

// Map framework name to standard name
var phpNameMap = map[string]string{"topthink/framework": "thinkphp"}

// ParseComposerLock lists the packages and dev packages pinned by a composer.lock.
func ParseComposerLock(r io.Reader) ([]*PHPPack, error) {
	phpPacks := []*PHPPack{}

	data, err := io.ReadAll(r)
	if err != nil {
		return phpPacks, err
	}

	if !gjson.ValidBytes(data) {
		return phpPacks, errors.New("composer.lock is not valid json")
	}

	for _, key := range []string{"packages", "packages-dev"} {
		gjson.GetBytes(data, key).ForEach(func(_, pack gjson.Result) bool {
			component := pack.Get("name").String()
			if component == "" {
				return true
			}

			vendor, name, ok := strings.Cut(component, "/")
			if !ok {
				vendor, name = "", filepath.Base(component)
			}
			if get, ok := phpNameMap[component]; ok {
				name = get
			}

			phpPacks = append(phpPacks, &PHPPack{
				Name:      name,
				Component: component,
				Vendor:    vendor,
				Version:   strings.TrimPrefix(pack.Get("version").String(), "v"),
			})
			return true
		})
	}

	return phpPacks, nil
}
