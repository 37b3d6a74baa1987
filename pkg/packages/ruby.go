package packages

import (
	"io"
	"strings"
)

type Gem struct {
	Package
	Authors string `json:"authors,omitempty"`
}

// ParseGemspec reads the literal attribute assignments of a gemspec or podspec.
func ParseGemspec(r io.Reader) (*Gem, error) {
	gem := &Gem{}

	lines, err := readLines(r)
	if err != nil {
		return gem, err
	}

	for _, line := range lines {
		m := assignment.FindStringSubmatch(line)
		if len(m) < 3 {
			continue
		}

		value := unquote(m[2])
		if value == "" {
			continue
		}

		switch m[1] {
		case "name":
			gem.Name = value
		case "version":
			gem.Version = value
		case "summary":
			gem.Description = value
		case "description":
			if gem.Description == "" {
				gem.Description = value
			}
		case "homepage":
			gem.Homepage = value
		case "license", "licenses":
			gem.License = value
		case "author", "authors":
			gem.Authors = value
		}
	}

	// a gem version may be a constant such as Rails::VERSION
	if strings.ContainsAny(gem.Version, ":(") {
		gem.Version = ""
	}

	return gem, nil
}

// Advisory is one finding reported by bundle-audit.
type Advisory struct {
	Name        string
	Version     string
	ID          string
	Criticality string
	URL         string
	Title       string
	Solution    string
}

// ParseBundleAudit reads the text output of `bundle-audit check`.
func ParseBundleAudit(r io.Reader) ([]*Advisory, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	var (
		advisories []*Advisory
		current    *Advisory
	)

	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "Name":
			current = &Advisory{Name: value}
			advisories = append(advisories, current)
		case "Version":
			if current != nil {
				current.Version = value
			}
		case "Advisory", "CVE", "GHSA":
			if current != nil && current.ID == "" {
				current.ID = value
				if key == "CVE" && !strings.HasPrefix(value, "CVE-") {
					current.ID = "CVE-" + value
				}
			}
		case "Criticality":
			if current != nil {
				current.Criticality = strings.ToLower(value)
			}
		case "URL":
			if current != nil {
				current.URL = value
			}
		case "Title":
			if current != nil {
				current.Title = value
			}
		case "Solution":
			if current != nil {
				current.Solution = value
			}
		}
	}

	return advisories, nil
}
