package packages

import (
	"encoding/xml"
	"io"
	"strings"
)

type Nuspec struct {
	Package
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Authors string `json:"authors,omitempty"`
	Owners  string `json:"owners,omitempty"`
}

type nuspecDocument struct {
	Metadata struct {
		ID          string `xml:"id"`
		Version     string `xml:"version"`
		Title       string `xml:"title"`
		Authors     string `xml:"authors"`
		Owners      string `xml:"owners"`
		ProjectURL  string `xml:"projectUrl"`
		Description string `xml:"description"`
		License     string `xml:"license"`
		LicenseURL  string `xml:"licenseUrl"`
	} `xml:"metadata"`
}

// ParseNuspec reads the metadata of a NuGet package specification.
func ParseNuspec(r io.Reader) (*Nuspec, error) {
	var doc nuspecDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	m := doc.Metadata
	license := m.License
	if license == "" {
		license = m.LicenseURL
	}

	return &Nuspec{
		Package: Package{
			Name:        m.ID,
			Version:     strings.TrimSpace(m.Version),
			Description: strings.TrimSpace(m.Description),
			Homepage:    m.ProjectURL,
			License:     license,
		},
		ID:      m.ID,
		Title:   m.Title,
		Authors: m.Authors,
		Owners:  m.Owners,
	}, nil
}
