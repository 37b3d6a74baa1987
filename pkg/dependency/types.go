package dependency

import (
	"fmt"
	"strings"
)

type EvidenceType string

const (
	Vendor  EvidenceType = "vendor"
	Product EvidenceType = "product"
	Version EvidenceType = "version"
)

type Confidence int

const (
	Low Confidence = iota + 1
	Medium
	High
	Highest
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "LOW"
	case Medium:
		return "MEDIUM"
	case High:
		return "HIGH"
	case Highest:
		return "HIGHEST"
	}
	return "UNKNOWN"
}

// ParseConfidence accepts the upper or lower case names used in hint files.
func ParseConfidence(s string) (Confidence, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return Low, nil
	case "MEDIUM":
		return Medium, nil
	case "HIGH":
		return High, nil
	case "HIGHEST", "":
		return Highest, nil
	}
	return 0, fmt.Errorf("unknown confidence %q", s)
}

func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

type Evidence struct {
	Type       EvidenceType `json:"type" xml:"type,attr"`
	Source     string       `json:"source" xml:"source"`
	Name       string       `json:"name" xml:"name"`
	Value      string       `json:"value" xml:"value"`
	Confidence Confidence   `json:"confidence" xml:"confidence,attr"`
}

// Identifier types.
const (
	IdentifierCPE    = "cpe"
	IdentifierMaven  = "maven"
	IdentifierPURL   = "purl"
	IdentifierNuGet  = "nuget"
	IdentifierGolang = "golang"
)

type Identifier struct {
	Type       string     `json:"type" xml:"type,attr"`
	Value      string     `json:"value" xml:"name"`
	URL        string     `json:"url,omitempty" xml:"url,omitempty"`
	Confidence Confidence `json:"confidence" xml:"confidence,attr"`
	Notes      string     `json:"notes,omitempty" xml:"notes,omitempty"`
}

type Vulnerability struct {
	Name              string   `json:"name" xml:"name"`
	Description       string   `json:"description" xml:"description"`
	Severity          string   `json:"severity" xml:"severity"`
	CvssScore         float64  `json:"cvssScore" xml:"cvssScore"`
	Source            string   `json:"source" xml:"source,attr"`
	PublishDate       string   `json:"publishDate,omitempty" xml:"publishDate,omitempty"`
	VulnerableVersion string   `json:"vulnerableVersion,omitempty" xml:"vulnerableVersion,omitempty"`
	MatchedCPE        string   `json:"matchedCpe,omitempty" xml:"matchedCpe,omitempty"`
	References        []string `json:"references,omitempty" xml:"references>reference,omitempty"`
	Notes             string   `json:"notes,omitempty" xml:"notes,omitempty"`
}
