package dependency

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Dependency is a single file (or a package declared inside a manifest) found
// during a scan, together with everything the analyzers learnt about it.
type Dependency struct {
	// FilePath is the path as displayed in reports. For files extracted from
	// archives it points inside the archive, e.g. app.war/WEB-INF/lib/x.jar.
	FilePath string `json:"filePath" xml:"filePath"`
	// ActualFilePath is where the bytes live on disk.
	ActualFilePath string `json:"-" xml:"-"`
	FileName       string `json:"fileName" xml:"fileName"`
	SHA1           string `json:"sha1,omitempty" xml:"sha1,omitempty"`
	MD5            string `json:"md5,omitempty" xml:"md5,omitempty"`

	// Virtual dependencies are declared by a manifest (go.mod, Cargo.lock ...)
	// rather than backed by their own file.
	Virtual     bool   `json:"virtual,omitempty" xml:"virtual,attr,omitempty"`
	Ecosystem   string `json:"ecosystem,omitempty" xml:"ecosystem,omitempty"`
	Name        string `json:"name,omitempty" xml:"name,omitempty"`
	Version     string `json:"version,omitempty" xml:"version,omitempty"`
	Description string `json:"description,omitempty" xml:"description,omitempty"`
	License     string `json:"license,omitempty" xml:"license,omitempty"`

	Evidence        []*Evidence      `json:"evidence,omitempty" xml:"evidenceCollected>evidence,omitempty"`
	Identifiers     []*Identifier    `json:"identifiers,omitempty" xml:"identifiers>identifier,omitempty"`
	Vulnerabilities []*Vulnerability `json:"vulnerabilities,omitempty" xml:"vulnerabilities>vulnerability,omitempty"`

	SuppressedIdentifiers     []*Identifier    `json:"suppressedIdentifiers,omitempty" xml:"suppressedIdentifiers>identifier,omitempty"`
	SuppressedVulnerabilities []*Vulnerability `json:"suppressedVulnerabilities,omitempty" xml:"suppressedVulnerabilities>vulnerability,omitempty"`

	RelatedDependencies []*Dependency `json:"relatedDependencies,omitempty" xml:"relatedDependencies>relatedDependency,omitempty"`
}

// New creates a dependency for a file on disk and computes its checksums.
func New(path string) (*Dependency, error) {
	d := &Dependency{
		FilePath:       path,
		ActualFilePath: path,
		FileName:       filepath.Base(path),
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s1 := sha1.New()
	m5 := md5.New()
	if _, err := io.Copy(io.MultiWriter(s1, m5), f); err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	d.SHA1 = hex.EncodeToString(s1.Sum(nil))
	d.MD5 = hex.EncodeToString(m5.Sum(nil))

	return d, nil
}

// NewVirtual creates a dependency declared by the manifest at parent.
func NewVirtual(parent *Dependency, ecosystem, name, version string) *Dependency {
	display := name
	if version != "" {
		display = fmt.Sprintf("%s:%s", name, version)
	}

	return &Dependency{
		FilePath:       fmt.Sprintf("%s?%s", parent.FilePath, display),
		ActualFilePath: parent.ActualFilePath,
		FileName:       fmt.Sprintf("%s (%s)", display, parent.FileName),
		Virtual:        true,
		Ecosystem:      ecosystem,
		Name:           name,
		Version:        version,
	}
}

// DisplayName is the name used in summaries and console output.
func (d *Dependency) DisplayName() string {
	if d.Virtual && d.Name != "" {
		if d.Version != "" {
			return fmt.Sprintf("%s:%s", d.Name, d.Version)
		}
		return d.Name
	}
	return d.FileName
}

// AddEvidence records a piece of evidence, ignoring empty values and duplicates.
func (d *Dependency) AddEvidence(t EvidenceType, source, name, value string, confidence Confidence) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}

	for _, e := range d.Evidence {
		if e.Type == t && e.Source == source && e.Name == name && strings.EqualFold(e.Value, value) {
			if confidence > e.Confidence {
				e.Confidence = confidence
			}
			return
		}
	}

	d.Evidence = append(d.Evidence, &Evidence{
		Type:       t,
		Source:     source,
		Name:       name,
		Value:      value,
		Confidence: confidence,
	})
}

// EvidenceOf returns the evidence of one type, highest confidence first.
func (d *Dependency) EvidenceOf(t EvidenceType) []*Evidence {
	var found []*Evidence
	for _, e := range d.Evidence {
		if e.Type == t {
			found = append(found, e)
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Confidence > found[j].Confidence
	})

	return found
}

// AddIdentifier adds an identifier unless one with the same type and value exists.
func (d *Dependency) AddIdentifier(id *Identifier) {
	for _, i := range d.Identifiers {
		if i.Type == id.Type && i.Value == id.Value {
			return
		}
	}
	d.Identifiers = append(d.Identifiers, id)
}

// IdentifiersOf returns identifiers of the given type.
func (d *Dependency) IdentifiersOf(t string) []*Identifier {
	var found []*Identifier
	for _, i := range d.Identifiers {
		if i.Type == t {
			found = append(found, i)
		}
	}
	return found
}

// AddVulnerability adds v unless a vulnerability with the same name is recorded.
func (d *Dependency) AddVulnerability(v *Vulnerability) {
	for _, e := range d.Vulnerabilities {
		if e.Name == v.Name {
			return
		}
	}
	d.Vulnerabilities = append(d.Vulnerabilities, v)
}

// SortVulnerabilities orders vulnerabilities by score, highest first, then by name.
func (d *Dependency) SortVulnerabilities() {
	sort.SliceStable(d.Vulnerabilities, func(i, j int) bool {
		a, b := d.Vulnerabilities[i], d.Vulnerabilities[j]
		if a.CvssScore != b.CvssScore {
			return a.CvssScore > b.CvssScore
		}
		return a.Name < b.Name
	})
}

// HighestScore returns the highest CVSS score among the vulnerabilities.
func (d *Dependency) HighestScore() float64 {
	var max float64
	for _, v := range d.Vulnerabilities {
		if v.CvssScore > max {
			max = v.CvssScore
		}
	}
	return max
}
