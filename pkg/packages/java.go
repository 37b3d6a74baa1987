package packages

import (
	"archive/zip"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

type JAVA struct {
	Name    string `json:"name"`
	Vendor  string `json:"vendor"`
	Version string `json:"version"`
	Path    string `json:"path"`

	// Manifest holds the main section of META-INF/MANIFEST.MF.
	Manifest map[string]string `json:"manifest"`
	Poms     []*Pom            `json:"poms"`
	Jars     []*Jar            `json:"jars"`
}

// Pom is the content of a META-INF/maven/**/pom.properties file.
type Pom struct {
	GroupID    string `json:"groupId"`
	ArtifactID string `json:"artifactId"`
	Version    string `json:"version"`
}

type Jar struct {
	Name    string
	Version string
}

var (
	versionReg  = regexp.MustCompile(`(?m)^version=(.*)$`)
	artifactReg = regexp.MustCompile(`(?m)^artifactId=(.*)$`)
	groupReg    = regexp.MustCompile(`(?m)^groupId=(.*)$`)
	NameKeys    = []string{
		"Implementation-Title",
		"Bundle-Name",
		"Specification-Title",
		"Start-Class",
	}
	VendorKeys = []string{
		"Implementation-Vendor",
		"Bundle-Vendor",
		"Specification-Vendor",
		"Implementation-Vendor-Id",
	}
	VersionKeys = []string{
		"Implementation-Version",
		"Bundle-Version",
		"Specification-Version",
	}
	numberReg = regexp.MustCompile(`[-_](\d+(?:\.\d+)*(?:[.-][A-Za-z0-9]+)*)$`)
)

// ParseJar reads the manifest, pom.properties files and nested libraries of a jar.
func ParseJar(r io.ReaderAt, size int64) (*JAVA, error) {
	java := &JAVA{Manifest: map[string]string{}}
	poms := []*Pom{}
	jars := []*Jar{}

	jar, err := zip.NewReader(r, size)
	if err != nil {
		return java, err
	}

	for _, f := range jar.File {
		switch {
		case strings.HasSuffix(f.Name, "pom.properties"):
			pom, err := parseProperties(f)
			if err != nil {
				continue
			}
			poms = append(poms, pom)

		case strings.EqualFold(f.Name, "META-INF/MANIFEST.MF"):
			java.Manifest = parseManifest(f)

		case strings.HasSuffix(f.Name, ".jar"):
			lib, err := ParseLibName(f.Name)
			if err != nil {
				continue
			}
			jars = append(jars, lib)

		default:
			// ignore
		}
	}

	java.Name = firstOf(java.Manifest, NameKeys)
	java.Vendor = firstOf(java.Manifest, VendorKeys)
	java.Version = firstOf(java.Manifest, VersionKeys)
	java.Poms = poms
	java.Jars = jars

	return java, nil
}

func firstOf(m map[string]string, keys []string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}

func parseProperties(file *zip.File) (*Pom, error) {
	pom := &Pom{}

	jr, err := file.Open()
	if err != nil {
		return pom, err
	}

	defer jr.Close()

	d, err := io.ReadAll(jr)
	if err != nil {
		return pom, err
	}
	data := string(d)

	if m := groupReg.FindStringSubmatch(data); len(m) > 1 {
		pom.GroupID = strings.TrimSpace(m[1])
	}

	if m := artifactReg.FindStringSubmatch(data); len(m) > 1 {
		pom.ArtifactID = strings.TrimSpace(m[1])
	}

	if m := versionReg.FindStringSubmatch(data); len(m) > 1 {
		pom.Version = strings.TrimSpace(m[1])
	} else {
		return pom, errors.New("no version found")
	}

	return pom, nil
}

func parseManifest(file *zip.File) map[string]string {
	mani, err := file.Open()
	if err != nil {
		return map[string]string{}
	}

	defer mani.Close()
	return ParseManifest(mani)
}

// ParseManifest reads the main section of a manifest, joining continuation lines.
func ParseManifest(r io.Reader) map[string]string {
	entries := map[string]string{}

	lines, err := readLines(r)
	if err != nil {
		return entries
	}

	var last string
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			// per-entry sections follow the main section
			if len(entries) > 0 {
				break
			}
			continue
		}

		if strings.HasPrefix(line, " ") && last != "" {
			entries[last] += line[1:]
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		last = strings.TrimSpace(key)
		entries[last] = strings.TrimSpace(value)
	}

	return entries
}

// ParseLibName splits a file name such as commons-io-2.11.0.jar into name and version.
func ParseLibName(jarName string) (*Jar, error) {
	jar := &Jar{}

	base := filepath.Base(jarName)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	loc := numberReg.FindStringSubmatchIndex(base)
	if loc == nil || loc[0] == 0 {
		return jar, errors.New("not a versioned library")
	}

	jar.Version = base[loc[2]:loc[3]]

	// prune library name
	jar.Name = base[:loc[0]]
	if jar.Name == "" {
		return jar, errors.New("not a versioned library")
	}

	return jar, nil
}
