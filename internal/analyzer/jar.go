package analyzer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/packages"
	"github.com/kvesta/depcheck/pkg/settings"
)

// jarAnalyzer collects evidence from pom.properties, the manifest and the
// file name of java archives.
type jarAnalyzer struct {
	base
	fileFilter
}

func newJarAnalyzer() *jarAnalyzer {
	return &jarAnalyzer{
		base:       base{name: "Jar Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerJar},
		fileFilter: fileFilter{exts: []string{".jar", ".war", ".ear", ".sar", ".aar"}},
	}
}

func (a *jarAnalyzer) ParallelSafe() bool { return true }

func (a *jarAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	f, err := os.Open(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return analyzeError(a, d, err)
	}

	java, err := packages.ParseJar(f, info.Size())
	if err != nil {
		return analyzeError(a, d, fmt.Errorf("not a valid java archive: %w", err))
	}

	d.Ecosystem = "maven"

	// a single pom.properties describes the archive itself; shaded jars carry many
	for _, pom := range java.Poms {
		conf := dependency.High
		if len(java.Poms) > 1 {
			conf = dependency.Low
		}

		d.AddEvidence(dependency.Vendor, "pom", "groupid", pom.GroupID, conf)
		d.AddEvidence(dependency.Product, "pom", "artifactid", pom.ArtifactID, conf)
		d.AddEvidence(dependency.Version, "pom", "version", pom.Version, conf)

		if v := groupVendor(pom.GroupID); v != "" {
			d.AddEvidence(dependency.Vendor, "pom", "groupid", v, dependency.Medium)
		}
		if p, _, ok := strings.Cut(pom.ArtifactID, "-"); ok {
			d.AddEvidence(dependency.Product, "pom", "artifactid", p, dependency.Low)
		}

		if len(java.Poms) == 1 {
			d.Name = pom.ArtifactID
			d.Version = pom.Version
			addMavenIdentifier(d, pom.GroupID, pom.ArtifactID, pom.Version, dependency.High)
		}
	}

	for _, k := range packages.NameKeys {
		d.AddEvidence(dependency.Product, "Manifest", k, java.Manifest[k], dependency.Medium)
	}
	for _, k := range packages.VendorKeys {
		d.AddEvidence(dependency.Vendor, "Manifest", k, java.Manifest[k], dependency.Medium)
	}
	for _, k := range packages.VersionKeys {
		d.AddEvidence(dependency.Version, "Manifest", k, java.Manifest[k], dependency.High)
	}

	if lib, err := packages.ParseLibName(d.FileName); err == nil {
		d.AddEvidence(dependency.Product, "file", "name", lib.Name, dependency.High)
		d.AddEvidence(dependency.Vendor, "file", "name", lib.Name, dependency.Low)
		d.AddEvidence(dependency.Version, "file", "version", lib.Version, dependency.Medium)
		if d.Name == "" {
			d.Name, d.Version = lib.Name, lib.Version
		}
	}

	if d.Name == "" {
		d.Name, d.Version = java.Name, java.Version
	}

	return nil
}

// groupVendor returns the organisation of a group id, "apache" for org.apache.struts.
func groupVendor(groupID string) string {
	parts := strings.Split(groupID, ".")
	if len(parts) < 2 {
		return ""
	}
	switch parts[0] {
	case "org", "com", "net", "io", "de", "edu":
		return parts[1]
	}
	return ""
}

func addMavenIdentifier(d *dependency.Dependency, group, artifact, version string, conf dependency.Confidence) {
	if group == "" || artifact == "" {
		return
	}

	d.AddIdentifier(&dependency.Identifier{
		Type:       dependency.IdentifierMaven,
		Value:      fmt.Sprintf("%s:%s:%s", group, artifact, version),
		URL:        fmt.Sprintf("https://search.maven.org/artifact/%s/%s/%s/jar", group, artifact, version),
		Confidence: conf,
	})
	d.AddIdentifier(&dependency.Identifier{
		Type:       dependency.IdentifierPURL,
		Value:      purl("maven", group, artifact, version),
		Confidence: conf,
	})
}
