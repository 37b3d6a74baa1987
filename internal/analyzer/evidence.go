package analyzer

import (
	"fmt"
	"strings"

	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/packages"
)

// recordPackage copies a parsed package onto d as evidence. Fields of d that
// are already set are kept.
func recordPackage(d *dependency.Dependency, ecosystem, source string, p packages.Package, conf dependency.Confidence) {
	if d.Ecosystem == "" {
		d.Ecosystem = ecosystem
	}
	if d.Name == "" {
		d.Name = p.Name
	}
	if d.Version == "" {
		d.Version = p.Version
	}
	if d.Description == "" {
		d.Description = p.Description
	}
	if d.License == "" {
		d.License = p.License
	}

	d.AddEvidence(dependency.Product, source, "name", p.Name, conf)
	d.AddEvidence(dependency.Version, source, "version", p.Version, conf)

	if p.Vendor != "" {
		d.AddEvidence(dependency.Vendor, source, "vendor", p.Vendor, conf)
	}
	// most projects are published under a vendor of the same name
	d.AddEvidence(dependency.Vendor, source, "name", p.Name, dependency.Low)

	if host := homepageVendor(p.Homepage); host != "" {
		d.AddEvidence(dependency.Vendor, source, "homepage", host, dependency.Low)
	}
}

// homepageVendor turns https://github.com/psf/requests into psf and
// https://www.example.org into example.
func homepageVendor(homepage string) string {
	u := homepage
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	parts := strings.Split(strings.Trim(u, "/"), "/")
	if parts[0] == "" {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(parts[0]), "www.")
	switch host {
	case "github.com", "gitlab.com", "bitbucket.org":
		if len(parts) > 1 {
			return parts[1]
		}
		return ""
	}

	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return ""
	}
	return labels[len(labels)-2]
}

// addVirtual registers a package declared by the manifest behind parent.
func addVirtual(e Engine, parent *dependency.Dependency, ecosystem, source string, p packages.Package) *dependency.Dependency {
	d := dependency.NewVirtual(parent, ecosystem, p.Name, p.Version)
	recordPackage(d, ecosystem, source, p, dependency.Highest)
	e.AddDependency(d)
	return d
}

// purl renders a package URL such as pkg:npm/%40babel/core@7.0.0.
func purl(typ, namespace, name, version string) string {
	id := "pkg:" + typ + "/"
	if namespace != "" {
		id += strings.ReplaceAll(namespace, "@", "%40") + "/"
	}
	id += strings.ReplaceAll(name, "@", "%40")
	if version != "" {
		id += "@" + version
	}
	return id
}

func addPurl(d *dependency.Dependency, typ, namespace, name, version string) {
	if name == "" {
		return
	}
	d.AddIdentifier(&dependency.Identifier{
		Type:       dependency.IdentifierPURL,
		Value:      purl(typ, namespace, name, version),
		Confidence: dependency.Highest,
	})
}

func analyzeError(a Analyzer, d *dependency.Dependency, err error) error {
	return fmt.Errorf("%s failed on %s: %w", a.Name(), d.FilePath, err)
}
