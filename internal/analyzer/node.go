package analyzer

import (
	"context"
	"os"
	"strings"

	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/packages"
	"github.com/kvesta/depcheck/pkg/settings"
)

type nodePackageAnalyzer struct {
	base
	fileFilter
}

func newNodePackageAnalyzer() *nodePackageAnalyzer {
	return &nodePackageAnalyzer{
		base:       base{name: "Node.js Package Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerNodePackage},
		fileFilter: fileFilter{names: []string{"package.json"}},
	}
}

func (a *nodePackageAnalyzer) ParallelSafe() bool { return true }

func (a *nodePackageAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	f, err := os.Open(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}
	defer f.Close()

	npm, err := packages.ParseNodePackage(f)
	if err != nil {
		return analyzeError(a, d, err)
	}
	if npm.Name == "" {
		return nil
	}

	scope, name := splitScope(npm.Name)

	p := npm.Package
	p.Name = name
	recordPackage(d, "npm", "package.json", p, dependency.Highest)
	d.Name = npm.Name

	namespace := ""
	if scope != "" {
		namespace = "@" + scope
		d.AddEvidence(dependency.Vendor, "package.json", "scope", scope, dependency.Medium)
	}
	d.AddEvidence(dependency.Vendor, "package.json", "author", npm.Author, dependency.Low)

	addPurl(d, "npm", namespace, name, npm.Version)
	return nil
}

// splitScope splits @babel/core into babel and core.
func splitScope(name string) (scope, short string) {
	if !strings.HasPrefix(name, "@") {
		return "", name
	}
	scope, short, ok := strings.Cut(name[1:], "/")
	if !ok {
		return "", name
	}
	return scope, short
}

// composerLockAnalyzer reports every package pinned by a composer.lock.
type composerLockAnalyzer struct {
	base
	fileFilter
}

func newComposerLockAnalyzer() *composerLockAnalyzer {
	return &composerLockAnalyzer{
		base:       base{name: "Composer.lock analyzer", phase: InformationCollection, key: settings.KeyAnalyzerComposerLock},
		fileFilter: fileFilter{names: []string{"composer.lock"}},
	}
}

func (a *composerLockAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, e Engine) error {
	f, err := os.Open(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}
	defer f.Close()

	packs, err := packages.ParseComposerLock(f)
	if err != nil {
		return analyzeError(a, d, err)
	}

	for _, pack := range packs {
		nd := dependency.NewVirtual(d, "composer", pack.Component, pack.Version)
		recordPackage(nd, "composer", "composer.lock", packages.Package{
			Name:    pack.Name,
			Vendor:  pack.Vendor,
			Version: pack.Version,
		}, dependency.Highest)
		nd.Name = pack.Component
		addPurl(nd, "composer", pack.Vendor, strings.TrimPrefix(pack.Component, pack.Vendor+"/"), pack.Version)
		e.AddDependency(nd)
	}

	return nil
}
