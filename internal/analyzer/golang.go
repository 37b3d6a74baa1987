package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/packages"
	"github.com/kvesta/depcheck/pkg/settings"
)

// golangModAnalyzer reports every module required by a go.mod file.
type golangModAnalyzer struct {
	base
	fileFilter
}

func newGolangModAnalyzer() *golangModAnalyzer {
	return &golangModAnalyzer{
		base:       base{name: "Golang Mod Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerGolangMod},
		fileFilter: fileFilter{names: []string{"go.mod"}},
	}
}

func (a *golangModAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, e Engine) error {
	data, err := os.ReadFile(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}

	mod, err := packages.ParseGoMod(d.ActualFilePath, data)
	if err != nil {
		return analyzeError(a, d, err)
	}

	recordGoMain(d, "go.mod", mod)
	for _, m := range mod.Deps {
		addGoModule(e, d, "go.mod", m)
	}
	return nil
}

// golangBinaryAnalyzer reads the build information embedded in Go executables.
type golangBinaryAnalyzer struct {
	base
}

func newGolangBinaryAnalyzer() *golangBinaryAnalyzer {
	return &golangBinaryAnalyzer{
		base: base{name: "Golang Binary Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerGolangMod},
	}
}

func (a *golangBinaryAnalyzer) Accepts(d *dependency.Dependency) bool {
	return isExecutable(d)
}

func (a *golangBinaryAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, e Engine) error {
	f, err := os.Open(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}
	defer f.Close()

	bin, err := packages.ParseGoBinary(f)
	if err != nil {
		// not built by Go
		return nil
	}

	recordGoMain(d, "buildinfo", bin)
	d.AddEvidence(dependency.Version, "buildinfo", "go", strings.TrimPrefix(bin.GoVersion, "go"), dependency.Low)
	for _, m := range bin.Deps {
		addGoModule(e, d, "buildinfo", m)
	}
	return nil
}

func recordGoMain(d *dependency.Dependency, source string, mod *packages.GOBIN) {
	if mod.Path == "" {
		return
	}
	d.Ecosystem = "golang"
	d.Name = mod.Path
	d.AddEvidence(dependency.Product, source, "module", mod.Name, dependency.High)
	d.AddEvidence(dependency.Vendor, source, "module", packages.ModVendor(mod.Path), dependency.Medium)
}

func addGoModule(e Engine, parent *dependency.Dependency, source string, m *packages.MOD) {
	nd := dependency.NewVirtual(parent, "golang", m.Path, m.Version)
	version := strings.TrimSuffix(strings.TrimPrefix(m.Version, "v"), "+incompatible")

	nd.AddEvidence(dependency.Product, source, "name", m.Name, dependency.High)
	nd.AddEvidence(dependency.Vendor, source, "vendor", packages.ModVendor(m.Path), dependency.High)
	nd.AddEvidence(dependency.Vendor, source, "name", m.Name, dependency.Low)
	nd.AddEvidence(dependency.Version, source, "version", version, dependency.Highest)

	nd.AddIdentifier(&dependency.Identifier{
		Type:       dependency.IdentifierGolang,
		Value:      m.Path + "@" + m.Version,
		URL:        "https://pkg.go.dev/" + m.Path + "@" + m.Version,
		Confidence: dependency.Highest,
	})

	namespace, name := "", m.Path
	if i := strings.LastIndex(m.Path, "/"); i >= 0 {
		namespace, name = m.Path[:i], m.Path[i+1:]
	}
	addPurl(nd, "golang", namespace, name, m.Version)

	e.AddDependency(nd)
}

// isExecutable matches regular files with an execute bit and no extension,
// or with the .exe extension.
func isExecutable(d *dependency.Dependency) bool {
	if d.Virtual {
		return false
	}

	ext := strings.ToLower(filepath.Ext(d.ActualFilePath))
	if ext != "" && ext != ".exe" {
		return false
	}

	info, err := os.Stat(d.ActualFilePath)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return ext == ".exe" || info.Mode()&0111 != 0
}
