package analyzer

import (
	"bufio"
	"bytes"
	"context"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"github.com/kvesta/depcheck/pkg/dependency"
	"github.com/kvesta/depcheck/pkg/packages"
	"github.com/kvesta/depcheck/pkg/settings"
)

type nuspecAnalyzer struct {
	base
	fileFilter
}

func newNuspecAnalyzer() *nuspecAnalyzer {
	return &nuspecAnalyzer{
		base:       base{name: "Nuspec Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerNuspec},
		fileFilter: fileFilter{exts: []string{".nuspec"}},
	}
}

func (a *nuspecAnalyzer) ParallelSafe() bool { return true }

func (a *nuspecAnalyzer) Analyze(_ context.Context, d *dependency.Dependency, _ Engine) error {
	f, err := os.Open(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}
	defer f.Close()

	spec, err := packages.ParseNuspec(f)
	if err != nil {
		return analyzeError(a, d, fmt.Errorf("invalid nuspec: %w", err))
	}

	recordPackage(d, "nuget", "nuspec", spec.Package, dependency.Highest)
	d.AddEvidence(dependency.Product, "nuspec", "title", spec.Title, dependency.Medium)
	d.AddEvidence(dependency.Vendor, "nuspec", "authors", spec.Authors, dependency.Medium)
	d.AddEvidence(dependency.Vendor, "nuspec", "owners", spec.Owners, dependency.Medium)

	if spec.ID != "" {
		d.AddIdentifier(&dependency.Identifier{
			Type:       dependency.IdentifierNuGet,
			Value:      fmt.Sprintf("%s:%s", spec.ID, spec.Version),
			URL:        fmt.Sprintf("https://www.nuget.org/packages/%s/%s", spec.ID, spec.Version),
			Confidence: dependency.Highest,
		})
		addPurl(d, "nuget", "", spec.ID, spec.Version)
	}
	return nil
}

var versionInfoKeys = []string{
	"CompanyName",
	"ProductName",
	"FileDescription",
	"InternalName",
	"FileVersion",
	"ProductVersion",
}

// assemblyAnalyzer reads the version resource of .NET assemblies. When a mono
// installation is configured, monodis supplies the assembly name and version.
type assemblyAnalyzer struct {
	base
	fileFilter

	monodis string
}

func newAssemblyAnalyzer() *assemblyAnalyzer {
	return &assemblyAnalyzer{
		base:       base{name: "Assembly Analyzer", phase: InformationCollection, key: settings.KeyAnalyzerAssembly},
		fileFilter: fileFilter{exts: []string{".dll", ".exe"}},
	}
}

func (a *assemblyAnalyzer) Experimental() bool { return true }

func (a *assemblyAnalyzer) ParallelSafe() bool { return true }

func (a *assemblyAnalyzer) Prepare(_ context.Context, e Engine) error {
	mono := e.Settings().String(settings.KeyAnalyzerAssemblyMono)
	if mono == "" {
		return nil
	}

	monodis, err := exec.LookPath(filepath.Join(filepath.Dir(mono), "monodis"))
	if err != nil {
		return fmt.Errorf("monodis was not found next to %s: %w", mono, err)
	}
	a.monodis = monodis
	return nil
}

func (a *assemblyAnalyzer) Analyze(ctx context.Context, d *dependency.Dependency, _ Engine) error {
	info, err := peVersionInfo(d.ActualFilePath)
	if err != nil {
		return analyzeError(a, d, err)
	}

	d.Ecosystem = "dotnet"
	d.AddEvidence(dependency.Vendor, "PE Header", "CompanyName", info["CompanyName"], dependency.High)
	d.AddEvidence(dependency.Product, "PE Header", "ProductName", info["ProductName"], dependency.High)
	d.AddEvidence(dependency.Product, "PE Header", "FileDescription", info["FileDescription"], dependency.Medium)
	d.AddEvidence(dependency.Product, "PE Header", "InternalName", strings.TrimSuffix(info["InternalName"], filepath.Ext(info["InternalName"])), dependency.Low)
	d.AddEvidence(dependency.Version, "PE Header", "ProductVersion", info["ProductVersion"], dependency.High)
	d.AddEvidence(dependency.Version, "PE Header", "FileVersion", info["FileVersion"], dependency.Medium)

	if d.Name == "" {
		d.Name = info["ProductName"]
	}
	if d.Version == "" {
		d.Version = info["ProductVersion"]
	}

	if a.monodis == "" {
		return nil
	}

	out, err := exec.CommandContext(ctx, a.monodis, "--assembly", d.ActualFilePath).Output()
	if err != nil {
		return analyzeError(a, d, fmt.Errorf("monodis failed: %w", err))
	}

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Name":
			d.AddEvidence(dependency.Product, "monodis", "name", value, dependency.Highest)
		case "Version":
			d.AddEvidence(dependency.Version, "monodis", "version", value, dependency.Highest)
		}
	}

	return nil
}

// peVersionInfo extracts the StringFileInfo entries of a PE version resource.
func peVersionInfo(path string) (map[string]string, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, fmt.Errorf("not a PE file: %w", err)
	}
	defer f.Close()

	sec := f.Section(".rsrc")
	if sec == nil {
		return nil, errors.New("no resource section")
	}

	data, err := sec.Data()
	if err != nil {
		return nil, err
	}

	info := map[string]string{}
	for _, key := range versionInfoKeys {
		if v := utf16Value(data, key); v != "" {
			info[key] = v
		}
	}
	return info, nil
}

// utf16Value finds a null terminated UTF-16LE key and returns the string that
// follows it, skipping the alignment padding.
func utf16Value(data []byte, key string) string {
	pattern := encodeUTF16(key)
	pattern = append(pattern, 0, 0)

	for off := 0; off < len(data); {
		idx := bytes.Index(data[off:], pattern)
		if idx < 0 {
			return ""
		}
		start := off + idx
		off = start + 1
		if start%2 != 0 {
			continue
		}

		i := start + len(pattern)
		for i+1 < len(data) && data[i] == 0 && data[i+1] == 0 {
			i += 2
		}

		var units []uint16
		for ; i+1 < len(data); i += 2 {
			u := binary.LittleEndian.Uint16(data[i:])
			if u == 0 {
				break
			}
			units = append(units, u)
		}
		return strings.TrimSpace(string(utf16.Decode(units)))
	}
	return ""
}

func encodeUTF16(s string) []byte {
	units := utf16.Encode([]rune(s))
	b := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	return b
}
