package packages

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	cmakeProject = regexp.MustCompile(`(?is)\bproject\s*\(\s*([\w.+-]+)(.*?)\)`)
	cmakeVersion = regexp.MustCompile(`(?i)\bVERSION\s+"?([\w.-]+)"?`)
	cmakeSet     = regexp.MustCompile(`(?i)\bset\s*\(\s*(\w*?)_?VERSION(?:_STRING)?\s+"?([\d][\w.-]*)"?\s*\)`)

	acInit  = regexp.MustCompile(`(?s)AC_INIT\s*\((.*?)\)\s*$`)
	pkgName = regexp.MustCompile(`(?m)^PACKAGE_NAME=['"]?([^'"\n]*)['"]?`)
	pkgVer  = regexp.MustCompile(`(?m)^PACKAGE_VERSION=['"]?([^'"\n]*)['"]?`)
	pkgURL  = regexp.MustCompile(`(?m)^PACKAGE_URL=['"]?([^'"\n]*)['"]?`)

	opensslNumber = regexp.MustCompile(`(?m)^\s*#\s*define\s+OPENSSL_VERSION_NUMBER\s+(0x[0-9a-fA-F]+)L?`)
	opensslText   = regexp.MustCompile(`(?m)^\s*#\s*define\s+OPENSSL_VERSION_TEXT\s+"OpenSSL ([\w.-]+)`)
	opensslMajor  = regexp.MustCompile(`(?m)^\s*#\s*define\s+OPENSSL_VERSION_(MAJOR|MINOR|PATCH)\s+(\d+)`)

	swiftName = regexp.MustCompile(`(?s)Package\s*\(\s*name\s*:\s*"([^"]+)"`)
)

// ParseCMake returns the projects declared in a CMake file. Versions set with
// set(<NAME>_VERSION x) are attached to the matching project.
func ParseCMake(r io.Reader) ([]*Package, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	content := stripHashComments(string(data))

	var packs []*Package
	for _, m := range cmakeProject.FindAllStringSubmatch(content, -1) {
		p := &Package{Name: m[1]}
		if v := cmakeVersion.FindStringSubmatch(m[2]); len(v) > 1 {
			p.Version = v[1]
		}
		packs = append(packs, p)
	}

	for _, m := range cmakeSet.FindAllStringSubmatch(content, -1) {
		prefix := strings.ToLower(m[1])
		matched := false
		for _, p := range packs {
			if p.Version == "" && (prefix == "" || strings.EqualFold(p.Name, prefix)) {
				p.Version = m[2]
				matched = true
				break
			}
		}
		if !matched && prefix != "" && len(packs) == 0 {
			packs = append(packs, &Package{Name: prefix, Version: m[2]})
		}
	}

	return packs, nil
}

func stripHashComments(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "#"); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return strings.Join(lines, "\n")
}

// ParseAutoconf reads AC_INIT from configure.ac / configure.in, or the
// PACKAGE_* variables of a generated configure script.
func ParseAutoconf(r io.Reader) (*Package, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	content := string(data)
	p := &Package{}

	if m := pkgName.FindStringSubmatch(content); len(m) > 1 {
		p.Name = m[1]
		if v := pkgVer.FindStringSubmatch(content); len(v) > 1 {
			p.Version = v[1]
		}
		if u := pkgURL.FindStringSubmatch(content); len(u) > 1 {
			p.Homepage = u[1]
		}
		return p, nil
	}

	for _, line := range strings.Split(stripDnl(content), "\n") {
		if !strings.Contains(line, "AC_INIT") {
			continue
		}
		m := acInit.FindStringSubmatch(strings.TrimSpace(line))
		if len(m) < 2 {
			continue
		}

		args := splitM4Args(m[1])

		if len(args) > 0 {
			p.Name = args[0]
		}
		if len(args) > 1 {
			p.Version = args[1]
		}
		if len(args) > 4 {
			p.Homepage = args[4]
		}
		break
	}

	if p.Name == "" {
		return nil, fmt.Errorf("no AC_INIT found")
	}
	return p, nil
}

// splitM4Args splits macro arguments on commas outside [quotes].
func splitM4Args(s string) []string {
	var (
		args  []string
		cur   strings.Builder
		depth int
	)

	flush := func() {
		arg := strings.TrimSpace(cur.String())
		arg = strings.TrimSuffix(strings.TrimPrefix(arg, "["), "]")
		args = append(args, strings.TrimSpace(arg))
		cur.Reset()
	}

	for _, r := range s {
		switch {
		case r == '[':
			depth++
		case r == ']':
			depth--
		case r == ',' && depth == 0:
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()

	return args
}

func stripDnl(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "dnl "); idx == 0 {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

// ParseOpenSSLVersion reads opensslv.h. The 0xMNNFFPPS number of 1.x headers
// is decoded; 3.x headers provide the parts separately.
func ParseOpenSSLVersion(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	content := string(data)

	parts := map[string]string{}
	for _, m := range opensslMajor.FindAllStringSubmatch(content, -1) {
		parts[m[1]] = m[2]
	}
	if parts["MAJOR"] != "" && parts["MINOR"] != "" {
		patch := parts["PATCH"]
		if patch == "" {
			patch = "0"
		}
		return fmt.Sprintf("%s.%s.%s", parts["MAJOR"], parts["MINOR"], patch), nil
	}

	if m := opensslNumber.FindStringSubmatch(content); len(m) > 1 {
		if v, ok := decodeOpenSSLNumber(m[1]); ok {
			return v, nil
		}
	}

	if m := opensslText.FindStringSubmatch(content); len(m) > 1 {
		return m[1], nil
	}

	return "", fmt.Errorf("no OpenSSL version found")
}

func decodeOpenSSLNumber(hex string) (string, bool) {
	n, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(hex), "0x"), 16, 64)
	if err != nil {
		return "", false
	}

	major := (n >> 28) & 0xf
	minor := (n >> 20) & 0xff
	fix := (n >> 12) & 0xff
	patch := (n >> 4) & 0xff

	// the 3.x series encodes 0xMNN00PP0, the letter patch scheme stops at 1.1.1
	if major >= 3 {
		return fmt.Sprintf("%d.%d.%d", major, minor, patch), true
	}

	v := fmt.Sprintf("%d.%d.%d", major, minor, fix)
	if patch > 0 && patch <= 26 {
		v += string(rune('a' + patch - 1))
	}
	return v, true
}

// ParseSwiftPackage returns the package name declared by a Package.swift manifest.
func ParseSwiftPackage(r io.Reader) (*Package, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m := swiftName.FindSubmatch(data)
	if len(m) < 2 {
		return nil, fmt.Errorf("no package name found")
	}
	return &Package{Name: string(m[1])}, nil
}
