// Package packages parses the manifests and binaries of the ecosystems the
// analyzers understand. Parsers take readers and return plain structs; they
// never touch evidence or the database.
package packages

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// Package is the common shape of a declared package.
type Package struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Vendor      string `json:"vendor,omitempty"`
	Description string `json:"description,omitempty"`
	License     string `json:"license,omitempty"`
	Homepage    string `json:"homepage,omitempty"`
}

// assignment matches `<prefix>.<key> = <value>` lines used by gemspec and podspec files.
var assignment = regexp.MustCompile(`^\s*\w+\.(\w+)\s*=\s*(.+?)\s*$`)

func unquote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".freeze")
	s = strings.Trim(s, `[]`)
	s = strings.TrimSpace(s)

	if i := strings.IndexAny(s, `,`); i > 0 && (s[0] == '"' || s[0] == '\'') {
		s = s[:i]
	}
	return strings.Trim(s, `"' `)
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
