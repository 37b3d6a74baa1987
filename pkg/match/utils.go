// Package match flags package names that look like typos of popular
// packages, or that are known malicious look-alikes.
package match

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type Suspicion struct {
	Types      Operation
	OriginPack string
	Ratio      float64
}

type Operation int8

const (
	// Unknown item represents package is not detected.
	Unknown Operation = 0
	// Confusion item represents package is suspect a malicious package.
	Confusion Operation = 1
	// Malware item represents package is discovered as malicious package.
	Malware Operation = 2
)

func (o Operation) String() string {
	switch o {
	case Confusion:
		return "confusion"
	case Malware:
		return "malware"
	}
	return "unknown"
}

const (
	minRatio = 0.70
	maxRatio = 0.99
)

// Ratio is the share of characters two names have in common, between 0 and 1.
func Ratio(pack1, pack2 string) float64 {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(pack1, pack2, false)
	matches := 0
	for _, diff := range diffs {
		if diff.Type == diffmatchpatch.DiffEqual {
			matches += len(diff.Text)
		}
	}

	sums := len(pack1) + len(pack2)
	if sums > 0 {
		return 2.0 * float64(matches) / float64(sums)
	}

	return 1.0
}

type list struct {
	popular   []string
	malicious map[string]string
}

func (l *list) match(pack string) Suspicion {
	t := Suspicion{
		Types: Unknown,
	}
	pack = strings.ToLower(strings.TrimSpace(pack))
	if pack == "" {
		return t
	}

	if ori, ok := l.malicious[pack]; ok {
		t.Types = Malware
		t.OriginPack = ori
		t.Ratio = 1
		return t
	}

	// filter the origin packages
	for _, p := range l.popular {
		if pack == strings.ToLower(p) {
			return t
		}
	}

	if p, ratio := confusionCheck(pack, l.popular); p != "" {
		t.Types = Confusion
		t.OriginPack = p
		t.Ratio = ratio
	}

	return t
}

// confusionCheck returns the closest popular name within the suspicious range.
func confusionCheck(pack string, datas []string) (string, float64) {
	var (
		best      string
		bestRatio float64
	)

	for _, d := range datas {
		d = strings.ToLower(d)
		ratio := Ratio(pack, d)
		if ratio < maxRatio && ratio > minRatio && ratio > bestRatio {
			best, bestRatio = d, ratio
		}
	}
	return best, bestRatio
}

// Match checks a name against the lists of an ecosystem ("npm" or "pypi").
func Match(ecosystem, pack string) Suspicion {
	switch strings.ToLower(ecosystem) {
	case "npm", "node", "nodejs":
		return NpmMatch(pack)
	case "pypi", "python", "pip":
		return PyMatch(pack)
	}
	return Suspicion{Types: Unknown}
}

func lower(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
