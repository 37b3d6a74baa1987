package engine

import (
	"strings"

	"github.com/kvesta/depcheck/pkg/dependency"
)

// bundle collapses files with identical content into one dependency. The
// copy with the shortest path is kept and lists the others as related
// dependencies. Vulnerabilities are sorted on the way.
func bundle(deps []*dependency.Dependency) []*dependency.Dependency {
	kept := make([]*dependency.Dependency, 0, len(deps))
	bySHA1 := map[string]*dependency.Dependency{}

	for _, d := range deps {
		if d.Virtual || d.SHA1 == "" {
			kept = append(kept, d)
			continue
		}

		main, ok := bySHA1[d.SHA1]
		if !ok {
			bySHA1[d.SHA1] = d
			kept = append(kept, d)
			continue
		}

		if shorter(d, main) {
			merge(d, main)
			bySHA1[d.SHA1] = d
			for i, k := range kept {
				if k == main {
					kept[i] = d
				}
			}
			continue
		}
		merge(main, d)
	}

	for _, d := range kept {
		d.SortVulnerabilities()
	}
	return kept
}

func shorter(a, b *dependency.Dependency) bool {
	na, nb := strings.Count(a.FilePath, "/"), strings.Count(b.FilePath, "/")
	if na != nb {
		return na < nb
	}
	return len(a.FilePath) < len(b.FilePath)
}

// merge folds related into main.
func merge(main, related *dependency.Dependency) {
	for _, id := range related.Identifiers {
		main.AddIdentifier(id)
	}
	for _, v := range related.Vulnerabilities {
		main.AddVulnerability(v)
	}

	main.RelatedDependencies = append(main.RelatedDependencies, related.RelatedDependencies...)
	related.RelatedDependencies = nil
	main.RelatedDependencies = append(main.RelatedDependencies, related)
}
