package build

import (
	"sort"
	"strings"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

const (
	// minFragmentLength excludes short fragments from concept mining.
	minFragmentLength = 3

	// maxConceptCandidates caps the fragments considered for concepts.
	maxConceptCandidates = 50

	// minConceptFrequency is the global frequency a fragment needs to
	// become a concept.
	minConceptFrequency = 3

	// importanceScale normalizes frequency into [0,1]:
	// min(1, frequency/importanceScale).
	importanceScale = 20.0
)

// buildConcepts mines frequent name fragments across all elements into
// concepts. Returns the concept count.
func buildConcepts(m *semantic.SemanticMap) int {
	elements := m.Elements()

	freq := make(map[string]int)
	for _, el := range elements {
		for _, frag := range SplitNameFragments(el.Name) {
			if len(frag) < minFragmentLength {
				continue
			}
			freq[frag]++
		}
	}

	fragments := make([]string, 0, len(freq))
	for frag := range freq {
		fragments = append(fragments, frag)
	}
	sort.Slice(fragments, func(i, j int) bool {
		if freq[fragments[i]] != freq[fragments[j]] {
			return freq[fragments[i]] > freq[fragments[j]]
		}
		return fragments[i] < fragments[j]
	})
	if len(fragments) > maxConceptCandidates {
		fragments = fragments[:maxConceptCandidates]
	}

	count := 0
	for _, frag := range fragments {
		if freq[frag] < minConceptFrequency {
			continue
		}

		var related []string
		for _, el := range elements {
			if strings.Contains(strings.ToLower(el.Name), frag) {
				related = append(related, el.ID)
			}
		}

		importance := float64(freq[frag]) / importanceScale
		if importance > 1 {
			importance = 1
		}

		m.AddConcept(&semantic.CodeConcept{
			ID:         "concept:" + frag,
			Name:       frag,
			Keywords:   []string{frag},
			Elements:   related,
			Frequency:  freq[frag],
			Importance: importance,
		})
		count++
	}
	return count
}
