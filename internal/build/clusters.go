package build

import (
	"path"
	"sort"
	"strings"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

// maxClusterKeywords caps the representative keywords kept per cluster.
const maxClusterKeywords = 10

// categoryRules maps directory-path keywords to cluster categories.
// Checked in order; first match wins.
var categoryRules = []struct {
	keywords []string
	category semantic.ClusterCategory
}{
	{[]string{"test", "spec"}, semantic.CategoryTesting},
	{[]string{"config", "settings"}, semantic.CategoryConfiguration},
	{[]string{"util", "helper", "lib"}, semantic.CategoryUtility},
	{[]string{"model", "type", "entity"}, semantic.CategoryDataModel},
	{[]string{"api", "route", "endpoint"}, semantic.CategoryAPI},
	{[]string{"ui", "component", "view"}, semantic.CategoryUI},
	{[]string{"service", "business"}, semantic.CategoryBusinessLogic},
}

// buildClusters groups non-import, non-file elements by source
// directory, keeps groups of at least cfg.MinClusterSize, then runs a
// single keyword-similarity merge pass. Returns the cluster count.
func buildClusters(m *semantic.SemanticMap, cfg Config) int {
	groups := make(map[string][]*semantic.CodeElement)
	for _, el := range m.Elements() {
		if el.Kind == semantic.KindFile || el.Kind == semantic.KindImport {
			continue
		}
		dir := path.Dir(el.FilePath)
		groups[dir] = append(groups[dir], el)
	}

	dirs := make([]string, 0, len(groups))
	for dir := range groups {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var clusters []*semantic.SemanticCluster
	for _, dir := range dirs {
		members := groups[dir]
		if len(members) < cfg.MinClusterSize {
			continue
		}
		clusters = append(clusters, newCluster(dir, members))
	}

	clusters = mergeSimilarClusters(clusters, cfg.SimilarityThreshold)

	for _, c := range clusters {
		m.AddCluster(c)
	}
	return len(clusters)
}

func newCluster(dir string, members []*semantic.CodeElement) *semantic.SemanticCluster {
	ids := make([]string, len(members))
	for i, el := range members {
		ids[i] = el.ID
	}

	keywords, total, unique := clusterKeywords(members)

	coherence := 1.0
	if unique > 0 && len(members) > 0 {
		coherence = float64(total) / float64(unique) / float64(len(members))
		if coherence > 1 {
			coherence = 1
		}
	}

	name := path.Base(dir)
	if dir == "." || name == "." {
		name = "root"
	}

	return &semantic.SemanticCluster{
		ID:        "cluster:" + dir,
		Name:      name,
		Category:  inferCategory(dir),
		Elements:  ids,
		Coherence: coherence,
		Keywords:  keywords,
	}
}

// inferCategory classifies a cluster from keyword matches in its
// directory path, checked in rule order.
func inferCategory(dir string) semantic.ClusterCategory {
	lower := strings.ToLower(dir)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return semantic.CategoryModule
}

// clusterKeywords returns the top most-frequent name fragments across a
// group's elements, plus the total and unique fragment counts used for
// the coherence score.
func clusterKeywords(members []*semantic.CodeElement) ([]string, int, int) {
	freq := make(map[string]int)
	total := 0
	for _, el := range members {
		for _, frag := range SplitNameFragments(el.Name) {
			freq[frag]++
			total++
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

	keywords := fragments
	if len(keywords) > maxClusterKeywords {
		keywords = keywords[:maxClusterKeywords]
	}
	return keywords, total, len(freq)
}

// mergeSimilarClusters performs one O(n²) pass over the cluster list as
// constructed: when two clusters' keyword sets exceed the Jaccard
// similarity threshold, the second is absorbed into the first. Element
// lists are unioned without de-duplication; keywords are deduplicated.
// The pass is not iterated to a fixpoint.
func mergeSimilarClusters(clusters []*semantic.SemanticCluster, threshold float64) []*semantic.SemanticCluster {
	removed := make([]bool, len(clusters))
	for i := 0; i < len(clusters); i++ {
		if removed[i] {
			continue
		}
		for j := i + 1; j < len(clusters); j++ {
			if removed[j] {
				continue
			}
			if keywordJaccard(clusters[i].Keywords, clusters[j].Keywords) > threshold {
				absorbCluster(clusters[i], clusters[j])
				removed[j] = true
			}
		}
	}

	kept := clusters[:0]
	for i, c := range clusters {
		if !removed[i] {
			kept = append(kept, c)
		}
	}
	return kept
}

// keywordJaccard computes |intersection| / |union| of two keyword sets.
func keywordJaccard(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, kw := range a {
		setA[kw] = true
	}
	setB := make(map[string]bool, len(b))
	for _, kw := range b {
		setB[kw] = true
	}

	intersection := 0
	for kw := range setA {
		if setB[kw] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func absorbCluster(dst, src *semantic.SemanticCluster) {
	dst.Elements = append(dst.Elements, src.Elements...)

	seen := make(map[string]bool, len(dst.Keywords))
	for _, kw := range dst.Keywords {
		seen[kw] = true
	}
	for _, kw := range src.Keywords {
		if !seen[kw] {
			seen[kw] = true
			dst.Keywords = append(dst.Keywords, kw)
		}
	}
}
