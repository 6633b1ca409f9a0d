package query

import (
	"sort"
	"strings"
	"time"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

// Query describes a search against the map. All fields are optional;
// filters narrow the working set in declaration order.
type Query struct {
	Text              string                      `json:"text,omitempty"`
	Kinds             []semantic.ElementKind      `json:"kinds,omitempty"`
	RelationshipTypes []semantic.RelationshipType `json:"relationshipTypes,omitempty"` // reserved, accepted but not filtered on
	ClusterIDs        []string                    `json:"clusterIds,omitempty"`
	ConceptIDs        []string                    `json:"conceptIds,omitempty"`
	PathContains      []string                    `json:"pathContains,omitempty"`
	MaxResults        int                         `json:"maxResults,omitempty"`
	IncludeRelated    bool                        `json:"includeRelated,omitempty"`
	RelatedDepth      int                         `json:"relatedDepth,omitempty"`
}

// Result carries a query's matched elements, the edges traversed by
// related expansion, matched clusters and concepts, the per-element
// relevance scores from text matching, and wall-clock duration.
type Result struct {
	Elements      []*semantic.CodeElement      `json:"elements"`
	Relationships []*semantic.CodeRelationship `json:"relationships,omitempty"`
	Clusters      []*semantic.SemanticCluster  `json:"clusters,omitempty"`
	Concepts      []*semantic.CodeConcept      `json:"concepts,omitempty"`
	Scores        map[string]float64           `json:"scores,omitempty"`
	Duration      time.Duration                `json:"duration"`
}

// Engine answers read-only queries against one built map. Safe for
// concurrent use as long as no rebuild of the same map is in flight.
type Engine struct {
	m *semantic.SemanticMap
}

func NewEngine(m *semantic.SemanticMap) *Engine {
	return &Engine{m: m}
}

// Query filters, scores, and optionally expands the element set. The
// filters apply sequentially: kind, path, text, cluster, concept, then
// related expansion, then truncation. Each later filter works off the
// set the previous one produced, and expansion is not subject to the
// filters before it.
func (e *Engine) Query(q Query) *Result {
	start := time.Now()

	res := &Result{Scores: make(map[string]float64)}
	working := e.m.Elements()

	if len(q.Kinds) > 0 {
		kinds := make(map[semantic.ElementKind]bool, len(q.Kinds))
		for _, k := range q.Kinds {
			kinds[k] = true
		}
		working = filterElements(working, func(el *semantic.CodeElement) bool {
			return kinds[el.Kind]
		})
	}

	if len(q.PathContains) > 0 {
		working = filterElements(working, func(el *semantic.CodeElement) bool {
			for _, sub := range q.PathContains {
				if sub != "" && strings.Contains(el.FilePath, sub) {
					return true
				}
			}
			return false
		})
	}

	if terms := strings.Fields(strings.ToLower(q.Text)); len(terms) > 0 {
		scored := working[:0:0]
		for _, el := range working {
			if score := relevance(el, terms); score > 0 {
				res.Scores[el.ID] = score
				scored = append(scored, el)
			}
		}
		working = scored
		sort.SliceStable(working, func(i, j int) bool {
			return res.Scores[working[i].ID] > res.Scores[working[j].ID]
		})
	}

	if len(q.ClusterIDs) > 0 {
		member := make(map[string]bool)
		for _, id := range q.ClusterIDs {
			c := e.m.GetCluster(id)
			if c == nil {
				continue
			}
			res.Clusters = append(res.Clusters, c)
			for _, elID := range c.Elements {
				member[elID] = true
			}
		}
		working = filterElements(working, func(el *semantic.CodeElement) bool {
			return member[el.ID]
		})
	}

	if len(q.ConceptIDs) > 0 {
		member := make(map[string]bool)
		for _, id := range q.ConceptIDs {
			c := e.m.GetConcept(id)
			if c == nil {
				continue
			}
			res.Concepts = append(res.Concepts, c)
			for _, elID := range c.Elements {
				member[elID] = true
			}
		}
		working = filterElements(working, func(el *semantic.CodeElement) bool {
			return member[el.ID]
		})
	}

	if q.IncludeRelated && len(working) > 0 {
		working = e.expandRelated(working, q.RelatedDepth, res)
	}

	if q.MaxResults > 0 && len(working) > q.MaxResults {
		working = working[:q.MaxResults]
	}

	res.Elements = working
	res.Duration = time.Since(start)
	return res
}

// expandRelated appends elements reachable within depth hops of the
// working set, following edges in either direction, and records every
// traversed edge on the result.
func (e *Engine) expandRelated(working []*semantic.CodeElement, depth int, res *Result) []*semantic.CodeElement {
	if depth <= 0 {
		depth = 1
	}

	present := make(map[string]bool, len(working))
	seeds := make([]string, len(working))
	for i, el := range working {
		present[el.ID] = true
		seeds[i] = el.ID
	}

	breadthFirst(e.m, seeds, DirBoth, depth, nil,
		func(rel *semantic.CodeRelationship) {
			res.Relationships = append(res.Relationships, rel)
		},
		func(id string, _ int) {
			if present[id] {
				return
			}
			present[id] = true
			if el := e.m.GetElement(id); el != nil {
				working = append(working, el)
			}
		})

	return working
}

// relevance scores one element against the query terms. Per term the
// signals are mutually exclusive: exact name match 1.0, name substring
// 0.5, substring anywhere in the combined text 0.2. Scores sum over
// terms.
func relevance(el *semantic.CodeElement, terms []string) float64 {
	name := strings.ToLower(el.Name)
	combined := name + " " + strings.ToLower(el.QualifiedName) + " " + strings.ToLower(el.Doc)

	score := 0.0
	for _, term := range terms {
		switch {
		case name == term:
			score += 1.0
		case strings.Contains(name, term):
			score += 0.5
		case strings.Contains(combined, term):
			score += 0.2
		}
	}
	return score
}

func filterElements(els []*semantic.CodeElement, keep func(*semantic.CodeElement) bool) []*semantic.CodeElement {
	out := els[:0:0]
	for _, el := range els {
		if keep(el) {
			out = append(out, el)
		}
	}
	return out
}
