package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

// defaultSuggestionLimit bounds navigation suggestions when the caller
// passes no limit.
const defaultSuggestionLimit = 5

// Suggestion is one "go to related" candidate: the element on the other
// end of a relationship, with a readable reason and the edge's
// strength.
type Suggestion struct {
	Element      *semantic.CodeElement      `json:"element"`
	Relationship *semantic.CodeRelationship `json:"relationship"`
	Reason       string                     `json:"reason"`
	Strength     float64                    `json:"strength"`
}

// NavigationSuggestions ranks every relationship touching the element,
// strongest edges first, and returns up to limit suggestions. Returns
// nil for an unknown element id.
func (e *Engine) NavigationSuggestions(elementID string, limit int) []Suggestion {
	from := e.m.GetElement(elementID)
	if from == nil {
		return nil
	}
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}

	var suggestions []Suggestion
	for _, rel := range e.m.Touching(elementID) {
		otherID := rel.Target
		if otherID == elementID {
			otherID = rel.Source
		}
		other := e.m.GetElement(otherID)
		if other == nil {
			continue
		}

		var reason string
		if rel.Source == elementID {
			reason = fmt.Sprintf("%s %s %s", from.Name, verb(rel.Type), other.Name)
		} else {
			reason = fmt.Sprintf("%s %s %s", other.Name, verb(rel.Type), from.Name)
		}

		suggestions = append(suggestions, Suggestion{
			Element:      other,
			Relationship: rel,
			Reason:       reason,
			Strength:     rel.Strength,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Strength > suggestions[j].Strength
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

// verb renders a relationship type as the verb phrase between source
// and target.
func verb(t semantic.RelationshipType) string {
	switch t {
	case semantic.RelContains:
		return "contains"
	case semantic.RelDependsOn:
		return "depends on"
	case semantic.RelSimilarTo:
		return "is similar to"
	default:
		return strings.ReplaceAll(string(t), "_", " ")
	}
}
