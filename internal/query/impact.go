package query

import (
	"fmt"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

// Risk levels for an impact analysis, ordered by severity.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Impact is the result of analyzing a change to one element: who
// depends on it directly, who is reachable transitively, which tests
// cover the blast radius, and how risky the change looks.
type Impact struct {
	Element              *semantic.CodeElement   `json:"element"`
	DirectlyAffected     []*semantic.CodeElement `json:"directlyAffected"`
	TransitivelyAffected []*semantic.CodeElement `json:"transitivelyAffected"`
	AffectedTests        []*semantic.CodeElement `json:"affectedTests"`
	RiskLevel            string                  `json:"riskLevel"`
	Recommendations      []string                `json:"recommendations"`
}

// dependencyTypes are the edge types that express "source depends on
// target". Structural edges like contains and defines are excluded so
// a file does not count as depending on its own members.
var dependencyTypes = map[semantic.RelationshipType]bool{
	semantic.RelImports:      true,
	semantic.RelCalls:        true,
	semantic.RelUses:         true,
	semantic.RelExtends:      true,
	semantic.RelImplements:   true,
	semantic.RelDependsOn:    true,
	semantic.RelReferences:   true,
	semantic.RelInstantiates: true,
}

// AnalyzeImpact walks dependency edges in reverse from the changed
// element: anything one hop away is directly affected, anything further
// is transitively affected, and test elements at any distance go to the
// affected-tests list instead. Returns nil for an unknown element id.
func (e *Engine) AnalyzeImpact(elementID string) *Impact {
	changed := e.m.GetElement(elementID)
	if changed == nil {
		return nil
	}

	imp := &Impact{Element: changed}

	breadthFirst(e.m, []string{elementID}, DirIn, -1, dependencyTypes, nil,
		func(id string, depth int) {
			el := e.m.GetElement(id)
			if el == nil {
				return
			}
			switch {
			case el.Kind == semantic.KindTest:
				imp.AffectedTests = append(imp.AffectedTests, el)
			case depth == 1:
				imp.DirectlyAffected = append(imp.DirectlyAffected, el)
			default:
				imp.TransitivelyAffected = append(imp.TransitivelyAffected, el)
			}
		})

	affected := len(imp.DirectlyAffected) + len(imp.TransitivelyAffected)
	switch {
	case affected > 20:
		imp.RiskLevel = RiskCritical
	case affected > 10:
		imp.RiskLevel = RiskHigh
	case affected > 3:
		imp.RiskLevel = RiskMedium
	default:
		imp.RiskLevel = RiskLow
	}

	if n := len(imp.AffectedTests); n > 0 {
		imp.Recommendations = append(imp.Recommendations,
			fmt.Sprintf("Run the %d affected test(s) before merging this change", n))
	}
	if len(imp.DirectlyAffected) > 5 {
		imp.Recommendations = append(imp.Recommendations,
			"Document this as a breaking change; many elements depend on it directly")
	}
	if imp.RiskLevel == RiskCritical {
		imp.Recommendations = append(imp.Recommendations,
			"Consider an incremental rollout behind feature flags")
	}

	return imp
}
