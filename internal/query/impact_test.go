package query

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

func TestAnalyzeImpactUnknownElement(t *testing.T) {
	t.Parallel()
	e := NewEngine(semantic.NewMap("."))
	assert.Nil(t, e.AnalyzeImpact("class:a.ts:Missing"))
}

func TestAnalyzeImpactNoDependents(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")
	leaf := addEl(m, semantic.KindFunction, "a.ts", "leaf")

	imp := NewEngine(m).AnalyzeImpact(leaf.ID)
	require.NotNil(t, imp)
	assert.Equal(t, leaf.ID, imp.Element.ID)
	assert.Empty(t, imp.DirectlyAffected)
	assert.Empty(t, imp.TransitivelyAffected)
	assert.Empty(t, imp.AffectedTests)
	assert.Equal(t, RiskLow, imp.RiskLevel)
	assert.Empty(t, imp.Recommendations)
}

func TestAnalyzeImpactChain(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")
	a := addEl(m, semantic.KindClass, "a.ts", "A")
	b := addEl(m, semantic.KindClass, "b.ts", "B")
	c := addEl(m, semantic.KindClass, "c.ts", "C")
	addRel(m, b.ID, semantic.RelImports, a.ID, 1.0)
	addRel(m, c.ID, semantic.RelImports, b.ID, 1.0)

	imp := NewEngine(m).AnalyzeImpact(a.ID)
	require.NotNil(t, imp)
	assert.Equal(t, []string{b.ID}, ids(imp.DirectlyAffected))
	assert.Equal(t, []string{c.ID}, ids(imp.TransitivelyAffected))
}

func TestAnalyzeImpactTestsRoutedSeparately(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")
	a := addEl(m, semantic.KindClass, "a.ts", "A")
	tst := addEl(m, semantic.KindTest, "a.spec.ts", "checkA")
	addRel(m, tst.ID, semantic.RelCalls, a.ID, 1.0)

	imp := NewEngine(m).AnalyzeImpact(a.ID)
	require.NotNil(t, imp)
	assert.Empty(t, imp.DirectlyAffected)
	assert.Equal(t, []string{tst.ID}, ids(imp.AffectedTests))
	require.NotEmpty(t, imp.Recommendations)
	assert.Contains(t, imp.Recommendations[0], "1 affected test")
}

func TestAnalyzeImpactIgnoresStructuralEdges(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")
	file := addEl(m, semantic.KindFile, "a.ts", "a.ts")
	cls := addEl(m, semantic.KindClass, "a.ts", "A")
	addRel(m, file.ID, semantic.RelContains, cls.ID, 1.0)

	imp := NewEngine(m).AnalyzeImpact(cls.ID)
	require.NotNil(t, imp)
	assert.Empty(t, imp.DirectlyAffected)
}

func TestAnalyzeImpactCycleTerminates(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")
	a := addEl(m, semantic.KindClass, "a.ts", "A")
	b := addEl(m, semantic.KindClass, "b.ts", "B")
	addRel(m, a.ID, semantic.RelImports, b.ID, 1.0)
	addRel(m, b.ID, semantic.RelImports, a.ID, 1.0)

	imp := NewEngine(m).AnalyzeImpact(a.ID)
	require.NotNil(t, imp)
	assert.Equal(t, []string{b.ID}, ids(imp.DirectlyAffected))
	assert.Empty(t, imp.TransitivelyAffected)
}

func TestAnalyzeImpactRiskLevels(t *testing.T) {
	t.Parallel()

	buildFanIn := func(n int) (*Engine, string) {
		m := semantic.NewMap(".")
		hub := addEl(m, semantic.KindClass, "hub.ts", "Hub")
		for i := 0; i < n; i++ {
			dep := addEl(m, semantic.KindClass, fmt.Sprintf("dep%02d.ts", i), fmt.Sprintf("Dep%02d", i))
			addRel(m, dep.ID, semantic.RelUses, hub.ID, 0.5)
		}
		return NewEngine(m), hub.ID
	}

	tests := []struct {
		dependents int
		want       string
	}{
		{0, RiskLow},
		{3, RiskLow},
		{4, RiskMedium},
		{11, RiskHigh},
		{21, RiskCritical},
	}
	for _, tt := range tests {
		e, hubID := buildFanIn(tt.dependents)
		imp := e.AnalyzeImpact(hubID)
		require.NotNil(t, imp)
		assert.Equal(t, tt.want, imp.RiskLevel, "%d dependents", tt.dependents)
	}
}

func TestAnalyzeImpactRecommendations(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")
	hub := addEl(m, semantic.KindClass, "hub.ts", "Hub")
	for i := 0; i < 25; i++ {
		dep := addEl(m, semantic.KindClass, fmt.Sprintf("dep%02d.ts", i), fmt.Sprintf("Dep%02d", i))
		addRel(m, dep.ID, semantic.RelUses, hub.ID, 0.5)
	}
	tst := addEl(m, semantic.KindTest, "hub.spec.ts", "checkHub")
	addRel(m, tst.ID, semantic.RelCalls, hub.ID, 1.0)

	imp := NewEngine(m).AnalyzeImpact(hub.ID)
	require.NotNil(t, imp)
	assert.Equal(t, RiskCritical, imp.RiskLevel)

	joined := strings.Join(imp.Recommendations, "\n")
	assert.Contains(t, joined, "affected test")
	assert.Contains(t, joined, "breaking change")
	assert.Contains(t, joined, "feature flags")
}
