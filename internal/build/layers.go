package build

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

// layerRules is the fixed, ordered table of path-pattern layer rules.
// The first matching rule claims an element. Lower levels are more
// foundational; Testing sits at level 0.
var layerRules = []struct {
	pattern *regexp.Regexp
	name    string
	level   int
}{
	{regexp.MustCompile(`/ui/|/components/|/views/|/pages/`), "Presentation", 1},
	{regexp.MustCompile(`/api/|/routes/|/controllers/`), "API", 2},
	{regexp.MustCompile(`/services/|/business/`), "Business Logic", 3},
	{regexp.MustCompile(`/data/|/models/|/entities/`), "Data", 4},
	{regexp.MustCompile(`/utils/|/helpers/|/lib/`), "Utilities", 5},
	{regexp.MustCompile(`/config/|/settings/`), "Configuration", 6},
	{regexp.MustCompile(`/tests?/|/spec/`), "Testing", 0},
}

// buildLayers classifies elements into architectural layers by path
// rules and derives inter-layer dependencies from imports edges. A
// layer is created only when at least one element matches its rule.
func buildLayers(m *semantic.SemanticMap) int {
	byRule := make(map[int][]string)
	elementLayer := make(map[string]string)

	for _, el := range m.Elements() {
		// Normalize so patterns anchored on slashes also match
		// top-level directories.
		p := "/" + strings.ToLower(el.FilePath)
		for i, rule := range layerRules {
			if rule.pattern.MatchString(p) {
				byRule[i] = append(byRule[i], el.ID)
				elementLayer[el.ID] = layerID(rule.name)
				break
			}
		}
	}

	var layers []*semantic.ArchitecturalLayer
	for i, rule := range layerRules {
		members := byRule[i]
		if len(members) == 0 {
			continue
		}
		layers = append(layers, &semantic.ArchitecturalLayer{
			ID:       layerID(rule.name),
			Name:     rule.name,
			Level:    rule.level,
			Elements: members,
		})
	}

	for _, layer := range layers {
		deps := make(map[string]bool)
		for _, elID := range layer.Elements {
			for _, rel := range m.Outgoing(elID) {
				if rel.Type != semantic.RelImports {
					continue
				}
				targetLayer, ok := elementLayer[rel.Target]
				if ok && targetLayer != layer.ID {
					deps[targetLayer] = true
				}
			}
		}
		for dep := range deps {
			layer.DependsOn = append(layer.DependsOn, dep)
		}
		sort.Strings(layer.DependsOn)
	}

	m.SetLayers(layers)
	return len(layers)
}

func layerID(name string) string {
	return "layer:" + strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}
