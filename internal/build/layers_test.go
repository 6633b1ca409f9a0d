package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

func layerByName(layers []*semantic.ArchitecturalLayer, name string) *semantic.ArchitecturalLayer {
	for _, l := range layers {
		if l.Name == name {
			return l
		}
	}
	return nil
}

func TestBuildLayersPathRules(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")

	m.AddElement(newTestElement(semantic.KindClass, "src/ui/Button.tsx", "Button", nil))
	m.AddElement(newTestElement(semantic.KindFunction, "src/api/users.ts", "listUsers", nil))
	m.AddElement(newTestElement(semantic.KindClass, "src/services/billing.ts", "Billing", nil))
	m.AddElement(newTestElement(semantic.KindClass, "src/models/user.ts", "User", nil))
	m.AddElement(newTestElement(semantic.KindFunction, "src/utils/fmt.ts", "pretty", nil))
	m.AddElement(newTestElement(semantic.KindConstant, "config/defaults.ts", "DEFAULTS", nil))
	m.AddElement(newTestElement(semantic.KindTest, "tests/user.test.ts", "checkUser", nil))
	// No rule matches this path.
	m.AddElement(newTestElement(semantic.KindClass, "src/misc/thing.ts", "Thing", nil))

	count := buildLayers(m)
	assert.Equal(t, 7, count)

	layers := m.Layers()
	tests := []struct {
		name  string
		level int
		elID  string
	}{
		{"Presentation", 1, semantic.ElementID(semantic.KindClass, "src/ui/Button.tsx", "Button")},
		{"API", 2, semantic.ElementID(semantic.KindFunction, "src/api/users.ts", "listUsers")},
		{"Business Logic", 3, semantic.ElementID(semantic.KindClass, "src/services/billing.ts", "Billing")},
		{"Data", 4, semantic.ElementID(semantic.KindClass, "src/models/user.ts", "User")},
		{"Utilities", 5, semantic.ElementID(semantic.KindFunction, "src/utils/fmt.ts", "pretty")},
		{"Configuration", 6, semantic.ElementID(semantic.KindConstant, "config/defaults.ts", "DEFAULTS")},
		{"Testing", 0, semantic.ElementID(semantic.KindTest, "tests/user.test.ts", "checkUser")},
	}
	for _, tt := range tests {
		layer := layerByName(layers, tt.name)
		require.NotNil(t, layer, tt.name)
		assert.Equal(t, tt.level, layer.Level, tt.name)
		assert.Contains(t, layer.Elements, tt.elID, tt.name)
	}
}

func TestBuildLayersFirstRuleWins(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")

	// Path matches both the API and the Testing rule; API comes first.
	m.AddElement(newTestElement(semantic.KindFunction, "src/api/tests/helpers.ts", "mock", nil))

	buildLayers(m)

	layers := m.Layers()
	require.Len(t, layers, 1)
	assert.Equal(t, "API", layers[0].Name)
}

func TestBuildLayersEmptyOmitted(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")

	m.AddElement(newTestElement(semantic.KindClass, "src/models/user.ts", "User", nil))

	count := buildLayers(m)
	assert.Equal(t, 1, count)
	require.Len(t, m.Layers(), 1)
	assert.Equal(t, "layer:data", m.Layers()[0].ID)
}

func TestBuildLayersDependencies(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")

	apiID := semantic.ElementID(semantic.KindImport, "src/api/users.ts", "user")
	modelID := semantic.ElementID(semantic.KindClass, "src/models/user.ts", "User")
	m.AddElement(newTestElement(semantic.KindImport, "src/api/users.ts", "user", nil))
	m.AddElement(newTestElement(semantic.KindClass, "src/models/user.ts", "User", nil))
	m.AddRelationship(&semantic.CodeRelationship{
		ID:       semantic.RelationshipID(apiID, semantic.RelImports, modelID),
		Type:     semantic.RelImports,
		Source:   apiID,
		Target:   modelID,
		Strength: 1.0,
	})
	// Non-import edges do not create layer dependencies.
	m.AddRelationship(&semantic.CodeRelationship{
		ID:       semantic.RelationshipID(modelID, semantic.RelUses, apiID),
		Type:     semantic.RelUses,
		Source:   modelID,
		Target:   apiID,
		Strength: 0.5,
	})

	buildLayers(m)

	api := layerByName(m.Layers(), "API")
	require.NotNil(t, api)
	assert.Equal(t, []string{"layer:data"}, api.DependsOn)

	data := layerByName(m.Layers(), "Data")
	require.NotNil(t, data)
	assert.Empty(t, data.DependsOn)
}
