package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

func newTestElement(kind semantic.ElementKind, filePath, name string, md map[string]any) *semantic.CodeElement {
	return &semantic.CodeElement{
		ID:            semantic.ElementID(kind, filePath, name),
		Kind:          kind,
		Name:          name,
		QualifiedName: filePath + ":" + name,
		FilePath:      filePath,
		Metadata:      md,
	}
}

func relTypes(rels []*semantic.CodeRelationship) []semantic.RelationshipType {
	types := make([]semantic.RelationshipType, len(rels))
	for i, rel := range rels {
		types[i] = rel.Type
	}
	return types
}

func TestContainment(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")

	m.AddElement(newTestElement(semantic.KindFile, "src/user.ts", "user.ts", nil))
	m.AddElement(newTestElement(semantic.KindClass, "src/user.ts", "User", nil))
	m.AddElement(newTestElement(semantic.KindFunction, "src/user.ts", "load", nil))
	// No file element for this path, so no contains edge.
	m.AddElement(newTestElement(semantic.KindClass, "src/orphan.ts", "Orphan", nil))

	buildRelationships(m, Config{})

	fileID := semantic.ElementID(semantic.KindFile, "src/user.ts", "")
	for _, name := range []string{"User", "load"} {
		elID := semantic.ElementID(semantic.KindClass, "src/user.ts", name)
		if name == "load" {
			elID = semantic.ElementID(semantic.KindFunction, "src/user.ts", name)
		}
		incoming := m.Incoming(elID)
		require.Len(t, incoming, 1, name)
		assert.Equal(t, semantic.RelContains, incoming[0].Type)
		assert.Equal(t, fileID, incoming[0].Source)
		assert.InDelta(t, 1.0, incoming[0].Strength, 1e-9)
	}

	orphanID := semantic.ElementID(semantic.KindClass, "src/orphan.ts", "Orphan")
	assert.Empty(t, m.Incoming(orphanID))
}

func TestImportResolution(t *testing.T) {
	t.Parallel()

	t.Run("source resolves to a file, items to named elements", func(t *testing.T) {
		t.Parallel()
		m := semantic.NewMap(".")

		m.AddElement(newTestElement(semantic.KindFile, "src/models/user.ts", "user.ts", nil))
		m.AddElement(newTestElement(semantic.KindClass, "src/models/user.ts", "User", nil))
		imp := newTestElement(semantic.KindImport, "src/auth.ts", "user", map[string]any{
			"source": "models/user",
			"items":  []string{"User as U"},
		})
		m.AddElement(imp)

		buildRelationships(m, Config{AnalyzeImports: true})

		outgoing := m.Outgoing(imp.ID)
		require.Len(t, outgoing, 2)
		for _, rel := range outgoing {
			assert.Equal(t, semantic.RelImports, rel.Type)
		}

		fileID := semantic.ElementID(semantic.KindFile, "src/models/user.ts", "")
		classID := semantic.ElementID(semantic.KindClass, "src/models/user.ts", "User")
		targets := []string{outgoing[0].Target, outgoing[1].Target}
		assert.Contains(t, targets, fileID)
		assert.Contains(t, targets, classID)
	})

	t.Run("unresolvable imports are silently dropped", func(t *testing.T) {
		t.Parallel()
		m := semantic.NewMap(".")

		imp := newTestElement(semantic.KindImport, "src/auth.ts", "lodash", map[string]any{
			"source": "lodash",
			"items":  []string{"debounce"},
		})
		m.AddElement(imp)

		buildRelationships(m, Config{AnalyzeImports: true})
		assert.Empty(t, m.Outgoing(imp.ID))
	})

	t.Run("disabled by config", func(t *testing.T) {
		t.Parallel()
		m := semantic.NewMap(".")

		m.AddElement(newTestElement(semantic.KindFile, "src/models/user.ts", "user.ts", nil))
		imp := newTestElement(semantic.KindImport, "src/auth.ts", "user", map[string]any{
			"source": "models/user",
		})
		m.AddElement(imp)

		buildRelationships(m, Config{AnalyzeImports: false})
		assert.Empty(t, m.Outgoing(imp.ID))
	})
}

func TestHeritageResolution(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")

	m.AddElement(newTestElement(semantic.KindClass, "a.ts", "Base", nil))
	m.AddElement(newTestElement(semantic.KindClass, "b.ts", "Child", map[string]any{
		"extends":    "Base",
		"implements": []string{"Serializable"},
	}))
	m.AddElement(newTestElement(semantic.KindInterface, "c.ts", "Serializable", nil))
	m.AddElement(newTestElement(semantic.KindInterface, "c.ts", "Closeable", map[string]any{
		"extends": []string{"Serializable"},
	}))

	buildRelationships(m, Config{})

	childID := semantic.ElementID(semantic.KindClass, "b.ts", "Child")
	baseID := semantic.ElementID(semantic.KindClass, "a.ts", "Base")
	serializableID := semantic.ElementID(semantic.KindInterface, "c.ts", "Serializable")
	closeableID := semantic.ElementID(semantic.KindInterface, "c.ts", "Closeable")

	extends := m.GetRelationship(semantic.RelationshipID(childID, semantic.RelExtends, baseID))
	require.NotNil(t, extends)
	assert.InDelta(t, 1.0, extends.Strength, 1e-9)

	implements := m.GetRelationship(semantic.RelationshipID(childID, semantic.RelImplements, serializableID))
	require.NotNil(t, implements)

	ifaceExtends := m.GetRelationship(semantic.RelationshipID(closeableID, semantic.RelExtends, serializableID))
	require.NotNil(t, ifaceExtends)
}

func TestHeritageUnresolvedName(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")

	m.AddElement(newTestElement(semantic.KindClass, "b.ts", "Child", map[string]any{
		"extends": "Missing",
	}))

	buildRelationships(m, Config{})
	childID := semantic.ElementID(semantic.KindClass, "b.ts", "Child")
	assert.Empty(t, relTypes(m.Outgoing(childID)))
}

func TestTypeUsage(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")

	m.AddElement(newTestElement(semantic.KindType, "types.ts", "Port", nil))
	m.AddElement(newTestElement(semantic.KindInterface, "types.ts", "Repo", nil))
	fn := newTestElement(semantic.KindFunction, "srv.ts", "listen", nil)
	fn.Signature = "function listen(p: Port): void"
	m.AddElement(fn)
	plain := newTestElement(semantic.KindFunction, "srv.ts", "noop", nil)
	plain.Signature = "function noop(): void"
	m.AddElement(plain)

	buildRelationships(m, Config{AnalyzeTypes: true})

	portID := semantic.ElementID(semantic.KindType, "types.ts", "Port")
	uses := m.GetRelationship(semantic.RelationshipID(fn.ID, semantic.RelUses, portID))
	require.NotNil(t, uses)
	assert.InDelta(t, 0.5, uses.Strength, 1e-9)

	assert.Empty(t, m.Outgoing(plain.ID))
}

func TestRelationshipEndpointsExist(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")

	m.AddElement(newTestElement(semantic.KindFile, "src/user.ts", "user.ts", nil))
	m.AddElement(newTestElement(semantic.KindClass, "src/user.ts", "User", map[string]any{"extends": "Base"}))
	m.AddElement(newTestElement(semantic.KindClass, "src/base.ts", "Base", nil))

	buildRelationships(m, Config{AnalyzeImports: true, AnalyzeTypes: true})

	for _, rel := range m.Relationships() {
		assert.True(t, m.HasElement(rel.Source), "dangling source %s", rel.Source)
		assert.True(t, m.HasElement(rel.Target), "dangling target %s", rel.Target)
	}
}
