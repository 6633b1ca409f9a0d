package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

func TestBuildClustersSizeGate(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")

	// Three elements in one directory, two in another.
	m.AddElement(newTestElement(semantic.KindClass, "src/billing/invoice.ts", "Invoice", nil))
	m.AddElement(newTestElement(semantic.KindClass, "src/billing/payment.ts", "Payment", nil))
	m.AddElement(newTestElement(semantic.KindFunction, "src/billing/charge.ts", "charge", nil))
	m.AddElement(newTestElement(semantic.KindClass, "src/audit/log.ts", "AuditLog", nil))
	m.AddElement(newTestElement(semantic.KindFunction, "src/audit/log.ts", "record", nil))
	// Files and imports never join clusters.
	m.AddElement(newTestElement(semantic.KindFile, "src/billing/invoice.ts", "invoice.ts", nil))
	m.AddElement(newTestElement(semantic.KindImport, "src/billing/invoice.ts", "fs", nil))

	count := buildClusters(m, Config{MinClusterSize: 3, SimilarityThreshold: 0.3})

	assert.Equal(t, 1, count)
	cluster := m.GetCluster("cluster:src/billing")
	require.NotNil(t, cluster)
	assert.Equal(t, "billing", cluster.Name)
	assert.Len(t, cluster.Elements, 3)
	assert.Nil(t, m.GetCluster("cluster:src/audit"))
}

func TestInferCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dir  string
		want semantic.ClusterCategory
	}{
		{"src/tests/unit", semantic.CategoryTesting},
		{"src/config", semantic.CategoryConfiguration},
		{"src/utils", semantic.CategoryUtility},
		{"src/models", semantic.CategoryDataModel},
		{"src/api/v1", semantic.CategoryAPI},
		{"src/ui/widgets", semantic.CategoryUI},
		{"src/services", semantic.CategoryBusinessLogic},
		{"src/billing", semantic.CategoryModule},
		// First matching rule wins: "test" outranks "util".
		{"src/test/utils", semantic.CategoryTesting},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferCategory(tt.dir), tt.dir)
	}
}

func TestClusterKeywordsAndCoherence(t *testing.T) {
	t.Parallel()

	members := []*semantic.CodeElement{
		newTestElement(semantic.KindClass, "src/user/service.ts", "UserService", nil),
		newTestElement(semantic.KindClass, "src/user/repo.ts", "UserRepo", nil),
		newTestElement(semantic.KindClass, "src/user/model.ts", "UserModel", nil),
	}

	keywords, total, unique := clusterKeywords(members)
	assert.Equal(t, []string{"user", "model", "repo", "service"}, keywords)
	assert.Equal(t, 6, total)
	assert.Equal(t, 4, unique)

	c := newCluster("src/user", members)
	// 6 fragments / 4 unique / 3 members = 0.5
	assert.InDelta(t, 0.5, c.Coherence, 1e-9)
}

func TestKeywordJaccard(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, keywordJaccard([]string{"a", "b"}, []string{"b", "a"}), 1e-9)
	assert.InDelta(t, 1.0/3.0, keywordJaccard([]string{"a", "b"}, []string{"b", "c"}), 1e-9)
	assert.InDelta(t, 0.0, keywordJaccard([]string{"a"}, []string{"b"}), 1e-9)
	assert.InDelta(t, 0.0, keywordJaccard(nil, nil), 1e-9)
}

func TestMergeSimilarClusters(t *testing.T) {
	t.Parallel()

	t.Run("absorbs above threshold without deduplicating elements", func(t *testing.T) {
		t.Parallel()
		a := &semantic.SemanticCluster{ID: "cluster:a", Elements: []string{"x", "shared"}, Keywords: []string{"user", "auth"}}
		b := &semantic.SemanticCluster{ID: "cluster:b", Elements: []string{"y", "shared"}, Keywords: []string{"user", "auth", "token"}}

		merged := mergeSimilarClusters([]*semantic.SemanticCluster{a, b}, 0.3)

		require.Len(t, merged, 1)
		assert.Equal(t, "cluster:a", merged[0].ID)
		// "shared" appears twice: element lists union without dedup.
		assert.Equal(t, []string{"x", "shared", "y", "shared"}, merged[0].Elements)
		// Keywords do deduplicate.
		assert.Equal(t, []string{"user", "auth", "token"}, merged[0].Keywords)
	})

	t.Run("below threshold leaves clusters unchanged", func(t *testing.T) {
		t.Parallel()
		a := &semantic.SemanticCluster{ID: "cluster:a", Elements: []string{"x"}, Keywords: []string{"user"}}
		b := &semantic.SemanticCluster{ID: "cluster:b", Elements: []string{"y"}, Keywords: []string{"billing"}}

		merged := mergeSimilarClusters([]*semantic.SemanticCluster{a, b}, 0.3)
		require.Len(t, merged, 2)
		assert.Equal(t, []string{"x"}, merged[0].Elements)
		assert.Equal(t, []string{"y"}, merged[1].Elements)

		// Re-running the pass is idempotent for dissimilar clusters.
		again := mergeSimilarClusters(merged, 0.3)
		require.Len(t, again, 2)
		assert.Equal(t, []string{"x"}, again[0].Elements)
		assert.Equal(t, []string{"y"}, again[1].Elements)
	})
}

func TestRootDirectoryClusterName(t *testing.T) {
	t.Parallel()
	m := semantic.NewMap(".")

	m.AddElement(newTestElement(semantic.KindClass, "main.ts", "App", nil))
	m.AddElement(newTestElement(semantic.KindClass, "other.ts", "Other", nil))
	m.AddElement(newTestElement(semantic.KindFunction, "main.ts", "run", nil))

	buildClusters(m, Config{MinClusterSize: 3, SimilarityThreshold: 0.3})

	cluster := m.GetCluster("cluster:.")
	require.NotNil(t, cluster)
	assert.Equal(t, "root", cluster.Name)
}
