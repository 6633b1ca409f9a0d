package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

// MemoryBackend is an in-memory map store, used in tests and for
// ephemeral sessions. Saved maps are serialized so the stored copy is
// decoupled from the caller's live instance.
type MemoryBackend struct {
	mu       sync.Mutex
	meta     []byte
	layers   []byte
	elements [][]byte
	rels     [][]byte
	clusters [][]byte
	concepts [][]byte
	saved    bool
}

// NewMemoryBackend creates a new in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Initialize is a no-op for the in-memory backend.
func (b *MemoryBackend) Initialize(path string, readOnly bool) error {
	return nil
}

// Close discards the stored map.
func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meta = nil
	b.layers = nil
	b.elements = nil
	b.rels = nil
	b.clusters = nil
	b.concepts = nil
	b.saved = false
	return nil
}

// SaveMap replaces the stored map with a serialized copy.
func (b *MemoryBackend) SaveMap(ctx context.Context, m *semantic.SemanticMap) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	meta, err := json.Marshal(mapMeta{
		ID:        m.ID,
		RootPath:  m.RootPath,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Metadata:  m.Metadata,
	})
	if err != nil {
		return err
	}
	layers, err := json.Marshal(m.Layers())
	if err != nil {
		return err
	}

	elements, err := marshalEach(m.Elements())
	if err != nil {
		return err
	}
	rels, err := marshalEach(m.Relationships())
	if err != nil {
		return err
	}
	clusters, err := marshalEach(m.Clusters())
	if err != nil {
		return err
	}
	concepts, err := marshalEach(m.Concepts())
	if err != nil {
		return err
	}

	b.meta = meta
	b.layers = layers
	b.elements = elements
	b.rels = rels
	b.clusters = clusters
	b.concepts = concepts
	b.saved = true
	return nil
}

// LoadMap reconstructs the stored map, or returns (nil, nil) when
// nothing has been saved.
func (b *MemoryBackend) LoadMap(ctx context.Context) (*semantic.SemanticMap, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.saved {
		return nil, nil
	}

	var meta mapMeta
	if err := json.Unmarshal(b.meta, &meta); err != nil {
		return nil, err
	}

	m := semantic.NewMap(meta.RootPath)
	m.ID = meta.ID
	m.CreatedAt = meta.CreatedAt
	m.UpdatedAt = meta.UpdatedAt
	if meta.Metadata != nil {
		m.Metadata = meta.Metadata
	}

	var layers []*semantic.ArchitecturalLayer
	if err := json.Unmarshal(b.layers, &layers); err != nil {
		return nil, err
	}
	m.SetLayers(layers)

	for _, data := range b.elements {
		var el semantic.CodeElement
		if err := json.Unmarshal(data, &el); err != nil {
			return nil, err
		}
		m.AddElement(&el)
	}
	for _, data := range b.rels {
		var rel semantic.CodeRelationship
		if err := json.Unmarshal(data, &rel); err != nil {
			return nil, err
		}
		m.AddRelationship(&rel)
	}
	for _, data := range b.clusters {
		var c semantic.SemanticCluster
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		m.AddCluster(&c)
	}
	for _, data := range b.concepts {
		var c semantic.CodeConcept
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		m.AddConcept(&c)
	}

	return m, nil
}

func marshalEach[T any](items []T) ([][]byte, error) {
	out := make([][]byte, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}
