// Package semantic provides the in-memory semantic map aggregate.
//
// SemanticMap is a lightweight, map-backed store of elements and
// relationships with O(1) lookups by ID. Secondary indexes on kind and
// adjacency keep queries proportional to the result set rather than the
// total map size.
package semantic

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SemanticMap is the aggregate owning all element, relationship,
// cluster, layer, and concept collections of one built map.
//
// The map is single-owner: exactly one build may mutate it at a time.
// Read methods may run concurrently once the build has completed.
type SemanticMap struct {
	mu sync.RWMutex

	// ID uniquely identifies this map instance.
	ID string

	// RootPath is the root the map was built from.
	RootPath string

	// CreatedAt and UpdatedAt are build timestamps.
	CreatedAt time.Time
	UpdatedAt time.Time

	// Metadata holds free-form map-level attributes.
	Metadata map[string]any

	elements      map[string]*CodeElement
	relationships map[string]*CodeRelationship
	clusters      map[string]*SemanticCluster
	layers        []*ArchitecturalLayer
	concepts      map[string]*CodeConcept

	// Secondary indexes, kept in sync by add/remove helpers.
	byKind   map[ElementKind]map[string]*CodeElement
	outgoing map[string]map[string]*CodeRelationship
	incoming map[string]map[string]*CodeRelationship
}

// NewMap creates a new empty semantic map for the given root path.
func NewMap(rootPath string) *SemanticMap {
	now := time.Now().UTC()
	return &SemanticMap{
		ID:            uuid.NewString(),
		RootPath:      rootPath,
		CreatedAt:     now,
		UpdatedAt:     now,
		Metadata:      make(map[string]any),
		elements:      make(map[string]*CodeElement),
		relationships: make(map[string]*CodeRelationship),
		clusters:      make(map[string]*SemanticCluster),
		concepts:      make(map[string]*CodeConcept),
		byKind:        make(map[ElementKind]map[string]*CodeElement),
		outgoing:      make(map[string]map[string]*CodeRelationship),
		incoming:      make(map[string]map[string]*CodeRelationship),
	}
}

// AddElement adds an element, replacing any existing element with the
// same ID (last write wins).
func (m *SemanticMap) AddElement(el *CodeElement) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.elements[el.ID]; ok && old.Kind != el.Kind {
		delete(m.byKind[old.Kind], el.ID)
	}

	m.elements[el.ID] = el

	if m.byKind[el.Kind] == nil {
		m.byKind[el.Kind] = make(map[string]*CodeElement)
	}
	m.byKind[el.Kind][el.ID] = el
}

// GetElement returns the element with the given ID, or nil.
func (m *SemanticMap) GetElement(id string) *CodeElement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.elements[id]
}

// HasElement reports whether an element with the given ID exists.
func (m *SemanticMap) HasElement(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.elements[id]
	return ok
}

// Elements returns all elements sorted by ID for deterministic
// iteration.
func (m *SemanticMap) Elements() []*CodeElement {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*CodeElement, 0, len(m.elements))
	for _, el := range m.elements {
		result = append(result, el)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// ElementsByKind returns all elements of the given kind, sorted by ID.
func (m *SemanticMap) ElementsByKind(kind ElementKind) []*CodeElement {
	m.mu.RLock()
	defer m.mu.RUnlock()

	els, ok := m.byKind[kind]
	if !ok {
		return nil
	}
	result := make([]*CodeElement, 0, len(els))
	for _, el := range els {
		result = append(result, el)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// ElementCount returns the number of elements.
func (m *SemanticMap) ElementCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.elements)
}

// AddRelationship adds a relationship, replacing any existing edge with
// the same ID.
func (m *SemanticMap) AddRelationship(rel *CodeRelationship) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.relationships[rel.ID]; ok {
		delete(m.outgoing[old.Source], rel.ID)
		delete(m.incoming[old.Target], rel.ID)
	}

	m.relationships[rel.ID] = rel

	if m.outgoing[rel.Source] == nil {
		m.outgoing[rel.Source] = make(map[string]*CodeRelationship)
	}
	m.outgoing[rel.Source][rel.ID] = rel

	if m.incoming[rel.Target] == nil {
		m.incoming[rel.Target] = make(map[string]*CodeRelationship)
	}
	m.incoming[rel.Target][rel.ID] = rel
}

// GetRelationship returns the relationship with the given ID, or nil.
func (m *SemanticMap) GetRelationship(id string) *CodeRelationship {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.relationships[id]
}

// Relationships returns all relationships sorted by ID.
func (m *SemanticMap) Relationships() []*CodeRelationship {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*CodeRelationship, 0, len(m.relationships))
	for _, rel := range m.relationships {
		result = append(result, rel)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// RelationshipCount returns the number of relationships.
func (m *SemanticMap) RelationshipCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.relationships)
}

// Outgoing returns relationships originating from the given element,
// sorted by ID.
func (m *SemanticMap) Outgoing(elementID string) []*CodeRelationship {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedRels(m.outgoing[elementID])
}

// Incoming returns relationships targeting the given element, sorted
// by ID.
func (m *SemanticMap) Incoming(elementID string) []*CodeRelationship {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedRels(m.incoming[elementID])
}

// Touching returns every relationship where the element appears as
// source or target, deduplicated and sorted by ID.
func (m *SemanticMap) Touching(elementID string) []*CodeRelationship {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]*CodeRelationship)
	for id, rel := range m.outgoing[elementID] {
		seen[id] = rel
	}
	for id, rel := range m.incoming[elementID] {
		seen[id] = rel
	}
	return sortedRels(seen)
}

// AddCluster adds a cluster, replacing any existing cluster with the
// same ID.
func (m *SemanticMap) AddCluster(c *SemanticCluster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusters[c.ID] = c
}

// GetCluster returns the cluster with the given ID, or nil.
func (m *SemanticMap) GetCluster(id string) *SemanticCluster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clusters[id]
}

// RemoveCluster deletes a cluster. Used by the merge pass.
func (m *SemanticMap) RemoveCluster(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clusters, id)
}

// Clusters returns all clusters sorted by ID.
func (m *SemanticMap) Clusters() []*SemanticCluster {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*SemanticCluster, 0, len(m.clusters))
	for _, c := range m.clusters {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// SetLayers replaces the layer list.
func (m *SemanticMap) SetLayers(layers []*ArchitecturalLayer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layers = layers
}

// Layers returns the layer list.
func (m *SemanticMap) Layers() []*ArchitecturalLayer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.layers
}

// AddConcept adds a concept, replacing any existing concept with the
// same ID.
func (m *SemanticMap) AddConcept(c *CodeConcept) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.concepts[c.ID] = c
}

// GetConcept returns the concept with the given ID, or nil.
func (m *SemanticMap) GetConcept(id string) *CodeConcept {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.concepts[id]
}

// Concepts returns all concepts sorted by ID.
func (m *SemanticMap) Concepts() []*CodeConcept {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*CodeConcept, 0, len(m.concepts))
	for _, c := range m.concepts {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Touch updates the map's UpdatedAt timestamp.
func (m *SemanticMap) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdatedAt = time.Now().UTC()
}

// Statistics computes a snapshot of the map's running statistics.
func (m *SemanticMap) Statistics() *MapStatistics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &MapStatistics{
		TotalElements:       len(m.elements),
		ElementsByKind:      make(map[ElementKind]int),
		TotalRelationships:  len(m.relationships),
		RelationshipsByType: make(map[RelationshipType]int),
		ClusterCount:        len(m.clusters),
		LayerCount:          len(m.layers),
		ConceptCount:        len(m.concepts),
	}
	for kind, els := range m.byKind {
		stats.ElementsByKind[kind] = len(els)
	}
	for _, rel := range m.relationships {
		stats.RelationshipsByType[rel.Type]++
	}
	if len(m.clusters) > 0 {
		total := 0
		for _, c := range m.clusters {
			total += len(c.Elements)
		}
		stats.AverageClusterSize = float64(total) / float64(len(m.clusters))
	}
	return stats
}

// Dispose clears all collections. The map must not be used afterwards.
func (m *SemanticMap) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.elements = make(map[string]*CodeElement)
	m.relationships = make(map[string]*CodeRelationship)
	m.clusters = make(map[string]*SemanticCluster)
	m.layers = nil
	m.concepts = make(map[string]*CodeConcept)
	m.byKind = make(map[ElementKind]map[string]*CodeElement)
	m.outgoing = make(map[string]map[string]*CodeRelationship)
	m.incoming = make(map[string]map[string]*CodeRelationship)
	m.Metadata = make(map[string]any)
}

func sortedRels(rels map[string]*CodeRelationship) []*CodeRelationship {
	if len(rels) == 0 {
		return nil
	}
	result := make([]*CodeRelationship, 0, len(rels))
	for _, rel := range rels {
		result = append(result, rel)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
