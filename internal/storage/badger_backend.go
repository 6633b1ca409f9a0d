package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

// Key prefixes for the record types of one stored map.
const (
	prefixElement = "elem:"
	prefixRel     = "rel:"
	prefixCluster = "cluster:"
	prefixConcept = "concept:"
	keyMeta       = "meta:map"
	keyLayers     = "meta:layers"
)

// mapMeta is the persisted map-level record.
type mapMeta struct {
	ID        string         `json:"id"`
	RootPath  string         `json:"rootPath"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// BadgerBackend is a BadgerDB-backed map store. Records are JSON values
// under per-type key prefixes.
type BadgerBackend struct {
	mu sync.Mutex
	db *badger.DB
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR)
	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}
	return nil
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// SaveMap replaces the stored map with the given one.
func (b *BadgerBackend) SaveMap(ctx context.Context, m *semantic.SemanticMap) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return fmt.Errorf("backend not initialized")
	}
	if err := b.db.DropAll(); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	set := func(key string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", key, err)
		}
		return wb.Set([]byte(key), data)
	}

	meta := mapMeta{
		ID:        m.ID,
		RootPath:  m.RootPath,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Metadata:  m.Metadata,
	}
	if err := set(keyMeta, meta); err != nil {
		return err
	}
	if err := set(keyLayers, m.Layers()); err != nil {
		return err
	}

	for _, el := range m.Elements() {
		if err := set(prefixElement+el.ID, el); err != nil {
			return err
		}
	}
	for _, rel := range m.Relationships() {
		if err := set(prefixRel+rel.ID, rel); err != nil {
			return err
		}
	}
	for _, c := range m.Clusters() {
		if err := set(prefixCluster+c.ID, c); err != nil {
			return err
		}
	}
	for _, c := range m.Concepts() {
		if err := set(prefixConcept+c.ID, c); err != nil {
			return err
		}
	}

	return wb.Flush()
}

// LoadMap reconstructs the stored map, rebuilding all in-memory
// indexes. Returns (nil, nil) when the store holds no map.
func (b *BadgerBackend) LoadMap(ctx context.Context) (*semantic.SemanticMap, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil, fmt.Errorf("backend not initialized")
	}

	var m *semantic.SemanticMap
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyMeta))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		var meta mapMeta
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return fmt.Errorf("unmarshaling map record: %w", err)
		}

		m = semantic.NewMap(meta.RootPath)
		m.ID = meta.ID
		m.CreatedAt = meta.CreatedAt
		m.UpdatedAt = meta.UpdatedAt
		if meta.Metadata != nil {
			m.Metadata = meta.Metadata
		}

		if item, err := txn.Get([]byte(keyLayers)); err == nil {
			var layers []*semantic.ArchitecturalLayer
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &layers)
			}); err != nil {
				return fmt.Errorf("unmarshaling layers: %w", err)
			}
			m.SetLayers(layers)
		}

		if err := scanPrefix(txn, prefixElement, func(val []byte) error {
			var el semantic.CodeElement
			if err := json.Unmarshal(val, &el); err != nil {
				return err
			}
			m.AddElement(&el)
			return nil
		}); err != nil {
			return err
		}

		if err := scanPrefix(txn, prefixRel, func(val []byte) error {
			var rel semantic.CodeRelationship
			if err := json.Unmarshal(val, &rel); err != nil {
				return err
			}
			m.AddRelationship(&rel)
			return nil
		}); err != nil {
			return err
		}

		if err := scanPrefix(txn, prefixCluster, func(val []byte) error {
			var c semantic.SemanticCluster
			if err := json.Unmarshal(val, &c); err != nil {
				return err
			}
			m.AddCluster(&c)
			return nil
		}); err != nil {
			return err
		}

		return scanPrefix(txn, prefixConcept, func(val []byte) error {
			var c semantic.CodeConcept
			if err := json.Unmarshal(val, &c); err != nil {
				return err
			}
			m.AddConcept(&c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func scanPrefix(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return fmt.Errorf("reading %s record: %w", prefix, err)
		}
	}
	return nil
}
