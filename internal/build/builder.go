package build

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/cartograph-dev/semamap/internal/extract"
	"github.com/cartograph-dev/semamap/internal/semantic"
)

// FileLister returns the file paths matching a glob-like pattern. It is
// an injected capability: the engine never touches the filesystem
// directly.
type FileLister func(pattern string) ([]string, error)

// FileReader returns a file's full text content.
type FileReader func(path string) (string, error)

// Builder constructs semantic maps. It is single-owner: one build may
// be in flight per Builder at a time, and queries against the produced
// map must not overlap a rebuild.
type Builder struct {
	mu       sync.Mutex
	cfg      Config
	lister   FileLister
	reader   FileReader
	handlers []EventHandler
	current  *semantic.SemanticMap
}

// NewBuilder creates a builder with the given configuration and
// injected capabilities. Both capabilities are optional; a builder
// missing either produces empty maps.
func NewBuilder(cfg Config, lister FileLister, reader FileReader) *Builder {
	return &Builder{
		cfg:    cfg.Normalize(),
		lister: lister,
		reader: reader,
	}
}

// Subscribe registers a build event handler. Handlers run
// synchronously on the build goroutine.
func (b *Builder) Subscribe(h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Map returns the most recently built map, or nil before any
// successful build.
func (b *Builder) Map() *semantic.SemanticMap {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Dispose releases the built map's collections and detaches all
// observers.
func (b *Builder) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil {
		b.current.Dispose()
		b.current = nil
	}
	b.handlers = nil
}

// fileResult is one worker's output for a single file.
type fileResult struct {
	path     string
	elements []*semantic.CodeElement
	skipped  bool
	err      error
}

// Build runs the full pipeline: discovery, parallel extraction, merge,
// then relationship, cluster, layer, and concept derivation over the
// complete element set. Extraction failures for individual files are
// reported as events and skipped; failures in the derivation phases
// fail the build as a whole.
func (b *Builder) Build(ctx context.Context) (*semantic.SemanticMap, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cfg := b.cfg
	b.emit(Event{Type: EventBuildStarted, Config: &cfg})

	m := semantic.NewMap(cfg.IncludePaths[0])

	paths := b.discover()

	// Extraction is embarrassingly parallel; results merge under this
	// goroutine as the single writer. Derivation must not start until
	// every file has been merged.
	workers := cfg.Concurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan string)
	results := make(chan fileResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				results <- b.extractFile(p)
			}
		}()
	}
	go func() {
		for _, p := range paths {
			jobs <- p
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.err != nil {
			b.emit(Event{Type: EventBuildError, Path: res.path, Message: res.err.Error()})
			continue
		}
		if res.skipped {
			continue
		}
		for _, el := range res.elements {
			m.AddElement(el)
		}
		b.emit(Event{Type: EventFileAnalyzed, Path: res.path, Count: len(res.elements)})
	}

	if err := b.derive(m, cfg); err != nil {
		b.emit(Event{Type: EventBuildError, Message: err.Error(), Fatal: true})
		return nil, err
	}

	m.Touch()
	b.emit(Event{Type: EventBuildComplete, Stats: m.Statistics()})

	b.current = m
	return m, nil
}

// discover lists candidate files, once per known extension, dropping
// any path containing an exclusion substring. Listing failures are
// recoverable: the event is emitted and the pattern skipped.
func (b *Builder) discover() []string {
	if b.lister == nil || b.reader == nil {
		return nil
	}

	seen := make(map[string]bool)
	var paths []string
	for _, ext := range extract.Extensions(b.cfg.Languages) {
		matches, err := b.lister("**/*" + ext)
		if err != nil {
			b.emit(Event{Type: EventBuildError, Message: fmt.Sprintf("listing *%s files: %v", ext, err)})
			continue
		}
		for _, p := range matches {
			if seen[p] || b.excluded(p) {
				continue
			}
			seen[p] = true
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

func (b *Builder) excluded(p string) bool {
	for _, sub := range b.cfg.ExcludePaths {
		if sub != "" && strings.Contains(p, sub) {
			return true
		}
	}
	return false
}

// extractFile reads and extracts one file. Panics in the extraction
// path are caught and surfaced as that file's error so a malformed file
// cannot abort the build.
func (b *Builder) extractFile(p string) (res fileResult) {
	res.path = p
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("extracting %s: %v", p, r)
		}
	}()

	lang := extract.Detect(p, b.cfg.Languages)
	if lang == extract.LangUnknown {
		res.skipped = true
		return res
	}

	content, err := b.reader(p)
	if err != nil {
		res.err = fmt.Errorf("reading %s: %w", p, err)
		return res
	}

	res.elements = extract.Extract(p, content, lang)
	return res
}

// derive runs the post-barrier phases. A panic in any phase is fatal
// for the build.
func (b *Builder) derive(m *semantic.SemanticMap, cfg Config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deriving map: %v", r)
		}
	}()

	relCount := buildRelationships(m, cfg)
	b.emit(Event{Type: EventRelationshipsBuilt, Count: relCount})

	if cfg.BuildClusters {
		clusterCount := buildClusters(m, cfg)
		b.emit(Event{Type: EventClustersBuilt, Count: clusterCount})
	}

	buildLayers(m)
	buildConcepts(m)
	return nil
}

func (b *Builder) emit(ev Event) {
	for _, h := range b.handlers {
		h(ev)
	}
}
