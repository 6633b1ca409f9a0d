package build

import "github.com/cartograph-dev/semamap/internal/semantic"

// EventType identifies a build lifecycle event.
type EventType string

const (
	// EventBuildStarted is emitted once at the start of a build and
	// echoes the effective configuration.
	EventBuildStarted EventType = "build_started"

	// EventFileAnalyzed is emitted once per extracted file with the
	// element count produced.
	EventFileAnalyzed EventType = "file_analyzed"

	// EventRelationshipsBuilt carries the relationship count after the
	// relationship pass.
	EventRelationshipsBuilt EventType = "relationships_built"

	// EventClustersBuilt carries the cluster count after clustering.
	EventClustersBuilt EventType = "clusters_built"

	// EventBuildComplete carries the final map statistics.
	EventBuildComplete EventType = "build_complete"

	// EventBuildError reports a failure. Per-file failures are
	// non-fatal; failures outside the per-file loop set Fatal and
	// abort the build.
	EventBuildError EventType = "build_error"
)

// Event is one build lifecycle notification. Only the fields relevant
// to the event type are populated.
type Event struct {
	Type    EventType
	Path    string
	Count   int
	Message string
	Fatal   bool
	Config  *Config
	Stats   *semantic.MapStatistics
}

// EventHandler consumes build events. Handlers are invoked
// synchronously from the build goroutine and must not block.
type EventHandler func(Event)
