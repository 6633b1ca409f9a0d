package build

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

// memFS backs a builder with an in-memory file set.
func memFS(files map[string]string) (FileLister, FileReader) {
	lister := func(pattern string) ([]string, error) {
		ext := strings.TrimPrefix(pattern, "**/*")
		var matches []string
		for p := range files {
			if strings.HasSuffix(p, ext) {
				matches = append(matches, p)
			}
		}
		return matches, nil
	}
	reader := func(path string) (string, error) {
		content, ok := files[path]
		if !ok {
			return "", errors.New("no such file")
		}
		return content, nil
	}
	return lister, reader
}

func collectEvents(b *Builder) *[]Event {
	var events []Event
	b.Subscribe(func(ev Event) {
		events = append(events, ev)
	})
	return &events
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestBuildEndToEnd(t *testing.T) {
	t.Parallel()

	lister, reader := memFS(map[string]string{
		"a.ts": "export class Base {}\n",
		"b.ts": "export class Child extends Base {}\n",
	})
	b := NewBuilder(DefaultConfig(), lister, reader)
	events := collectEvents(b)

	m, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Same(t, m, b.Map())

	baseID := semantic.ElementID(semantic.KindClass, "a.ts", "Base")
	childID := semantic.ElementID(semantic.KindClass, "b.ts", "Child")
	require.NotNil(t, m.GetElement("file:a.ts"))
	require.NotNil(t, m.GetElement("file:b.ts"))
	require.NotNil(t, m.GetElement(baseID))
	require.NotNil(t, m.GetElement(childID))

	extends := m.GetRelationship(semantic.RelationshipID(childID, semantic.RelExtends, baseID))
	require.NotNil(t, extends)
	assert.InDelta(t, 1.0, extends.Strength, 1e-9)

	types := eventTypes(*events)
	require.NotEmpty(t, types)
	assert.Equal(t, EventBuildStarted, types[0])
	assert.Equal(t, EventBuildComplete, types[len(types)-1])

	analyzed := 0
	for _, ev := range *events {
		if ev.Type == EventFileAnalyzed {
			analyzed++
			assert.Positive(t, ev.Count, ev.Path)
		}
	}
	assert.Equal(t, 2, analyzed)

	final := (*events)[len(*events)-1]
	require.NotNil(t, final.Stats)
	assert.Equal(t, final.Stats.TotalElements, m.ElementCount())
}

func TestBuildNilCapabilities(t *testing.T) {
	t.Parallel()

	b := NewBuilder(DefaultConfig(), nil, nil)
	m, err := b.Build(context.Background())

	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 0, m.ElementCount())
}

func TestBuildReaderFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	lister, _ := memFS(map[string]string{
		"ok.ts":     "export class Fine {}\n",
		"broken.ts": "",
	})
	reader := func(path string) (string, error) {
		if path == "broken.ts" {
			return "", errors.New("permission denied")
		}
		return "export class Fine {}\n", nil
	}
	cfg := DefaultConfig()
	cfg.Concurrency = 1
	b := NewBuilder(cfg, lister, reader)
	events := collectEvents(b)

	m, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, m.GetElement(semantic.ElementID(semantic.KindClass, "ok.ts", "Fine")))

	var errored []Event
	for _, ev := range *events {
		if ev.Type == EventBuildError {
			errored = append(errored, ev)
		}
	}
	require.Len(t, errored, 1)
	assert.Equal(t, "broken.ts", errored[0].Path)
	assert.False(t, errored[0].Fatal)
	assert.Contains(t, errored[0].Message, "permission denied")

	types := eventTypes(*events)
	assert.Equal(t, EventBuildComplete, types[len(types)-1])
}

func TestBuildExclusions(t *testing.T) {
	t.Parallel()

	lister, reader := memFS(map[string]string{
		"src/app.ts":                "export class App {}\n",
		"node_modules/lib/index.ts": "export class Dep {}\n",
	})
	b := NewBuilder(DefaultConfig(), lister, reader)

	m, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, m.GetElement("file:src/app.ts"))
	assert.Nil(t, m.GetElement("file:node_modules/lib/index.ts"))
}

func TestBuildStartedEchoesConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MinClusterSize = 9
	b := NewBuilder(cfg, nil, nil)
	events := collectEvents(b)

	_, err := b.Build(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, *events)
	started := (*events)[0]
	require.Equal(t, EventBuildStarted, started.Type)
	require.NotNil(t, started.Config)
	assert.Equal(t, 9, started.Config.MinClusterSize)
}

func TestBuildReplacesCurrentMap(t *testing.T) {
	t.Parallel()

	lister, reader := memFS(map[string]string{"a.ts": "export class A {}\n"})
	b := NewBuilder(DefaultConfig(), lister, reader)

	first, err := b.Build(context.Background())
	require.NoError(t, err)
	second, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Same(t, second, b.Map())
	assert.Equal(t, first.ElementCount(), second.ElementCount())
}
