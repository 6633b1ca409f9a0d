package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

func TestBadgerBackendRoundTrip(t *testing.T) {
	t.Parallel()

	b := NewBadgerBackend()
	require.NoError(t, b.Initialize(t.TempDir(), false))
	defer b.Close()

	ctx := context.Background()
	want := sampleMap()
	require.NoError(t, b.SaveMap(ctx, want))

	got, err := b.LoadMap(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assertMapsEquivalent(t, want, got)
}

func TestBadgerBackendEmptyStore(t *testing.T) {
	t.Parallel()

	b := NewBadgerBackend()
	require.NoError(t, b.Initialize(t.TempDir(), false))
	defer b.Close()

	m, err := b.LoadMap(context.Background())
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestBadgerBackendSaveReplacesPreviousMap(t *testing.T) {
	t.Parallel()

	b := NewBadgerBackend()
	require.NoError(t, b.Initialize(t.TempDir(), false))
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.SaveMap(ctx, sampleMap()))

	small := semantic.NewMap("/other")
	small.AddElement(&semantic.CodeElement{
		ID:   "class:x.ts:Only",
		Kind: semantic.KindClass,
		Name: "Only",
	})
	require.NoError(t, b.SaveMap(ctx, small))

	got, err := b.LoadMap(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/other", got.RootPath)
	assert.Equal(t, 1, got.ElementCount())
	assert.Equal(t, 0, got.RelationshipCount())
	assert.Empty(t, got.Clusters())
}

func TestBadgerBackendPersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()

	b := NewBadgerBackend()
	require.NoError(t, b.Initialize(dir, false))
	require.NoError(t, b.SaveMap(ctx, sampleMap()))
	require.NoError(t, b.Close())

	reopened := NewBadgerBackend()
	require.NoError(t, reopened.Initialize(dir, true))
	defer reopened.Close()

	got, err := reopened.LoadMap(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.ElementCount())
}

func TestBadgerBackendUninitialized(t *testing.T) {
	t.Parallel()

	b := NewBadgerBackend()
	ctx := context.Background()

	assert.Error(t, b.SaveMap(ctx, sampleMap()))
	_, err := b.LoadMap(ctx)
	assert.Error(t, err)
	assert.NoError(t, b.Close())
}
