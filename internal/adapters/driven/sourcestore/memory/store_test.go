package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inklet-labs/inklet/internal/core/domain"
)

func sourceFixture(id string, createdAt time.Time) *domain.Source {
	return &domain.Source{
		ID:                id,
		Title:             "Title " + id,
		Content:           "raw " + id,
		NormalisedContent: "clean " + id,
		ContentType:       domain.ContentTypeNote,
		CreatedAt:         createdAt,
	}
}

func TestSourceStore_SaveAndGet(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()
	src := sourceFixture("src-1", time.Now().UTC())

	require.NoError(t, store.SaveSource(ctx, src))

	got, err := store.GetSource(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, *src, *got)
}

func TestSourceStore_Save_Invalid(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.SaveSource(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SaveSource(ctx, &domain.Source{}), domain.ErrInvalidInput)
}

func TestSourceStore_Save_Replaces(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()
	src := sourceFixture("src-1", time.Now().UTC())
	require.NoError(t, store.SaveSource(ctx, src))

	src.Title = "Revised"
	require.NoError(t, store.SaveSource(ctx, src))

	got, err := store.GetSource(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, "Revised", got.Title)
}

func TestSourceStore_Get_NotFound(t *testing.T) {
	store := NewSourceStore()

	_, err := store.GetSource(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSourceStore_List_NewestFirst(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSource(ctx, sourceFixture("src-old", base)))
	require.NoError(t, store.SaveSource(ctx, sourceFixture("src-new", base.Add(2*time.Hour))))
	require.NoError(t, store.SaveSource(ctx, sourceFixture("src-mid", base.Add(time.Hour))))

	out, err := store.ListSources(ctx, 10, 0)

	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "src-new", out[0].ID)
	assert.Equal(t, "src-mid", out[1].ID)
	assert.Equal(t, "src-old", out[2].ID)
}

func TestSourceStore_List_Pagination(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ids := []string{"src-a", "src-b", "src-c", "src-d"}
	for i, id := range ids {
		require.NoError(t, store.SaveSource(ctx, sourceFixture(id, base.Add(time.Duration(i)*time.Minute))))
	}

	page, err := store.ListSources(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "src-c", page[0].ID)
	assert.Equal(t, "src-b", page[1].ID)

	empty, err := store.ListSources(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSourceStore_MarkReady(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()
	require.NoError(t, store.SaveSource(ctx, sourceFixture("src-1", time.Now().UTC())))

	require.NoError(t, store.MarkReady(ctx, "src-1"))

	got, err := store.GetSource(ctx, "src-1")
	require.NoError(t, err)
	assert.True(t, got.Ready)
}

func TestSourceStore_MarkReady_NotFound(t *testing.T) {
	store := NewSourceStore()

	err := store.MarkReady(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSourceStore_Delete(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()
	require.NoError(t, store.SaveSource(ctx, sourceFixture("src-1", time.Now().UTC())))

	require.NoError(t, store.DeleteSource(ctx, "src-1"))

	_, err := store.GetSource(ctx, "src-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	// Deleting an absent source is a no-op.
	assert.NoError(t, store.DeleteSource(ctx, "src-1"))
}

func TestSourceStore_Save_DefaultsCreatedAt(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()
	src := sourceFixture("src-1", time.Time{})

	require.NoError(t, store.SaveSource(ctx, src))

	got, err := store.GetSource(ctx, "src-1")
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero())
}
