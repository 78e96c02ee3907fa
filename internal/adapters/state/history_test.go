package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "sub", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestHistory_RecordAndList(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, h.Record(ctx, core.HistoryEntry{
		ExecutionID: "e1", SessionID: "e1", Agent: "claude", Model: "sonnet",
		TemplateID: "email", ToneID: "formal", Input: "hi", Output: "Hello.",
		CreatedAt: base,
	}))
	require.NoError(t, h.Record(ctx, core.HistoryEntry{
		ExecutionID: "e2", SessionID: "e1", Agent: "claude", Input: "shorter?",
		ErrorCategory: core.ErrCatTimeout, IsFollowUp: true,
		CreatedAt: base.Add(time.Minute),
	}))

	entries, err := h.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e2", entries[0].ExecutionID, "newest first")
	assert.True(t, entries[0].IsFollowUp)
	assert.Equal(t, core.ErrCatTimeout, entries[0].ErrorCategory)
	assert.Equal(t, "Hello.", entries[1].Output)
	assert.Equal(t, "formal", entries[1].ToneID)
	assert.True(t, entries[1].CreatedAt.Equal(base))

	limited, err := h.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestHistory_BySession(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	for i, e := range []core.HistoryEntry{
		{ExecutionID: "a1", SessionID: "a", Agent: "codex", Input: "one"},
		{ExecutionID: "b1", SessionID: "b", Agent: "codex", Input: "other"},
		{ExecutionID: "a2", SessionID: "a", Agent: "codex", Input: "two", IsFollowUp: true},
	} {
		e.CreatedAt = time.Unix(int64(1000+i), 0)
		require.NoError(t, h.Record(ctx, e))
	}

	entries, err := h.BySession(ctx, "a")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a1", entries[0].ExecutionID)
	assert.Equal(t, "a2", entries[1].ExecutionID)

	none, err := h.BySession(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHistory_Clear(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	require.NoError(t, h.Record(ctx, core.HistoryEntry{ExecutionID: "e1", SessionID: "e1", Agent: "gemini", Input: "x"}))
	n, err := h.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err := h.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistory_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := OpenHistory(path)
	require.NoError(t, err)
	require.NoError(t, h.Record(context.Background(), core.HistoryEntry{ExecutionID: "e1", SessionID: "e1", Agent: "claude", Input: "x"}))
	require.NoError(t, h.Close())

	reopened, err := OpenHistory(path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].CreatedAt.IsZero(), "zero timestamps are filled on record")
}
