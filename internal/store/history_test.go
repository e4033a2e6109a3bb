package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestHistoryAddAssignsIdentity(t *testing.T) {
	h := openTestHistory(t)

	item, err := h.Add(HistoryItem{
		OriginalText:          "um so hello",
		ProcessedText:         "Hello.",
		DurationSeconds:       2.4,
		TranscriptionProvider: "groq",
		GenerationProvider:    "groq",
		ProcessingMode:        "clean",
	})
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)
	require.False(t, item.Timestamp.IsZero())
}

func TestHistoryRecentOrdersNewestFirst(t *testing.T) {
	h := openTestHistory(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := h.Add(HistoryItem{
			Timestamp:             base.Add(time.Duration(i) * time.Minute),
			OriginalText:          "take",
			ProcessedText:         "take",
			TranscriptionProvider: "groq",
			GenerationProvider:    "",
			ProcessingMode:        "raw",
		})
		require.NoError(t, err)
	}

	items, err := h.Recent(2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.True(t, items[0].Timestamp.After(items[1].Timestamp))
}

func TestHistoryPruneKeepsNewest(t *testing.T) {
	h := openTestHistory(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := h.Add(HistoryItem{
			Timestamp:             base.Add(time.Duration(i) * time.Minute),
			OriginalText:          "take",
			ProcessedText:         "take",
			TranscriptionProvider: "whisper-local",
			ProcessingMode:        "raw",
		})
		require.NoError(t, err)
	}

	require.NoError(t, h.Prune(2))

	items, err := h.Recent(10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, base.Add(4*time.Minute).Unix(), items[0].Timestamp.Unix())
}
