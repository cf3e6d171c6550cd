package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lodyland/internal/game"
)

func readLines(t *testing.T, path string) []game.Event {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	var out []game.Event
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e game.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		out = append(out, e)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestEventJournalWritesCompressedLines(t *testing.T) {
	dir := t.TempDir()
	j := NewEventJournal(dir)
	clock := time.Date(2026, 6, 1, 14, 5, 0, 0, time.UTC)
	j.w.now = func() time.Time { return clock }

	j.Publish(game.NewEvent(game.EventCollect, 1, clock, map[string]any{"resource": "branch"}))
	j.Publish(game.NewEvent(game.EventLevelUp, 1, clock, map[string]any{"level": 2}))
	require.NoError(t, j.Close())

	events := readLines(t, j.w.PathForHour("2026-06-01-14"))
	require.Len(t, events, 2)
	assert.Equal(t, game.EventCollect, events[0].Kind)
	assert.Equal(t, "branch", events[0].Data["resource"])
	assert.Equal(t, game.EventLevelUp, events[1].Kind)
	assert.NotEqual(t, events[0].ID, events[1].ID)
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "events")
	clock := time.Date(2026, 6, 1, 14, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	require.NoError(t, w.Write(game.Event{Kind: "a"}))
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, w.Write(game.Event{Kind: "b"}))
	require.NoError(t, w.Close())

	first := readLines(t, w.PathForHour("2026-06-01-14"))
	second := readLines(t, w.PathForHour("2026-06-01-15"))
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "b", second[0].Kind)
}
