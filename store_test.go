package templog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenStore(filepath.Join(t.TempDir(), "samples.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func readAll(t *testing.T, st *Store, start, end time.Time) []Sample {
	t.Helper()
	rows, err := st.ReadRange(start, end)
	require.NoError(t, err)
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		out = append(out, rows.Sample())
	}
	require.NoError(t, rows.Err())
	return out
}

func TestStoreRoundTrip(t *testing.T) {
	st := newTestStore(t)

	s := Sample{
		Timestamp: time.Date(2026, 8, 25, 12, 0, 0, 123456000, time.UTC),
		Device:    "LS330BB",
		Channel:   "temperature",
		Value:     79.2,
		Unit:      "K",
	}
	require.NoError(t, st.Append(s))

	got := readAll(t, st, s.Timestamp, s.Timestamp)
	require.Len(t, got, 1)
	assert.Equal(t, s, got[0])
}

func TestStoreRangeAndOrder(t *testing.T) {
	st := newTestStore(t)

	base := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	// Inserted out of timestamp order on purpose.
	for _, offset := range []int{2, 0, 1, 3} {
		require.NoError(t, st.Append(Sample{
			Timestamp: base.Add(time.Duration(offset) * time.Minute),
			Device:    "LS336",
			Channel:   "A.temperature",
			Value:     float64(offset),
			Unit:      "K",
		}))
	}

	all := readAll(t, st, time.Time{}, time.Time{})
	require.Len(t, all, 4)
	for i, s := range all {
		assert.Equal(t, float64(i), s.Value)
	}

	mid := readAll(t, st, base.Add(time.Minute), base.Add(2*time.Minute))
	require.Len(t, mid, 2)
	assert.Equal(t, 1.0, mid[0].Value)
	assert.Equal(t, 2.0, mid[1].Value)
}

func TestStoreTiesKeepInsertionOrder(t *testing.T) {
	st := newTestStore(t)

	ts := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	require.NoError(t, st.Append(Sample{Timestamp: ts, Device: "A", Channel: "temperature", Value: 1, Unit: "K"}))
	require.NoError(t, st.Append(Sample{Timestamp: ts, Device: "B", Channel: "temperature", Value: 2, Unit: "K"}))

	got := readAll(t, st, time.Time{}, time.Time{})
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Device)
	assert.Equal(t, "B", got[1].Device)
}

func TestStoreReadRangeRestartable(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Append(Sample{
		Timestamp: time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC),
		Device:    "LS330SP", Channel: "setpoint", Value: 85, Unit: "K",
	}))

	first := readAll(t, st, time.Time{}, time.Time{})
	second := readAll(t, st, time.Time{}, time.Time{})
	assert.Equal(t, first, second)
}

func TestStoreCloseIdempotent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())
}

func TestStoreOpenUnusablePath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := OpenStore(filepath.Join(blocker, "nested", "samples.db"))
	require.ErrorIs(t, err, ErrStorage)
}
