package templog

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock hands out timestamps advancing by step per call, so tick
// timestamps are deterministic.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		cur := next
		next = next.Add(step)
		return cur
	}
}

func newTestPoller(t *testing.T, sessions []*Session) (*Poller, *bytes.Buffer) {
	t.Helper()
	st := newTestStore(t)
	p := NewPoller(sessions, st, time.Second, zerolog.Nop())
	var buf bytes.Buffer
	p.Out = &buf
	p.Now = stepClock(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC), time.Second)
	return p, &buf
}

func labels(samples []Sample) []string {
	var out []string
	for _, s := range samples {
		out = append(out, s.Device+"/"+s.Channel)
	}
	return out
}

func TestTickDeterministicOrder(t *testing.T) {
	a, _ := newFakeSession("LS330BB", "1.0\r\n", "2.0\r\n", "1.0\r\n", "2.0\r\n")
	b, _ := newFakeSession("LS330SP", "3.0\r\n", "4.0\r\n", "3.0\r\n", "4.0\r\n")
	p, buf := newTestPoller(t, []*Session{a, b})

	p.tick()
	p.tick()

	want := []string{
		"LS330BB/setpoint", "LS330BB/temperature",
		"LS330SP/setpoint", "LS330SP/temperature",
	}
	stored := readAll(t, p.Store, time.Time{}, time.Time{})
	require.Len(t, stored, 8)
	assert.Equal(t, want, labels(stored[:4]))
	assert.Equal(t, want, labels(stored[4:]))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 8)
	for i, s := range stored {
		assert.Equal(t, s.String(), lines[i])
	}
}

func TestTickPartialFailure(t *testing.T) {
	// First channel gets no reply (timeout); the second must still be
	// queried, printed and persisted in the same tick.
	s, _ := newFakeSession("LS336", "", "+077.000\r\n")
	p, buf := newTestPoller(t, []*Session{s})

	p.tick()

	stored := readAll(t, p.Store, time.Time{}, time.Time{})
	require.Len(t, stored, 1)
	assert.Equal(t, "temperature", stored[0].Channel)
	assert.Equal(t, 77.0, stored[0].Value)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
}

func TestThreeTicksTwoDevices(t *testing.T) {
	// Two single-channel instruments polled for three ticks: six rows,
	// two device labels, timestamps strictly increasing within each
	// label's subsequence.
	oneChannel := []Channel{{Label: "temperature", Command: "TEMP?", Unit: "K"}}

	warm, _ := newFakeSession("AMBIENT", "300.00\r\n", "300.00\r\n", "300.00\r\n")
	warm.params.Channels = oneChannel
	cold, _ := newFakeSession("N2BATH", "77.00\r\n", "77.00\r\n", "77.00\r\n")
	cold.params.Channels = oneChannel

	p, _ := newTestPoller(t, []*Session{warm, cold})
	for i := 0; i < 3; i++ {
		p.tick()
	}

	stored := readAll(t, p.Store, time.Time{}, time.Time{})
	require.Len(t, stored, 6)

	byDevice := map[string][]Sample{}
	for _, s := range stored {
		byDevice[s.Device] = append(byDevice[s.Device], s)
	}
	require.Len(t, byDevice, 2)
	for dev, seq := range byDevice {
		require.Len(t, seq, 3, dev)
		for i := 1; i < len(seq); i++ {
			assert.True(t, seq[i].Timestamp.After(seq[i-1].Timestamp),
				"%s timestamps must strictly increase", dev)
		}
	}
	for _, s := range byDevice["AMBIENT"] {
		assert.Equal(t, 300.0, s.Value)
	}
	for _, s := range byDevice["N2BATH"] {
		assert.Equal(t, 77.0, s.Value)
	}
}

func TestTickPublishesToBroker(t *testing.T) {
	s, _ := newFakeSession("LS330BB", "1.5\r\n", "2.5\r\n")
	p, _ := newTestPoller(t, []*Session{s})

	broker := NewBroker()
	go broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()
	p.Broker = broker

	p.tick()

	got := <-sub
	assert.Equal(t, "setpoint", got.Channel)
	assert.Equal(t, 1.5, got.Value)
}

func TestNewPollerClampsInterval(t *testing.T) {
	// time.NewTicker panics on non-positive durations; a bad interval
	// must fall back rather than take Run down.
	assert.Equal(t, DefaultInterval, NewPoller(nil, nil, 0, zerolog.Nop()).Interval)
	assert.Equal(t, DefaultInterval, NewPoller(nil, nil, -time.Second, zerolog.Nop()).Interval)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, fw := newFakeSession("LS330BB",
		"1.0\r\n", "2.0\r\n", "1.0\r\n", "2.0\r\n",
		"1.0\r\n", "2.0\r\n", "1.0\r\n", "2.0\r\n",
	)
	p, _ := newTestPoller(t, []*Session{s})
	p.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancellation")
	}

	p.Close()
	assert.Equal(t, 1, fw.closed)
	// Close is idempotent for both sessions and store.
	p.Close()
	assert.Equal(t, 1, fw.closed)
}
