package templog

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Poller is the orchestrator: on a fixed cadence it queries every open
// session in selection order, prints each reading and appends it to
// the store. One logical thread of control; cancellation is observed
// at the interval wait, never mid-tick.
type Poller struct {
	Interval time.Duration
	Sessions []*Session
	Store    *Store

	// Out receives one line per successful reading. Defaults to
	// stdout; diagnostics go to Log instead.
	Out io.Writer

	// Broker, when set, receives every reading for live subscribers.
	Broker *Broker

	Log zerolog.Logger

	// Now stamps each tick; replaceable in tests.
	Now func() time.Time
}

func NewPoller(sessions []*Session, store *Store, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		// time.NewTicker panics on a non-positive duration.
		log.Warn().Dur("interval", interval).Msg("invalid poll interval, using default")
		interval = DefaultInterval
	}
	return &Poller{
		Interval: interval,
		Sessions: sessions,
		Store:    store,
		Out:      os.Stdout,
		Log:      log,
		Now:      time.Now,
	}
}

// Run ticks until ctx is canceled. The in-flight tick always finishes
// its channel sweep; there is no mid-query abort.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

// tick polls every session's channels in a fixed deterministic order:
// selection order, then family channel order. A failed query costs
// only its own reading.
func (p *Poller) tick() {
	ts := p.Now().UTC()

	for _, sess := range p.Sessions {
		for _, ch := range sess.Channels() {
			v, err := sess.Read(ch)
			if err != nil {
				queryErrors.Inc()
				p.Log.Warn().
					Str("device", sess.Device.Name).
					Str("channel", ch.Label).
					Err(err).
					Msg("query failed, skipping reading")
				continue
			}

			s := Sample{Timestamp: ts, Device: sess.Device.Name, Channel: ch.Label, Value: v, Unit: ch.Unit}
			fmt.Fprintln(p.Out, s.String())

			if err := p.Store.Append(s); err != nil {
				writeErrors.Inc()
				p.Log.Error().Err(err).Msg("append failed, sample lost")
			} else {
				samplesWritten.Inc()
			}

			if p.Broker != nil {
				p.Broker.Publish(s)
			}
		}
	}
}

// Close releases every session and the store. Safe after Run returns;
// both are idempotent underneath.
func (p *Poller) Close() {
	for _, s := range p.Sessions {
		if err := s.Close(); err != nil {
			p.Log.Warn().Str("device", s.Device.Name).Err(err).Msg("close failed")
		}
	}
	if err := p.Store.Close(); err != nil {
		p.Log.Warn().Err(err).Msg("store close failed")
	}
}
