package templog

import (
	"fmt"
	"time"
)

// TimeFormat is the timestamp layout used everywhere a sample leaves
// the process: store rows, console lines and CSV. Microsecond
// precision, always UTC.
const TimeFormat = "2006-01-02T15:04:05.000000"

// Sample is one captured reading. Immutable once created; the store
// is append-only.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device"`
	Channel   string    `json:"channel"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
}

// String renders the console line for a reading, e.g.
//
//	2026-08-25T09:30:00.000000  LS330BB  temperature[K] = 79.2
func (s Sample) String() string {
	return fmt.Sprintf("%s  %s  %s[%s] = %.6g",
		s.Timestamp.Format(TimeFormat), s.Device, s.Channel, s.Unit, s.Value)
}
