package templog

import "time"

// dummyProfile drives the synthetic database generator: each channel
// starts at base and drifts linearly per step, enough to look like a
// slow cooldown when plotted.
type dummyProfile struct {
	device  string
	channel string
	unit    string
	base    float64
	drift   float64
}

var dummyProfiles = []dummyProfile{
	{"LS330BB", "setpoint", "K", 80.0, 0.05},
	{"LS330BB", "temperature", "K", 79.2, 0.04},
	{"LS330BB", "heater", "%", 42.0, -0.6},
	{"LS330SP", "setpoint", "K", 85.0, 0.03},
	{"LS330SP", "temperature", "K", 84.1, 0.05},
	{"LS330SP", "heater", "%", 48.0, -0.4},
	{"LS336", "A.setpoint", "K", 110.0, 0.02},
	{"LS336", "A.temperature", "K", 108.7, 0.03},
	{"LS336", "B.setpoint", "K", 112.5, -0.01},
	{"LS336", "B.temperature", "K", 111.9, -0.02},
}

// FillDummy appends count ticks of synthetic samples spaced by step,
// returning the number of rows written.
func FillDummy(st *Store, start time.Time, count int, step time.Duration) (int, error) {
	n := 0
	for i := 0; i < count; i++ {
		ts := start.Add(time.Duration(i) * step).UTC()
		for _, p := range dummyProfiles {
			s := Sample{
				Timestamp: ts,
				Device:    p.device,
				Channel:   p.channel,
				Value:     p.base + float64(i)*p.drift,
				Unit:      p.unit,
			}
			if err := st.Append(s); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
