package templog

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

var (
	// ErrConnection means the device never answered the
	// identification query after opening. The caller decides whether
	// to drop the device and carry on with the rest.
	ErrConnection = errors.New("instrument connection failed")

	// ErrTimeout is a query that produced no complete reply line
	// within the family timeout. Non-fatal; the reading is skipped
	// this tick.
	ErrTimeout = errors.New("instrument query timed out")

	// ErrParse is a reply that is not a number (the 330s answer "OL"
	// on an open sensor loop, for instance). Non-fatal; the session
	// stays usable.
	ErrParse = errors.New("unparseable instrument reply")
)

// Session is one exclusively-owned connection to an instrument. It is
// created at startup from the operator's selection and lives until
// shutdown.
type Session struct {
	Device Device

	params FamilyParams
	ep     endpoint
	closed bool
}

func newSession(dev Device, params FamilyParams, ep endpoint) *Session {
	return &Session{Device: dev, params: params, ep: ep}
}

// OpenSession connects to the device with its family's line
// parameters and verifies it answers an identification query. GPIB
// devices go through the pool's shared Prologix adapter ports.
func OpenSession(dev Device, pool *BusPool) (*Session, error) {
	params, err := dev.Family.Params()
	if err != nil {
		return nil, err
	}
	addr, err := ParseAddress(dev.Address)
	if err != nil {
		return nil, err
	}

	var ep endpoint
	switch addr.Kind {
	case KindSerial:
		port, err := serial.Open(addr.Port, params.Mode)
		if err != nil {
			return nil, errors.Wrapf(ErrConnection, "%s: open %s: %v", dev.Name, addr.Port, err)
		}
		if err := port.SetReadTimeout(params.Timeout); err != nil {
			port.Close()
			return nil, errors.Wrapf(ErrConnection, "%s: set timeout: %v", dev.Name, err)
		}
		ep = &serialEndpoint{rw: port, term: params.Terminator, timeout: params.Timeout}

	case KindGPIB:
		rw, err := pool.acquire(addr.Port)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", dev.Name)
		}
		ctl, err := prologixController(rw, addr.PAD)
		if err != nil {
			pool.release(addr.Port)
			return nil, errors.Wrapf(ErrConnection, "%s: gpib controller: %v", dev.Name, err)
		}
		ep = &gpibEndpoint{ctl: ctl, pool: pool, port: addr.Port, pad: addr.PAD}
	}

	s := newSession(dev, params, ep)
	if err := s.ident(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// ident confirms the instrument is alive before the first tick.
func (s *Session) ident() error {
	reply, err := s.ep.Query(s.params.IdentCmd)
	if err != nil {
		return errors.Wrapf(ErrConnection, "%s (%s): %v", s.Device.Name, s.Device.Address, err)
	}
	if strings.TrimSpace(reply) == "" {
		return errors.Wrapf(ErrConnection, "%s (%s): empty identification", s.Device.Name, s.Device.Address)
	}
	return nil
}

// Channels reports the device's channels in poll order.
func (s *Session) Channels() []Channel {
	return s.params.Channels
}

// Read queries one channel and parses the numeric reply.
func (s *Session) Read(ch Channel) (float64, error) {
	reply, err := s.ep.Query(ch.Command)
	if err != nil {
		return 0, errors.Wrapf(err, "%s %s", s.Device.Name, ch.Label)
	}
	text := strings.TrimSpace(reply)
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrParse, "%s %s: %q", s.Device.Name, ch.Label, text)
	}
	return v, nil
}

// Close releases the bus connection. Idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.ep.Close()
}
