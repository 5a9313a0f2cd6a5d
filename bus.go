package templog

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gotmc/prologix"
	"github.com/gotmc/prologix/driver/vcp"
	"github.com/pkg/errors"
)

// endpoint is one open request/response path to an instrument,
// regardless of how it is physically attached.
type endpoint interface {
	// Query sends one command line and returns the reply line with
	// the terminator stripped.
	Query(cmd string) (string, error)
	Close() error
}

// serialEndpoint talks to an instrument wired directly to a serial
// port. Replies are single ASCII lines; the port's read timeout shows
// up as a zero-length read.
type serialEndpoint struct {
	rw      io.ReadWriteCloser
	term    string
	timeout time.Duration
}

func (e *serialEndpoint) Query(cmd string) (string, error) {
	if _, err := e.rw.Write([]byte(cmd + e.term)); err != nil {
		return "", errors.Wrapf(err, "write %q", cmd)
	}

	var line []byte
	buf := make([]byte, 64)
	deadline := time.Now().Add(e.timeout)
	for {
		n, err := e.rw.Read(buf)
		if err != nil {
			return "", errors.Wrapf(err, "read reply to %q", cmd)
		}
		if n == 0 {
			// go.bug.st/serial reports an expired read timeout as a
			// zero-length read.
			return "", errors.Wrapf(ErrTimeout, "no reply to %q", cmd)
		}
		line = append(line, buf[:n]...)
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			return string(bytes.TrimRight(line[:i+1], "\r\n")), nil
		}
		if time.Now().After(deadline) {
			return "", errors.Wrapf(ErrTimeout, "incomplete reply to %q", cmd)
		}
	}
}

func (e *serialEndpoint) Close() error {
	return e.rw.Close()
}

// gpibEndpoint talks to an instrument behind a Prologix GPIB-USB
// adapter. Several endpoints may share one adapter port; the pool
// refcounts it and tracks which primary address the adapter is
// pointed at, since the controller sets ++addr only at construction.
type gpibEndpoint struct {
	ctl  *prologix.Controller
	pool *BusPool
	port string
	pad  int
}

func (e *gpibEndpoint) Query(cmd string) (string, error) {
	if err := e.pool.address(e.port, e.pad, e.ctl); err != nil {
		return "", err
	}
	reply, err := e.ctl.Query(cmd)
	if err != nil && err != io.EOF {
		return "", errors.Wrapf(err, "gpib query %q", cmd)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.Wrapf(ErrTimeout, "no reply to %q", cmd)
	}
	return reply, nil
}

func (e *gpibEndpoint) Close() error {
	return e.pool.release(e.port)
}

// prologixController binds a GPIB primary address on an adapter port.
// Device clear is left off: the 330s drop their remote state on SDC.
func prologixController(rw io.ReadWriter, pad int) (*prologix.Controller, error) {
	return prologix.NewController(rw, pad, false)
}

// gpibPort is the slice of the VCP driver surface we rely on.
type gpibPort interface {
	io.ReadWriter
	Flush() error
	Close() error
}

// BusPool shares Prologix adapter serial ports between the sessions
// that sit on the same GPIB bus. It remembers which instrument each
// adapter is addressed to, so an endpoint only pays for a ++addr
// switch when the previous query went to a different instrument.
type BusPool struct {
	mu    sync.Mutex
	open  func(port string) (gpibPort, error)
	ports map[string]*pooledPort
}

type pooledPort struct {
	port gpibPort
	refs int
	pad  int
}

func NewBusPool() *BusPool {
	return &BusPool{open: openVCP, ports: map[string]*pooledPort{}}
}

func openVCP(port string) (gpibPort, error) {
	v, err := vcp.NewVCP(port)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (p *BusPool) acquire(port string) (gpibPort, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pp, ok := p.ports[port]; ok {
		pp.refs++
		return pp.port, nil
	}
	v, err := p.open(port)
	if err != nil {
		return nil, errors.Wrapf(ErrConnection, "open GPIB adapter %s: %v", port, err)
	}
	// pad -1: unknown which instrument the adapter points at, so the
	// first query always readdresses.
	p.ports[port] = &pooledPort{port: v, refs: 1, pad: -1}
	return v, nil
}

// address points the shared adapter at the endpoint's instrument.
// Opening a second session moves the adapter to that session's
// primary address, so without this every query after open would read
// whichever instrument was addressed last.
func (p *BusPool) address(port string, pad int, ctl *prologix.Controller) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pp, ok := p.ports[port]
	if !ok {
		return errors.Wrapf(ErrConnection, "adapter %s is not open", port)
	}
	if pp.pad == pad {
		return nil
	}
	if err := ctl.CommandController(fmt.Sprintf("addr %d", pad)); err != nil {
		return errors.Wrapf(err, "address adapter %s to pad %d", port, pad)
	}
	pp.pad = pad
	return nil
}

func (p *BusPool) release(port string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pp, ok := p.ports[port]
	if !ok {
		return nil
	}
	pp.refs--
	if pp.refs > 0 {
		return nil
	}
	delete(p.ports, port)
	_ = pp.port.Flush()
	return pp.port.Close()
}
