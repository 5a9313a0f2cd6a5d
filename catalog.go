package templog

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"gopkg.in/yaml.v3"
)

// ErrNoDevices means the catalog or the operator's selection came up
// empty. Fatal for the logger, irrelevant for the exporter.
var ErrNoDevices = errors.New("no devices found")

// Family identifies a controller model line. Behavior differences
// between families are pure data, looked up in familyTable.
type Family string

const (
	FamilyLS330 Family = "ls330"
	FamilyLS336 Family = "ls336"
)

// Channel is one readable measurement of a device: the command that
// requests it and the unit of the reply.
type Channel struct {
	Label   string
	Command string
	Unit    string
}

// FamilyParams holds everything family-specific: serial line settings
// (used when the device is wired directly to a serial port), the reply
// terminator, the identification command used to verify the
// connection, the per-query timeout, and the channel list in poll
// order.
type FamilyParams struct {
	Mode       *serial.Mode
	Terminator string
	IdentCmd   string
	Timeout    time.Duration
	Channels   []Channel
}

var familyTable = map[Family]FamilyParams{
	FamilyLS330: {
		Mode: &serial.Mode{
			BaudRate: 9600,
			DataBits: 7,
			Parity:   serial.OddParity,
			StopBits: serial.OneStopBit,
		},
		Terminator: "\r\n",
		IdentCmd:   "*IDN?",
		Timeout:    time.Second,
		Channels: []Channel{
			{Label: "setpoint", Command: "SETP?", Unit: "K"},
			{Label: "temperature", Command: "TEMP?", Unit: "K"},
			{Label: "heater", Command: "HEAT?", Unit: "%"},
		},
	},
	FamilyLS336: {
		Mode: &serial.Mode{
			BaudRate: 57600,
			DataBits: 7,
			Parity:   serial.OddParity,
			StopBits: serial.OneStopBit,
		},
		Terminator: "\r\n",
		IdentCmd:   "*IDN?",
		Timeout:    time.Second,
		Channels: []Channel{
			{Label: "A.setpoint", Command: "SETP? 1", Unit: "K"},
			{Label: "A.temperature", Command: "TEMP? 1", Unit: "K"},
			{Label: "B.setpoint", Command: "SETP? 2", Unit: "K"},
			{Label: "B.temperature", Command: "TEMP? 2", Unit: "K"},
		},
	},
}

// Params returns the lookup-table entry for the family.
func (f Family) Params() (FamilyParams, error) {
	p, ok := familyTable[f]
	if !ok {
		return FamilyParams{}, errors.Errorf("unknown device family %q", f)
	}
	return p, nil
}

// Device is one catalog entry. Name is the label samples are stored
// under; Address is an opaque bus resource string (see ParseAddress).
type Device struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Family  Family `yaml:"family"`
}

// Catalog is the set of instruments known to this installation.
type Catalog struct {
	Devices []Device `yaml:"devices"`
}

// DefaultCatalog mirrors the lab's standard hookup: both 330s behind
// one Prologix adapter, the 336 on its own serial port.
func DefaultCatalog() Catalog {
	return Catalog{Devices: []Device{
		{Name: "LS330BB", Address: "GPIB::/dev/ttyUSB0::13::INSTR", Family: FamilyLS330},
		{Name: "LS330SP", Address: "GPIB::/dev/ttyUSB0::12::INSTR", Family: FamilyLS330},
		{Name: "LS336", Address: "ASRL::/dev/ttyUSB1::INSTR", Family: FamilyLS336},
	}}
}

// LoadCatalog reads a YAML device catalog and validates every entry
// against the family table and the address grammar.
func LoadCatalog(path string) (Catalog, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, errors.Wrap(err, "read catalog")
	}

	var cat Catalog
	if err := yaml.Unmarshal(buf, &cat); err != nil {
		return Catalog{}, errors.Wrap(err, "parse catalog")
	}

	if len(cat.Devices) == 0 {
		return Catalog{}, errors.Wrapf(ErrNoDevices, "catalog %s is empty", path)
	}
	for _, d := range cat.Devices {
		if d.Name == "" {
			return Catalog{}, errors.Errorf("catalog %s: device with empty name", path)
		}
		if _, err := d.Family.Params(); err != nil {
			return Catalog{}, errors.Wrapf(err, "catalog %s: device %s", path, d.Name)
		}
		if _, err := ParseAddress(d.Address); err != nil {
			return Catalog{}, errors.Wrapf(err, "catalog %s: device %s", path, d.Name)
		}
	}
	return cat, nil
}

// AddressKind distinguishes a direct serial hookup from an instrument
// behind a GPIB adapter.
type AddressKind int

const (
	KindSerial AddressKind = iota
	KindGPIB
)

// Address is a parsed bus resource string.
type Address struct {
	Kind AddressKind
	Port string // serial port device path
	PAD  int    // GPIB primary address, KindGPIB only
}

// ParseAddress parses the VISA-flavored resource grammar:
//
//	ASRL::<port>::INSTR            direct serial instrument
//	GPIB::<port>::<pad>::INSTR     instrument behind a Prologix
//	                               adapter on <port>
//
// The trailing ::INSTR is optional. Addresses are otherwise opaque;
// nothing attempts to reconcile a replugged device that comes back
// under a different port name.
func ParseAddress(s string) (Address, error) {
	parts := strings.Split(s, "::")
	if len(parts) > 1 && strings.EqualFold(parts[len(parts)-1], "INSTR") {
		parts = parts[:len(parts)-1]
	}

	switch {
	case len(parts) == 2 && strings.EqualFold(parts[0], "ASRL"):
		if parts[1] == "" {
			return Address{}, errors.Errorf("empty serial port in address %q", s)
		}
		return Address{Kind: KindSerial, Port: parts[1]}, nil

	case len(parts) == 3 && strings.EqualFold(parts[0], "GPIB"):
		pad, err := strconv.Atoi(parts[2])
		if err != nil || pad < 0 || pad > 30 {
			return Address{}, errors.Errorf("bad GPIB primary address in %q", s)
		}
		if parts[1] == "" {
			return Address{}, errors.Errorf("empty adapter port in address %q", s)
		}
		return Address{Kind: KindGPIB, Port: parts[1], PAD: pad}, nil
	}
	return Address{}, errors.Errorf("unrecognized resource address %q", s)
}

// ListPorts reports the serial ports currently visible on this host.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "list serial ports")
	}
	return ports, nil
}
