package terminal

import (
	"fmt"
	"slices"
	"strings"
)

// Parity is the parity bit mode.
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// Letter returns the N/E/O letter used in a "8N1" style format.
func (p Parity) Letter() string {
	switch p {
	case ParityEven:
		return "E"
	case ParityOdd:
		return "O"
	}
	return "N"
}

func (p Parity) String() string {
	switch p {
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	}
	return "none"
}

// FlowControl is the handshake used on the link.
type FlowControl int

const (
	FlowNone FlowControl = iota
	// FlowHardware is RTS/CTS in both directions.
	FlowHardware
	// FlowSoftware is XON/XOFF in both directions.
	FlowSoftware
)

func (f FlowControl) String() string {
	switch f {
	case FlowHardware:
		return "hardware (RTS/CTS)"
	case FlowSoftware:
		return "software (XON/XOFF)"
	}
	return "none"
}

const (
	xon  = 0x11
	xoff = 0x13
)

// StandardBaudRates lists the rates accepted by ApplyConfig.
var StandardBaudRates = []int{
	300, 600, 1200, 2400, 4800, 9600, 19200, 38400, 57600,
	115200, 230400, 460800, 921600,
}

// Selection is the raw connection choice as a user makes it: indices into
// the parity and flow-control lists and a terminator selector. The yaml
// tags let a profile file carry the same fields.
type Selection struct {
	Device      string `yaml:"device"`
	BaudRate    int    `yaml:"baud_rate"`
	DataBits    int    `yaml:"data_bits"`
	Parity      int    `yaml:"parity"`       // 0 none, 1 even, 2 odd
	StopBits    int    `yaml:"stop_bits"`    // 1 or 2
	FlowControl int    `yaml:"flow_control"` // 0 none, 1 hardware, 2 software
	Terminator  string `yaml:"terminator"`   // none, CR, LF, CR-LF or a 1-2 byte literal
	PerByte     bool   `yaml:"per_byte"`     // intercept control bytes per byte instead of per chunk
}

// DefaultSelection is 115200 8N1, no flow control, LF terminated.
func DefaultSelection() Selection {
	return Selection{
		BaudRate:   115200,
		DataBits:   8,
		StopBits:   1,
		Terminator: "LF",
	}
}

// SessionConfig is the validated, immutable parameter set of one
// connection. A new connection needs a new SessionConfig.
type SessionConfig struct {
	Device      string
	BaudRate    int
	DataBits    int
	Parity      Parity
	StopBits    int
	FlowControl FlowControl
	Terminator  Terminator
	Intercept   InterceptMode
}

// ApplyConfig validates a Selection and turns it into a SessionConfig.
// It performs no I/O.
func ApplyConfig(sel Selection) (SessionConfig, error) {
	if strings.TrimSpace(sel.Device) == "" {
		return SessionConfig{}, configErrorf("device", "no port name given")
	}
	if !slices.Contains(StandardBaudRates, sel.BaudRate) {
		return SessionConfig{}, configErrorf("baud rate", "%d is not a standard rate", sel.BaudRate)
	}
	if sel.DataBits < 5 || sel.DataBits > 8 {
		return SessionConfig{}, configErrorf("data bits", "%d, want 5 to 8", sel.DataBits)
	}
	if sel.StopBits != 1 && sel.StopBits != 2 {
		return SessionConfig{}, configErrorf("stop bits", "%d, want 1 or 2", sel.StopBits)
	}
	if sel.Parity < int(ParityNone) || sel.Parity > int(ParityOdd) {
		return SessionConfig{}, configErrorf("parity", "index %d out of range", sel.Parity)
	}
	if sel.FlowControl < int(FlowNone) || sel.FlowControl > int(FlowSoftware) {
		return SessionConfig{}, configErrorf("flow control", "index %d out of range", sel.FlowControl)
	}
	term, err := ParseTerminator(sel.Terminator)
	if err != nil {
		return SessionConfig{}, err
	}
	if FlowControl(sel.FlowControl) == FlowSoftware && (term.Contains(xon) || term.Contains(xoff)) {
		return SessionConfig{}, configErrorf("terminator", "%s collides with XON/XOFF flow control", term)
	}

	cfg := SessionConfig{
		Device:      sel.Device,
		BaudRate:    sel.BaudRate,
		DataBits:    sel.DataBits,
		Parity:      Parity(sel.Parity),
		StopBits:    sel.StopBits,
		FlowControl: FlowControl(sel.FlowControl),
		Terminator:  term,
	}
	if sel.PerByte {
		cfg.Intercept = InterceptByte
	}
	return cfg, nil
}

// Format returns the character format, for example "8N1".
func (c SessionConfig) Format() string {
	return fmt.Sprintf("%d%s%d", c.DataBits, c.Parity.Letter(), c.StopBits)
}

// Summary describes the connection parameters on one line.
func (c SessionConfig) Summary() string {
	return fmt.Sprintf("%s %d bps %s, flow control %s, terminator %s",
		c.Device, c.BaudRate, c.Format(), c.FlowControl, c.Terminator)
}
