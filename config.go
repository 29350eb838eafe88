package serial

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Parity selects the parity bit.
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// FlowControl selects the handshake.
type FlowControl int

const (
	FlowNone     FlowControl = iota
	FlowHardware             // RTS/CTS
	FlowSoftware             // XON/XOFF
)

// Config holds configuration parameters for opening a serial port.
// Zero DataBits and StopBits mean 8 and 1.
type Config struct {
	Device      string
	BaudRate    int
	DataBits    int
	Parity      Parity
	StopBits    int
	FlowControl FlowControl
}

func (c Config) withDefaults() Config {
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.StopBits == 0 {
		c.StopBits = 1
	}
	return c
}

// Validate reports the first parameter the port cannot be opened with.
func (c Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("serial: no device")
	}
	if _, ok := baudToUnix(c.BaudRate); !ok {
		return fmt.Errorf("serial: unsupported baud rate %d", c.BaudRate)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("serial: unsupported data bits %d", c.DataBits)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return fmt.Errorf("serial: unsupported stop bits %d", c.StopBits)
	}
	if c.Parity < ParityNone || c.Parity > ParityOdd {
		return fmt.Errorf("serial: unsupported parity %d", c.Parity)
	}
	if c.FlowControl < FlowNone || c.FlowControl > FlowSoftware {
		return fmt.Errorf("serial: unsupported flow control %d", c.FlowControl)
	}
	return nil
}

var baudRates = map[int]uint32{
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	2000000: unix.B2000000,
}

func baudToUnix(baud int) (uint32, bool) {
	b, ok := baudRates[baud]
	return b, ok
}

func dataBitsToUnix(bits int) uint32 {
	switch bits {
	case 5:
		return unix.CS5
	case 6:
		return unix.CS6
	case 7:
		return unix.CS7
	default:
		return unix.CS8
	}
}
