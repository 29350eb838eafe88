package main

import (
	"log/slog"
	"sync"
	"time"

	serial "github.com/luhtfiimanal/go-serial-terminal"
	"github.com/luhtfiimanal/go-serial-terminal/terminal"
)

var modemLines = map[serial.ModemLine]terminal.ControlLine{
	serial.LineCTS: terminal.LineCTS,
	serial.LineDSR: terminal.LineDSR,
	serial.LineRI:  terminal.LineRI,
	serial.LineDCD: terminal.LineDCD,
}

// portConn adapts a serial.Port to terminal.Conn.
type portConn struct {
	*serial.Port
	modemInterval time.Duration
	logger        *slog.Logger
}

// portOpener opens serial ports for a terminal.Controller. A zero
// modemInterval disables control line polling.
func portOpener(modemInterval time.Duration, logger *slog.Logger) terminal.Opener {
	return func(cfg terminal.SessionConfig) (terminal.Conn, error) {
		port, err := serial.Open(portConfig(cfg))
		if err != nil {
			return nil, err
		}
		return &portConn{Port: port, modemInterval: modemInterval, logger: logger.With("device", cfg.Device)}, nil
	}
}

func portConfig(cfg terminal.SessionConfig) serial.Config {
	pc := serial.Config{
		Device:   cfg.Device,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
	}
	switch cfg.Parity {
	case terminal.ParityEven:
		pc.Parity = serial.ParityEven
	case terminal.ParityOdd:
		pc.Parity = serial.ParityOdd
	}
	switch cfg.FlowControl {
	case terminal.FlowHardware:
		pc.FlowControl = serial.FlowHardware
	case terminal.FlowSoftware:
		pc.FlowControl = serial.FlowSoftware
	}
	return pc
}

// Serve runs the read loop on the calling goroutine and the modem poller
// beside it. Both deliver under one lock so h sees a serialized stream.
func (c *portConn) Serve(h terminal.Handler) error {
	var mu sync.Mutex

	if c.modemInterval > 0 {
		go c.WatchModem(c.modemInterval,
			func(line serial.ModemLine, asserted bool) {
				mu.Lock()
				defer mu.Unlock()
				h.HandleControlLine(modemLines[line], asserted)
			},
			func(err error) {
				c.logger.Debug("control line polling stopped", "error", err)
			},
		)
	}

	var readErr error
	c.ReadLoop(
		func(chunk []byte) {
			mu.Lock()
			defer mu.Unlock()
			h.HandleBytes(chunk)
		},
		func(err error) { readErr = err },
	)
	return readErr
}
