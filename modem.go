package serial

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// ModemStatus is the state of the modem control inputs.
type ModemStatus struct {
	CTS bool
	DSR bool
	RI  bool
	DCD bool
}

// ModemStatus reads the control inputs with TIOCMGET. Pseudo-terminals do
// not implement it and return an error.
func (p *Port) ModemStatus() (ModemStatus, error) {
	bits, err := unix.IoctlGetInt(p.fd, unix.TIOCMGET)
	if err != nil {
		return ModemStatus{}, fmt.Errorf("get modem status: %w", err)
	}
	return ModemStatus{
		CTS: bits&unix.TIOCM_CTS != 0,
		DSR: bits&unix.TIOCM_DSR != 0,
		RI:  bits&unix.TIOCM_RI != 0,
		DCD: bits&unix.TIOCM_CD != 0,
	}, nil
}

// ModemLine names one control input in a change notification.
type ModemLine string

const (
	LineCTS ModemLine = "CTS"
	LineDSR ModemLine = "DSR"
	LineRI  ModemLine = "RI"
	LineDCD ModemLine = "DCD"
)

// Changes lists the lines that differ between old and s, in a fixed order.
func (s ModemStatus) Changes(old ModemStatus) []ModemLine {
	var out []ModemLine
	if s.CTS != old.CTS {
		out = append(out, LineCTS)
	}
	if s.DSR != old.DSR {
		out = append(out, LineDSR)
	}
	if s.RI != old.RI {
		out = append(out, LineRI)
	}
	if s.DCD != old.DCD {
		out = append(out, LineDCD)
	}
	return out
}

// Asserted reports the state of line.
func (s ModemStatus) Asserted(line ModemLine) bool {
	switch line {
	case LineCTS:
		return s.CTS
	case LineDSR:
		return s.DSR
	case LineRI:
		return s.RI
	case LineDCD:
		return s.DCD
	}
	return false
}

// WatchModem polls the control inputs every interval and calls onChange
// for each line that changed, starting from the state at the first poll.
// It returns after Close, or after passing a status read failure to
// onError.
func (p *Port) WatchModem(interval time.Duration, onChange func(line ModemLine, asserted bool), onError func(error)) {
	last, err := p.ModemStatus()
	if err != nil {
		onError(err)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
		}
		status, err := p.ModemStatus()
		if err != nil {
			select {
			case <-p.done:
			default:
				onError(err)
			}
			return
		}
		for _, line := range status.Changes(last) {
			onChange(line, status.Asserted(line))
		}
		last = status
	}
}
