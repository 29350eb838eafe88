package terminal

import "io"

// ControlLine is a modem status input reported by the link.
type ControlLine int

const (
	LineCTS ControlLine = iota
	LineDSR
	LineRI
	LineDCD
)

func (l ControlLine) String() string {
	switch l {
	case LineCTS:
		return "CTS"
	case LineDSR:
		return "DSR"
	case LineRI:
		return "RI"
	case LineDCD:
		return "DCD"
	}
	return "unknown"
}

// Observer is notified of everything the terminal decodes. Calls for
// received data arrive on the link's delivery goroutine; probe failures
// arrive on a timer goroutine.
type Observer interface {
	OnChars(text string)
	OnLine(text string)
	OnControlLineChanged(line ControlLine, asserted bool)
	OnProbeResult(result ProbeResult)
}

// LinkErrorObserver is implemented by observers that want link failures
// that have no caller to return to, such as a failed automatic ACK or a
// read loop ending with an error.
type LinkErrorObserver interface {
	OnLinkError(err error)
}

// Handler receives what a Conn delivers. Deliveries must be serialized.
type Handler interface {
	HandleBytes(chunk []byte)
	HandleControlLine(line ControlLine, asserted bool)
}

// Link is the outbound half of a connection.
type Link interface {
	io.Writer
	io.Closer
}

// Conn is an open link that pushes received bytes to a Handler.
type Conn interface {
	Link
	// Serve delivers to h until the connection is closed or fails. It
	// returns nil after Close.
	Serve(h Handler) error
}

// Opener opens a connection with the given parameters.
type Opener func(cfg SessionConfig) (Conn, error)
