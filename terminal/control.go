package terminal

import "bytes"

// ControlSignal is one of the two reserved in-band bytes.
type ControlSignal byte

const (
	// ProbeRequest (ENQ) asks the peer to answer with ProbeAcknowledge.
	ProbeRequest ControlSignal = 0x05
	// ProbeAcknowledge (ACK) answers a ProbeRequest.
	ProbeAcknowledge ControlSignal = 0x06
)

func (s ControlSignal) String() string {
	switch s {
	case ProbeRequest:
		return "ENQ"
	case ProbeAcknowledge:
		return "ACK"
	}
	return "unknown"
}

func isControlByte(b byte) bool {
	return b == byte(ProbeRequest) || b == byte(ProbeAcknowledge)
}

// InterceptMode decides what happens to ordinary bytes that share a
// delivered chunk with a control byte.
type InterceptMode int

const (
	// InterceptChunk discards the whole chunk from line framing once any
	// control byte is found in it. Decoder state is left untouched.
	InterceptChunk InterceptMode = iota
	// InterceptByte removes only the control bytes and frames the rest.
	InterceptByte
)

func (m InterceptMode) String() string {
	if m == InterceptByte {
		return "per-byte"
	}
	return "per-chunk"
}

// splitControl separates the control signals of a chunk, in order, from
// the bytes that remain subject to framing under mode.
func splitControl(chunk []byte, mode InterceptMode) (signals []ControlSignal, rest []byte) {
	if bytes.IndexByte(chunk, byte(ProbeRequest)) < 0 && bytes.IndexByte(chunk, byte(ProbeAcknowledge)) < 0 {
		return nil, chunk
	}
	for _, b := range chunk {
		if isControlByte(b) {
			signals = append(signals, ControlSignal(b))
		} else if mode == InterceptByte {
			rest = append(rest, b)
		}
	}
	return signals, rest
}
