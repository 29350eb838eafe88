package terminal

import (
	"fmt"
	"strings"
)

// TerminatorKind says how many bytes close a line.
type TerminatorKind int

const (
	TerminatorNone TerminatorKind = iota
	TerminatorSingle
	TerminatorDouble
)

// Terminator is the byte sequence that ends a line. The zero value means
// no framing at all.
type Terminator struct {
	kind  TerminatorKind
	bytes [2]byte
	name  string
}

// Single returns a one-byte terminator.
func Single(b byte) Terminator {
	return Terminator{kind: TerminatorSingle, bytes: [2]byte{b}, name: quoteBytes([]byte{b})}
}

// Double returns a two-byte terminator.
func Double(b0, b1 byte) Terminator {
	return Terminator{kind: TerminatorDouble, bytes: [2]byte{b0, b1}, name: quoteBytes([]byte{b0, b1})}
}

var namedTerminators = map[string]Terminator{
	"":      {},
	"NONE":  {},
	"CR":    {kind: TerminatorSingle, bytes: [2]byte{'\r'}, name: "CR"},
	"LF":    {kind: TerminatorSingle, bytes: [2]byte{'\n'}, name: "LF"},
	"CR-LF": {kind: TerminatorDouble, bytes: [2]byte{'\r', '\n'}, name: "CR-LF"},
	"CRLF":  {kind: TerminatorDouble, bytes: [2]byte{'\r', '\n'}, name: "CR-LF"},
}

// ParseTerminator maps a selector to a Terminator. The names none, CR, LF
// and CR-LF are matched case-insensitively; any other selector is taken as
// a literal of one or two ASCII bytes. Longer literals are rejected.
func ParseTerminator(selector string) (Terminator, error) {
	if t, ok := namedTerminators[strings.ToUpper(selector)]; ok {
		return t, nil
	}
	b := []byte(selector)
	for _, c := range b {
		switch {
		case c > 0x7f:
			return Terminator{}, configErrorf("terminator", "%q is not 7-bit ASCII", selector)
		case isControlByte(c):
			return Terminator{}, configErrorf("terminator", "%q contains reserved byte 0x%02x", selector, c)
		}
	}
	switch len(b) {
	case 1:
		return Single(b[0]), nil
	case 2:
		return Double(b[0], b[1]), nil
	default:
		return Terminator{}, configErrorf("terminator", "literal %q is %d bytes, want 1 or 2", selector, len(b))
	}
}

func (t Terminator) Kind() TerminatorKind { return t.kind }

// Bytes returns the sequence appended to every outbound line.
func (t Terminator) Bytes() []byte {
	switch t.kind {
	case TerminatorSingle:
		return []byte{t.bytes[0]}
	case TerminatorDouble:
		return []byte{t.bytes[0], t.bytes[1]}
	}
	return nil
}

// Contains reports whether b is part of the terminator.
func (t Terminator) Contains(b byte) bool {
	for _, c := range t.Bytes() {
		if c == b {
			return true
		}
	}
	return false
}

func (t Terminator) String() string {
	if t.kind == TerminatorNone {
		return "none"
	}
	return t.name
}

func quoteBytes(b []byte) string {
	return strings.Trim(fmt.Sprintf("%q", b), `"`)
}
