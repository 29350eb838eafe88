package terminal

import (
	"strings"
	"unicode/utf8"
)

// EventKind distinguishes unframed chunks from complete lines.
type EventKind int

const (
	// EventChars carries a received chunk verbatim, produced only when no
	// terminator is configured.
	EventChars EventKind = iota
	// EventLine carries one complete line without its terminator.
	EventLine
)

// Event is one unit of decoded output.
type Event struct {
	Kind  EventKind
	Bytes []byte
}

// Text returns the event payload decoded as ASCII.
func (e Event) Text() string { return decodeASCII(e.Bytes) }

// Decoder frames a byte stream into lines. It keeps the partial line and
// the last consumed byte across calls, so a terminator may be split over
// any number of deliveries.
//
// A Decoder is not safe for concurrent use; deliveries on one connection
// are expected to be serialized. Use a new Decoder for every connection.
type Decoder struct {
	term Terminator
	acc  []byte
	last byte
	// tailIsFirst is set when last is the first terminator byte and was
	// appended to acc, so it is still there to be trimmed.
	tailIsFirst bool
}

func NewDecoder(t Terminator) *Decoder {
	return &Decoder{term: t}
}

// Consume processes one delivered chunk and returns the events it completes.
func (d *Decoder) Consume(chunk []byte) []Event {
	if len(chunk) == 0 {
		return nil
	}
	if d.term.kind == TerminatorNone {
		return []Event{{Kind: EventChars, Bytes: append([]byte(nil), chunk...)}}
	}

	var events []Event
	t0, t1 := d.term.bytes[0], d.term.bytes[1]
	for _, b := range chunk {
		switch {
		case d.term.kind == TerminatorSingle && b == t0:
			events = append(events, d.drain())
			d.tailIsFirst = false
		case d.term.kind == TerminatorDouble && b == t1 && d.last == t0 && d.tailIsFirst:
			d.acc = d.acc[:len(d.acc)-1]
			events = append(events, d.drain())
			d.tailIsFirst = false
		default:
			d.acc = append(d.acc, b)
			d.tailIsFirst = d.term.kind == TerminatorDouble && b == t0
		}
		d.last = b
	}
	return events
}

// Pending returns a copy of the unterminated bytes held so far.
func (d *Decoder) Pending() []byte {
	return append([]byte(nil), d.acc...)
}

func (d *Decoder) drain() Event {
	line := make([]byte, len(d.acc))
	copy(line, d.acc)
	d.acc = d.acc[:0]
	return Event{Kind: EventLine, Bytes: line}
}

// decodeASCII maps bytes above 0x7f to U+FFFD so they stay visible
// without being mistaken for UTF-8.
func decodeASCII(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c > 0x7f {
			sb.WriteRune(utf8.RuneError)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// encodeASCII replaces every rune outside 7-bit ASCII with '?'.
func encodeASCII(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0x7f {
			out = append(out, '?')
			continue
		}
		out = append(out, byte(r))
	}
	return out
}
