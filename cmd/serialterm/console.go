package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/luhtfiimanal/go-serial-terminal/terminal"
)

// console prints terminal events to a writer. Status messages are set in
// brackets so they stand apart from received text.
type console struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

func (c *console) OnChars(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, text)
}

func (c *console) OnLine(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

func (c *console) OnControlLineChanged(line terminal.ControlLine, asserted bool) {
	state := "off"
	if asserted {
		state = "on"
	}
	c.status("%s %s", line, state)
}

func (c *console) OnProbeResult(r terminal.ProbeResult) {
	if r.OK {
		c.status("ping: round trip %d ms", r.RoundTripMillis)
		return
	}
	c.status("ping: no response within %s", terminal.ProbeTimeout)
}

func (c *console) OnLinkError(err error) {
	c.status("link error: %v", err)
}

func (c *console) status(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "["+format+"]\n", args...)
}

func (c *console) stats(s terminal.Stats) {
	c.status("received %s, sent %s, %s lines, %d probes",
		humanize.Bytes(s.BytesReceived), humanize.Bytes(s.BytesSent), humanize.Comma(int64(s.Lines)), s.Probes)
}
