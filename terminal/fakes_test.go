package terminal

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

var errWire = errors.New("wire cut")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(c clockwork.Clock) Options {
	return Options{Logger: quietLogger(), clock: c}
}

// fakeLink records every write. Writes from failAt on (1-based) fail.
type fakeLink struct {
	mu     sync.Mutex
	writes [][]byte
	failAt int
	closed bool
}

func (l *fakeLink) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failAt > 0 && len(l.writes)+1 >= l.failAt {
		return 0, errWire
	}
	l.writes = append(l.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *fakeLink) written() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.writes))
	for i, w := range l.writes {
		out[i] = string(w)
	}
	return out
}

type controlChange struct {
	line     ControlLine
	asserted bool
}

type recorder struct {
	mu         sync.Mutex
	chars      []string
	lines      []string
	controls   []controlChange
	probes     []ProbeResult
	linkErrors []error
	probeCh    chan ProbeResult
}

func newRecorder() *recorder {
	return &recorder{probeCh: make(chan ProbeResult, 8)}
}

func (r *recorder) OnChars(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chars = append(r.chars, text)
}

func (r *recorder) OnLine(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, text)
}

func (r *recorder) OnControlLineChanged(line ControlLine, asserted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controls = append(r.controls, controlChange{line, asserted})
}

func (r *recorder) OnProbeResult(result ProbeResult) {
	r.mu.Lock()
	r.probes = append(r.probes, result)
	r.mu.Unlock()
	r.probeCh <- result
}

// nextProbe waits for a probe result; timeouts report from a timer goroutine.
func (r *recorder) nextProbe(t *testing.T) ProbeResult {
	t.Helper()
	select {
	case result := <-r.probeCh:
		return result
	case <-time.After(time.Second):
		t.Fatal("no probe result")
		return ProbeResult{}
	}
}

func (r *recorder) OnLinkError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.linkErrors = append(r.linkErrors, err)
}

func (r *recorder) snapshot() (chars, lines []string, probes []ProbeResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.chars...), append([]string(nil), r.lines...), append([]ProbeResult(nil), r.probes...)
}

// fakeConn is a Conn whose deliveries are driven by the test.
type fakeConn struct {
	fakeLink
	deliveries chan []byte
	serveErr   error
	done       chan struct{}
	closeOnce  sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{deliveries: make(chan []byte), done: make(chan struct{})}
}

func (c *fakeConn) Serve(h Handler) error {
	for {
		select {
		case chunk := <-c.deliveries:
			h.HandleBytes(chunk)
		case <-c.done:
			return c.serveErr
		}
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.fakeLink.Close()
}

// deliver blocks until Serve has taken the chunk.
func (c *fakeConn) deliver(chunk []byte) {
	c.deliveries <- chunk
}

// sync returns once every earlier delivery has been handled.
func (c *fakeConn) sync() {
	c.deliveries <- nil
}
