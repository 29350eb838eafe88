package terminal

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
)

// Options tune a Session or Controller. The zero value is usable.
type Options struct {
	// Logger receives diagnostics. Nil means slog.Default().
	Logger *slog.Logger

	clock clockwork.Clock
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Stats counts traffic on one session.
type Stats struct {
	BytesReceived uint64
	BytesSent     uint64
	Lines         uint64
	Probes        uint64
}

// Session is one connection's worth of terminal state: the decoder, the
// probe and the outbound write path. It implements Handler so a Conn can
// deliver straight into it.
//
// Every write to the link, whether user text, an automatic ACK or a probe
// request, goes through one mutex so bytes never interleave on the wire.
type Session struct {
	cfg     SessionConfig
	link    Link
	obs     Observer
	logger  *slog.Logger
	decoder *Decoder
	probe   *Probe

	writeMu sync.Mutex
	closed  atomic.Bool

	bytesReceived atomic.Uint64
	bytesSent     atomic.Uint64
	lines         atomic.Uint64
	probes        atomic.Uint64
}

// NewSession binds a fresh decoder and probe to link.
func NewSession(cfg SessionConfig, link Link, obs Observer, opts Options) *Session {
	s := &Session{
		cfg:     cfg,
		link:    link,
		obs:     obs,
		logger:  opts.logger().With("device", cfg.Device),
		decoder: NewDecoder(cfg.Terminator),
	}
	s.probe = NewProbe(opts.clock, s.write, s.reportProbe)
	return s
}

// Config returns the parameters the session was built with.
func (s *Session) Config() SessionConfig { return s.cfg }

// HandleBytes runs control interception and line framing over one
// delivered chunk and notifies the observer.
func (s *Session) HandleBytes(chunk []byte) {
	if s.closed.Load() || len(chunk) == 0 {
		return
	}
	s.bytesReceived.Add(uint64(len(chunk)))

	signals, rest := splitControl(chunk, s.cfg.Intercept)
	for _, sig := range signals {
		s.handleSignal(sig)
	}
	if len(signals) > 0 && s.cfg.Intercept == InterceptChunk {
		s.logger.Debug("chunk consumed by control interception", "bytes", len(chunk), "signals", len(signals))
		return
	}

	for _, ev := range s.decoder.Consume(rest) {
		switch ev.Kind {
		case EventChars:
			s.obs.OnChars(ev.Text())
		case EventLine:
			s.lines.Add(1)
			s.obs.OnLine(ev.Text())
		}
	}
}

func (s *Session) handleSignal(sig ControlSignal) {
	switch sig {
	case ProbeRequest:
		if err := s.write([]byte{byte(ProbeAcknowledge)}); err != nil {
			s.logger.Warn("answering probe request failed", "error", err)
			s.reportLinkError(err)
			return
		}
		s.logger.Debug("answered probe request")
	case ProbeAcknowledge:
		if !s.probe.Acknowledge() {
			s.logger.Debug("ignoring acknowledge with no probe outstanding")
		}
	}
}

// HandleControlLine forwards a modem status change to the observer.
func (s *Session) HandleControlLine(line ControlLine, asserted bool) {
	if s.closed.Load() {
		return
	}
	s.obs.OnControlLineChanged(line, asserted)
}

// Send writes text one line at a time, each followed by the terminator.
// CR-LF and LF both split lines; trailing empty lines are dropped, but an
// empty text still sends a bare terminator. Runes outside ASCII go out as
// '?'. The first failed write stops the send; lines already written stay
// written.
func (s *Session) Send(text string) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if strings.ContainsAny(text, "\x05\x06") {
		return ErrReservedByte
	}
	term := s.cfg.Terminator.Bytes()
	for _, line := range splitLines(text) {
		if err := s.write(append(encodeASCII(line), term...)); err != nil {
			return err
		}
	}
	return nil
}

// Ping starts a liveness probe. The outcome arrives through
// Observer.OnProbeResult within ProbeTimeout.
func (s *Session) Ping() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if err := s.probe.Start(); err != nil {
		return err
	}
	s.probes.Add(1)
	return nil
}

// PingState reports the state of the latest probe.
func (s *Session) PingState() (PingState, int) { return s.probe.State() }

// Close detaches the session: later deliveries are ignored and an
// outstanding probe is dropped without a result. The link is not closed.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.probe.Cancel()
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		BytesReceived: s.bytesReceived.Load(),
		BytesSent:     s.bytesSent.Load(),
		Lines:         s.lines.Load(),
		Probes:        s.probes.Load(),
	}
}

func (s *Session) write(p []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.writeMu.Lock()
	n, err := s.link.Write(p)
	s.writeMu.Unlock()
	s.bytesSent.Add(uint64(n))
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &LinkError{Op: "write", Err: err}
	}
	return nil
}

func (s *Session) reportProbe(r ProbeResult) {
	if r.OK {
		s.logger.Info("probe acknowledged", "rtt_ms", r.RoundTripMillis)
	} else {
		s.logger.Warn("probe timed out", "timeout", ProbeTimeout)
	}
	s.obs.OnProbeResult(r)
}

func (s *Session) reportLinkError(err error) {
	if leo, ok := s.obs.(LinkErrorObserver); ok {
		leo.OnLinkError(err)
	}
}

func splitLines(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
