package terminal

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ProbeTimeout is how long a probe waits for ProbeAcknowledge. It is fixed.
const ProbeTimeout = 5 * time.Second

// PingState is the lifecycle of the most recent probe.
type PingState int

const (
	PingIdle PingState = iota
	PingAwaiting
	PingResolved
	PingFailed
)

func (s PingState) String() string {
	switch s {
	case PingAwaiting:
		return "awaiting"
	case PingResolved:
		return "resolved"
	case PingFailed:
		return "failed"
	}
	return "idle"
}

// ProbeResult is the terminal outcome of one probe. RoundTripMillis is
// meaningful only when OK is true.
type ProbeResult struct {
	OK              bool
	RoundTripMillis int
}

// Probe measures the round trip of an ENQ/ACK exchange. Acknowledge runs
// on the delivery goroutine while the deadline fires on a timer goroutine;
// both resolve through mu, and every deadline carries the generation of
// the probe that armed it so a superseded deadline cannot fail a newer probe.
type Probe struct {
	clock  clockwork.Clock
	send   func([]byte) error
	report func(ProbeResult)

	mu          sync.Mutex
	state       PingState
	outstanding bool
	start       time.Time
	rtt         int
	gen         uint64
	timer       clockwork.Timer
}

// NewProbe returns an idle probe that writes requests with send and
// delivers outcomes to report. report is never called with mu held.
func NewProbe(c clockwork.Clock, send func([]byte) error, report func(ProbeResult)) *Probe {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &Probe{clock: c, send: send, report: report}
}

// Start sends a ProbeRequest and arms the deadline. A probe already
// outstanding is superseded: its deadline stays armed but becomes a no-op.
// If the request cannot be written the probe returns to idle and the
// error is returned; no result is reported.
func (p *Probe) Start() error {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.start = p.clock.Now()
	p.state = PingAwaiting
	p.outstanding = true
	p.mu.Unlock()

	if err := p.send([]byte{byte(ProbeRequest)}); err != nil {
		p.mu.Lock()
		if p.gen == gen {
			p.state = PingIdle
			p.outstanding = false
		}
		p.mu.Unlock()
		return err
	}

	timer := p.clock.AfterFunc(ProbeTimeout, func() { p.expire(gen) })
	p.mu.Lock()
	if p.gen == gen && p.outstanding {
		p.timer = timer
	}
	p.mu.Unlock()
	return nil
}

// Acknowledge resolves the outstanding probe. It reports whether a probe
// was waiting; a late or unsolicited acknowledge is ignored.
func (p *Probe) Acknowledge() bool {
	p.mu.Lock()
	if !p.outstanding {
		p.mu.Unlock()
		return false
	}
	p.outstanding = false
	p.state = PingResolved
	p.rtt = int(p.clock.Now().Sub(p.start) / time.Millisecond)
	if p.rtt < 0 {
		p.rtt = 0
	}
	rtt := p.rtt
	p.stopTimerLocked()
	p.mu.Unlock()

	p.report(ProbeResult{OK: true, RoundTripMillis: rtt})
	return true
}

func (p *Probe) expire(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || !p.outstanding {
		p.mu.Unlock()
		return
	}
	p.outstanding = false
	p.state = PingFailed
	p.timer = nil
	p.mu.Unlock()

	p.report(ProbeResult{OK: false})
}

// Cancel drops any outstanding probe without reporting it.
func (p *Probe) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	if p.outstanding {
		p.outstanding = false
		p.state = PingIdle
	}
	p.stopTimerLocked()
}

// State returns the current state and, when resolved, the round trip in milliseconds.
func (p *Probe) State() (PingState, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == PingResolved {
		return p.state, p.rtt
	}
	return p.state, 0
}

func (p *Probe) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
