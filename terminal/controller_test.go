package terminal

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type openerSpy struct {
	conns  []*fakeConn
	cfgs   []SessionConfig
	failed error
}

func (o *openerSpy) open(cfg SessionConfig) (Conn, error) {
	if o.failed != nil {
		return nil, o.failed
	}
	c := newFakeConn()
	o.conns = append(o.conns, c)
	o.cfgs = append(o.cfgs, cfg)
	return c, nil
}

func newTestController(t *testing.T) (*Controller, *openerSpy, *recorder, *clockwork.FakeClock) {
	t.Helper()
	spy := &openerSpy{}
	rec := newRecorder()
	c := clockwork.NewFakeClockAt(epoch)
	return NewController(spy.open, rec, testOptions(c)), spy, rec, c
}

func TestController_RequiresConfigurationAndConnection(t *testing.T) {
	ctl, _, _, _ := newTestController(t)

	require.ErrorIs(t, ctl.Connect(), ErrNotConfigured)
	require.ErrorIs(t, ctl.Send("x"), ErrNotConnected)
	require.ErrorIs(t, ctl.Ping(), ErrNotConnected)
	require.ErrorIs(t, ctl.Disconnect(), ErrNotConnected)
	_, ok := ctl.Parameters()
	require.False(t, ok)
	require.True(t, IsNotConnected(ctl.Send("x")))
}

func TestController_ConfigureRejectsBadSelection(t *testing.T) {
	ctl, _, _, _ := newTestController(t)
	sel := validSelection()
	sel.Terminator = "TOO LONG"

	_, err := ctl.Configure(sel)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	_, ok := ctl.Parameters()
	require.False(t, ok)
}

func TestController_Lifecycle(t *testing.T) {
	ctl, spy, rec, _ := newTestController(t)
	cfg, err := ctl.Configure(validSelection())
	require.NoError(t, err)

	require.NoError(t, ctl.Connect())
	require.True(t, ctl.Connected())
	require.ErrorIs(t, ctl.Connect(), ErrAlreadyConnected)
	_, err = ctl.Configure(validSelection())
	require.ErrorIs(t, err, ErrAlreadyConnected)
	require.Equal(t, []SessionConfig{cfg}, spy.cfgs)

	conn := spy.conns[0]
	conn.deliver([]byte("hel"))
	conn.deliver([]byte("lo\n"))
	require.NoError(t, ctl.Send("hi"))
	require.Equal(t, []string{"hi\n"}, conn.written())

	conn.sync()
	stats, err := ctl.Stats()
	require.NoError(t, err)
	require.Equal(t, uint64(6), stats.BytesReceived)

	require.NoError(t, ctl.Disconnect())
	require.False(t, ctl.Connected())
	require.True(t, conn.fakeLink.closed)

	_, lines, _ := rec.snapshot()
	require.Equal(t, []string{"hello"}, lines)
}

func TestController_ReconnectStartsFreshDecoder(t *testing.T) {
	ctl, spy, rec, _ := newTestController(t)
	_, err := ctl.Configure(validSelection())
	require.NoError(t, err)

	require.NoError(t, ctl.Connect())
	spy.conns[0].deliver([]byte("stale partial"))
	require.NoError(t, ctl.Disconnect())

	require.NoError(t, ctl.Connect())
	spy.conns[1].deliver([]byte("fresh\n"))
	require.NoError(t, ctl.Disconnect())

	_, lines, _ := rec.snapshot()
	require.Equal(t, []string{"fresh"}, lines)
}

func TestController_DisconnectDropsOutstandingProbe(t *testing.T) {
	ctl, spy, rec, c := newTestController(t)
	_, err := ctl.Configure(validSelection())
	require.NoError(t, err)
	require.NoError(t, ctl.Connect())

	require.NoError(t, ctl.Ping())
	require.Equal(t, []string{"\x05"}, spy.conns[0].written())
	require.NoError(t, ctl.Disconnect())

	c.Advance(ProbeTimeout)
	_, _, probes := rec.snapshot()
	require.Empty(t, probes)
}

func TestController_PingOverConnection(t *testing.T) {
	ctl, spy, rec, c := newTestController(t)
	_, err := ctl.Configure(validSelection())
	require.NoError(t, err)
	require.NoError(t, ctl.Connect())
	t.Cleanup(func() { ctl.Disconnect() })

	require.NoError(t, ctl.Ping())
	c.Advance(3 * time.Millisecond)
	spy.conns[0].deliver([]byte{0x06})

	select {
	case r := <-rec.probeCh:
		require.Equal(t, ProbeResult{OK: true, RoundTripMillis: 3}, r)
	case <-time.After(time.Second):
		t.Fatal("no probe result")
	}
}

func TestController_OpenFailure(t *testing.T) {
	ctl, spy, _, _ := newTestController(t)
	spy.failed = errors.New("no such device")
	_, err := ctl.Configure(validSelection())
	require.NoError(t, err)

	err = ctl.Connect()
	var linkErr *LinkError
	require.ErrorAs(t, err, &linkErr)
	require.Equal(t, "open", linkErr.Op)
	require.False(t, ctl.Connected())
}

func TestController_ServeErrorReported(t *testing.T) {
	ctl, spy, rec, _ := newTestController(t)
	_, err := ctl.Configure(validSelection())
	require.NoError(t, err)
	require.NoError(t, ctl.Connect())

	spy.conns[0].serveErr = errWire
	require.NoError(t, ctl.Disconnect())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.linkErrors, 1)
	require.ErrorIs(t, rec.linkErrors[0], errWire)
}
