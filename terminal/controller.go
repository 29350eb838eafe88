package terminal

import (
	"errors"
	"log/slog"
	"sync"
)

// Controller turns user actions into calls on the terminal core: it holds
// the configuration, opens and closes the link, and owns the Session of
// the current connection. Each Connect builds a new Session, so no
// decoder or probe state survives a reconnect.
type Controller struct {
	open   Opener
	obs    Observer
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	cfg        SessionConfig
	configured bool
	conn       Conn
	session    *Session
	served     chan struct{}
}

func NewController(open Opener, obs Observer, opts Options) *Controller {
	return &Controller{
		open:   open,
		obs:    obs,
		opts:   opts,
		logger: opts.logger(),
	}
}

// Configure validates sel and stores it for the next Connect.
func (c *Controller) Configure(sel Selection) (SessionConfig, error) {
	cfg, err := ApplyConfig(sel)
	if err != nil {
		return SessionConfig{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return SessionConfig{}, ErrAlreadyConnected
	}
	c.cfg = cfg
	c.configured = true
	c.logger.Info("connection parameters set", "summary", cfg.Summary())
	return cfg, nil
}

// Parameters returns the stored configuration and whether one is set.
func (c *Controller) Parameters() (SessionConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg, c.configured
}

// Connected reports whether a link is open.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect opens the link with the stored configuration and starts
// delivering received bytes to a new Session.
func (c *Controller) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return ErrNotConfigured
	}
	if c.conn != nil {
		return ErrAlreadyConnected
	}

	conn, err := c.open(c.cfg)
	if err != nil {
		return &LinkError{Op: "open", Err: err}
	}
	session := NewSession(c.cfg, conn, c.obs, c.opts)
	served := make(chan struct{})
	c.conn, c.session, c.served = conn, session, served

	go func() {
		defer close(served)
		if err := conn.Serve(session); err != nil {
			c.logger.Error("link delivery stopped", "device", c.cfg.Device, "error", err)
			if leo, ok := c.obs.(LinkErrorObserver); ok {
				leo.OnLinkError(&LinkError{Op: "read", Err: err})
			}
		}
	}()
	c.logger.Info("connected", "device", c.cfg.Device)
	return nil
}

// Disconnect drops the current Session and closes the link. It waits for
// the delivery goroutine to finish so no event from the old connection
// arrives after it returns.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	conn, session, served := c.conn, c.session, c.served
	c.conn, c.session, c.served = nil, nil, nil
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	session.Close()
	err := conn.Close()
	<-served
	if err != nil {
		return &LinkError{Op: "close", Err: err}
	}
	c.logger.Info("disconnected", "device", session.Config().Device)
	return nil
}

// Send writes text through the current Session.
func (c *Controller) Send(text string) error {
	s, err := c.current()
	if err != nil {
		return err
	}
	return s.Send(text)
}

// Ping starts a liveness probe on the current Session.
func (c *Controller) Ping() error {
	s, err := c.current()
	if err != nil {
		return err
	}
	return s.Ping()
}

// Stats returns the counters of the current Session.
func (c *Controller) Stats() (Stats, error) {
	s, err := c.current()
	if err != nil {
		return Stats{}, err
	}
	return s.Stats(), nil
}

func (c *Controller) current() (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNotConnected
	}
	return c.session, nil
}

// IsNotConnected reports whether err means there was no open link.
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected) || errors.Is(err, ErrSessionClosed)
}
