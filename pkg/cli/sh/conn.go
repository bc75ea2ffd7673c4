package sh

import (
	"context"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/racelights/pkg/framework"
	"github.com/robotalks/racelights/pkg/link"
	"github.com/robotalks/racelights/pkg/nt1"
)

// MaxReceived is the number of device lines kept for the received
// command.
const MaxReceived = 100

// Conn is a link to a device, polled by its own loop.
type Conn struct {
	URL  string
	Link link.Transport
	// AutoAck answers device heartbeat pings.
	AutoAck bool
	// OnLine is called for every line from the device.
	OnLine func(line string)

	Ctx    context.Context
	Cancel func()
	Loop   *fx.Loop

	buf      [link.DefaultCapacity]byte
	received []string
	lock     sync.Mutex
}

// NewConn creates a Conn on an opened link.
func NewConn(url string, tr link.Transport) *Conn {
	return &Conn{URL: url, Link: tr}
}

// Start runs the loop receiving from the device in the background.
func (c *Conn) Start(parent context.Context) {
	c.Ctx, c.Cancel = context.WithCancel(parent)
	c.Loop = fx.NewLoop()
	if r, ok := c.Link.(fx.Runnable); ok {
		c.Loop.AddRunnable(r)
	}
	c.Loop.AddController(fx.PrLvSense, fx.ControlFunc(func(fx.ControlContext) error {
		c.Poll()
		return nil
	}))
	go func() {
		if err := c.Loop.Run(c.Ctx); err != nil && err != context.Canceled {
			glog.Errorf("link %s error: %v", c.URL, err)
		}
	}()
}

// Stop stops the loop.
func (c *Conn) Stop() {
	if c.Cancel != nil {
		c.Cancel()
	}
}

// Poll handles all complete lines from the device.
func (c *Conn) Poll() {
	for c.Link.Available() {
		n, err := c.Link.ReadLine(c.buf[:])
		if err != nil {
			return
		}
		c.handleLine(string(c.buf[:n]))
	}
}

func (c *Conn) handleLine(line string) {
	c.lock.Lock()
	c.received = append(c.received, line)
	if len(c.received) > MaxReceived {
		c.received = c.received[len(c.received)-MaxReceived:]
	}
	c.lock.Unlock()

	if c.OnLine != nil {
		c.OnLine(line)
	}
	if !c.AutoAck {
		return
	}
	if msg, err := nt1.Decode([]byte(line)); err == nil && msg.Cmd == nt1.CmdHandshakeInit {
		if err = c.Ack(); err != nil {
			glog.Warningf("auto ack error: %v", err)
		}
	}
}

// Received returns the kept device lines and forgets them.
func (c *Conn) Received() []string {
	c.lock.Lock()
	defer c.lock.Unlock()
	lines := c.received
	c.received = nil
	return lines
}

// Send writes one request.
func (c *Conn) Send(req *nt1.Request) error {
	line, err := req.Encode()
	if err != nil {
		return err
	}
	return c.SendRaw(string(line))
}

// SendRaw writes a line as is.
func (c *Conn) SendRaw(line string) error {
	glog.V(2).Infof("TX %s", line)
	return c.Link.WriteLine([]byte(line))
}

// Handshake sends handshake_init subscribing to events, all of them if
// none is given.
func (c *Conn) Handshake(events ...string) error {
	if len(events) == 0 {
		events = []string{nt1.EventsAll}
	}
	return c.Send(nt1.NewHandshakeInit(events...))
}

// Ack sends handshake_ack.
func (c *Conn) Ack() error {
	return c.Send(nt1.NewHandshakeAck())
}

// Event sends a race or flag event.
func (c *Conn) Event(evt, typ string) error {
	return c.Send(nt1.NewEvent(evt, typ))
}
