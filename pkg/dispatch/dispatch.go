// Package dispatch validates inbound NT1 messages and routes them to the
// session manager or the light shows.
package dispatch

import (
	"github.com/golang/glog"

	"github.com/robotalks/racelights/pkg/link"
	"github.com/robotalks/racelights/pkg/lightshow"
	"github.com/robotalks/racelights/pkg/nt1"
	"github.com/robotalks/racelights/pkg/pixel"
	"github.com/robotalks/racelights/pkg/session"
)

// Shows is the part of the light-show controller driven by race events.
type Shows interface {
	Start(kind lightshow.Kind)
	Stop()
}

// Dispatcher pulls lines from the link and acts on them.
type Dispatcher struct {
	Link     link.Reader
	Session  *session.Manager
	Shows    Shows
	Pixels   *pixel.Buffer
	Protocol session.State

	buf [link.MaxLineLen]byte
}

// New creates a Dispatcher. Handshakes arriving over the link put the
// session into the Serial state.
func New(r link.Reader, s *session.Manager, shows Shows, pixels *pixel.Buffer) *Dispatcher {
	return &Dispatcher{
		Link:     r,
		Session:  s,
		Shows:    shows,
		Pixels:   pixels,
		Protocol: session.Serial,
	}
}

// Poll runs the session timers and handles at most one inbound line.
// It never blocks.
func (d *Dispatcher) Poll() {
	d.Session.Tick()
	if !d.Link.Available() {
		return
	}
	n, err := d.Link.ReadLine(d.buf[:])
	if err != nil {
		if err != link.ErrNoLine {
			glog.Warningf("link read error: %v", err)
		}
		return
	}
	glog.V(2).Infof("RX %s", d.buf[:n])
	d.Handle(d.buf[:n])
	d.buf = [link.MaxLineLen]byte{}
}

// Handle processes one line without its terminator.
func (d *Dispatcher) Handle(line []byte) {
	msg, err := nt1.Decode(line)
	if err != nil {
		d.Session.LogError(err)
		return
	}
	d.Session.OnInboundParsed()

	if d.Session.State() == session.Disconnected &&
		msg.Cmd != nt1.CmdHandshakeInit && msg.Cmd != nt1.CmdHandshakeAck {
		d.Session.LogError(nt1.ErrNotInitialized)
		return
	}

	switch msg.Cmd {
	case nt1.CmdEvent:
		d.handleEvent(msg)
	case nt1.CmdHandshakeInit:
		events, err := msg.HandshakeInit()
		if err != nil {
			d.Session.LogError(err)
			return
		}
		d.Session.OnHandshakeInit(events, d.Protocol)
	case nt1.CmdHandshakeAck:
		if err := msg.CheckProtocol(); err != nil {
			d.Session.LogError(err)
			return
		}
		d.Session.OnHandshakeAck()
	default:
		d.Session.Emit(nt1.NewLog(nt1.InvalidCommandMessage).WithData("command", msg.Cmd))
	}
}

func (d *Dispatcher) handleEvent(msg *nt1.Message) {
	evt, typ, err := msg.Event()
	if err != nil {
		d.Session.LogError(err)
		return
	}
	if evt != nt1.EvtRace {
		return
	}
	switch typ {
	case nt1.RaceStaging:
		d.show(pixel.Red)
	case nt1.CountdownStarted:
		d.Shows.Start(lightshow.CountdownStarted)
	case nt1.CountdownEndDelayStarted:
		d.show(pixel.Off)
	case nt1.RaceStarted:
		d.show(pixel.Green)
	case nt1.RaceCompleted:
		d.Shows.Start(lightshow.RaceCompleted)
	default:
		glog.V(1).Infof("race event %q ignored", typ)
	}
}

// show stops any active show and lights the whole strip once.
func (d *Dispatcher) show(c pixel.Color) {
	d.Shows.Stop()
	d.Pixels.SetAll(c)
	if err := d.Pixels.Commit(); err != nil {
		glog.Warningf("pixel commit error: %v", err)
	}
}
