// Package session tracks the connection with the race-and-countdown
// controller: its state, heartbeat timers and event subscriptions.
package session

import (
	"github.com/golang/glog"

	"github.com/robotalks/racelights/pkg/clock"
	"github.com/robotalks/racelights/pkg/link"
	"github.com/robotalks/racelights/pkg/nt1"
	"github.com/robotalks/racelights/pkg/pixel"
)

// State is the connection protocol the peer is reached on.
type State int

// States
const (
	Disconnected State = iota
	Serial
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Serial:
		return "serial"
	}
	return "unknown"
}

// Timing defaults, in milliseconds.
const (
	DefaultHeartbeatTimeout  clock.Millis = 10000
	DefaultHeartbeatInterval              = DefaultHeartbeatTimeout / 3
	DefaultIndicatorPeriod   clock.Millis = 1000
)

// Shows is the part of the light-show controller the session drives.
type Shows interface {
	Stop()
	Active() bool
}

// Manager owns the connection state. It is not safe for concurrent use;
// the main loop is its only caller.
type Manager struct {
	Clock    clock.Clock
	Link     link.Writer
	Pixels   *pixel.Buffer
	Shows    Shows
	DeviceID string

	HeartbeatTimeout  clock.Millis
	HeartbeatInterval clock.Millis
	IndicatorPeriod   clock.Millis

	state      State
	logAllowed bool

	lastHeartbeatRx     clock.Millis
	lastHeartbeatTxPing clock.Millis

	indicatorOn         bool
	indicatorLastToggle clock.Millis
}

// NewManager creates a Disconnected Manager with default timing. All
// timers start at the current instant.
func NewManager(clk clock.Clock, w link.Writer, pixels *pixel.Buffer, shows Shows, deviceID string) *Manager {
	now := clk.Now()
	return &Manager{
		Clock:    clk,
		Link:     w,
		Pixels:   pixels,
		Shows:    shows,
		DeviceID: deviceID,

		HeartbeatTimeout:  DefaultHeartbeatTimeout,
		HeartbeatInterval: DefaultHeartbeatInterval,
		IndicatorPeriod:   DefaultIndicatorPeriod,

		lastHeartbeatRx:     now,
		lastHeartbeatTxPing: now,
		indicatorLastToggle: now,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	return m.state
}

// LogAllowed reports whether the peer subscribed to log events.
func (m *Manager) LogAllowed() bool {
	return m.logAllowed
}

// IndicatorOn reports whether the disconnected indicator is lit.
func (m *Manager) IndicatorOn() bool {
	return m.indicatorOn
}

// LastHeartbeatRx is the instant the last valid message arrived.
func (m *Manager) LastHeartbeatRx() clock.Millis {
	return m.lastHeartbeatRx
}

// OnInboundParsed refreshes the heartbeat. Called once per successfully
// parsed message, before it is dispatched.
func (m *Manager) OnInboundParsed() {
	m.lastHeartbeatRx = m.Clock.Now()
}

// OnHandshakeInit acknowledges the peer on the protocol it was observed
// on, applies its subscriptions and enters that state.
func (m *Manager) OnHandshakeInit(events []string, observed State) {
	m.sendHandshake(nt1.CmdHandshakeAck)
	for _, evt := range events {
		if evt == nt1.EventsLog || evt == nt1.EventsAll {
			m.logAllowed = true
		}
	}
	if m.state != observed {
		m.SetState(observed)
		m.setIndicator(false)
	}
}

// OnHandshakeAck handles the peer's reply to a ping. The heartbeat was
// already refreshed by OnInboundParsed.
func (m *Manager) OnHandshakeAck() {}

// SetState switches the connection state. Entering Disconnected drops
// subscriptions and stops any show.
func (m *Manager) SetState(s State) {
	if s != m.state {
		glog.Infof("connection %s -> %s", m.state, s)
	}
	m.state = s
	if s == Disconnected {
		m.logAllowed = false
		m.Shows.Stop()
	}
}

// Tick runs the disconnected indicator and the heartbeat rules. Called
// every main loop iteration.
func (m *Manager) Tick() {
	now := m.Clock.Now()
	if m.state == Disconnected && !m.Shows.Active() &&
		clock.Since(now, m.indicatorLastToggle) > m.IndicatorPeriod {
		m.setIndicator(!m.indicatorOn)
	}

	if m.state == Disconnected {
		return
	}
	if clock.Since(now, m.lastHeartbeatRx) > m.HeartbeatTimeout {
		glog.Warningf("heartbeat timeout, last message %dms ago", clock.Since(now, m.lastHeartbeatRx))
		m.SetState(Disconnected)
	} else if clock.Since(now, m.lastHeartbeatRx) > m.HeartbeatInterval &&
		clock.Since(now, m.lastHeartbeatTxPing) > m.HeartbeatInterval {
		m.sendHandshake(nt1.CmdHandshakeInit)
		m.lastHeartbeatTxPing = now
	}
}

// Log emits a log event.
func (m *Manager) Log(message string) {
	m.Emit(nt1.NewLog(message))
}

// LogError reports a rejected message to the peer.
func (m *Manager) LogError(err error) {
	m.Log(nt1.ErrorLogMessage(err))
}

// Emit stamps and sends a command. While connected, log events are
// dropped unless the peer subscribed to them. While disconnected
// everything is sent, so boot logs reach whoever listens.
func (m *Manager) Emit(cmd *nt1.Command) {
	if m.state != Disconnected && cmd.IsLog() && !m.logAllowed {
		glog.V(2).Infof("log suppressed: %s", cmd.Message)
		return
	}
	cmd.Protocol = nt1.Protocol
	cmd.Time = uint32(m.Clock.Now())
	cmd.DID = m.DeviceID
	line, err := cmd.Encode()
	if err != nil {
		glog.Errorf("encode %s error: %v", cmd.Cmd, err)
		return
	}
	glog.V(2).Infof("TX %s", line)
	if err = m.Link.WriteLine(line); err != nil {
		glog.Warningf("link write error: %v", err)
	}
}

func (m *Manager) sendHandshake(cmd string) {
	m.Emit(nt1.NewHandshake(cmd))
}

func (m *Manager) setIndicator(on bool) {
	m.indicatorLastToggle = m.Clock.Now()
	m.indicatorOn = on
	if on {
		m.Pixels.SetAll(pixel.Blue)
	} else {
		m.Pixels.SetAll(pixel.Off)
	}
	if err := m.Pixels.Commit(); err != nil {
		glog.Warningf("pixel commit error: %v", err)
	}
}
