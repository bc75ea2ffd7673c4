package mqtt

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	fx "github.com/robotalks/racelights/pkg/framework"
	"github.com/robotalks/racelights/pkg/link"
)

// Topic names under the URL prefix. The host publishes to CmdTopic and
// the device publishes to MsgTopic.
const (
	CmdTopic = "cmd"
	MsgTopic = "msg"
)

// ConnectRetryDelay is the wait between failed initial connects.
const ConnectRetryDelay = time.Second

// MaxPendingLines bounds lines kept while the broker is not connected.
const MaxPendingLines = 64

// ErrPendingFull is returned by WriteLine when the broker is not
// connected and MaxPendingLines are already waiting.
var ErrPendingFull = errors.New("mqtt not connected, pending lines full")

// Role selects which side of the topic pair a Link plays.
type Role int

// Roles
const (
	RoleDevice Role = iota
	RoleHost
)

// String implements fmt.Stringer.
func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "device"
}

// DefaultClientID derives a client ID which stays the same across
// restarts of a role on one machine, so the broker replaces the stale
// session. Empty if the machine ID is unavailable, leaving the choice
// to the broker.
func DefaultClientID(role Role) string {
	id, err := machineid.ProtectedID("racelights")
	if err != nil {
		glog.V(1).Infof("machine ID unavailable: %v", err)
		return ""
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return "racelights-" + role.String() + "-" + id
}

// Link implements link.Transport over a Queue. Each MQTT message is
// one line. Lines written while the broker is not connected are kept
// and published in order once it is.
type Link struct {
	link.LineBuffer
	Queue    *Queue
	SubTopic string
	PubTopic string

	publish   func(topic string, payload []byte) paho.Token
	connected bool
	pending   [][]byte
	pubLock   sync.Mutex
}

// NewLink creates a Link from a broker URL.
func NewLink(brokerURL string, role Role) (*Link, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID(DefaultClientID(role))
	}
	l := &Link{Queue: NewQueue(opts, topicPrefix)}
	l.publish = l.Queue.Pub
	l.Queue.OnConnect = l.onConnect
	l.Queue.OnConnectionLost = l.onConnectionLost
	if role == RoleHost {
		l.SubTopic, l.PubTopic = MsgTopic, CmdTopic
	} else {
		l.SubTopic, l.PubTopic = CmdTopic, MsgTopic
	}
	return l, nil
}

// WriteLine implements link.Writer. It does not wait for the broker,
// but reports a publish which already failed.
func (l *Link) WriteLine(line []byte) error {
	payload := append([]byte(nil), line...)
	l.pubLock.Lock()
	defer l.pubLock.Unlock()
	if !l.connected {
		if len(l.pending) >= MaxPendingLines {
			return ErrPendingFull
		}
		l.pending = append(l.pending, payload)
		return nil
	}
	return completedError(l.publish(l.PubTopic, payload))
}

func (l *Link) onConnect() {
	l.pubLock.Lock()
	defer l.pubLock.Unlock()
	for _, payload := range l.pending {
		if err := completedError(l.publish(l.PubTopic, payload)); err != nil {
			glog.Warningf("mqtt publish error: %v", err)
		}
	}
	l.pending = nil
	l.connected = true
}

func (l *Link) onConnectionLost(error) {
	l.pubLock.Lock()
	l.connected = false
	l.pubLock.Unlock()
}

// completedError returns the token error if the token already completed.
func completedError(token paho.Token) error {
	if token.WaitTimeout(0) {
		return token.Error()
	}
	return nil
}

// Run implements Runnable.
func (l *Link) Run(ctx context.Context) error {
	if ctl := fx.LoopCtlFrom(ctx); ctl != nil && l.OnData == nil {
		l.OnData = ctl.TriggerNext
	}
	l.Queue.Sub(l.SubTopic, l.handleMsg)
	defer l.Queue.Close()
	for {
		token := l.Queue.Connect()
		token.Wait()
		if token.Error() == nil {
			break
		}
		glog.Warningf("mqtt connect error: %v", token.Error())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ConnectRetryDelay):
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (l *Link) handleMsg(_ string, payload []byte) {
	if !bytes.HasSuffix(payload, []byte{'\n'}) {
		payload = append(append([]byte(nil), payload...), '\n')
	}
	l.Write(payload)
}
