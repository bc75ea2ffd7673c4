package dispatch

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/racelights/pkg/clock"
	"github.com/robotalks/racelights/pkg/link"
	"github.com/robotalks/racelights/pkg/lightshow"
	"github.com/robotalks/racelights/pkg/pixel"
	"github.com/robotalks/racelights/pkg/session"
)

type fixture struct {
	clk    *clock.Manual
	pipe   *link.Pipe
	shows  *lightshow.Controller
	pixels *pixel.Buffer
	sess   *session.Manager
	d      *Dispatcher
}

func newFixture() *fixture {
	f := &fixture{clk: clock.NewManual(0), pipe: &link.Pipe{}}
	f.pixels = pixel.NewBuffer(pixel.DefaultCount, pixel.Discard)
	f.shows = lightshow.NewController(f.clk, f.pixels, rand.New(rand.NewSource(1)))
	f.sess = session.NewManager(f.clk, f.pipe, f.pixels, f.shows, "123456789")
	f.d = New(f.pipe, f.sess, f.shows, f.pixels)
	return f
}

func (f *fixture) send(at clock.Millis, line string) []string {
	f.clk.Set(at)
	f.pipe.InjectLine(line)
	f.d.Poll()
	return f.pipe.TakeSent()
}

func (f *fixture) connect() {
	f.send(100, `{"cmd":"handshake_init","protocol":"NT1","events":["*"]}`)
}

func (f *fixture) color(t *testing.T) pixel.Color {
	c, ok := pixel.Uniform(f.pixels.Frame())
	require.True(t, ok)
	return c
}

func requireLog(t *testing.T, sent []string, message string) {
	require.Len(t, sent, 1)
	require.Contains(t, sent[0], `"evt":"log","message":"`+message+`"`)
}

func TestPollIdle(t *testing.T) {
	f := newFixture()
	f.clk.Set(500)
	f.d.Poll()
	require.Empty(t, f.pipe.Sent())

	f.pipe.Inject(`{"cmd":`)
	f.d.Poll()
	require.Empty(t, f.pipe.Sent())
}

func TestNotInitialized(t *testing.T) {
	f := newFixture()
	sent := f.send(100, `{"cmd":"event","evt":"race","type":"race_started"}`)
	requireLog(t, sent, "Error processing message: device not initialized")
	require.Equal(t, session.Disconnected, f.sess.State())
	require.Equal(t, pixel.Off, f.color(t))
}

func TestHandshake(t *testing.T) {
	f := newFixture()
	sent := f.send(100, `{"cmd":"handshake_init","protocol":"NT1","events":["*"]}`)
	require.Equal(t, []string{
		`{"cmd":"handshake_ack","device":"Race Lights","events":["race"],"protocol":"NT1","time":100,"did":"123456789"}`,
	}, sent)
	require.Equal(t, session.Serial, f.sess.State())
	require.True(t, f.sess.LogAllowed())
	require.Equal(t, clock.Millis(100), f.sess.LastHeartbeatRx())
}

func TestHandshakeErrors(t *testing.T) {
	testCases := []struct {
		name    string
		line    string
		message string
	}{
		{"init protocol", `{"cmd":"handshake_init","protocol":"NT0","events":[]}`, "Error processing message: protocol must be NT1"},
		{"init events", `{"cmd":"handshake_init","protocol":"NT1","events":{}}`, "Error processing message: events must be an array"},
		{"ack protocol", `{"cmd":"handshake_ack"}`, "Error processing message: protocol must be NT1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			requireLog(t, f.send(100, tc.line), tc.message)
			require.Equal(t, session.Disconnected, f.sess.State())
			require.Equal(t, clock.Millis(100), f.sess.LastHeartbeatRx())
		})
	}
}

func TestHandshakeAck(t *testing.T) {
	f := newFixture()
	f.connect()
	require.Empty(t, f.send(3000, `{"cmd":"handshake_ack","protocol":"NT1"}`))
	require.Equal(t, clock.Millis(3000), f.sess.LastHeartbeatRx())
}

func TestMalformed(t *testing.T) {
	testCases := []struct {
		name    string
		line    string
		message string
	}{
		{"json", `{"cmd":`, "Error processing message: could not deserialize json"},
		{"object", `[1,2]`, "Error processing message: message must be an object"},
		{"cmd", `{"cmd":5}`, "Error processing message: cmd must be a string"},
		{"evt", `{"cmd":"event","type":"race_started"}`, "Error processing message: evt must be a string"},
		{"type", `{"cmd":"event","evt":"race"}`, "Error processing message: type must be a string"},
		{"evt value", `{"cmd":"event","evt":"lap","type":"x"}`, "Error processing message: evt value is not supported"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.connect()
			requireLog(t, f.send(200, tc.line), tc.message)
		})
	}
}

func TestParseErrorKeepsHeartbeat(t *testing.T) {
	f := newFixture()
	f.connect()
	f.send(5000, `garbage`)
	require.Equal(t, clock.Millis(100), f.sess.LastHeartbeatRx())
	f.send(6000, `{"cmd":"nope"}`)
	require.Equal(t, clock.Millis(6000), f.sess.LastHeartbeatRx())
}

func TestInvalidCommand(t *testing.T) {
	f := newFixture()
	f.connect()
	require.Equal(t, []string{
		`{"cmd":"event","evt":"log","message":"Invalid command","data":{"command":"foo"},"protocol":"NT1","time":200,"did":"123456789"}`,
	}, f.send(200, `{"cmd":"foo"}`))
}

func TestRaceEvents(t *testing.T) {
	f := newFixture()
	f.connect()

	require.Empty(t, f.send(200, `{"cmd":"event","evt":"race","type":"race_staging"}`))
	require.False(t, f.shows.Active())
	require.Equal(t, pixel.Red, f.color(t))

	f.send(1000, `{"cmd":"event","evt":"race","type":"countdown_started"}`)
	require.Equal(t, lightshow.CountdownStarted, f.shows.Show().Kind)

	f.send(2000, `{"cmd":"event","evt":"race","type":"countdown_end_delay_started"}`)
	require.False(t, f.shows.Active())
	require.Equal(t, pixel.Off, f.color(t))

	f.send(3000, `{"cmd":"event","evt":"race","type":"race_started"}`)
	require.Equal(t, pixel.Green, f.color(t))

	f.send(4000, `{"cmd":"event","evt":"race","type":"race_completed"}`)
	require.Equal(t, lightshow.RaceCompleted, f.shows.Show().Kind)

	require.Empty(t, f.send(4100, `{"cmd":"event","evt":"race","type":"lap"}`))
	require.Equal(t, lightshow.RaceCompleted, f.shows.Show().Kind)

	require.Empty(t, f.send(4200, `{"cmd":"event","evt":"flag","type":"red"}`))
	require.Equal(t, lightshow.RaceCompleted, f.shows.Show().Kind)
}

func TestOverlongLine(t *testing.T) {
	f := newFixture()
	f.connect()
	line := `{"cmd":"foo","pad":"` + strings.Repeat("x", link.MaxLineLen) + `"}`
	requireLog(t, f.send(200, line), "Error processing message: could not deserialize json")
	require.False(t, f.pipe.Available())
}

func TestOneLinePerPoll(t *testing.T) {
	f := newFixture()
	f.connect()
	f.pipe.InjectLine(`{"cmd":"a"}`)
	f.pipe.InjectLine(`{"cmd":"b"}`)
	f.d.Poll()
	require.Len(t, f.pipe.TakeSent(), 1)
	f.d.Poll()
	sent := f.pipe.TakeSent()
	require.Len(t, sent, 1)
	require.Contains(t, sent[0], `"command":"b"`)
}
