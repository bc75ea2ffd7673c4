package session

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/racelights/pkg/clock"
	"github.com/robotalks/racelights/pkg/link"
	"github.com/robotalks/racelights/pkg/lightshow"
	"github.com/robotalks/racelights/pkg/nt1"
	"github.com/robotalks/racelights/pkg/pixel"
)

const testDID = "123456789"

type fixture struct {
	clk   *clock.Manual
	pipe  *link.Pipe
	rec   *pixel.Recorder
	shows *lightshow.Controller
	m     *Manager
}

func newFixture() *fixture {
	f := &fixture{clk: clock.NewManual(0), pipe: &link.Pipe{}, rec: &pixel.Recorder{}}
	pixels := pixel.NewBuffer(pixel.DefaultCount, f.rec)
	f.shows = lightshow.NewController(f.clk, pixels, rand.New(rand.NewSource(1)))
	f.m = NewManager(f.clk, f.pipe, pixels, f.shows, testDID)
	return f
}

func (f *fixture) handshake(at clock.Millis, events ...string) {
	f.clk.Set(at)
	f.m.OnInboundParsed()
	f.m.OnHandshakeInit(events, Serial)
}

func (f *fixture) tickAt(at clock.Millis) {
	f.clk.Set(at)
	f.m.Tick()
}

func TestIndicatorBlink(t *testing.T) {
	f := newFixture()
	require.Equal(t, Disconnected, f.m.State())

	f.tickAt(1000)
	require.False(t, f.m.IndicatorOn())
	require.Empty(t, f.rec.Frames())

	f.tickAt(1001)
	require.True(t, f.m.IndicatorOn())
	color, ok := pixel.Uniform(f.rec.Last())
	require.True(t, ok)
	require.Equal(t, pixel.Blue, color)

	f.tickAt(2001)
	require.True(t, f.m.IndicatorOn())
	f.tickAt(2002)
	require.False(t, f.m.IndicatorOn())
	color, _ = pixel.Uniform(f.rec.Last())
	require.Equal(t, pixel.Off, color)
	require.Len(t, f.rec.Frames(), 2)
}

func TestHandshakeInit(t *testing.T) {
	f := newFixture()
	f.tickAt(1500)
	require.True(t, f.m.IndicatorOn())

	f.handshake(1600, nt1.EventsAll)
	require.Equal(t, Serial, f.m.State())
	require.True(t, f.m.LogAllowed())
	require.False(t, f.m.IndicatorOn())
	color, _ := pixel.Uniform(f.rec.Last())
	require.Equal(t, pixel.Off, color)
	require.Equal(t, []string{
		`{"cmd":"handshake_ack","device":"Race Lights","events":["race"],"protocol":"NT1","time":1600,"did":"123456789"}`,
	}, f.pipe.TakeSent())

	frames := len(f.rec.Frames())
	f.tickAt(5000)
	require.Len(t, f.rec.Frames(), frames)
}

func TestHandshakeInitIdempotent(t *testing.T) {
	f := newFixture()
	f.handshake(100, nt1.EventsLog)
	frames := len(f.rec.Frames())
	f.handshake(200)
	require.Equal(t, Serial, f.m.State())
	require.True(t, f.m.LogAllowed())
	require.Len(t, f.pipe.TakeSent(), 2)
	require.Len(t, f.rec.Frames(), frames)
}

func TestLogPolicy(t *testing.T) {
	f := newFixture()
	f.m.Log("boot")
	require.Len(t, f.pipe.TakeSent(), 1)

	f.handshake(100, "race")
	f.pipe.TakeSent()
	require.False(t, f.m.LogAllowed())
	f.m.Log("hidden")
	f.m.LogError(nt1.ErrEvtNotString)
	require.Empty(t, f.pipe.TakeSent())

	f.handshake(200, "race", nt1.EventsLog)
	f.pipe.TakeSent()
	f.clk.Set(250)
	f.m.LogError(nt1.ErrEvtNotString)
	require.Equal(t, []string{
		`{"cmd":"event","evt":"log","message":"Error processing message: evt must be a string","protocol":"NT1","time":250,"did":"123456789"}`,
	}, f.pipe.TakeSent())
}

func TestHeartbeatPing(t *testing.T) {
	f := newFixture()
	f.handshake(100, nt1.EventsAll)
	f.pipe.TakeSent()

	f.tickAt(3433)
	require.Empty(t, f.pipe.Sent())
	f.tickAt(3434)
	sent := f.pipe.TakeSent()
	require.Len(t, sent, 1)
	require.Contains(t, sent[0], `"cmd":"handshake_init"`)

	f.tickAt(6767)
	require.Empty(t, f.pipe.Sent())
	f.tickAt(6768)
	require.Len(t, f.pipe.TakeSent(), 1)

	f.clk.Set(7000)
	f.m.OnInboundParsed()
	f.tickAt(10101)
	require.Equal(t, Serial, f.m.State())
	require.Empty(t, f.pipe.Sent())
	f.tickAt(10400)
	require.Len(t, f.pipe.TakeSent(), 1)
}

func TestHeartbeatTimeout(t *testing.T) {
	f := newFixture()
	f.handshake(100, nt1.EventsAll)
	f.shows.Start(lightshow.CountdownStarted)
	require.True(t, f.shows.Active())

	f.tickAt(10100)
	require.Equal(t, Serial, f.m.State())
	f.tickAt(10101)
	require.Equal(t, Disconnected, f.m.State())
	require.False(t, f.m.LogAllowed())
	require.False(t, f.shows.Active())

	f.tickAt(11102)
	require.True(t, f.m.IndicatorOn())
}

func TestHeartbeatWraparound(t *testing.T) {
	f := newFixture()
	start := ^clock.Millis(0) - 5000
	f.handshake(start, nt1.EventsAll)
	f.tickAt(start + 10000)
	require.Equal(t, Serial, f.m.State())
	f.tickAt(start + 10001)
	require.Equal(t, Disconnected, f.m.State())
}

func TestWriteError(t *testing.T) {
	f := newFixture()
	f.pipe.WriteErr = errors.New("unplugged")
	f.handshake(100)
	require.Equal(t, Serial, f.m.State())
	require.Empty(t, f.pipe.Sent())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "disconnected", Disconnected.String())
	require.Equal(t, "serial", Serial.String())
}
