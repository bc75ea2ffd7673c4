// Package lightshow runs the time-driven LED animations.
package lightshow

import (
	"math/rand"

	"github.com/golang/glog"

	"github.com/robotalks/racelights/pkg/clock"
	"github.com/robotalks/racelights/pkg/pixel"
)

// Kind identifies a show.
type Kind int

// Shows
const (
	None Kind = iota
	CountdownStarted
	RaceCompleted
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case CountdownStarted:
		return "countdown-started"
	case RaceCompleted:
		return "race-completed"
	}
	return "unknown"
}

// Show timing, in milliseconds.
const (
	CountdownBlinkPeriod  clock.Millis = 500
	SparkleFramePeriod    clock.Millis = 30
	RaceCompletedDuration clock.Millis = 10000
)

// Show is the record of the active show.
type Show struct {
	Kind           Kind
	StartedAt      clock.Millis
	StateStartedAt clock.Millis
	State          int
}

// Controller keeps the single active show and renders it on Tick.
type Controller struct {
	Clock  clock.Clock
	Pixels *pixel.Buffer
	Rand   *rand.Rand

	show Show
}

// NewController creates an idle Controller.
func NewController(clk clock.Clock, pixels *pixel.Buffer, rnd *rand.Rand) *Controller {
	return &Controller{Clock: clk, Pixels: pixels, Rand: rnd}
}

// Show returns the active show record.
func (c *Controller) Show() Show {
	return c.show
}

// Active reports whether a show other than None runs.
func (c *Controller) Active() bool {
	return c.show.Kind != None
}

// Start replaces the active show and renders its first tick.
func (c *Controller) Start(kind Kind) {
	if kind != c.show.Kind {
		glog.V(1).Infof("light show %s -> %s", c.show.Kind, kind)
	}
	c.show = Show{
		Kind:      kind,
		StartedAt: c.Clock.Now(),
		State:     -1,
	}
	c.Tick()
}

// Stop ends the active show. Pixels keep the last frame.
func (c *Controller) Stop() {
	c.Start(None)
}

// Tick advances the active show. Called every main loop iteration.
func (c *Controller) Tick() {
	if c.show.Kind == None {
		return
	}
	if c.show.State < 0 {
		c.show.State = 0
	}
	now := c.Clock.Now()
	switch c.show.Kind {
	case CountdownStarted:
		c.tickCountdown(now)
	case RaceCompleted:
		c.tickRaceCompleted(now)
	}
}

func (c *Controller) tickCountdown(now clock.Millis) {
	if clock.Since(now, c.show.StateStartedAt) < CountdownBlinkPeriod {
		return
	}
	if c.show.State == 1 {
		c.Pixels.SetAll(pixel.Off)
		c.show.State = 0
	} else {
		c.Pixels.SetAll(pixel.Red)
		c.show.State = 1
	}
	c.show.StateStartedAt = now
	c.commit()
}

func (c *Controller) tickRaceCompleted(now clock.Millis) {
	if clock.Since(now, c.show.StartedAt) >= RaceCompletedDuration {
		c.Pixels.SetAll(pixel.DimRed)
		c.commit()
		c.Stop()
		return
	}
	if clock.Since(now, c.show.StateStartedAt) < SparkleFramePeriod {
		return
	}
	c.Pixels.SetAll(pixel.Off)
	c.Pixels.Set(c.Rand.Intn(c.Pixels.Len()), pixel.White)
	c.show.StateStartedAt = now
	c.commit()
}

func (c *Controller) commit() {
	if err := c.Pixels.Commit(); err != nil {
		glog.Warningf("pixel commit error: %v", err)
	}
}
