// Package device assembles the race lights firmware core.
package device

import (
	"math/rand"

	"github.com/golang/glog"

	"github.com/robotalks/racelights/pkg/clock"
	"github.com/robotalks/racelights/pkg/dispatch"
	"github.com/robotalks/racelights/pkg/framework"
	"github.com/robotalks/racelights/pkg/identity"
	"github.com/robotalks/racelights/pkg/lightshow"
	"github.com/robotalks/racelights/pkg/link"
	"github.com/robotalks/racelights/pkg/pixel"
	"github.com/robotalks/racelights/pkg/session"
)

// SavedDeviceIDMessage is logged at boot when a new device ID is stored.
const SavedDeviceIDMessage = "Saved new Device ID"

// Device owns all firmware state. It is driven by calling Tick, or by a
// framework.Loop after AddToLoop.
type Device struct {
	Clock      clock.Clock
	Link       link.Transport
	Store      identity.Store
	Pixels     *pixel.Buffer
	Shows      *lightshow.Controller
	Session    *session.Manager
	Dispatcher *dispatch.Dispatcher

	rand *rand.Rand
}

// New wires a Device. Setup must be called before the first Tick.
func New(clk clock.Clock, tr link.Transport, store identity.Store, pixels *pixel.Buffer, rnd *rand.Rand) *Device {
	d := &Device{
		Clock:  clk,
		Link:   tr,
		Store:  store,
		Pixels: pixels,
		rand:   rnd,
	}
	d.Shows = lightshow.NewController(clk, pixels, rnd)
	d.Session = session.NewManager(clk, tr, pixels, d.Shows, "")
	d.Dispatcher = dispatch.New(tr, d.Session, d.Shows, pixels)
	return d
}

// ID returns the device ID, empty before Setup.
func (d *Device) ID() string {
	return d.Session.DeviceID
}

// Setup runs the boot sequence: load or create the device ID, then turn
// the strip off. A failure persisting a new ID is only logged, the ID
// is still used until the next boot.
func (d *Device) Setup() {
	id, created, err := identity.LoadOrCreate(d.Store, d.rand)
	if err != nil {
		glog.Warningf("save device ID error: %v", err)
	}
	d.Session.DeviceID = id
	if created {
		glog.Infof("new device ID %s", id)
		d.Session.Log(SavedDeviceIDMessage)
	} else {
		glog.Infof("device ID %s", id)
	}
	d.Pixels.SetAll(pixel.Off)
	if err = d.Pixels.Commit(); err != nil {
		glog.Warningf("pixel commit error: %v", err)
	}
}

// Tick runs one main loop iteration: dispatch, then the active show.
func (d *Device) Tick() {
	d.Dispatcher.Poll()
	d.Shows.Tick()
}

// AddToLoop implements framework.LoopAdder. The link receives in the
// background when it can, and wakes the loop on new data.
func (d *Device) AddToLoop(l *framework.Loop) {
	if r, ok := d.Link.(framework.Runnable); ok {
		l.AddRunnable(r)
	}
	l.AddController(framework.PrLvSense, framework.ControlFunc(func(framework.ControlContext) error {
		d.Dispatcher.Poll()
		return nil
	}))
	l.AddController(framework.PrLvAcuate, framework.ControlFunc(func(framework.ControlContext) error {
		d.Shows.Tick()
		return nil
	}))
}
