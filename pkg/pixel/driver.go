package pixel

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// ShowFunc is the func form of Driver.
type ShowFunc func([]Color) error

// Show implements Driver.
func (f ShowFunc) Show(frame []Color) error {
	return f(frame)
}

// Discard drops every frame.
var Discard Driver = ShowFunc(func([]Color) error { return nil })

// LogDriver logs every committed frame through glog.
type LogDriver struct{}

// Show implements Driver.
func (LogDriver) Show(frame []Color) error {
	if c, ok := Uniform(frame); ok {
		glog.Infof("pixels: all %s", c)
		return nil
	}
	items := make([]string, len(frame))
	for n, c := range frame {
		items[n] = c.String()
	}
	glog.Infof("pixels: %s", strings.Join(items, " "))
	return nil
}

// ANSIDriver renders the strip as true-color blocks on a terminal,
// redrawing the same line.
type ANSIDriver struct {
	Writer io.Writer
}

// Show implements Driver.
func (d *ANSIDriver) Show(frame []Color) error {
	var buf bytes.Buffer
	buf.WriteString("\r")
	for _, c := range frame {
		fmt.Fprintf(&buf, "\x1b[48;2;%d;%d;%dm  \x1b[0m", c.R, c.G, c.B)
	}
	_, err := d.Writer.Write(buf.Bytes())
	return err
}

// Recorder keeps every committed frame in memory.
type Recorder struct {
	frames [][]Color
	lock   sync.Mutex
}

// Show implements Driver.
func (r *Recorder) Show(frame []Color) error {
	f := make([]Color, len(frame))
	copy(f, frame)
	r.lock.Lock()
	r.frames = append(r.frames, f)
	r.lock.Unlock()
	return nil
}

// Frames returns all recorded frames.
func (r *Recorder) Frames() [][]Color {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([][]Color(nil), r.frames...)
}

// Last returns the most recent frame, nil if none.
func (r *Recorder) Last() []Color {
	r.lock.Lock()
	defer r.lock.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

// Reset forgets recorded frames.
func (r *Recorder) Reset() {
	r.lock.Lock()
	r.frames = nil
	r.lock.Unlock()
}
