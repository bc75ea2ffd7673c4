// Package link provides the line-delimited byte transport between the
// device and the race-and-countdown controller.
package link

import (
	"bytes"
	"errors"
	"sync"
)

// MaxLineLen is the longest inbound line delivered in one piece.
const MaxLineLen = 200

// DefaultCapacity bounds the bytes buffered but not yet read.
const DefaultCapacity = 1024

var (
	// ErrNoLine indicates no complete line is buffered.
	ErrNoLine = errors.New("no line available")
	// ErrNotConnected indicates there is no peer to write to.
	ErrNotConnected = errors.New("not connected")
)

// Reader is the inbound half of a Transport.
type Reader interface {
	// Available reports whether ReadLine can return a line right now.
	Available() bool
	// ReadLine copies the next line, without its terminator, into p.
	// Lines longer than p are truncated and the rest of the line is
	// discarded.
	ReadLine(p []byte) (int, error)
}

// Writer is the outbound half of a Transport.
type Writer interface {
	// WriteLine sends line followed by '\n'.
	WriteLine(line []byte) error
}

// Transport is a line-delimited, non-blocking byte stream.
type Transport interface {
	Reader
	Writer
}

// LineBuffer frames bytes fed by a background producer into lines for
// a non-blocking consumer. The zero value is ready to use.
type LineBuffer struct {
	// MaxLen is the length at which a partial line is considered
	// available. Zero means MaxLineLen.
	MaxLen int
	// Capacity bounds buffered bytes; bytes beyond it are dropped.
	// Zero means DefaultCapacity.
	Capacity int
	// OnData is called after bytes are fed.
	OnData func()

	pending []byte
	discard bool
	lock    sync.Mutex
}

// Write implements io.Writer and feeds received bytes.
func (b *LineBuffer) Write(data []byte) (int, error) {
	n := len(data)
	b.lock.Lock()
	if b.discard {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			data = nil
		} else {
			data, b.discard = data[idx+1:], false
		}
	}
	capacity := b.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	room := capacity - len(b.pending)
	if room < 0 {
		room = 0
	}
	if room < len(data) {
		// The line crossing the capacity is dropped whole, along with
		// the rest of what would not fit.
		tail := data[room:]
		b.pending = append(b.pending, data[:room]...)
		b.pending = b.pending[:bytes.LastIndexByte(b.pending, '\n')+1]
		b.discard = tail[len(tail)-1] != '\n'
	} else {
		b.pending = append(b.pending, data...)
	}
	onData := b.OnData
	b.lock.Unlock()
	if onData != nil {
		onData()
	}
	return n, nil
}

// Available implements Reader.
func (b *LineBuffer) Available() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return bytes.IndexByte(b.pending, '\n') >= 0 || len(b.pending) >= b.maxLen()
}

// ReadLine implements Reader.
func (b *LineBuffer) ReadLine(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	idx := bytes.IndexByte(b.pending, '\n')
	if idx >= 0 && idx <= len(p) {
		n := copy(p, b.pending[:idx])
		b.consume(idx + 1)
		return n, nil
	}
	if len(b.pending) < len(p) && (idx >= 0 || len(b.pending) < b.maxLen()) {
		return 0, ErrNoLine
	}
	n := copy(p, b.pending)
	if idx >= 0 {
		b.consume(idx + 1)
	} else {
		b.consume(len(b.pending))
		b.discard = true
	}
	return n, nil
}

// Reset drops all buffered bytes, e.g. when the peer changes.
func (b *LineBuffer) Reset() {
	b.lock.Lock()
	b.pending, b.discard = nil, false
	b.lock.Unlock()
}

func (b *LineBuffer) consume(n int) {
	rest := copy(b.pending, b.pending[n:])
	b.pending = b.pending[:rest]
}

func (b *LineBuffer) maxLen() int {
	if b.MaxLen > 0 {
		return b.MaxLen
	}
	return MaxLineLen
}

// PeerWriter writes lines to the currently attached peer. Lines written
// while no peer is attached are dropped, like bytes on an unplugged
// serial line.
type PeerWriter struct {
	peer interface{ Write([]byte) (int, error) }
	lock sync.Mutex
}

// Attach sets the current peer.
func (w *PeerWriter) Attach(peer interface{ Write([]byte) (int, error) }) {
	w.lock.Lock()
	w.peer = peer
	w.lock.Unlock()
}

// Detach clears the peer if it is still the current one.
func (w *PeerWriter) Detach(peer interface{ Write([]byte) (int, error) }) {
	w.lock.Lock()
	if w.peer == peer {
		w.peer = nil
	}
	w.lock.Unlock()
}

// Connected reports whether a peer is attached.
func (w *PeerWriter) Connected() bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.peer != nil
}

// WriteLine implements Writer.
func (w *PeerWriter) WriteLine(line []byte) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.peer == nil {
		return nil
	}
	_, err := w.peer.Write(terminated(line))
	return err
}

func terminated(line []byte) []byte {
	out := make([]byte, len(line)+1)
	copy(out, line)
	out[len(line)] = '\n'
	return out
}
