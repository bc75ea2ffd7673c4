package link

import (
	"context"
	"io"
	"net"
	"os"
	"sync"

	"github.com/golang/glog"
	"go.bug.st/serial"

	fx "github.com/robotalks/racelights/pkg/framework"
)

// DefaultBaudRate is the serial speed of the race lights.
const DefaultBaudRate = 115200

const readChunkSize = 256

// Stream is a Transport over any io.ReadWriter, such as a serial port or
// a TCP connection. Run must be running to receive.
type Stream struct {
	LineBuffer
	Conn io.ReadWriter

	writeLock sync.Mutex
}

// NewStream creates a Stream over rw.
func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{Conn: rw}
}

// NewStdio creates a Stream on stdin/stdout.
func NewStdio() *Stream {
	return NewStream(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout})
}

// OpenSerial opens a serial port at baud, 8N1.
func OpenSerial(name string, baud int) (*Stream, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	return NewStream(port), nil
}

// DialTCP connects to a TCP peer.
func DialTCP(addr string) (*Stream, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewStream(conn), nil
}

// WriteLine implements Writer.
func (s *Stream) WriteLine(line []byte) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	_, err := s.Conn.Write(terminated(line))
	return err
}

// Run implements Runnable.
func (s *Stream) Run(ctx context.Context) error {
	s.notifyLoop(ctx)
	if closer, ok := s.Conn.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, func() error {
			return copyLines(&s.LineBuffer, s.Conn)
		})
	}
	return fx.RunWithContext(ctx, func() error {
		return copyLines(&s.LineBuffer, s.Conn)
	})
}

func (s *Stream) notifyLoop(ctx context.Context) {
	if ctl := fx.LoopCtlFrom(ctx); ctl != nil && s.OnData == nil {
		s.OnData = ctl.TriggerNext
	}
}

func copyLines(b *LineBuffer, r io.Reader) error {
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b.Write(buf[:n])
		}
		if err != nil {
			return err
		}
	}
}

// Listener accepts TCP peers one at a time. Each accepted connection
// replaces the previous one.
type Listener struct {
	LineBuffer
	PeerWriter
	Listener net.Listener
}

// ListenTCP creates a Listener on addr.
func ListenTCP(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{Listener: ln}, nil
}

// Run implements Runnable.
func (l *Listener) Run(ctx context.Context) error {
	if ctl := fx.LoopCtlFrom(ctx); ctl != nil && l.OnData == nil {
		l.OnData = ctl.TriggerNext
	}
	return fx.RunWithContextCloser(ctx, l.Listener, func() error {
		var current net.Conn
		var lock sync.Mutex
		defer func() {
			lock.Lock()
			if current != nil {
				current.Close()
			}
			lock.Unlock()
		}()
		for {
			conn, err := l.Listener.Accept()
			if err != nil {
				return err
			}
			glog.Infof("link peer connected: %s", conn.RemoteAddr())
			lock.Lock()
			if current != nil {
				current.Close()
			}
			current = conn
			lock.Unlock()
			l.LineBuffer.Reset()
			l.Attach(conn)
			go func(conn net.Conn) {
				err := copyLines(&l.LineBuffer, conn)
				l.Detach(conn)
				glog.Infof("link peer %s disconnected: %v", conn.RemoteAddr(), err)
			}(conn)
		}
	})
}
