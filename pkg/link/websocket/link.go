// Package websocket carries the NT1 link over websocket, one text
// message per line.
package websocket

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/racelights/pkg/framework"
	"github.com/robotalks/racelights/pkg/link"
)

// DefaultOrigin is the Origin header sent when dialing.
const DefaultOrigin = "http://localhost/"

// Conn implements link.Transport over a dialed websocket.Conn.
type Conn struct {
	link.LineBuffer
	WS *websocket.Conn

	writeLock sync.Mutex
}

// Dial connects to a websocket endpoint, e.g. ws://host:8080/link.
func Dial(url string) (*Conn, error) {
	ws, err := websocket.Dial(url, "", DefaultOrigin)
	if err != nil {
		return nil, err
	}
	return &Conn{WS: ws}, nil
}

// WriteLine implements link.Writer.
func (c *Conn) WriteLine(line []byte) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	return websocket.Message.Send(c.WS, string(line))
}

// Run implements Runnable.
func (c *Conn) Run(ctx context.Context) error {
	if ctl := fx.LoopCtlFrom(ctx); ctl != nil && c.OnData == nil {
		c.OnData = ctl.TriggerNext
	}
	return fx.RunWithContextCloser(ctx, c.WS, func() error {
		return receiveLines(&c.LineBuffer, c.WS)
	})
}

func receiveLines(b *link.LineBuffer, ws *websocket.Conn) error {
	for {
		var msg []byte
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			return err
		}
		if !bytes.HasSuffix(msg, []byte{'\n'}) {
			msg = append(msg, '\n')
		}
		b.Write(msg)
	}
}

// Server accepts websocket peers on a path, one at a time. A new peer
// replaces the previous one.
type Server struct {
	link.LineBuffer
	link.PeerWriter
	Listener net.Listener
	Path     string

	lock    sync.Mutex
	current *websocket.Conn
}

// Listen creates a Server on addr serving path.
func Listen(addr, path string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = "/"
	}
	return &Server{Listener: ln, Path: path}, nil
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	if ctl := fx.LoopCtlFrom(ctx); ctl != nil && s.OnData == nil {
		s.OnData = ctl.TriggerNext
	}
	mux := http.NewServeMux()
	mux.Handle(s.Path, websocket.Handler(s.serve))
	srv := &http.Server{Handler: mux}
	return fx.RunWithContextCloser(ctx, srv, func() error {
		return srv.Serve(s.Listener)
	})
}

func (s *Server) serve(ws *websocket.Conn) {
	glog.Infof("link peer connected: %s", ws.Request().RemoteAddr)
	s.lock.Lock()
	if s.current != nil {
		s.current.Close()
	}
	s.current = ws
	s.lock.Unlock()

	s.LineBuffer.Reset()
	w := &messageWriter{ws: ws}
	s.Attach(w)
	err := receiveLines(&s.LineBuffer, ws)
	s.Detach(w)
	glog.Infof("link peer disconnected: %v", err)
}

type messageWriter struct {
	ws *websocket.Conn
}

func (w *messageWriter) Write(p []byte) (int, error) {
	if err := websocket.Message.Send(w.ws, string(bytes.TrimSuffix(p, []byte{'\n'}))); err != nil {
		return 0, err
	}
	return len(p), nil
}
