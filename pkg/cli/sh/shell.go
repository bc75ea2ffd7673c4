// Package sh provides an interactive shell simulating the race-and-countdown
// controller against a race lights device.
package sh

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/racelights/pkg/link/endpoint"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	AutoAck     bool
	LinkURL     string

	Shell *ishell.Shell
	Conn  *Conn
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

// ErrNotConnected is reported by commands which need a device link.
var ErrNotConnected = errors.New("not connected")

var (
	// flags

	evalOnly = false
	autoAck  = true
	linkURL  = "tcp://localhost:7000"

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&HandshakeCmd,
		&AckCmd,
		&SendCmd,
		&ReceivedCmd,
		&WaitCmd,
	}
)

func init() {
	if val := os.Getenv("RNC_LINK"); val != "" {
		linkURL = val
	}
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&autoAck, "auto-ack", autoAck, "Reply handshake_ack to device heartbeat pings.")
	flag.StringVar(&linkURL, "link", linkURL, "Device link URL.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New() *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		AutoAck:     autoAck,
		LinkURL:     linkURL,

		Shell: ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context, conn *Conn)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		conn := ShellFrom(c).Conn
		if conn == nil {
			c.Err(ErrNotConnected)
			return
		}
		fn(c, conn)
	}
}

// Report prints err if any, or OK.
func Report(c *ishell.Context, err error) {
	if err != nil {
		c.Err(err)
		return
	}
	c.Println("OK")
}

// Connect opens the device link at url.
func (s *Shell) Connect(url string) error {
	tr, err := endpoint.Open(url, endpoint.RoleHost)
	if err != nil {
		return err
	}
	conn := NewConn(url, tr)
	conn.AutoAck = s.AutoAck
	if s.Interactive {
		conn.OnLine = func(line string) {
			s.Shell.Println("< " + line)
		}
	}
	s.Disconnect()
	s.Conn = conn
	conn.Start(context.Background())
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", url))
	return nil
}

// Disconnect closes current link.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Stop()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.LinkURL != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.LinkURL)
		}
		if err := s.Connect(s.LinkURL); err != nil {
			log.Fatalf("connect %q failed: %v", s.LinkURL, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd opens a device link.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[LINK_URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			url := s.LinkURL
			if len(c.Args) > 0 {
				url = c.Args[0]
			}
			if url == "" {
				c.Err(fmt.Errorf("link URL required"))
				return
			}
			if err := s.Connect(url); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the device link.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// HandshakeCmd sends handshake_init.
	HandshakeCmd = ishell.Cmd{
		Name:    "handshake",
		Aliases: []string{"hs"},
		Help:    "[EVENTS...]",
		Func: MustBeConnected(func(c *ishell.Context, conn *Conn) {
			Report(c, conn.Handshake(c.Args...))
		}),
	}

	// AckCmd sends handshake_ack.
	AckCmd = ishell.Cmd{
		Name: "ack",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context, conn *Conn) {
			Report(c, conn.Ack())
		}),
	}

	// SendCmd sends a raw line.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "JSON",
		Func: MustBeConnected(func(c *ishell.Context, conn *Conn) {
			Report(c, conn.SendRaw(strings.Join(c.Args, " ")))
		}),
	}

	// ReceivedCmd dumps lines received from the device.
	ReceivedCmd = ishell.Cmd{
		Name:    "received",
		Aliases: []string{"r"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context, conn *Conn) {
			for _, line := range conn.Received() {
				c.Println(line)
			}
		}),
	}

	// WaitCmd pauses, letting device lines arrive in evaluation mode.
	WaitCmd = ishell.Cmd{
		Name: "wait",
		Help: "MILLISECONDS",
		Func: func(c *ishell.Context) {
			ms := 1000
			if len(c.Args) > 0 {
				var err error
				if ms, err = strconv.Atoi(c.Args[0]); err != nil {
					c.Err(err)
					return
				}
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New().Run(flag.Args()...)
}
