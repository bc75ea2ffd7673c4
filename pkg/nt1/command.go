package nt1

import (
	"bytes"
	"encoding/json"
)

// Command is one outbound message of the device. Protocol, Time and DID
// are filled in right before serialization.
type Command struct {
	Cmd      string                 `json:"cmd"`
	Evt      string                 `json:"evt,omitempty"`
	Device   string                 `json:"device,omitempty"`
	Events   []string               `json:"events,omitempty"`
	Message  string                 `json:"message,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Protocol string                 `json:"protocol"`
	Time     uint32                 `json:"time"`
	DID      string                 `json:"did"`
}

// NewHandshake creates a handshake_init or handshake_ack.
func NewHandshake(cmd string) *Command {
	return &Command{Cmd: cmd, Device: DeviceName, Events: []string{EvtRace}}
}

// NewLog creates a log event.
func NewLog(message string) *Command {
	return &Command{Cmd: CmdEvent, Evt: EvtLog, Message: message}
}

// WithData attaches a data object.
func (c *Command) WithData(key string, val interface{}) *Command {
	if c.Data == nil {
		c.Data = make(map[string]interface{})
	}
	c.Data[key] = val
	return c
}

// IsLog reports whether the command is a log event.
func (c *Command) IsLog() bool {
	return c.Evt == EvtLog
}

// Encode serializes the command as one line without terminator.
func (c *Command) Encode() ([]byte, error) {
	return encodeLine(c)
}

// Request is a message sent by the controller to the device.
type Request struct {
	Cmd      string   `json:"cmd"`
	Protocol string   `json:"protocol,omitempty"`
	Events   []string `json:"events,omitempty"`
	Evt      string   `json:"evt,omitempty"`
	Type     string   `json:"type,omitempty"`
}

// NewHandshakeInit creates the controller's handshake_init.
func NewHandshakeInit(events ...string) *Request {
	if events == nil {
		events = []string{}
	}
	return &Request{Cmd: CmdHandshakeInit, Protocol: Protocol, Events: events}
}

// NewHandshakeAck creates the controller's handshake_ack.
func NewHandshakeAck() *Request {
	return &Request{Cmd: CmdHandshakeAck, Protocol: Protocol}
}

// NewEvent creates a race or flag event.
func NewEvent(evt, typ string) *Request {
	return &Request{Cmd: CmdEvent, Evt: evt, Type: typ}
}

// Encode serializes the request as one line without terminator.
func (r *Request) Encode() ([]byte, error) {
	return encodeLine(r)
}

func encodeLine(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
