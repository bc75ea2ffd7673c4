package nt1

import (
	"bytes"
	"encoding/json"
)

// Message is one decoded inbound message whose "cmd" is a string.
// Other fields are validated on access, since which ones matter depends
// on the command.
type Message struct {
	Cmd string

	fields map[string]json.RawMessage
}

// Decode parses the first JSON value of line. Bytes after it are
// ignored.
func Decode(line []byte) (*Message, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(bytes.NewReader(line)).Decode(&raw); err != nil {
		return nil, ErrInvalidJSON
	}
	if raw[0] != '{' {
		return nil, ErrNotObject
	}
	msg := &Message{}
	if err := json.Unmarshal(raw, &msg.fields); err != nil {
		return nil, ErrInvalidJSON
	}
	cmd, ok := msg.String("cmd")
	if !ok {
		return nil, ErrCmdNotString
	}
	msg.Cmd = cmd
	return msg, nil
}

// Has reports whether the field is present, null included.
func (m *Message) Has(name string) bool {
	_, ok := m.fields[name]
	return ok
}

// String returns a string field, false if absent or of another type.
func (m *Message) String(name string) (string, bool) {
	raw, ok := m.fields[name]
	if !ok || len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Strings returns the string entries of an array field, skipping
// entries of other types. ok is false if the field is not an array.
func (m *Message) Strings(name string) (items []string, ok bool) {
	raw, found := m.fields[name]
	if !found || len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var values []json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false
	}
	items = make([]string, 0, len(values))
	for _, val := range values {
		var s string
		if len(val) > 0 && val[0] == '"' && json.Unmarshal(val, &s) == nil {
			items = append(items, s)
		}
	}
	return items, true
}

// CheckProtocol verifies the message is tagged NT1.
func (m *Message) CheckProtocol() error {
	if p, _ := m.String("protocol"); p != Protocol {
		return ErrProtocol
	}
	return nil
}

// HandshakeInit validates a handshake_init and returns the events the
// peer subscribes to.
func (m *Message) HandshakeInit() ([]string, error) {
	if err := m.CheckProtocol(); err != nil {
		return nil, err
	}
	events, ok := m.Strings("events")
	if !ok {
		return nil, ErrEventsNotArray
	}
	return events, nil
}

// Event validates an event command and returns its evt and type.
func (m *Message) Event() (evt, typ string, err error) {
	var ok bool
	if evt, ok = m.String("evt"); !ok {
		return "", "", ErrEvtNotString
	}
	if typ, ok = m.String("type"); !ok {
		return "", "", ErrTypeNotString
	}
	if evt != EvtRace && evt != EvtFlag {
		return "", "", ErrEvtUnsupported
	}
	return evt, typ, nil
}
