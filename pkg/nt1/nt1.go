// Package nt1 implements the NT1 line-delimited JSON message schema
// spoken between the race lights and the race-and-countdown controller.
package nt1

import "errors"

// Protocol is the tag carried by every NT1 message.
const Protocol = "NT1"

// DeviceName is advertised in handshakes.
const DeviceName = "Race Lights"

// Commands
const (
	CmdHandshakeInit = "handshake_init"
	CmdHandshakeAck  = "handshake_ack"
	CmdEvent         = "event"
)

// Event kinds carried in "evt".
const (
	EvtRace = "race"
	EvtFlag = "flag"
	EvtLog  = "log"
)

// Subscription names accepted in a handshake "events" list.
const (
	EventsAll = "*"
	EventsLog = "log"
)

// Race event types.
const (
	RaceStaging              = "race_staging"
	CountdownStarted         = "countdown_started"
	CountdownEndDelayStarted = "countdown_end_delay_started"
	RaceStarted              = "race_started"
	RaceCompleted            = "race_completed"
)

// Validation errors. Their text is the reason reported to the peer.
var (
	ErrInvalidJSON    = errors.New("could not deserialize json")
	ErrNotObject      = errors.New("message must be an object")
	ErrCmdNotString   = errors.New("cmd must be a string")
	ErrNotInitialized = errors.New("device not initialized")
	ErrEvtNotString   = errors.New("evt must be a string")
	ErrTypeNotString  = errors.New("type must be a string")
	ErrEvtUnsupported = errors.New("evt value is not supported")
	ErrProtocol       = errors.New("protocol must be NT1")
	ErrEventsNotArray = errors.New("events must be an array")
)

// ErrorLogPrefix starts every log reporting a rejected message.
const ErrorLogPrefix = "Error processing message: "

// ErrorLogMessage formats the log message reporting err.
func ErrorLogMessage(err error) string {
	return ErrorLogPrefix + err.Error()
}

// InvalidCommandMessage is logged for unknown commands.
const InvalidCommandMessage = "Invalid command"
