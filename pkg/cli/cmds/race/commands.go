// Package race adds race and flag event commands to the shell.
package race

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/racelights/pkg/cli/sh"
	"github.com/robotalks/racelights/pkg/nt1"
)

// RaceTypes lists the race event types the lights react to.
var RaceTypes = []string{
	nt1.RaceStaging,
	nt1.CountdownStarted,
	nt1.CountdownEndDelayStarted,
	nt1.RaceStarted,
	nt1.RaceCompleted,
}

var (
	// RaceCmd sends a race event.
	RaceCmd = ishell.Cmd{
		Name: "race",
		Help: "TYPE",
		Completer: func([]string) []string {
			return RaceTypes
		},
		Func: sh.MustBeConnected(func(c *ishell.Context, conn *sh.Conn) {
			typ, err := eventType(c)
			if err == nil {
				err = conn.Event(nt1.EvtRace, typ)
			}
			sh.Report(c, err)
		}),
	}

	// FlagCmd sends a flag event.
	FlagCmd = ishell.Cmd{
		Name: "flag",
		Help: "TYPE",
		Func: sh.MustBeConnected(func(c *ishell.Context, conn *sh.Conn) {
			typ, err := eventType(c)
			if err == nil {
				err = conn.Event(nt1.EvtFlag, typ)
			}
			sh.Report(c, err)
		}),
	}
)

func eventType(c *ishell.Context) (string, error) {
	if len(c.Args) != 1 {
		return "", fmt.Errorf("event type required")
	}
	return c.Args[0], nil
}

func init() {
	sh.AddCmds(
		&RaceCmd,
		&FlagCmd,
	)
}
