package main

import (
	"github.com/robotalks/racelights/pkg/cli/sh"

	_ "github.com/robotalks/racelights/pkg/cli/cmds/race"
)

//go-build: CGO_ENABLED=0

func main() {
	sh.Main()
}
