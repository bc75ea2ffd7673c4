package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/robotalks/racelights/pkg/device"
	"github.com/robotalks/racelights/pkg/framework"
)

func init() {
	device.SetupFlags()
}

func main() {
	flag.Parse()

	conf := device.NewConfig()
	dev := conf.MustNewDevice()
	err := framework.NewRunner().
		HandleSignals().
		Go(framework.NamedRun("main-loop", conf.NewLoop(dev))).
		Wait()
	if err != nil {
		log.Fatalln(err)
	}
}
