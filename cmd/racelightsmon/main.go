package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/racelights/pkg/link/mqtt"
	"github.com/robotalks/racelights/pkg/nt1"
)

var (
	mqttURL = "mqtt://localhost:1883/racelights/"
)

func init() {
	if val := os.Getenv("RACELIGHTS_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	opts, prefix, err := mqtt.ClientOptionsFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q := mqtt.NewQueue(opts, prefix)
	q.Sub(mqtt.CmdTopic, printMessage)
	q.Sub(mqtt.MsgTopic, printMessage)
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}

func printMessage(topic string, payload []byte) {
	msg, err := nt1.Decode(payload)
	if err != nil {
		log.Printf("%s: bad message: %v: %s", topic, err, payload)
		return
	}
	if evt, ok := msg.String("evt"); ok {
		log.Printf("%s: [%s/%s] %s", topic, msg.Cmd, evt, payload)
		return
	}
	log.Printf("%s: [%s] %s", topic, msg.Cmd, payload)
}
