// Package endpoint opens a link.Transport from a URL.
package endpoint

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/robotalks/racelights/pkg/link"
	"github.com/robotalks/racelights/pkg/link/mqtt"
	"github.com/robotalks/racelights/pkg/link/websocket"
)

// Role tells which end of the link is being opened. It only matters for
// links where both ends are symmetric peers of a broker.
type Role = mqtt.Role

// Roles
const (
	RoleDevice = mqtt.RoleDevice
	RoleHost   = mqtt.RoleHost
)

// Supported URL schemes.
const (
	SchemeStdio     = "stdio"
	SchemeSerial    = "serial"
	SchemeTCP       = "tcp"
	SchemeTCPListen = "tcp+listen"
	SchemeMQTT      = "mqtt"
	SchemeMQTTS     = "mqtts"
	SchemeWS        = "ws"
	SchemeWSS       = "wss"
	SchemeWSListen  = "ws+listen"
)

// Open creates the transport for rawURL. Transports which receive in
// the background also implement framework.Runnable.
//
//	stdio:
//	serial:///dev/ttyUSB0?baud=115200
//	tcp://host:port
//	tcp+listen://:port
//	mqtt://[user:pass@]host:port/prefix/
//	ws://host:port/path
//	ws+listen://:port/path
func Open(rawURL string, role Role) (link.Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %v", err)
	}
	switch u.Scheme {
	case SchemeStdio:
		return link.NewStdio(), nil
	case SchemeSerial:
		name := u.Path
		if name == "" {
			name = u.Opaque
		}
		if name == "" {
			return nil, fmt.Errorf("serial port name required")
		}
		baud := link.DefaultBaudRate
		if val := u.Query().Get("baud"); val != "" {
			if baud, err = strconv.Atoi(val); err != nil {
				return nil, fmt.Errorf("invalid baud rate %q: %v", val, err)
			}
		}
		return link.OpenSerial(name, baud)
	case SchemeTCP:
		return link.DialTCP(u.Host)
	case SchemeTCPListen:
		return link.ListenTCP(u.Host)
	case SchemeMQTT:
		return mqtt.NewLink(rawURL, role)
	case SchemeMQTTS:
		u.Scheme = "ssl"
		return mqtt.NewLink(u.String(), role)
	case SchemeWS, SchemeWSS:
		return websocket.Dial(rawURL)
	case SchemeWSListen:
		return websocket.Listen(u.Host, u.Path)
	default:
		return nil, fmt.Errorf("unknown link URL scheme: %q", u.Scheme)
	}
}
