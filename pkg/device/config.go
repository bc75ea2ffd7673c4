package device

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/robotalks/racelights/pkg/clock"
	"github.com/robotalks/racelights/pkg/framework"
	"github.com/robotalks/racelights/pkg/identity"
	"github.com/robotalks/racelights/pkg/link/endpoint"
	"github.com/robotalks/racelights/pkg/pixel"
)

// Pixel outputs
const (
	PixelsLog  = "log"
	PixelsANSI = "ansi"
	PixelsNone = "none"
)

// Config defines how a Device is built on a host.
type Config struct {
	// LinkURL locates the controller link, see endpoint.Open.
	LinkURL string
	// StorePath is the file keeping the device ID.
	StorePath string
	// PixelOutput selects where strip frames go.
	PixelOutput string
	PixelCount  int
	// Interval is the main loop period.
	Interval time.Duration
}

var defaultConfig = Config{
	LinkURL:     "stdio:",
	StorePath:   "racelights.yaml",
	PixelOutput: PixelsLog,
	PixelCount:  pixel.DefaultCount,
	Interval:    framework.DefaultInterval,
}

func init() {
	if val := os.Getenv("RACELIGHTS_LINK"); val != "" {
		defaultConfig.LinkURL = val
	}
	if val := os.Getenv("RACELIGHTS_STORE"); val != "" {
		defaultConfig.StorePath = val
	}
	if val := os.Getenv("RACELIGHTS_PIXELS"); val != "" {
		defaultConfig.PixelOutput = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.LinkURL, "link", defaultConfig.LinkURL, "Controller link URL.")
	flag.StringVar(&defaultConfig.StorePath, "store", defaultConfig.StorePath, "File persisting the device ID.")
	flag.StringVar(&defaultConfig.PixelOutput, "pixels", defaultConfig.PixelOutput, "Pixel output: log, ansi or none.")
	flag.IntVar(&defaultConfig.PixelCount, "pixel-count", defaultConfig.PixelCount, "Number of pixels on the strip.")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Main loop period.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewDriver creates the pixel driver selected by PixelOutput.
func (c *Config) NewDriver() (pixel.Driver, error) {
	switch c.PixelOutput {
	case PixelsLog:
		return pixel.LogDriver{}, nil
	case PixelsANSI:
		// stdout may carry the link.
		return &pixel.ANSIDriver{Writer: os.Stderr}, nil
	case PixelsNone:
		return pixel.Discard, nil
	default:
		return nil, fmt.Errorf("unknown pixel output: %q", c.PixelOutput)
	}
}

// NewDevice opens the link and the store and boots a Device.
func (c *Config) NewDevice() (*Device, error) {
	if c.PixelCount <= 0 {
		return nil, fmt.Errorf("invalid pixel count: %d", c.PixelCount)
	}
	drv, err := c.NewDriver()
	if err != nil {
		return nil, err
	}
	tr, err := endpoint.Open(c.LinkURL, endpoint.RoleDevice)
	if err != nil {
		return nil, err
	}
	dev := New(clock.NewBoot(), tr,
		identity.NewFileStore(c.StorePath),
		pixel.NewBuffer(c.PixelCount, drv),
		rand.New(rand.NewSource(time.Now().UnixNano())))
	dev.Setup()
	return dev, nil
}

// MustNewDevice creates a Device and fails on error.
func (c *Config) MustNewDevice() *Device {
	dev, err := c.NewDevice()
	if err != nil {
		log.Fatalln(err)
	}
	return dev
}

// NewLoop creates a main loop running dev.
func (c *Config) NewLoop(dev *Device) *framework.Loop {
	l := framework.NewLoop().Add(dev)
	if c.Interval > 0 {
		l.Interval = c.Interval
	}
	return l
}
