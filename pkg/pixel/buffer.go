// Package pixel holds the RGB frame of the LED strip and flushes it
// through a Driver.
package pixel

import (
	"errors"
	"fmt"
)

// DefaultCount is the number of pixels on the race lights strip.
const DefaultCount = 8

// Color is an RGB triple.
type Color struct {
	R, G, B byte
}

// RGB creates a Color.
func RGB(r, g, b byte) Color {
	return Color{R: r, G: g, B: b}
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.R, c.G, c.B)
}

// Colors used by the race lights.
var (
	Off    = RGB(0, 0, 0)
	Red    = RGB(200, 0, 0)
	DimRed = RGB(100, 0, 0)
	Green  = RGB(0, 100, 0)
	Blue   = RGB(0, 0, 200)
	White  = RGB(255, 255, 255)
)

// ErrBounds indicates a pixel index outside the strip.
var ErrBounds = errors.New("pixel index out of range")

// Driver pushes a frame to the hardware. Color ordering and bitstream
// timing are the driver's business.
type Driver interface {
	Show(frame []Color) error
}

// Buffer is the frame written by the device logic. Writes only touch
// memory, Commit flushes to the Driver.
type Buffer struct {
	Driver Driver

	pixels []Color
}

// NewBuffer creates a Buffer of count pixels, all off.
func NewBuffer(count int, drv Driver) *Buffer {
	return &Buffer{Driver: drv, pixels: make([]Color, count)}
}

// Len returns the number of pixels.
func (b *Buffer) Len() int {
	return len(b.pixels)
}

// At returns the color of pixel i.
func (b *Buffer) At(i int) Color {
	return b.pixels[i]
}

// Frame returns a copy of the current frame.
func (b *Buffer) Frame() []Color {
	frame := make([]Color, len(b.pixels))
	copy(frame, b.pixels)
	return frame
}

// Set writes one pixel.
func (b *Buffer) Set(i int, c Color) error {
	if i < 0 || i >= len(b.pixels) {
		return ErrBounds
	}
	b.pixels[i] = c
	return nil
}

// SetAll writes every pixel.
func (b *Buffer) SetAll(c Color) {
	for i := range b.pixels {
		b.pixels[i] = c
	}
}

// Commit pushes the frame to the driver.
func (b *Buffer) Commit() error {
	if b.Driver == nil {
		return nil
	}
	return b.Driver.Show(b.Frame())
}

// Uniform reports the color when all pixels share one.
func Uniform(frame []Color) (Color, bool) {
	if len(frame) == 0 {
		return Off, false
	}
	for _, c := range frame[1:] {
		if c != frame[0] {
			return Off, false
		}
	}
	return frame[0], true
}
