package pixel

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuffer(t *testing.T) {
	var rec Recorder
	b := NewBuffer(DefaultCount, &rec)
	require.Equal(t, DefaultCount, b.Len())

	b.SetAll(Red)
	require.Empty(t, rec.Frames(), "writes must not reach the driver before commit")
	require.NoError(t, b.Commit())
	c, ok := Uniform(rec.Last())
	require.True(t, ok)
	require.Equal(t, Red, c)

	require.NoError(t, b.Set(3, White))
	require.Equal(t, ErrBounds, b.Set(DefaultCount, White))
	require.Equal(t, ErrBounds, b.Set(-1, White))
	require.NoError(t, b.Commit())
	last := rec.Last()
	require.Equal(t, White, last[3])
	require.Equal(t, Red, last[0])
	_, ok = Uniform(last)
	require.False(t, ok)
	require.Len(t, rec.Frames(), 2)
}

func TestBufferFrameIsCopy(t *testing.T) {
	b := NewBuffer(2, nil)
	frame := b.Frame()
	frame[0] = White
	require.Equal(t, Off, b.At(0))
	require.NoError(t, b.Commit())
}

func TestCommitError(t *testing.T) {
	failure := errors.New("bus fault")
	b := NewBuffer(1, ShowFunc(func([]Color) error { return failure }))
	require.Equal(t, failure, b.Commit())
}

func TestANSIDriver(t *testing.T) {
	var out bytes.Buffer
	d := &ANSIDriver{Writer: &out}
	require.NoError(t, d.Show([]Color{Blue, Off}))
	require.Equal(t, "\r\x1b[48;2;0;0;200m  \x1b[0m\x1b[48;2;0;0;0m  \x1b[0m", out.String())
}

func TestUniform(t *testing.T) {
	_, ok := Uniform(nil)
	require.False(t, ok)
	c, ok := Uniform([]Color{Green, Green})
	require.True(t, ok)
	require.Equal(t, Green, c)
}
