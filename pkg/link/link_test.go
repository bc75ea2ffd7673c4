package link

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func readLine(t *testing.T, r Reader) string {
	var buf [MaxLineLen]byte
	require.True(t, r.Available())
	n, err := r.ReadLine(buf[:])
	require.NoError(t, err)
	return string(buf[:n])
}

func TestLineBuffer(t *testing.T) {
	testCases := []struct {
		name   string
		input  []string
		expect []string
	}{
		{"single line", []string{"{\"cmd\":\"x\"}\n"}, []string{"{\"cmd\":\"x\"}"}},
		{"split writes", []string{"ab", "c\nde", "f\n"}, []string{"abc", "def"}},
		{"empty line", []string{"\n"}, []string{""}},
		{"crlf kept", []string{"a\r\n"}, []string{"a\r"}},
		{"exact max", []string{strings.Repeat("x", MaxLineLen) + "\nok\n"}, []string{strings.Repeat("x", MaxLineLen), "ok"}},
		{"truncated", []string{strings.Repeat("y", MaxLineLen+50) + "\nok\n"}, []string{strings.Repeat("y", MaxLineLen), "ok"}},
		{"truncated across writes", []string{strings.Repeat("z", MaxLineLen+10), strings.Repeat("z", 10), "\nok\n"}, []string{strings.Repeat("z", MaxLineLen), "ok"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var b LineBuffer
			for _, in := range tc.input {
				b.Write([]byte(in))
			}
			var got []string
			for b.Available() {
				got = append(got, readLine(t, &b))
			}
			require.Equal(t, tc.expect, got)
		})
	}
}

func TestLineBufferPartial(t *testing.T) {
	var b LineBuffer
	b.Write([]byte("{\"cmd\""))
	require.False(t, b.Available())
	var buf [MaxLineLen]byte
	_, err := b.ReadLine(buf[:])
	require.Equal(t, ErrNoLine, err)
	b.Write([]byte(":\"a\"}\n"))
	require.Equal(t, "{\"cmd\":\"a\"}", readLine(t, &b))
	require.False(t, b.Available())
}

func TestLineBufferCapacity(t *testing.T) {
	notified := 0
	b := LineBuffer{Capacity: 8, OnData: func() { notified++ }}
	b.Write([]byte("abc\ndefghijk\n"))
	require.Equal(t, 1, notified)
	require.Equal(t, "abc", readLine(t, &b))
	require.False(t, b.Available(), "bytes beyond capacity are dropped")
	b.Reset()
	b.Write([]byte("x\n"))
	require.Equal(t, "x", readLine(t, &b))
}

func TestLineBufferCapacityCut(t *testing.T) {
	b := LineBuffer{Capacity: 64}
	long := strings.Repeat("a", 60)
	b.Write([]byte(long + "\n{\"cmd\":\"foo\"}\n"))
	require.Equal(t, long, readLine(t, &b))
	require.False(t, b.Available(), "line crossing the capacity is dropped")
	b.Write([]byte("{\"cmd\":\"bar\"}\n"))
	require.Equal(t, "{\"cmd\":\"bar\"}", readLine(t, &b))
	require.False(t, b.Available())

	b.Write([]byte(long + "\n{\"cmd\":\"f"))
	require.Equal(t, long, readLine(t, &b))
	b.Write([]byte("oo\"}\n{\"cmd\":\"bar\"}\n"))
	require.Equal(t, "{\"cmd\":\"bar\"}", readLine(t, &b), "rest of the cut line is skipped")
	require.False(t, b.Available())
}

func TestPipe(t *testing.T) {
	var p Pipe
	p.InjectLine("hello")
	require.Equal(t, "hello", readLine(t, &p))
	require.NoError(t, p.WriteLine([]byte("a")))
	require.NoError(t, p.WriteLine([]byte("b")))
	require.Equal(t, []string{"a", "b"}, p.TakeSent())
	require.Empty(t, p.Sent())
}

func waitAvailable(t *testing.T, r Reader) {
	deadline := time.Now().Add(time.Second)
	for !r.Available() {
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for line")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStream(t *testing.T) {
	local, remote := net.Pipe()
	s := NewStream(local)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	go remote.Write([]byte("{\"cmd\":\"handshake_ack\"}\n"))
	waitAvailable(t, s)
	require.Equal(t, "{\"cmd\":\"handshake_ack\"}", readLine(t, s))

	go s.WriteLine([]byte("pong"))
	line, err := bufio.NewReader(remote).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "pong\n", line)

	cancel()
	select {
	case err := <-done:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("stream not stopped")
	}
}

func TestStreamEOF(t *testing.T) {
	s := NewStream(struct {
		io.Reader
		io.Writer
	}{strings.NewReader("a\nb\n"), io.Discard})
	require.Equal(t, io.EOF, s.Run(context.Background()))
	require.Equal(t, "a", readLine(t, s))
	require.Equal(t, "b", readLine(t, s))
}

func TestListener(t *testing.T) {
	l, err := ListenTCP("127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	require.NoError(t, l.WriteLine([]byte("dropped")), "no peer yet")

	conn, err := net.Dial("tcp", l.Listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("hi\n"))
	require.NoError(t, err)
	waitAvailable(t, l)
	require.Equal(t, "hi", readLine(t, l))
	require.True(t, l.Connected())

	require.NoError(t, l.WriteLine([]byte("back")))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "back\n", line)
}
