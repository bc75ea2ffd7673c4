package link

import "sync"

// Pipe is an in-memory Transport. Inject plays the peer's side, Sent
// returns what the device wrote.
type Pipe struct {
	LineBuffer
	// WriteErr, if set, fails every WriteLine.
	WriteErr error

	sent [][]byte
	lock sync.Mutex
}

// Inject feeds raw bytes as if received from the peer.
func (p *Pipe) Inject(data string) {
	p.Write([]byte(data))
}

// InjectLine feeds one line and its terminator.
func (p *Pipe) InjectLine(line string) {
	p.Write(terminated([]byte(line)))
}

// WriteLine implements Writer.
func (p *Pipe) WriteLine(line []byte) error {
	if p.WriteErr != nil {
		return p.WriteErr
	}
	p.lock.Lock()
	p.sent = append(p.sent, append([]byte(nil), line...))
	p.lock.Unlock()
	return nil
}

// Sent returns all written lines.
func (p *Pipe) Sent() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	lines := make([]string, len(p.sent))
	for n, line := range p.sent {
		lines[n] = string(line)
	}
	return lines
}

// TakeSent returns written lines and forgets them.
func (p *Pipe) TakeSent() []string {
	lines := p.Sent()
	p.lock.Lock()
	p.sent = nil
	p.lock.Unlock()
	return lines
}
