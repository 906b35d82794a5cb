package chat

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.UnixMilli(1_700_000_000_000)

// fakePeer records every payload it accepts.
type fakePeer struct {
	mu       sync.Mutex
	payloads [][]byte
	refuse   bool
}

func (p *fakePeer) Send(payload []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refuse {
		return false
	}
	p.payloads = append(p.payloads, payload)
	return true
}

func (p *fakePeer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = nil
}

// received splits what the peer got into event texts and plain replies, in order.
func (p *fakePeer) received() (events, replies []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, payload := range p.payloads {
		var msg ChatMessage
		if err := json.Unmarshal(payload, &msg); err == nil && msg.Timestamp != 0 {
			events = append(events, msg.Message)
			continue
		}
		replies = append(replies, string(payload))
	}
	return events, replies
}

func (p *fakePeer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func newTestDispatcher() *Dispatcher {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return fixedNow }
	return NewDispatcher(nil, opts)
}

// connect opens a session and clears whatever the peer received on connect.
func connect(t *testing.T, d *Dispatcher) (*Session, *fakePeer, string) {
	t.Helper()
	peer := &fakePeer{}
	s, err := d.Connect(peer)
	require.NoError(t, err)
	name, _, err := d.Whereabouts(s)
	require.NoError(t, err)
	return s, peer, name
}

// rename gives s a known name.
func rename(t *testing.T, d *Dispatcher, s *Session, name string) {
	t.Helper()
	require.True(t, d.Handle(s, "/name "+name))
	got, _, err := d.Whereabouts(s)
	require.NoError(t, err)
	require.Equal(t, name, got)
}

func resetAll(peers ...*fakePeer) {
	for _, p := range peers {
		p.reset()
	}
}
