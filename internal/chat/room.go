package chat

import (
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Peer is the outbound side of one connection. Send must not block: it
// either queues payload for delivery or reports false.
type Peer interface {
	Send(payload []byte) bool
}

// Room is a named set of member peers sharing broadcast scope. Its ID is
// fixed at creation; its name changes on rename.
type Room struct {
	id      string
	name    string
	members map[Peer]struct{}
}

func newRoom(name string) *Room {
	return &Room{
		id:      uuid.NewString(),
		name:    name,
		members: make(map[Peer]struct{}),
	}
}

// ID returns the room's stable identifier.
func (r *Room) ID() string { return r.id }

// Name returns the room's current name.
func (r *Room) Name() string { return r.name }

// Len returns the number of members.
func (r *Room) Len() int { return len(r.members) }

// Has reports whether p is a member.
func (r *Room) Has(p Peer) bool {
	_, ok := r.members[p]
	return ok
}

func (r *Room) add(p Peer) {
	r.members[p] = struct{}{}
}

func (r *Room) remove(p Peer) bool {
	if _, ok := r.members[p]; !ok {
		return false
	}
	delete(r.members, p)
	return true
}

// Peers snapshots the current member set.
func (r *Room) Peers() []Peer {
	return lo.Keys(r.members)
}

// Broadcast captures the current members as recipients of payload. The
// returned Delivery is sent later, once the caller no longer holds any lock.
func (r *Room) Broadcast(payload []byte) Delivery {
	return Delivery{To: r.Peers(), Payload: payload}
}

// Delivery is one payload bound to a fixed recipient set.
type Delivery struct {
	To      []Peer
	Payload []byte
}

// Send hands the payload to every recipient and returns how many refused it.
// A refusing recipient never affects the others.
func (d Delivery) Send() (dropped int) {
	for _, p := range d.To {
		if !p.Send(d.Payload) {
			dropped++
		}
	}
	return dropped
}
