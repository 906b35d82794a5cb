package chat

import "github.com/google/uuid"

// Session binds one connection to its display name and current room. Its
// fields are owned by the Dispatcher and only change under its lock.
type Session struct {
	id     string
	peer   Peer
	name   string
	room   *Room
	closed bool
}

func newSession(p Peer) *Session {
	return &Session{id: uuid.NewString(), peer: p}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Peer returns the connection handle the session was opened with.
func (s *Session) Peer() Peer { return s.peer }

// roomName is the session's current room. Rooms are referenced by object, so
// a rename is seen by every member without touching their sessions.
func (s *Session) roomName() string {
	if s.room == nil {
		return ""
	}
	return s.room.Name()
}
