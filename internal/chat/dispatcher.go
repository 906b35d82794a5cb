package chat

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/metrics"
)

// ErrSessionClosed is returned for operations on a session that has already
// been disconnected.
var ErrSessionClosed = errors.New("chat: session closed")

// Options configures a Dispatcher.
type Options struct {
	DefaultRoom string
	HelpText    string
	Names       NameOptions
	// Now stamps event envelopes; time.Now when nil.
	Now func() time.Time
}

// DefaultOptions joins newcomers to "main" with User#### names.
func DefaultOptions() Options {
	return Options{
		DefaultRoom: "main",
		HelpText:    HelpText,
		Names:       DefaultNameOptions(),
		Now:         time.Now,
	}
}

// Stats is a point-in-time view of the dispatcher's state.
type Stats struct {
	Sessions int        `json:"sessions"`
	Rooms    []RoomInfo `json:"rooms"`
}

// Dispatcher owns the name registry, the room directory and every session.
// All mutations happen under one mutex so each command is atomic with respect
// to other sessions; payloads are captured under the lock and handed to peers
// only after it is released.
type Dispatcher struct {
	mu       sync.Mutex
	names    *NameRegistry
	rooms    *Directory
	sessions map[Peer]*Session
	opts     Options
	logger   *zap.Logger
}

// NewDispatcher returns a Dispatcher with empty state.
func NewDispatcher(logger *zap.Logger, opts Options) *Dispatcher {
	if opts.DefaultRoom == "" {
		opts.DefaultRoom = "main"
	}
	if opts.HelpText == "" {
		opts.HelpText = HelpText
	}
	if opts.Names.Prefix == "" && opts.Names.Min == 0 && opts.Names.Max == 0 {
		opts.Names = DefaultNameOptions()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		names:    NewNameRegistry(opts.Names),
		rooms:    NewDirectory(),
		sessions: make(map[Peer]*Session),
		opts:     opts,
		logger:   logger,
	}
}

// outbox collects payloads produced while the lock is held.
type outbox struct {
	deliveries []Delivery
	now        time.Time
	logger     *zap.Logger
}

func (o *outbox) reply(p Peer, text string) {
	o.deliveries = append(o.deliveries, Delivery{To: []Peer{p}, Payload: []byte(text)})
}

func (o *outbox) broadcast(room *Room, text string) {
	payload, err := NewChatMessage(text, o.now).Encode()
	if err != nil {
		o.logger.Error("encode event", zap.Error(err))
		return
	}
	o.deliveries = append(o.deliveries, room.Broadcast(payload))
}

func (o *outbox) flush() {
	dropped := 0
	for _, d := range o.deliveries {
		dropped += d.Send()
	}
	metrics.DeliveriesDropped(dropped)
}

func (d *Dispatcher) newOutbox() *outbox {
	return &outbox{now: d.opts.Now(), logger: d.logger}
}

// Connect opens a session for p: it allocates a default name, joins the
// default room, announces the arrival there and sends p the help text.
func (d *Dispatcher) Connect(p Peer) (*Session, error) {
	out := d.newOutbox()
	defer out.flush()

	d.mu.Lock()
	defer d.mu.Unlock()

	name, err := d.names.Allocate()
	if err != nil {
		return nil, fmt.Errorf("allocate default name: %w", err)
	}
	s := newSession(p)
	s.name = name
	s.room = d.join(d.opts.DefaultRoom, p)
	d.sessions[p] = s

	out.broadcast(s.room, joinedChat(name))
	out.reply(p, d.opts.HelpText)

	d.logger.Info("session connected",
		zap.String("session", s.id), zap.String("name", name), zap.String("room", s.roomName()))
	d.observe()
	return s, nil
}

// Handle applies one inbound line for s. It returns false once the session
// should end, either because the line was /quit or s is already closed.
func (d *Dispatcher) Handle(s *Session, line string) bool {
	cmd := ParseCommand(line)
	metrics.CommandHandled(cmd.Kind.String())

	out := d.newOutbox()
	defer out.flush()

	d.mu.Lock()
	defer d.mu.Unlock()

	if s.closed {
		return false
	}

	switch cmd.Kind {
	case CmdJoin:
		d.handleJoin(out, s, cmd.Arg)
	case CmdName:
		d.handleName(out, s, cmd.Arg)
	case CmdAllUsers:
		out.reply(s.peer, allUsers(d.names.List()))
	case CmdUsers:
		out.reply(s.peer, usersInRoom(d.rooms.ListMembers(s.roomName(), d.resolve)))
	case CmdRooms:
		out.reply(s.peer, roomList(d.rooms.Snapshot()))
	case CmdRenameRoom:
		d.handleRenameRoom(out, s, cmd.Arg)
	case CmdHelp:
		out.reply(s.peer, d.opts.HelpText)
	case CmdQuit:
		return false
	case CmdSay:
		out.broadcast(s.room, said(s.name, cmd.Raw))
	}
	return true
}

func (d *Dispatcher) handleJoin(out *outbox, s *Session, target string) {
	if target == "" {
		return
	}
	current := s.roomName()
	if target == current {
		out.reply(s.peer, replyAlreadyInRoom)
		return
	}

	out.broadcast(s.room, leftRoom(s.name, current))
	s.room = d.move(current, target, s.peer)
	out.broadcast(s.room, joinedRoom(s.name, target))

	d.logger.Debug("session moved",
		zap.String("session", s.id), zap.String("from", current), zap.String("to", target))
}

func (d *Dispatcher) handleName(out *outbox, s *Session, newName string) {
	if newName == "" {
		return
	}
	if !d.names.Insert(newName) {
		out.reply(s.peer, replyNameTaken)
		return
	}
	oldName := s.name
	d.names.Remove(oldName)
	s.name = newName

	out.broadcast(s.room, renamed(oldName, newName))
	out.broadcast(s.room, namesInRoom(d.rooms.ListMembers(s.roomName(), d.resolve)))

	d.logger.Debug("session renamed",
		zap.String("session", s.id), zap.String("from", oldName), zap.String("to", newName))
}

func (d *Dispatcher) handleRenameRoom(out *outbox, s *Session, newName string) {
	if newName == "" {
		return
	}
	if _, exists := d.rooms.Lookup(newName); exists {
		out.reply(s.peer, replyRoomExists)
		return
	}
	oldName := s.roomName()
	if !d.rooms.Rename(oldName, newName) {
		d.logger.Warn("rename of unknown room",
			zap.String("session", s.id), zap.String("room", oldName))
		return
	}
	// Members hold the Room itself, so they all see the new name already.
	out.broadcast(s.room, roomRenamed(oldName, newName))

	d.logger.Info("room renamed",
		zap.String("room_id", s.room.ID()), zap.String("from", oldName), zap.String("to", newName))
}

// Disconnect releases s's name, removes it from its room and, if the room
// survives, tells the remaining members. Calls after the first are no-ops.
func (d *Dispatcher) Disconnect(s *Session) {
	out := d.newOutbox()
	defer out.flush()

	d.mu.Lock()
	defer d.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	delete(d.sessions, s.peer)
	d.names.Remove(s.name)

	roomName := s.roomName()
	d.leave(roomName, s.peer)
	if room, ok := d.rooms.Lookup(roomName); ok {
		out.broadcast(room, leftChat(s.name))
	}

	d.logger.Info("session disconnected",
		zap.String("session", s.id), zap.String("name", s.name), zap.String("room", roomName))
	d.observe()
}

// Whereabouts returns s's current display name and room name.
func (d *Dispatcher) Whereabouts(s *Session) (name, room string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.closed {
		return "", "", ErrSessionClosed
	}
	return s.name, s.roomName(), nil
}

// Stats snapshots the number of sessions and every room's size.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	return Stats{Sessions: len(d.sessions), Rooms: d.rooms.Snapshot()}
}

func (d *Dispatcher) resolve(p Peer) (string, bool) {
	s, ok := d.sessions[p]
	if !ok {
		return "", false
	}
	return s.name, true
}

func (d *Dispatcher) join(name string, p Peer) *Room {
	_, existed := d.rooms.Lookup(name)
	room := d.rooms.Join(name, p)
	if !existed {
		d.logger.Debug("room created", zap.String("room_id", room.ID()), zap.String("room", name))
	}
	return room
}

func (d *Dispatcher) leave(name string, p Peer) {
	if d.rooms.Leave(name, p) {
		d.logger.Debug("room deleted", zap.String("room", name))
	}
}

func (d *Dispatcher) move(from, to string, p Peer) *Room {
	room := d.rooms.Move(from, to, p)
	d.observe()
	return room
}

// observe must be called with d.mu held.
func (d *Dispatcher) observe() {
	metrics.SetSessions(len(d.sessions))
	metrics.SetRooms(d.rooms.Len())
}
