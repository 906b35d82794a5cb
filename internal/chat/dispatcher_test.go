package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectAnnouncesAndSendsHelp(t *testing.T) {
	d := newTestDispatcher()
	s, peer, name := connect(t, d)

	events, replies := peer.received()
	assert.Equal(t, []string{name + " has joined the chat."}, events)
	assert.Equal(t, []string{HelpText}, replies)

	_, room, err := d.Whereabouts(s)
	require.NoError(t, err)
	assert.Equal(t, "main", room)
	assert.Equal(t, Stats{Sessions: 1, Rooms: []RoomInfo{{Name: "main", Members: 1}}}, d.Stats())
}

func TestConnectJoinEventReachesExistingMembers(t *testing.T) {
	d := newTestDispatcher()
	_, a, _ := connect(t, d)
	a.reset()

	_, _, bName := connect(t, d)
	events, replies := a.received()
	assert.Equal(t, []string{bName + " has joined the chat."}, events)
	assert.Empty(t, replies, "help text goes to the newcomer only")
}

func TestConnectFailsWhenNamesExhausted(t *testing.T) {
	opts := DefaultOptions()
	opts.Names = NameOptions{Prefix: "Solo", Min: 1, Max: 1}
	d := NewDispatcher(nil, opts)

	_, err := d.Connect(&fakePeer{})
	require.NoError(t, err)

	peer := &fakePeer{}
	_, err = d.Connect(peer)
	assert.ErrorIs(t, err, ErrNamesExhausted)
	assert.Zero(t, peer.count())
	assert.Equal(t, 1, d.Stats().Sessions)
}

func TestNameTakenIsReplyOnly(t *testing.T) {
	d := newTestDispatcher()
	a, aPeer, aName := connect(t, d)
	b, bPeer, _ := connect(t, d)
	rename(t, d, b, "Bob")
	resetAll(aPeer, bPeer)

	assert.True(t, d.Handle(a, "/name Bob"))

	events, replies := aPeer.received()
	assert.Empty(t, events)
	assert.Equal(t, []string{"Sorry, that name is taken."}, replies)
	assert.Zero(t, bPeer.count())

	name, _, err := d.Whereabouts(a)
	require.NoError(t, err)
	assert.Equal(t, aName, name)
}

func TestNameChangeBroadcastsRenameAndRoster(t *testing.T) {
	d := newTestDispatcher()
	a, aPeer, aName := connect(t, d)
	b, bPeer, _ := connect(t, d)
	rename(t, d, b, "Bob")
	resetAll(aPeer, bPeer)

	assert.True(t, d.Handle(a, "/name Alice"))

	want := []string{aName + " is now Alice", `Current names in room: ["Alice", "Bob"]`}
	for _, p := range []*fakePeer{aPeer, bPeer} {
		events, replies := p.received()
		assert.Equal(t, want, events)
		assert.Empty(t, replies)
	}

	d.Handle(a, "/allusers")
	_, replies := aPeer.received()
	assert.Equal(t, []string{`All users: ["Alice", "Bob"]`}, replies)

	d.mu.Lock()
	released := !d.names.Contains(aName)
	d.mu.Unlock()
	assert.True(t, released, "the old name is released")
}

func TestEmptyArgumentsAreIgnored(t *testing.T) {
	d := newTestDispatcher()
	s, peer, _ := connect(t, d)
	peer.reset()

	for _, line := range []string{"/join", "/join   ", "/name", "/renameroom  "} {
		assert.True(t, d.Handle(s, line))
	}
	assert.Zero(t, peer.count())
	assert.Len(t, d.Stats().Rooms, 1)
}

func TestJoinSameRoomIsReplyOnly(t *testing.T) {
	d := newTestDispatcher()
	s, peer, _ := connect(t, d)
	peer.reset()

	d.Handle(s, "/join main")
	events, replies := peer.received()
	assert.Empty(t, events)
	assert.Equal(t, []string{"You are already in this room."}, replies)
}

func TestJoinMovesBetweenRooms(t *testing.T) {
	d := newTestDispatcher()
	a, aPeer, aName := connect(t, d)
	_, bPeer, _ := connect(t, d)
	resetAll(aPeer, bPeer)

	d.Handle(a, "/join lobby")

	events, _ := aPeer.received()
	assert.Equal(t, []string{aName + " has left main.", aName + " has joined lobby."}, events)
	events, _ = bPeer.received()
	assert.Equal(t, []string{aName + " has left main."}, events)

	assert.ElementsMatch(t, []RoomInfo{{Name: "main", Members: 1}, {Name: "lobby", Members: 1}}, d.Stats().Rooms)
}

func TestJoinDeletesEmptiedRoom(t *testing.T) {
	d := newTestDispatcher()
	a, _, _ := connect(t, d)

	d.Handle(a, "/join lobby")

	assert.Equal(t, []RoomInfo{{Name: "lobby", Members: 1}}, d.Stats().Rooms)
	_, room, err := d.Whereabouts(a)
	require.NoError(t, err)
	assert.Equal(t, "lobby", room)
}

func TestUsersAndRooms(t *testing.T) {
	d := newTestDispatcher()
	sessions := make([]*Session, 5)
	peers := make([]*fakePeer, 5)
	for i := range sessions {
		sessions[i], peers[i], _ = connect(t, d)
		rename(t, d, sessions[i], fmt.Sprintf("u%d", i))
	}
	d.Handle(sessions[3], "/join lobby")
	d.Handle(sessions[4], "/join dev")
	resetAll(peers...)

	d.Handle(sessions[0], "/rooms")
	_, replies := peers[0].received()
	assert.Equal(t, []string{"Current rooms: main (3), dev (1), lobby (1)"}, replies)

	d.Handle(sessions[1], "/users")
	_, replies = peers[1].received()
	assert.Equal(t, []string{`Users in current room: ["u0", "u1", "u2"]`}, replies)

	for _, p := range peers[2:] {
		assert.Zero(t, p.count(), "listings are reply-only")
	}
}

func TestRenameRoomPropagatesToMembers(t *testing.T) {
	d := newTestDispatcher()
	a, aPeer, _ := connect(t, d)
	c, cPeer, _ := connect(t, d)
	rename(t, d, a, "A")
	rename(t, d, c, "C")
	resetAll(aPeer, cPeer)

	d.Handle(a, "/renameroom general")

	assert.Equal(t, []RoomInfo{{Name: "general", Members: 2}}, d.Stats().Rooms)
	for _, p := range []*fakePeer{aPeer, cPeer} {
		events, _ := p.received()
		assert.Equal(t, []string{"Room main has been renamed to general."}, events)
	}
	for _, s := range []*Session{a, c} {
		_, room, err := d.Whereabouts(s)
		require.NoError(t, err)
		assert.Equal(t, "general", room)
	}

	cPeer.reset()
	d.Handle(c, "/users")
	_, replies := cPeer.received()
	assert.Equal(t, []string{`Users in current room: ["A", "C"]`}, replies)

	// Leaving by the new name works for a member who did not issue the rename.
	d.Handle(c, "/join main")
	assert.ElementsMatch(t, []RoomInfo{{Name: "general", Members: 1}, {Name: "main", Members: 1}}, d.Stats().Rooms)
}

func TestRenameRoomCollision(t *testing.T) {
	d := newTestDispatcher()
	a, aPeer, _ := connect(t, d)
	b, _, _ := connect(t, d)
	d.Handle(b, "/join dev")
	aPeer.reset()

	for _, target := range []string{"dev", "main"} {
		d.Handle(a, "/renameroom "+target)
	}
	events, replies := aPeer.received()
	assert.Empty(t, events)
	assert.Equal(t, []string{"Room name already exists.", "Room name already exists."}, replies)
	assert.ElementsMatch(t, []RoomInfo{{Name: "main", Members: 1}, {Name: "dev", Members: 1}}, d.Stats().Rooms)
}

func TestSayBroadcastsRawText(t *testing.T) {
	d := newTestDispatcher()
	a, aPeer, _ := connect(t, d)
	_, bPeer, _ := connect(t, d)
	rename(t, d, a, "Ann")
	resetAll(aPeer, bPeer)

	d.Handle(a, "hello  world")
	d.Handle(a, "/dance now")

	want := []string{"Ann: hello  world", "Ann: /dance now"}
	for _, p := range []*fakePeer{aPeer, bPeer} {
		events, _ := p.received()
		assert.Equal(t, want, events)
	}
}

func TestHelpAndQuit(t *testing.T) {
	d := newTestDispatcher()
	s, peer, _ := connect(t, d)
	peer.reset()

	assert.True(t, d.Handle(s, "/help"))
	_, replies := peer.received()
	assert.Equal(t, []string{HelpText}, replies)

	assert.False(t, d.Handle(s, "/quit"))
}

func TestDisconnectCleansUpOnce(t *testing.T) {
	d := newTestDispatcher()
	a, aPeer, aName := connect(t, d)
	_, bPeer, _ := connect(t, d)
	resetAll(aPeer, bPeer)

	d.Disconnect(a)

	events, _ := bPeer.received()
	assert.Equal(t, []string{aName + " has left the chat."}, events)
	assert.Zero(t, aPeer.count())
	assert.Equal(t, Stats{Sessions: 1, Rooms: []RoomInfo{{Name: "main", Members: 1}}}, d.Stats())

	bPeer.reset()
	d.Disconnect(a)
	assert.Zero(t, bPeer.count(), "second cleanup has no observable effect")
	assert.Equal(t, 1, d.Stats().Sessions)

	assert.False(t, d.Handle(a, "hello"), "closed sessions do nothing")
	assert.Zero(t, bPeer.count())
	_, _, err := d.Whereabouts(a)
	assert.ErrorIs(t, err, ErrSessionClosed)

	d.mu.Lock()
	free := !d.names.Contains(aName)
	d.mu.Unlock()
	assert.True(t, free, "name is immediately reusable")
}

func TestDisconnectLastMemberDeletesRoomSilently(t *testing.T) {
	d := newTestDispatcher()
	a, aPeer, _ := connect(t, d)
	d.Handle(a, "/join lobby")
	_, bPeer, _ := connect(t, d)
	resetAll(aPeer, bPeer)

	d.Disconnect(a)

	assert.Zero(t, aPeer.count())
	assert.Zero(t, bPeer.count(), "members of other rooms hear nothing")
	assert.Equal(t, []RoomInfo{{Name: "main", Members: 1}}, d.Stats().Rooms)
}

func TestBroadcastSurvivesRefusingPeer(t *testing.T) {
	d := newTestDispatcher()
	a, aPeer, _ := connect(t, d)
	_, stuck, _ := connect(t, d)
	_, cPeer, _ := connect(t, d)
	rename(t, d, a, "Ann")
	resetAll(aPeer, stuck, cPeer)
	stuck.refuse = true

	d.Handle(a, "hi")

	events, _ := cPeer.received()
	assert.Equal(t, []string{"Ann: hi"}, events)
}

func TestConcurrentSessionsKeepNamesUnique(t *testing.T) {
	d := newTestDispatcher()
	const workers = 32

	sessions := make([]*Session, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := d.Connect(&fakePeer{})
			if !assert.NoError(t, err) {
				return
			}
			sessions[i] = s
			d.Handle(s, "/name shared")
			d.Handle(s, fmt.Sprintf("/join room%d", i%4))
			d.Handle(s, "/renameroom renamed")
			d.Handle(s, "chatter")
		}()
	}
	wg.Wait()

	names := map[string]bool{}
	for _, s := range sessions {
		require.NotNil(t, s)
		name, _, err := d.Whereabouts(s)
		require.NoError(t, err)
		assert.False(t, names[name], "duplicate name %q", name)
		names[name] = true
	}
	assert.True(t, names["shared"], "exactly one session won the contested name")

	total := 0
	for _, room := range d.Stats().Rooms {
		assert.Positive(t, room.Members)
		total += room.Members
	}
	assert.Equal(t, workers, total)

	for _, s := range sessions {
		d.Disconnect(s)
	}
	assert.Equal(t, Stats{Sessions: 0, Rooms: []RoomInfo{}}, d.Stats())
}
