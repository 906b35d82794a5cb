package chat

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// RoomInfo is one row of a directory snapshot.
type RoomInfo struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// Directory maps room names to rooms. Rooms are created by Join and removed
// as soon as they become empty, so every key maps to a non-empty Room. It is
// not safe for concurrent use; the Dispatcher serializes access to it.
type Directory struct {
	rooms map[string]*Room
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]*Room)}
}

// Lookup returns the room currently named name.
func (d *Directory) Lookup(name string) (*Room, bool) {
	room, ok := d.rooms[name]
	return room, ok
}

// Join adds p to the room named name, creating the room if needed.
func (d *Directory) Join(name string, p Peer) *Room {
	room, ok := d.rooms[name]
	if !ok {
		room = newRoom(name)
		d.rooms[name] = room
	}
	room.add(p)
	return room
}

// Leave removes p from the room named name and deletes the room if that
// left it empty. Unknown rooms and non-members are ignored. It reports
// whether the room was deleted.
func (d *Directory) Leave(name string, p Peer) bool {
	room, ok := d.rooms[name]
	if !ok || !room.remove(p) {
		return false
	}
	if room.Len() > 0 {
		return false
	}
	delete(d.rooms, name)
	return true
}

// Move is Leave(from) followed by Join(to).
func (d *Directory) Move(from, to string, p Peer) *Room {
	d.Leave(from, p)
	return d.Join(to, p)
}

// Rename re-keys the room named oldName under newName without touching its
// members. It fails if oldName is unknown or newName is already in use.
func (d *Directory) Rename(oldName, newName string) bool {
	room, ok := d.rooms[oldName]
	if !ok {
		return false
	}
	if _, taken := d.rooms[newName]; taken {
		return false
	}
	delete(d.rooms, oldName)
	room.name = newName
	d.rooms[newName] = room
	return true
}

// ListMembers resolves the members of the room named name to display names,
// sorted ascending. Members resolve cannot place are skipped.
func (d *Directory) ListMembers(name string, resolve func(Peer) (string, bool)) []string {
	room, ok := d.rooms[name]
	if !ok {
		return nil
	}
	names := lo.FilterMap(room.Peers(), func(p Peer, _ int) (string, bool) {
		return resolve(p)
	})
	slices.Sort(names)
	return names
}

// Snapshot lists every room with its member count, largest first and
// ties broken by name.
func (d *Directory) Snapshot() []RoomInfo {
	infos := lo.MapToSlice(d.rooms, func(name string, room *Room) RoomInfo {
		return RoomInfo{Name: name, Members: room.Len()}
	})
	slices.SortFunc(infos, func(a, b RoomInfo) int {
		if c := cmp.Compare(b.Members, a.Members); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return infos
}

// Len returns the number of rooms.
func (d *Directory) Len() int {
	return len(d.rooms)
}
