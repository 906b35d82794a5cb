package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// HelpText is sent on connect and in reply to /help.
const HelpText = `
Available commands:
/join <room_name> - Join a different room
/name <new_name> - Change your name
/users - List users in current room
/allusers - List all users
/rooms - List all rooms
/renameroom <new_name> - Rename current room
/help - Show this help message
/quit - Disconnect
`

const (
	replyAlreadyInRoom = "You are already in this room."
	replyNameTaken     = "Sorry, that name is taken."
	replyRoomExists    = "Room name already exists."
)

func joinedChat(name string) string { return name + " has joined the chat." }

func leftChat(name string) string { return name + " has left the chat." }

func leftRoom(name, room string) string { return fmt.Sprintf("%s has left %s.", name, room) }

func joinedRoom(name, room string) string { return fmt.Sprintf("%s has joined %s.", name, room) }

func renamed(oldName, newName string) string { return oldName + " is now " + newName }

func roomRenamed(oldName, newName string) string {
	return fmt.Sprintf("Room %s has been renamed to %s.", oldName, newName)
}

func said(name, text string) string { return name + ": " + text }

func namesInRoom(names []string) string { return "Current names in room: " + nameList(names) }

func allUsers(names []string) string { return "All users: " + nameList(names) }

func usersInRoom(names []string) string { return "Users in current room: " + nameList(names) }

func roomList(rooms []RoomInfo) string {
	rows := lo.Map(rooms, func(r RoomInfo, _ int) string {
		return r.Name + " (" + strconv.Itoa(r.Members) + ")"
	})
	return "Current rooms: " + strings.Join(rows, ", ")
}

// nameList renders names as ["a", "b"].
func nameList(names []string) string {
	quoted := lo.Map(names, func(n string, _ int) string { return strconv.Quote(n) })
	return "[" + strings.Join(quoted, ", ") + "]"
}
