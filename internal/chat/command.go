package chat

import "strings"

// CommandKind enumerates what an inbound line asks for.
type CommandKind int

const (
	// CmdSay is plain text, or a slash word that is not a known command.
	CmdSay CommandKind = iota
	CmdJoin
	CmdName
	CmdAllUsers
	CmdUsers
	CmdRooms
	CmdRenameRoom
	CmdHelp
	CmdQuit
)

const commandPrefix = "/"

var commandWords = map[string]CommandKind{
	"/join":       CmdJoin,
	"/name":       CmdName,
	"/allusers":   CmdAllUsers,
	"/users":      CmdUsers,
	"/rooms":      CmdRooms,
	"/renameroom": CmdRenameRoom,
	"/help":       CmdHelp,
	"/quit":       CmdQuit,
}

func (k CommandKind) String() string {
	switch k {
	case CmdSay:
		return "say"
	case CmdJoin:
		return "join"
	case CmdName:
		return "name"
	case CmdAllUsers:
		return "allusers"
	case CmdUsers:
		return "users"
	case CmdRooms:
		return "rooms"
	case CmdRenameRoom:
		return "renameroom"
	case CmdHelp:
		return "help"
	case CmdQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Command is one parsed inbound line.
type Command struct {
	Kind CommandKind
	// Arg is every token after the command word, joined by single spaces.
	Arg string
	// Raw is the line as received.
	Raw string
}

// ParseCommand classifies line. Only a line whose first token is exactly a
// known command word is a command; everything else is CmdSay.
func ParseCommand(line string) Command {
	if !strings.HasPrefix(line, commandPrefix) {
		return Command{Kind: CmdSay, Raw: line}
	}
	fields := strings.Fields(line)
	kind, ok := commandWords[fields[0]]
	if !ok {
		return Command{Kind: CmdSay, Raw: line}
	}
	return Command{Kind: kind, Arg: strings.Join(fields[1:], " "), Raw: line}
}
