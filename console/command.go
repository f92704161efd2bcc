// Package console is the terminal front end: it turns typed lines into
// session intents and prints every session notification.
package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rafaellugassy/tictactoe-client/protocol"
	"github.com/rafaellugassy/tictactoe-client/session"
)

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadIndex       = errors.New("cell must be a number from 0 to 8")
	ErrConnectUsage   = errors.New("usage: connect [host[:port]] [username] [season]")
)

// Kind identifies a typed command.
type Kind int

const (
	KindFind Kind = iota
	KindMove
	KindBoard
	KindNew
	KindHelp
	KindQuit
	KindConnect
	KindDisconnect
)

// Command is one parsed input line.
type Command struct {
	Kind  Kind
	Index int // cell for KindMove

	// Address, Username and Season are the optional connect arguments;
	// empty ones fall back to the configured defaults.
	Address  string
	Username string
	Season   string
}

// Parse reads one input line. A bare digit is a move.
//
// Parameters:
//   - line: Raw input; the command name is case-insensitive and connect
//     arguments keep their case
//
// Returns:
//   - The command, or ErrEmptyCommand, ErrUnknownCommand or ErrBadIndex
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	if _, err := strconv.Atoi(name); err == nil {
		name, args = "move", fields
	}

	switch name {
	case "find", "queue":
		return Command{Kind: KindFind}, nil
	case "move", "m":
		if len(args) != 1 {
			return Command{}, ErrBadIndex
		}
		i, err := strconv.Atoi(args[0])
		if err != nil || i < 0 || i >= protocol.BoardSize {
			return Command{}, ErrBadIndex
		}
		return Command{Kind: KindMove, Index: i}, nil
	case "board", "b":
		return Command{Kind: KindBoard}, nil
	case "new":
		return Command{Kind: KindNew}, nil
	case "help", "?":
		return Command{Kind: KindHelp}, nil
	case "quit", "exit", "q":
		return Command{Kind: KindQuit}, nil
	case "connect", "c":
		return parseConnect(args)
	case "disconnect", "leave":
		return Command{Kind: KindDisconnect}, nil
	default:
		return Command{}, fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}
}

// parseConnect reads "connect [host[:port]] [username] [season]".
func parseConnect(args []string) (Command, error) {
	if len(args) > 3 {
		return Command{}, ErrConnectUsage
	}

	cmd := Command{Kind: KindConnect}
	for i, arg := range args {
		switch i {
		case 0:
			cmd.Address = arg
		case 1:
			cmd.Username = arg
		case 2:
			cmd.Season = strings.ToLower(arg)
		}
	}

	return cmd, nil
}

// Intent maps the command to a session intent.
//
// Parameters:
//   - defaults: Server, username and season used for connect arguments
//     that were not typed
//
// Returns:
//   - The intent and true for find, move, connect, disconnect and quit;
//     nil and false otherwise
func (c Command) Intent(defaults session.ConnectIntent) (session.Intent, bool) {
	switch c.Kind {
	case KindConnect:
		intent := defaults
		if c.Address != "" {
			intent.Address = c.Address
		}
		if c.Username != "" {
			intent.Username = c.Username
		}
		if c.Season != "" {
			intent.Season = c.Season
		}
		return intent, true
	case KindDisconnect:
		return session.DisconnectIntent{}, true
	case KindFind:
		return session.FindMatchIntent{}, true
	case KindMove:
		return session.MoveIntent{Index: c.Index}, true
	case KindQuit:
		return session.DisconnectIntent{}, true
	default:
		return nil, false
	}
}

const onlineHelp = `commands:
  connect [host[:port]] [username] [season]
                connect and join; missing arguments use the settings
  disconnect    leave the server and stay in the console
  find          queue for a match
  move <0-8>    place your symbol (a bare digit works too)
  board         show the board
  quit          leave and exit`

const offlineHelp = `commands:
  move <0-8>    place the current symbol (a bare digit works too)
  board         show the board
  new           start over
  quit          exit`
