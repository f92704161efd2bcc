package console

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/rafaellugassy/tictactoe-client/protocol"
	"github.com/rafaellugassy/tictactoe-client/session"
)

// Console prints session notifications to a writer. It implements
// session.Notifier and is safe for concurrent use, so the input goroutine
// can print the board while the session loop reports changes.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	board protocol.Board
	line  []int
}

var _ session.Notifier = (*Console)(nil)

// New creates a Console writing to out.
func New(out io.Writer) *Console {
	return &Console{out: out, board: protocol.NewBoard()}
}

func (c *Console) StatusChanged(text string) {
	c.printf("%s\n", text)
}

func (c *Console) MatchStarted(symbol protocol.Symbol, opponent string) {
	c.mu.Lock()
	c.line = nil
	c.mu.Unlock()

	c.printf("Match started: you are %s against %s\n", symbol, opponent)
}

func (c *Console) BoardChanged(board protocol.Board) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.board = board
	fmt.Fprint(c.out, FormatBoard(board, nil))
}

func (c *Console) MatchEnded(outcome protocol.Outcome, line []int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.line = slices.Clone(line)
	if len(line) > 0 {
		fmt.Fprint(c.out, FormatBoard(c.board, line))
	}
	fmt.Fprintf(c.out, "Game Over: %s\n", describeOutcome(outcome))
}

func (c *Console) OpponentLeft() {
	c.printf("Opponent left the match\n")
}

func (c *Console) XPChanged(total int) {
	c.printf("Battle Pass: XP %d\n", total)
}

func (c *Console) XPAwarded(amount int, reason string, total int) {
	c.printf("XP +%d (%s). Total XP: %d\n", amount, reason, total)
}

func (c *Console) ErrorRaised(message string) {
	c.printf("Server error: %s\n", message)
}

func (c *Console) Disconnected(reason session.DisconnectReason) {
	if reason == session.ReasonRemote {
		c.printf("Disconnected from server\n")
		return
	}

	c.printf("Disconnected\n")
}

// ShowBoard prints the last board, marking the winning line of a finished
// match.
func (c *Console) ShowBoard() {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprint(c.out, FormatBoard(c.board, c.line))
}

// reset clears the board and winning line and prints the empty board.
func (c *Console) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.board = protocol.NewBoard()
	c.line = nil
	fmt.Fprint(c.out, FormatBoard(c.board, nil))
}

// Printf writes a line outside of any notification, e.g. for input errors.
func (c *Console) Printf(format string, args ...any) {
	c.printf(format, args...)
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, format, args...)
}

// FormatBoard draws b as a 3x3 grid. Empty cells show their index; cells of
// line are bracketed.
func FormatBoard(b protocol.Board, line []int) string {
	var sb strings.Builder

	for row := 0; row < 3; row++ {
		if row > 0 {
			sb.WriteString("---+---+---\n")
		}

		for col := 0; col < 3; col++ {
			i := row*3 + col
			if col > 0 {
				sb.WriteByte('|')
			}

			mark := string(b[i])
			if b[i] == protocol.Empty {
				mark = strconv.Itoa(i)
			}

			if slices.Contains(line, i) {
				sb.WriteString("[" + mark + "]")
			} else {
				sb.WriteString(" " + mark + " ")
			}
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

func describeOutcome(o protocol.Outcome) string {
	if o == protocol.OutcomeTie {
		return "Tie"
	}

	return fmt.Sprintf("%s wins!", o)
}
