// Package offline implements single-process tic-tac-toe: the win-line table,
// winner detection, and a local two-player game on one keyboard. The online
// client never uses it to judge a match; only the server does that.
package offline

import (
	"errors"

	"github.com/rafaellugassy/tictactoe-client/protocol"
)

var (
	ErrOutOfRange = errors.New("cell index out of range")
	ErrCellTaken  = errors.New("cell already taken")
	ErrGameOver   = errors.New("game already finished")
)

// Lines lists every winning combination of cell indices.
var Lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Winner judges a board.
//
// Parameters:
//   - b: The board to inspect
//
// Returns:
//   - OutcomeX or OutcomeO with the winning line, OutcomeTie with a nil line
//     when the board is full, or OutcomeNone while play can continue
func Winner(b protocol.Board) (protocol.Outcome, []int) {
	for _, line := range Lines {
		a := b[line[0]]
		if a != protocol.Empty && a == b[line[1]] && a == b[line[2]] {
			return protocol.Outcome(a), []int{line[0], line[1], line[2]}
		}
	}

	if b.Full() {
		return protocol.OutcomeTie, nil
	}

	return protocol.OutcomeNone, nil
}

// Game is a local match where both players share one process. X moves first.
type Game struct {
	board   protocol.Board
	current protocol.Symbol
	outcome protocol.Outcome
	line    []int
}

// NewGame returns an empty board with X to move.
func NewGame() *Game {
	return &Game{board: protocol.NewBoard(), current: protocol.SymbolX}
}

// Play places the current player's symbol at index i and passes the turn.
//
// Parameters:
//   - i: Cell index, 0-8
//
// Returns:
//   - The outcome after the move (OutcomeNone while running)
//   - ErrGameOver, ErrOutOfRange or ErrCellTaken if the move is illegal
func (g *Game) Play(i int) (protocol.Outcome, error) {
	if g.outcome.Terminal() {
		return g.outcome, ErrGameOver
	}

	if i < 0 || i >= protocol.BoardSize {
		return protocol.OutcomeNone, ErrOutOfRange
	}

	if !g.board.IsEmptyAt(i) {
		return protocol.OutcomeNone, ErrCellTaken
	}

	g.board[i] = protocol.Cell(g.current)
	g.outcome, g.line = Winner(g.board)
	if !g.outcome.Terminal() {
		g.current = g.current.Other()
	}

	return g.outcome, nil
}

// Board returns a copy of the current board.
func (g *Game) Board() protocol.Board { return g.board }

// Current returns the symbol to move next, or the last mover once finished.
func (g *Game) Current() protocol.Symbol { return g.current }

// Outcome returns the result and winning line, if any.
func (g *Game) Outcome() (protocol.Outcome, []int) { return g.outcome, g.line }

// Reset clears the board and gives X the first move.
func (g *Game) Reset() {
	*g = *NewGame()
}
