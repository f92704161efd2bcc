package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// BoardSize is the number of cells on a tic-tac-toe board.
const BoardSize = 9

// Symbol is the marker assigned to a player for the duration of a match.
type Symbol string

const (
	SymbolX Symbol = "X" // Moves first
	SymbolO Symbol = "O"
)

// Other returns the opposing symbol. An unknown symbol yields SymbolX.
func (s Symbol) Other() Symbol {
	if s == SymbolX {
		return SymbolO
	}

	return SymbolX
}

// Valid reports whether s is one of the two match symbols.
func (s Symbol) Valid() bool {
	return s == SymbolX || s == SymbolO
}

// Cell is the content of one board position as sent on the wire.
type Cell string

const (
	Empty Cell = " "
	CellX Cell = "X"
	CellO Cell = "O"
)

// Valid reports whether c is Empty, CellX or CellO.
func (c Cell) Valid() bool {
	return c == Empty || c == CellX || c == CellO
}

// ErrBoardSize is returned when a board does not hold exactly BoardSize cells.
var ErrBoardSize = errors.New("board must have exactly 9 cells")

// Board is the ordered sequence of the nine cells, row by row.
type Board [BoardSize]Cell

// UnmarshalJSON decodes a JSON array of exactly BoardSize cells. Plain
// array decoding would drop extra elements and zero missing ones.
func (b *Board) UnmarshalJSON(data []byte) error {
	var cells []Cell
	if err := json.Unmarshal(data, &cells); err != nil {
		return err
	}

	if len(cells) != BoardSize {
		return fmt.Errorf("%w, got %d", ErrBoardSize, len(cells))
	}

	copy(b[:], cells)
	return nil
}

// NewBoard returns a board with every cell Empty.
func NewBoard() Board {
	var b Board
	for i := range b {
		b[i] = Empty
	}

	return b
}

// IsEmptyAt reports whether the cell at index i is Empty. Out-of-range
// indices are never empty.
func (b Board) IsEmptyAt(i int) bool {
	if i < 0 || i >= BoardSize {
		return false
	}

	return b[i] == Empty
}

// Full reports whether no cell is Empty.
func (b Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}

	return true
}

// Validate returns an error if any cell holds an unknown value.
func (b Board) Validate() error {
	for i, c := range b {
		if !c.Valid() {
			return fmt.Errorf("invalid cell %q at index %d", string(c), i)
		}
	}

	return nil
}

// Outcome is the terminal result of a match as declared by the server.
type Outcome string

const (
	OutcomeNone Outcome = ""    // Match still in progress
	OutcomeX    Outcome = "X"   // X won
	OutcomeO    Outcome = "O"   // O won
	OutcomeTie  Outcome = "Tie" // Board filled without a winner
)

// Valid reports whether o is a known outcome, including OutcomeNone.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeNone, OutcomeX, OutcomeO, OutcomeTie:
		return true
	default:
		return false
	}
}

// Terminal reports whether o ends the match.
func (o Outcome) Terminal() bool {
	return o != OutcomeNone
}

// WonBy reports whether o is a win for s.
func (o Outcome) WonBy(s Symbol) bool {
	return o != OutcomeTie && o != OutcomeNone && string(o) == string(s)
}
