package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rafaellugassy/tictactoe-client/offline"
	"github.com/rafaellugassy/tictactoe-client/session"
)

// Run reads commands from in and submits them to loop. It returns nil after
// quit or end of input, having asked the session to disconnect, and
// ctx.Err() on cancellation. connect and disconnect keep the console open,
// so a player can reconnect after the server drops the connection.
//
// Parameters:
//   - ctx: Stops reading when cancelled
//   - in: Line-oriented command input, usually os.Stdin
//   - c: Console for board display and input errors
//   - loop: The running session loop
//   - defaults: Server, username and season for connect without arguments
//
// Returns:
//   - nil, ctx.Err(), or the error from Submit
func Run(ctx context.Context, in io.Reader, c *Console, loop *session.Loop, defaults session.ConnectIntent) error {
	input := scanLines(ctx, in)
	c.Printf("type help for commands\n")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text, ok := <-input:
			if !ok {
				return loop.Submit(ctx, session.DisconnectIntent{})
			}

			cmd, err := Parse(text)
			if errors.Is(err, ErrEmptyCommand) {
				continue
			}
			if err != nil {
				c.Printf("%v\n", err)
				continue
			}

			switch cmd.Kind {
			case KindBoard:
				c.ShowBoard()
			case KindHelp:
				c.Printf("%s\n", onlineHelp)
			case KindNew:
				c.Printf("new is only available offline\n")
			}

			if intent, ok := cmd.Intent(defaults); ok {
				if err := loop.Submit(ctx, intent); err != nil {
					return err
				}
			}

			if cmd.Kind == KindQuit {
				return nil
			}
		}
	}
}

// RunOffline plays a local two-player game on one keyboard until quit or
// end of input.
//
// Returns:
//   - nil, or ctx.Err() on cancellation
func RunOffline(ctx context.Context, in io.Reader, out io.Writer) error {
	c := New(out)
	game := offline.NewGame()
	input := scanLines(ctx, in)

	c.Printf("offline game, type help for commands\n")
	c.reset()
	c.StatusChanged(fmt.Sprintf("%s's turn (local)", game.Current()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text, ok := <-input:
			if !ok {
				return nil
			}

			cmd, err := Parse(text)
			if errors.Is(err, ErrEmptyCommand) {
				continue
			}
			if err != nil {
				c.Printf("%v\n", err)
				continue
			}

			switch cmd.Kind {
			case KindMove:
				outcome, err := game.Play(cmd.Index)
				if err != nil {
					c.Printf("%v\n", err)
					continue
				}

				c.BoardChanged(game.Board())
				if outcome.Terminal() {
					_, line := game.Outcome()
					c.MatchEnded(outcome, line)
					c.Printf("type new to play again\n")
					continue
				}
				c.StatusChanged(fmt.Sprintf("%s's turn (local)", game.Current()))
			case KindNew:
				game.Reset()
				c.reset()
				c.StatusChanged(fmt.Sprintf("%s's turn (local)", game.Current()))
			case KindBoard:
				c.ShowBoard()
			case KindHelp:
				c.Printf("%s\n", offlineHelp)
			case KindFind:
				c.Printf("find is only available online\n")
			case KindConnect, KindDisconnect:
				c.Printf("there is no server offline\n")
			case KindQuit:
				return nil
			}
		}
	}
}

// scanLines feeds lines of r to the returned channel and closes it at end of
// input. A read blocked on r outlives ctx; the process exit reclaims it.
func scanLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
