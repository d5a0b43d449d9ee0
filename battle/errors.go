package battle

import (
	"errors"
	"fmt"

	"showdown-bot/game"
	"showdown-bot/parser"
)

var (
	// ErrEntityNotFound means a line names a Pokemon the room is not tracking.
	// Only the mutation for that line is skipped.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrMalformedLine marks a line whose tokens do not have the expected shape.
	ErrMalformedLine = errors.New("malformed line")
	// ErrNoBattle is returned for battle events that arrive before |start|.
	ErrNoBattle = errors.New("battle not started")
)

func malformed(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformedLine, err)
}

// recoverable reports whether err only invalidates the line that caused it.
func recoverable(err error) bool {
	return errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrMalformedLine) ||
		errors.Is(err, parser.ErrMalformed) ||
		errors.Is(err, ErrNoBattle) ||
		errors.Is(err, game.ErrUnknownName)
}
