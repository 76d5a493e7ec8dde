package decks

import "errors"

var (
	ErrNotFound     = errors.New("deck not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrTerminalState indicates a status transition was refused
	// because the deck already finished.
	ErrTerminalState = errors.New("deck is in a terminal state")

	// ErrAnalysisInProgress indicates an analysis job is already
	// running for this deck.
	ErrAnalysisInProgress = errors.New("analysis already in progress")

	// ErrAwaitTimeout indicates AwaitCompletion exhausted its polling
	// budget before the deck reached a terminal state.
	ErrAwaitTimeout = errors.New("timed out waiting for analysis completion")
)
