package domain

import "errors"

var (
	// ErrEmptyDataset is returned when the dataset provider yields no usable movies.
	ErrEmptyDataset = errors.New("movie dataset is empty")
	// ErrNoValues indicates a question field has no values across the dataset.
	ErrNoValues = errors.New("dataset field has no values")
	// ErrSessionNotFound is returned when a game session has not been started.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrEmptyName keeps a game waiting for a player name.
	ErrEmptyName = errors.New("player name is empty")
	// ErrInvalidName rejects names that cannot be stored as UTF-8 text.
	ErrInvalidName = errors.New("player name is not valid UTF-8")
	// ErrPlayerActive is returned when a name is set while a player is still playing.
	ErrPlayerActive = errors.New("player already set")
	// ErrNoSelection is returned when an answer is submitted without an option.
	ErrNoSelection = errors.New("no option selected")
	// ErrRoundOver indicates the round has no questions left to answer.
	ErrRoundOver = errors.New("round is already complete")
	// ErrNotInRound is returned for actions that need an active or finished round.
	ErrNotInRound = errors.New("no round in progress")
	// ErrInvalidOption indicates a submitted option index is out of range.
	ErrInvalidOption = errors.New("option not found")
)
