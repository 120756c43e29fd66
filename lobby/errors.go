package lobby

import "errors"

var (
	// ErrGameNotFound is returned for operations on a game that does not exist.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameExists is returned when a new game id is already taken.
	ErrGameExists = errors.New("game already exists")
	// ErrGameFull is returned when joining a game with no free seats.
	ErrGameFull = errors.New("game is full")
	// ErrAlreadyJoined is returned when a player joins a game twice.
	ErrAlreadyJoined = errors.New("player already joined")
	// ErrNotJoined is returned when a player leaves a game they are not in.
	ErrNotJoined = errors.New("player has not joined")
	// ErrInvalidGame is returned for malformed create requests.
	ErrInvalidGame = errors.New("invalid game")
)
