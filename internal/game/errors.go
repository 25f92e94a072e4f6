package game

import "errors"

var (
	// ErrRoomExists is returned when creating a room whose ID is taken.
	ErrRoomExists = errors.New("room already exists")

	// ErrRoomNotFound is returned when joining a room that does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNameTaken is returned when joining with a name already present
	// in the room.
	ErrNameTaken = errors.New("name already taken")

	// ErrAssetLookup wraps asset provider failures during room creation.
	ErrAssetLookup = errors.New("asset lookup failed")
)
