package room

import "errors"

var (
	ErrRoomNotFound = errors.New("chat room not found")
	ErrRoomExists   = errors.New("chat room already exists for this reference")
)
