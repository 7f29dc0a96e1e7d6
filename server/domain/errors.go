package domain

import "errors"

var (
	// auth
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrAlreadyConnected = errors.New("already connected")

	// rooms
	ErrRoomNotFound    = errors.New("room not found")
	ErrNameTaken       = errors.New("room name taken")
	ErrInvalidName     = errors.New("invalid room name")
	ErrInvalidPassword = errors.New("invalid password")
	ErrNotInRoom       = errors.New("not in a room")
	ErrNotHost         = errors.New("not the room host")
	ErrTargetNotInRoom = errors.New("target user not in room")

	// content
	ErrShowNotFound = errors.New("show not found")

	// chat
	ErrEmptyMessage = errors.New("empty message")

	// external services
	ErrUpstream = errors.New("upstream service failure")
)
