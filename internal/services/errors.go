package services

import "errors"

var (
	// ErrNotFound covers missing boards, lists, and cards. Handlers surface
	// it as 404 regardless of whether the true cause is nonexistence or lack
	// of permission.
	ErrNotFound = errors.New("not found")

	// ErrSelfShare is returned when a share targets a user who already owns
	// the board through workspace ownership.
	ErrSelfShare = errors.New("user already owns this board")
)
