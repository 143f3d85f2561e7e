package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failure")
	ErrPersistence   = errors.New("persistence failure")
	ErrTransientLoad = errors.New("transient load failure")

	ErrStaleLoad           = errors.New("stale load result")
	ErrStaleSession        = errors.New("stale modal session")
	ErrMoveInFlight        = errors.New("task move already in flight")
	ErrModalNotEditing     = errors.New("task modal is not editing")
	ErrBoardLocked         = errors.New("board cannot change while editing a task")
	ErrNavigateUnavailable = errors.New("view on board is unavailable")
)
