package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidBoardID  = errors.New("invalid board id")
	ErrInvalidTitle    = errors.New("invalid title")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrBoardImmutable  = errors.New("task board cannot change")
	ErrMalformedDraft  = errors.New("malformed draft")
)
