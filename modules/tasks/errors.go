package tasks

import "errors"

// Sentinel errors for task operations. ErrNotFound deliberately covers
// both a truly absent task and a task owned by someone else, so callers
// cannot probe for other users' record ids.
var (
	ErrNotFound       = errors.New("task not found")
	ErrTitleRequired  = errors.New("title is required")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrInvalidDueDate = errors.New("invalid due date")
	ErrFileTooLarge   = errors.New("file too large")
)
