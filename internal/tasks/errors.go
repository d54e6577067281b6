package tasks

import "errors"

// Service errors.
var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrSubtaskNotFound  = errors.New("subtask not found")
	ErrProjectNotFound  = errors.New("project not found")
	ErrInvalidStatus    = errors.New("invalid task status")
	ErrInvalidPriority  = errors.New("invalid task priority")
	ErrNotCommentAuthor = errors.New("only the comment author can delete it")
	ErrAccessDenied     = errors.New("only the reporter or a manager can do this")
	ErrNoTaskIDs        = errors.New("at least one task id is required")
	ErrInvalidTimeSpent = errors.New("time spent must be positive")
)
