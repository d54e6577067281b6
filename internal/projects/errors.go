package projects

import "errors"

// Service errors.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrSlugExists      = errors.New("project slug already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrAlreadyMember   = errors.New("user is already a project member")
	ErrMemberNotFound  = errors.New("user is not a project member")
	ErrAccessDenied    = errors.New("only the project owner or a manager can do this")
	ErrInvalidStatus   = errors.New("invalid project status")
)
