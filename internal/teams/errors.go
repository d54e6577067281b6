package teams

import "errors"

// Service errors.
var (
	ErrTeamNotFound   = errors.New("team not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrAlreadyMember  = errors.New("user is already a team member")
	ErrMemberNotFound = errors.New("user is not a team member")
	ErrAccessDenied   = errors.New("only the team lead or a manager can do this")
)
