package notifications

import "errors"

// Service errors.
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrAccessDenied         = errors.New("notification belongs to another user")
)
