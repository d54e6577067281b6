package domain

import "time"

// NotificationType categorizes a notification.
type NotificationType string

// Notification types.
const (
	NotificationTaskAssigned    NotificationType = "task_assigned"
	NotificationTaskStatus      NotificationType = "task_status_changed"
	NotificationTeamMemberAdded NotificationType = "team_member_added"
	NotificationProjectMember   NotificationType = "project_member_added"
)

// Notification represents an in-app notification for one recipient.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipient_id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Body        string           `json:"body"`
	EntityKind  string           `json:"entity_kind"`
	EntityID    string           `json:"entity_id"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}
