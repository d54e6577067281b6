package domain

import "time"

// ActivityAction describes what an actor did to an entity.
type ActivityAction string

// Activity actions.
const (
	ActivityCreated       ActivityAction = "created"
	ActivityUpdated       ActivityAction = "updated"
	ActivityDeleted       ActivityAction = "deleted"
	ActivityStatusChanged ActivityAction = "status_changed"
	ActivityMemberAdded   ActivityAction = "member_added"
	ActivityMemberRemoved ActivityAction = "member_removed"
)

// Activity is one entry in the audit trail. Recording is best-effort:
// a failed write never fails the request that triggered it.
type Activity struct {
	ID         string            `json:"id"`
	ActorID    string            `json:"actor_id"`
	Action     ActivityAction    `json:"action"`
	EntityKind string            `json:"entity_kind"`
	EntityID   string            `json:"entity_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
