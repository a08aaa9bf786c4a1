package domain

// Event types published after successful mutations.
const (
	EventProjectCreated    = "project-created"
	EventMemberAdded       = "member-added"
	EventTaskCreated       = "task-created"
	EventTaskStatusChanged = "task-status-changed"
	EventTaskDeleted       = "task-deleted"
)

// Event is the advisory record published to the event queue after a mutation
// lands. Consumers build activity feeds from it; delivery is best effort and
// a lost event never fails the mutation that produced it.
type Event struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	EntityID  string `json:"entityId"`
	ProjectID string `json:"projectId,omitempty"`
	ActorID   string `json:"actorId"`
	Time      int64  `json:"time"`
}
