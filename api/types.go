package api

import (
	"context"

	"taskflow-api/core"
	"taskflow-api/domain"
)

// TaskEngine abstracts the task lifecycle engine for handlers.
type TaskEngine interface {
	Create(ctx context.Context, sess core.Session, projectID, title string, description *string, status domain.Status) (domain.Task, error)
	SetStatus(ctx context.Context, sess core.Session, taskID string, status domain.Status) (domain.Task, error)
	Delete(ctx context.Context, sess core.Session, taskID string) error
	List(ctx context.Context, sess core.Session, projectID string) ([]domain.Task, error)
	Board(ctx context.Context, sess core.Session, projectID string) (domain.Board, error)
	Recent(ctx context.Context, sess core.Session) ([]domain.TaskWithProject, error)
}

// ProjectEngine abstracts the membership and access engine for handlers.
type ProjectEngine interface {
	Create(ctx context.Context, sess core.Session, name string, description *string) (domain.Project, error)
	Invite(ctx context.Context, sess core.Session, projectID, email string) error
	List(ctx context.Context, sess core.Session) ([]domain.Project, error)
	Get(ctx context.Context, sess core.Session, projectID string) (domain.Project, error)
	Members(ctx context.Context, sess core.Session, projectID string) ([]domain.Member, error)
}

// Authenticator is implemented by types able to extract user IDs from
// Authorization headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper guards non-idempotent creates against client retries.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when the guarded call fails.
	Remove(ctx context.Context, userID, key string) error
}

type createProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Status      string  `json:"status,omitempty"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

type inviteMemberRequest struct {
	Email string `json:"email"`
}

type errorResponse struct {
	Error string `json:"error"`
}
