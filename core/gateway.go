package core

import (
	"context"

	"taskflow-api/domain"
)

// Gateway is the persistence contract the engines run against. The remote
// store is the source of truth and also owns row-level access control: the
// engines never check a membership role before an operation, they rely on
// the store to reject writes the caller may not perform.
//
// Errors crossing this boundary are already wrapped into the domain error
// kinds; the engines assume nothing about backend error codes.
type Gateway interface {
	InsertProject(ctx context.Context, p domain.Project) (domain.Project, error)
	GetProject(ctx context.Context, projectID string) (domain.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
	ListProjectsByMember(ctx context.Context, userID string) ([]domain.Project, error)

	InsertMembership(ctx context.Context, m domain.Membership) (domain.Membership, error)
	ListMembers(ctx context.Context, projectID string) ([]domain.Member, error)

	InsertTask(ctx context.Context, t domain.Task) (domain.Task, error)
	ListTasks(ctx context.Context, projectID string) ([]domain.Task, error)
	ListRecentTasks(ctx context.Context, userID string, limit int) ([]domain.TaskWithProject, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) (domain.Task, error)
	DeleteTask(ctx context.Context, taskID string) (domain.Task, error)
}

// EventSink receives advisory events after successful mutations. Publishing
// must not block the mutation path and a dropped event is not an error.
type EventSink interface {
	Publish(event domain.Event)
}

// discardSink is used when no event queue is configured.
type discardSink struct{}

func (discardSink) Publish(domain.Event) {}
