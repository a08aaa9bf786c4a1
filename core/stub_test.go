package core

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"taskflow-api/cache"
	"taskflow-api/domain"
)

// stubGateway implements Gateway with overridable functions so each test
// wires only the calls it expects.
type stubGateway struct {
	insertProjectFn        func(ctx context.Context, p domain.Project) (domain.Project, error)
	getProjectFn           func(ctx context.Context, projectID string) (domain.Project, error)
	deleteProjectFn        func(ctx context.Context, projectID string) error
	listProjectsByMemberFn func(ctx context.Context, userID string) ([]domain.Project, error)
	insertMembershipFn     func(ctx context.Context, m domain.Membership) (domain.Membership, error)
	listMembersFn          func(ctx context.Context, projectID string) ([]domain.Member, error)
	insertTaskFn           func(ctx context.Context, t domain.Task) (domain.Task, error)
	listTasksFn            func(ctx context.Context, projectID string) ([]domain.Task, error)
	listRecentTasksFn      func(ctx context.Context, userID string, limit int) ([]domain.TaskWithProject, error)
	updateTaskStatusFn     func(ctx context.Context, taskID string, status domain.Status) (domain.Task, error)
	deleteTaskFn           func(ctx context.Context, taskID string) (domain.Task, error)
}

var errUnexpectedCall = errors.New("unexpected gateway call")

func (s *stubGateway) InsertProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	if s.insertProjectFn == nil {
		return domain.Project{}, errUnexpectedCall
	}
	return s.insertProjectFn(ctx, p)
}

func (s *stubGateway) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	if s.getProjectFn == nil {
		return domain.Project{}, errUnexpectedCall
	}
	return s.getProjectFn(ctx, projectID)
}

func (s *stubGateway) DeleteProject(ctx context.Context, projectID string) error {
	if s.deleteProjectFn == nil {
		return errUnexpectedCall
	}
	return s.deleteProjectFn(ctx, projectID)
}

func (s *stubGateway) ListProjectsByMember(ctx context.Context, userID string) ([]domain.Project, error) {
	if s.listProjectsByMemberFn == nil {
		return nil, errUnexpectedCall
	}
	return s.listProjectsByMemberFn(ctx, userID)
}

func (s *stubGateway) InsertMembership(ctx context.Context, m domain.Membership) (domain.Membership, error) {
	if s.insertMembershipFn == nil {
		return domain.Membership{}, errUnexpectedCall
	}
	return s.insertMembershipFn(ctx, m)
}

func (s *stubGateway) ListMembers(ctx context.Context, projectID string) ([]domain.Member, error) {
	if s.listMembersFn == nil {
		return nil, errUnexpectedCall
	}
	return s.listMembersFn(ctx, projectID)
}

func (s *stubGateway) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if s.insertTaskFn == nil {
		return domain.Task{}, errUnexpectedCall
	}
	return s.insertTaskFn(ctx, t)
}

func (s *stubGateway) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	if s.listTasksFn == nil {
		return nil, errUnexpectedCall
	}
	return s.listTasksFn(ctx, projectID)
}

func (s *stubGateway) ListRecentTasks(ctx context.Context, userID string, limit int) ([]domain.TaskWithProject, error) {
	if s.listRecentTasksFn == nil {
		return nil, errUnexpectedCall
	}
	return s.listRecentTasksFn(ctx, userID, limit)
}

func (s *stubGateway) UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) (domain.Task, error) {
	if s.updateTaskStatusFn == nil {
		return domain.Task{}, errUnexpectedCall
	}
	return s.updateTaskStatusFn(ctx, taskID, status)
}

func (s *stubGateway) DeleteTask(ctx context.Context, taskID string) (domain.Task, error) {
	if s.deleteTaskFn == nil {
		return domain.Task{}, errUnexpectedCall
	}
	return s.deleteTaskFn(ctx, taskID)
}

// recordingSink collects published events for assertions.
type recordingSink struct {
	events []domain.Event
}

func (r *recordingSink) Publish(ev domain.Event) {
	r.events = append(r.events, ev)
}

func newEngineCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.New(client, time.Minute)
}
