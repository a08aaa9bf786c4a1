package core

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"taskflow-api/cache"
	"taskflow-api/domain"
)

// recentTasksLimit caps the dashboard's recent-task listing.
const recentTasksLimit = 5

// Tasks is the task lifecycle engine. Statuses form a flat state machine:
// every status may be set from every other status, including a no-op set.
type Tasks struct {
	store  Gateway
	cache  *cache.Cache
	events EventSink
	log    *log.Logger
}

// NewTasks creates the task engine. sink may be nil when no event queue is
// configured.
func NewTasks(store Gateway, c *cache.Cache, sink EventSink, logger *log.Logger) *Tasks {
	if sink == nil {
		sink = discardSink{}
	}
	if logger == nil {
		logger = log.New()
	}
	return &Tasks{store: store, cache: c, events: sink, log: logger}
}

// Create inserts a task attributed to the session user. An empty status
// defaults to todo. The title must be non-empty after trimming; validation
// failures never reach the store.
func (t *Tasks) Create(ctx context.Context, sess Session, projectID, title string, description *string, status domain.Status) (domain.Task, error) {
	if err := requireSession(sess); err != nil {
		return domain.Task{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Task{}, &domain.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if projectID == "" {
		return domain.Task{}, &domain.ValidationError{Field: "projectId", Reason: "must not be empty"}
	}
	if status == "" {
		status = domain.StatusTodo
	}
	if !status.Valid() {
		return domain.Task{}, &domain.ValidationError{Field: "status", Reason: "unknown status"}
	}

	created, err := t.store.InsertTask(ctx, domain.Task{
		Title:       title,
		Description: normalizeDescription(description),
		Status:      status,
		ProjectID:   projectID,
		CreatedBy:   sess.UserID,
	})
	if err != nil {
		return domain.Task{}, err
	}

	t.cache.Invalidate(ctx, cache.Tasks(projectID), cache.RecentTasks(sess.UserID))
	t.events.Publish(domain.Event{
		Type:      domain.EventTaskCreated,
		EntityID:  created.ID,
		ProjectID: projectID,
		ActorID:   sess.UserID,
	})
	return created, nil
}

// SetStatus moves a task to status. There is no precondition on the current
// value; setting the status a task already has succeeds. A task that no
// longer exists surfaces as ErrNotFound.
func (t *Tasks) SetStatus(ctx context.Context, sess Session, taskID string, status domain.Status) (domain.Task, error) {
	if err := requireSession(sess); err != nil {
		return domain.Task{}, err
	}
	if !status.Valid() {
		return domain.Task{}, &domain.ValidationError{Field: "status", Reason: "unknown status"}
	}

	updated, err := t.store.UpdateTaskStatus(ctx, taskID, status)
	if err != nil {
		return domain.Task{}, err
	}

	t.cache.Invalidate(ctx, cache.Tasks(updated.ProjectID))
	t.events.Publish(domain.Event{
		Type:      domain.EventTaskStatusChanged,
		EntityID:  updated.ID,
		ProjectID: updated.ProjectID,
		ActorID:   sess.UserID,
	})
	return updated, nil
}

// Delete removes a task. A task that is already gone counts as success: the
// caller asked for absence and absence is what they have.
func (t *Tasks) Delete(ctx context.Context, sess Session, taskID string) error {
	if err := requireSession(sess); err != nil {
		return err
	}

	deleted, err := t.store.DeleteTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			t.log.WithField("task", taskID).Debug("delete of missing task treated as success")
			return nil
		}
		return err
	}

	t.cache.Invalidate(ctx, cache.Tasks(deleted.ProjectID), cache.RecentTasks(sess.UserID))
	t.events.Publish(domain.Event{
		Type:      domain.EventTaskDeleted,
		EntityID:  deleted.ID,
		ProjectID: deleted.ProjectID,
		ActorID:   sess.UserID,
	})
	return nil
}

// List returns the project's tasks, newest first, through the cache.
func (t *Tasks) List(ctx context.Context, sess Session, projectID string) ([]domain.Task, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return cache.Read(ctx, t.cache, cache.Tasks(projectID), func(ctx context.Context) ([]domain.Task, error) {
		return t.store.ListTasks(ctx, projectID)
	})
}

// Board returns the project's tasks partitioned into the three status
// columns. The partition itself is recomputed on every call.
func (t *Tasks) Board(ctx context.Context, sess Session, projectID string) (domain.Board, error) {
	tasks, err := t.List(ctx, sess, projectID)
	if err != nil {
		return domain.Board{}, err
	}
	return domain.PartitionBoard(tasks), nil
}

// Recent returns the session user's most recently created tasks across all
// projects, annotated with project names.
func (t *Tasks) Recent(ctx context.Context, sess Session) ([]domain.TaskWithProject, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return cache.Read(ctx, t.cache, cache.RecentTasks(sess.UserID), func(ctx context.Context) ([]domain.TaskWithProject, error) {
		return t.store.ListRecentTasks(ctx, sess.UserID, recentTasksLimit)
	})
}

func normalizeDescription(d *string) *string {
	if d == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*d)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
