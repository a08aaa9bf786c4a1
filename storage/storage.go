package storage

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/google/uuid"

	"taskflow-api/domain"
)

// Store is the persistence gateway over Azure Table Storage. It is the
// source of truth for projects, tasks, and memberships; everything the rest
// of the process holds is a transient, invalidatable copy.
//
// Layout: projects and profiles key PartitionKey = RowKey = entity id;
// tasks and members partition by project id with the entity id as RowKey.
// The table service cannot ORDER BY, so ordered listings sort client-side.
type Store struct {
	projects *aztables.Client
	tasks    *aztables.Client
	members  *aztables.Client
	profiles *aztables.Client
	events   *azqueue.QueueClient
}

// New creates a Store from the given connection string. eventQueue may be
// empty to run without the advisory event feed.
func New(connStr, projectsTable, tasksTable, membersTable, profilesTable, eventQueue string) (*Store, error) {
	tableOpts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tableOpts)
	if err != nil {
		return nil, err
	}
	s := &Store{
		projects: svc.NewClient(projectsTable),
		tasks:    svc.NewClient(tasksTable),
		members:  svc.NewClient(membersTable),
		profiles: svc.NewClient(profilesTable),
	}

	if eventQueue != "" {
		queueOpts := azqueue.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				Retry: policy.RetryOptions{
					MaxRetries:    5,
					TryTimeout:    time.Minute * 5,
					RetryDelay:    time.Second * 1,
					MaxRetryDelay: time.Second * 60,
					StatusCodes:   []int{408, 429, 500, 502, 503, 504},
				},
			},
		}
		q, err := azqueue.NewQueueClientFromConnectionString(connStr, eventQueue, &queueOpts)
		if err != nil {
			return nil, err
		}
		s.events = q
	}
	return s, nil
}

type projectEntity struct {
	aztables.Entity
	Name        string `json:"Name"`
	Description string `json:"Description"`
	CreatedBy   string `json:"CreatedBy"`
	CreatedAt   string `json:"CreatedAt"`
}

type taskEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Status      string `json:"Status"`
	CreatedBy   string `json:"CreatedBy"`
	CreatedAt   string `json:"CreatedAt"`
}

type memberEntity struct {
	aztables.Entity
	UserID    string `json:"UserID"`
	Role      string `json:"Role"`
	CreatedAt string `json:"CreatedAt"`
}

type profileEntity struct {
	aztables.Entity
	Email string `json:"Email"`
}

// InsertProject writes a new project row and returns it with the minted id
// and creation time filled in.
func (s *Store) InsertProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()

	ent := projectEntity{
		Entity:      aztables.Entity{PartitionKey: p.ID, RowKey: p.ID},
		Name:        p.Name,
		Description: derefString(p.Description),
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339Nano),
	}
	if err := s.addEntity(ctx, s.projects, ent); err != nil {
		return domain.Project{}, wrapErr("insert project", err)
	}
	return p, nil
}

// GetProject fetches one project by id.
func (s *Store) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	resp, err := s.projects.GetEntity(ctx, projectID, projectID, nil)
	if err != nil {
		return domain.Project{}, wrapErr("get project", err)
	}
	var ent projectEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Project{}, wrapErr("decode project", err)
	}
	return projectFromEntity(ent), nil
}

// DeleteProject removes a project row. It exists for the compensation path
// of project creation; normal operation never deletes projects.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	if _, err := s.projects.DeleteEntity(ctx, projectID, projectID, nil); err != nil {
		return wrapErr("delete project", err)
	}
	return nil
}

// ListProjectsByMember returns the projects the user holds a membership in,
// newest first. The membership rows are the visibility source: a project
// with no membership for the user is simply not returned.
func (s *Store) ListProjectsByMember(ctx context.Context, userID string) ([]domain.Project, error) {
	filter := "UserID eq '" + escapeFilterValue(userID) + "'"
	pager := s.members.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})

	projects := []domain.Project{}
	seen := map[string]bool{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrapErr("list memberships", err)
		}
		for _, raw := range resp.Entities {
			var ent memberEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, wrapErr("decode membership", err)
			}
			projectID := ent.PartitionKey
			if seen[projectID] {
				continue
			}
			seen[projectID] = true
			p, err := s.GetProject(ctx, projectID)
			if err != nil {
				// A membership pointing at a deleted project is skipped,
				// not fatal.
				if isNotFound(err) {
					continue
				}
				return nil, err
			}
			projects = append(projects, p)
		}
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}

// InsertMembership writes a membership row and returns it with the minted id.
func (s *Store) InsertMembership(ctx context.Context, m domain.Membership) (domain.Membership, error) {
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	if m.Role == "" {
		m.Role = domain.RoleMember
	}

	ent := memberEntity{
		Entity:    aztables.Entity{PartitionKey: m.ProjectID, RowKey: m.ID},
		UserID:    m.UserID,
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt.Format(time.RFC3339Nano),
	}
	if err := s.addEntity(ctx, s.members, ent); err != nil {
		return domain.Membership{}, wrapErr("insert membership", err)
	}
	return m, nil
}

// ListMembers returns the project's memberships joined with profile emails.
// A missing profile leaves the email empty rather than failing the listing.
func (s *Store) ListMembers(ctx context.Context, projectID string) ([]domain.Member, error) {
	filter := "PartitionKey eq '" + escapeFilterValue(projectID) + "'"
	pager := s.members.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})

	members := []domain.Member{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrapErr("list members", err)
		}
		for _, raw := range resp.Entities {
			var ent memberEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, wrapErr("decode membership", err)
			}
			m := domain.Member{Membership: membershipFromEntity(ent)}
			if email, err := s.lookupEmail(ctx, ent.UserID); err == nil {
				m.Email = email
			}
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].CreatedAt.Before(members[j].CreatedAt)
	})
	return members, nil
}

// InsertTask writes a task row and returns it with the minted id and
// creation time filled in.
func (s *Store) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()

	ent := taskEntity{
		Entity:      aztables.Entity{PartitionKey: t.ProjectID, RowKey: t.ID},
		Title:       t.Title,
		Description: derefString(t.Description),
		Status:      string(t.Status),
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339Nano),
	}
	if err := s.addEntity(ctx, s.tasks, ent); err != nil {
		return domain.Task{}, wrapErr("insert task", err)
	}
	return t, nil
}

// ListTasks returns the project's tasks, newest first.
func (s *Store) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + escapeFilterValue(projectID) + "'"
	tasks, err := s.listTasksFiltered(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// ListRecentTasks returns the newest tasks created by the user across all
// projects, annotated with project names, capped at limit.
func (s *Store) ListRecentTasks(ctx context.Context, userID string, limit int) ([]domain.TaskWithProject, error) {
	filter := "CreatedBy eq '" + escapeFilterValue(userID) + "'"
	tasks, err := s.listTasksFiltered(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}

	names := map[string]string{}
	out := make([]domain.TaskWithProject, 0, len(tasks))
	for _, t := range tasks {
		name, ok := names[t.ProjectID]
		if !ok {
			p, err := s.GetProject(ctx, t.ProjectID)
			if err != nil && !isNotFound(err) {
				return nil, err
			}
			name = p.Name
			names[t.ProjectID] = name
		}
		out = append(out, domain.TaskWithProject{Task: t, ProjectName: name})
	}
	return out, nil
}

// UpdateTaskStatus sets the task's status and returns the updated row. The
// task is located by id first; a vanished task is ErrNotFound.
func (s *Store) UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) (domain.Task, error) {
	t, err := s.findTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}

	patch := map[string]any{
		"PartitionKey": t.ProjectID,
		"RowKey":       t.ID,
		"Status":       string(status),
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return domain.Task{}, wrapErr("encode task update", err)
	}
	mode := aztables.UpdateModeMerge
	if _, err := s.tasks.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{UpdateMode: mode}); err != nil {
		return domain.Task{}, wrapErr("update task status", err)
	}
	t.Status = status
	return t, nil
}

// DeleteTask removes the task row and returns the deleted task so callers
// know which project's listing changed. A task that is already gone is
// ErrNotFound; the caller decides whether that is benign.
func (s *Store) DeleteTask(ctx context.Context, taskID string) (domain.Task, error) {
	t, err := s.findTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.tasks.DeleteEntity(ctx, t.ProjectID, t.ID, nil); err != nil {
		return domain.Task{}, wrapErr("delete task", err)
	}
	return t, nil
}

func (s *Store) findTask(ctx context.Context, taskID string) (domain.Task, error) {
	filter := "RowKey eq '" + escapeFilterValue(taskID) + "'"
	tasks, err := s.listTasksFiltered(ctx, filter)
	if err != nil {
		return domain.Task{}, err
	}
	if len(tasks) == 0 {
		return domain.Task{}, domain.ErrNotFound
	}
	return tasks[0], nil
}

func (s *Store) listTasksFiltered(ctx context.Context, filter string) ([]domain.Task, error) {
	pager := s.tasks.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrapErr("list tasks", err)
		}
		for _, raw := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, wrapErr("decode task", err)
			}
			tasks = append(tasks, taskFromEntity(ent))
		}
	}
	return tasks, nil
}

func (s *Store) lookupEmail(ctx context.Context, userID string) (string, error) {
	resp, err := s.profiles.GetEntity(ctx, userID, userID, nil)
	if err != nil {
		return "", wrapErr("get profile", err)
	}
	var ent profileEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return "", wrapErr("decode profile", err)
	}
	return ent.Email, nil
}

func (s *Store) addEntity(ctx context.Context, client *aztables.Client, ent any) error {
	data, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = client.AddEntity(ctx, data, nil)
	return err
}

func projectFromEntity(ent projectEntity) domain.Project {
	return domain.Project{
		ID:          ent.RowKey,
		Name:        ent.Name,
		Description: optionalString(ent.Description),
		CreatedBy:   ent.CreatedBy,
		CreatedAt:   parseTime(ent.CreatedAt),
	}
}

func taskFromEntity(ent taskEntity) domain.Task {
	return domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: optionalString(ent.Description),
		Status:      domain.Status(ent.Status),
		ProjectID:   ent.PartitionKey,
		CreatedBy:   ent.CreatedBy,
		CreatedAt:   parseTime(ent.CreatedAt),
	}
}

func membershipFromEntity(ent memberEntity) domain.Membership {
	return domain.Membership{
		ID:        ent.RowKey,
		ProjectID: ent.PartitionKey,
		UserID:    ent.UserID,
		Role:      domain.Role(ent.Role),
		CreatedAt: parseTime(ent.CreatedAt),
	}
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// escapeFilterValue doubles single quotes so values cannot break out of the
// OData string literal.
func escapeFilterValue(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
