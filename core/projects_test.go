package core

import (
	"context"
	"errors"
	"testing"

	"taskflow-api/domain"
)

func TestCreateProjectValidationSkipsStore(t *testing.T) {
	ctx := context.Background()
	engine := NewProjects(&stubGateway{}, nil, nil, nil) // any store call fails

	for _, name := range []string{"", "   "} {
		_, err := engine.Create(ctx, sess, name, nil)
		if !domain.IsValidation(err) {
			t.Fatalf("name %q: expected validation error, got %v", name, err)
		}
	}
}

func TestCreateProjectRequiresSession(t *testing.T) {
	engine := NewProjects(&stubGateway{}, nil, nil, nil)
	_, err := engine.Create(context.Background(), Session{}, "Acme", nil)
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestCreateProjectInsertsOwnerMembership(t *testing.T) {
	ctx := context.Background()
	c := newEngineCache(t)

	var (
		projects    []domain.Project
		memberships []domain.Membership
	)
	gw := &stubGateway{
		insertProjectFn: func(_ context.Context, p domain.Project) (domain.Project, error) {
			p.ID = "p1"
			projects = append(projects, p)
			return p, nil
		},
		insertMembershipFn: func(_ context.Context, m domain.Membership) (domain.Membership, error) {
			m.ID = "m1"
			memberships = append(memberships, m)
			return m, nil
		},
		listProjectsByMemberFn: func(_ context.Context, userID string) ([]domain.Project, error) {
			return projects, nil
		},
	}
	engine := NewProjects(gw, c, nil, nil)

	// Prime the project list so the create must invalidate it.
	if got, err := engine.List(ctx, sess); err != nil || len(got) != 0 {
		t.Fatalf("priming list: got=%v err=%v", got, err)
	}

	desc := "desc"
	created, err := engine.Create(ctx, sess, "Acme", &desc)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "Acme" || created.CreatedBy != "u1" {
		t.Fatalf("unexpected project: %#v", created)
	}

	if len(memberships) != 1 {
		t.Fatalf("expected exactly one membership insert, got %d", len(memberships))
	}
	owner := memberships[0]
	if owner.Role != domain.RoleOwner || owner.UserID != "u1" || owner.ProjectID != "p1" {
		t.Fatalf("unexpected owner membership: %#v", owner)
	}

	got, err := engine.List(ctx, sess)
	if err != nil {
		t.Fatalf("list after create: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Acme" {
		t.Fatalf("re-fetched project list must contain the new project, got %#v", got)
	}
}

func TestCreateProjectCompensatesOnMembershipFailure(t *testing.T) {
	ctx := context.Background()
	memberErr := &domain.GatewayError{Op: "insert membership", Err: errors.New("row level policy")}

	var deletedProject string
	gw := &stubGateway{
		insertProjectFn: func(_ context.Context, p domain.Project) (domain.Project, error) {
			p.ID = "p1"
			return p, nil
		},
		insertMembershipFn: func(context.Context, domain.Membership) (domain.Membership, error) {
			return domain.Membership{}, memberErr
		},
		deleteProjectFn: func(_ context.Context, projectID string) error {
			deletedProject = projectID
			return nil
		},
	}
	engine := NewProjects(gw, nil, nil, nil)

	_, err := engine.Create(ctx, sess, "Acme", nil)
	if !errors.Is(err, memberErr) {
		t.Fatalf("expected the membership error to surface, got %v", err)
	}
	if deletedProject != "p1" {
		t.Fatalf("expected compensating delete of p1, got %q", deletedProject)
	}
}

func TestCreateProjectReportsOrphanWhenCompensationFails(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{
		insertProjectFn: func(_ context.Context, p domain.Project) (domain.Project, error) {
			p.ID = "p1"
			return p, nil
		},
		insertMembershipFn: func(context.Context, domain.Membership) (domain.Membership, error) {
			return domain.Membership{}, errors.New("insert failed")
		},
		deleteProjectFn: func(context.Context, string) error {
			return errors.New("delete also failed")
		},
	}
	engine := NewProjects(gw, nil, nil, nil)

	_, err := engine.Create(ctx, sess, "Acme", nil)
	var pf *domain.PartialFailureError
	if !errors.As(err, &pf) {
		t.Fatalf("expected PartialFailureError, got %v", err)
	}
	if pf.Created != "p1" {
		t.Fatalf("expected orphan p1 to be named, got %q", pf.Created)
	}
}

func TestInviteAlwaysUnsupported(t *testing.T) {
	ctx := context.Background()
	engine := NewProjects(&stubGateway{}, nil, nil, nil) // no store call may happen

	for _, email := range []string{"a@b.com", "not-an-email", ""} {
		err := engine.Invite(ctx, sess, "p1", email)
		if !errors.Is(err, domain.ErrInviteUnsupported) {
			t.Fatalf("email %q: expected ErrInviteUnsupported, got %v", email, err)
		}
	}
}

func TestInviteRequiresSession(t *testing.T) {
	engine := NewProjects(&stubGateway{}, nil, nil, nil)
	err := engine.Invite(context.Background(), Session{}, "p1", "a@b.com")
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestGetProjectSurfacesNotFound(t *testing.T) {
	gw := &stubGateway{
		getProjectFn: func(context.Context, string) (domain.Project, error) {
			return domain.Project{}, domain.ErrNotFound
		},
	}
	engine := NewProjects(gw, nil, nil, nil)
	_, err := engine.Get(context.Background(), sess, "hidden")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMembersCachedPerProject(t *testing.T) {
	ctx := context.Background()
	c := newEngineCache(t)

	var calls int
	gw := &stubGateway{
		listMembersFn: func(_ context.Context, projectID string) ([]domain.Member, error) {
			calls++
			return []domain.Member{{
				Membership: domain.Membership{ID: "m1", ProjectID: projectID, UserID: "u1", Role: domain.RoleOwner},
				Email:      "u1@example.com",
			}}, nil
		},
	}
	engine := NewProjects(gw, c, nil, nil)

	members, err := engine.Members(ctx, sess, "p1")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 1 || members[0].Email != "u1@example.com" {
		t.Fatalf("unexpected members: %#v", members)
	}
	if _, err := engine.Members(ctx, sess, "p1"); err != nil {
		t.Fatalf("cached members: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected cached second read, calls=%d", calls)
	}
}

func TestCreateProjectPublishesEvents(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	gw := &stubGateway{
		insertProjectFn: func(_ context.Context, p domain.Project) (domain.Project, error) {
			p.ID = "p1"
			return p, nil
		},
		insertMembershipFn: func(_ context.Context, m domain.Membership) (domain.Membership, error) {
			m.ID = "m1"
			return m, nil
		},
	}
	engine := NewProjects(gw, nil, sink, nil)

	if _, err := engine.Create(ctx, sess, "Acme", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(sink.events) != 2 {
		t.Fatalf("expected project-created and member-added events, got %#v", sink.events)
	}
	if sink.events[0].Type != domain.EventProjectCreated || sink.events[1].Type != domain.EventMemberAdded {
		t.Fatalf("unexpected event order: %#v", sink.events)
	}
}
