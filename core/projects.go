package core

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"taskflow-api/cache"
	"taskflow-api/domain"
)

// Projects is the membership and access engine: project creation with
// ownership assignment, member listing, and the (unavailable) invite path.
type Projects struct {
	store  Gateway
	cache  *cache.Cache
	events EventSink
	log    *log.Logger
}

// NewProjects creates the membership engine. sink may be nil when no event
// queue is configured.
func NewProjects(store Gateway, c *cache.Cache, sink EventSink, logger *log.Logger) *Projects {
	if sink == nil {
		sink = discardSink{}
	}
	if logger == nil {
		logger = log.New()
	}
	return &Projects{store: store, cache: c, events: sink, log: logger}
}

// Create inserts a project and its owner membership for the session user.
//
// The two inserts are separate store calls, not a transaction. When the
// membership insert fails the just-created project is deleted again so no
// ownerless project survives; if that compensation also fails the caller
// gets a PartialFailureError naming the orphan for manual cleanup.
func (p *Projects) Create(ctx context.Context, sess Session, name string, description *string) (domain.Project, error) {
	if err := requireSession(sess); err != nil {
		return domain.Project{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Project{}, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}

	created, err := p.store.InsertProject(ctx, domain.Project{
		Name:        name,
		Description: normalizeDescription(description),
		CreatedBy:   sess.UserID,
	})
	if err != nil {
		return domain.Project{}, err
	}

	owner, err := p.store.InsertMembership(ctx, domain.Membership{
		ProjectID: created.ID,
		UserID:    sess.UserID,
		Role:      domain.RoleOwner,
	})
	if err != nil {
		if delErr := p.store.DeleteProject(ctx, created.ID); delErr != nil {
			p.log.WithFields(log.Fields{
				"project": created.ID,
				"error":   delErr,
			}).Error("compensating project delete failed, orphan left behind")
			return domain.Project{}, &domain.PartialFailureError{Created: created.ID, Err: err}
		}
		return domain.Project{}, err
	}

	p.cache.Invalidate(ctx, cache.Projects(sess.UserID))
	p.events.Publish(domain.Event{
		Type:      domain.EventProjectCreated,
		EntityID:  created.ID,
		ProjectID: created.ID,
		ActorID:   sess.UserID,
	})
	p.events.Publish(domain.Event{
		Type:      domain.EventMemberAdded,
		EntityID:  owner.ID,
		ProjectID: created.ID,
		ActorID:   sess.UserID,
	})
	return created, nil
}

// Invite would add the user behind email as a member of the project. The
// store contract has no verified user-lookup-by-email primitive, so the
// operation is unavailable: it always returns ErrInviteUnsupported and never
// inserts a membership, whatever the email looks like. Callers branch on the
// sentinel, not on the message.
func (p *Projects) Invite(ctx context.Context, sess Session, projectID, email string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	_ = projectID
	_ = email
	return domain.ErrInviteUnsupported
}

// List returns the projects visible to the session user through their
// memberships, cached per user.
func (p *Projects) List(ctx context.Context, sess Session) ([]domain.Project, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return cache.Read(ctx, p.cache, cache.Projects(sess.UserID), func(ctx context.Context) ([]domain.Project, error) {
		return p.store.ListProjectsByMember(ctx, sess.UserID)
	})
}

// Get returns a single project. Whether the caller may see it is the store's
// decision; a project hidden by row-level policy surfaces as ErrNotFound.
func (p *Projects) Get(ctx context.Context, sess Session, projectID string) (domain.Project, error) {
	if err := requireSession(sess); err != nil {
		return domain.Project{}, err
	}
	return p.store.GetProject(ctx, projectID)
}

// Members returns the project's memberships joined with profile emails,
// cached per project.
func (p *Projects) Members(ctx context.Context, sess Session, projectID string) ([]domain.Member, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return cache.Read(ctx, p.cache, cache.Members(projectID), func(ctx context.Context) ([]domain.Member, error) {
		return p.store.ListMembers(ctx, projectID)
	})
}
