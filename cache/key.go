package cache

// Kind enumerates the cached query families. Keeping it closed makes
// invalidation exhaustive: every mutation names exactly the keys whose
// underlying collection it changed.
type Kind uint8

const (
	// KindProjects caches the project list visible to one user.
	KindProjects Kind = iota
	// KindTasks caches one project's task list.
	KindTasks
	// KindMembers caches one project's membership list.
	KindMembers
	// KindRecentTasks caches the recent tasks created by one user.
	KindRecentTasks
)

func (k Kind) prefix() string {
	switch k {
	case KindProjects:
		return "projects"
	case KindTasks:
		return "tasks"
	case KindMembers:
		return "members"
	case KindRecentTasks:
		return "recent-tasks"
	}
	return "unknown"
}

// Key identifies one cached query result. The ID scopes the kind to a user
// or a project, so invalidating Tasks("p1") never touches Tasks("p2").
type Key struct {
	Kind Kind
	ID   string
}

// String renders the Redis key for this logical query.
func (k Key) String() string {
	return k.Kind.prefix() + ":" + k.ID
}

// Projects keys the project list visible to userID.
func Projects(userID string) Key { return Key{Kind: KindProjects, ID: userID} }

// Tasks keys the task list of projectID.
func Tasks(projectID string) Key { return Key{Kind: KindTasks, ID: projectID} }

// Members keys the membership list of projectID.
func Members(projectID string) Key { return Key{Kind: KindMembers, ID: projectID} }

// RecentTasks keys the recent tasks created by userID.
func RecentTasks(userID string) Key { return Key{Kind: KindRecentTasks, ID: userID} }
