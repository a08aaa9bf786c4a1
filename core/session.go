package core

import "taskflow-api/domain"

// Session carries the authenticated user through every engine call. It is
// established at the edge when a token is verified and passed explicitly;
// there is no process-wide current user.
type Session struct {
	UserID string
}

// Valid reports whether the session names a user.
func (s Session) Valid() bool { return s.UserID != "" }

func requireSession(s Session) error {
	if !s.Valid() {
		return domain.ErrUnauthenticated
	}
	return nil
}
