package domain

import "time"

// Project groups tasks and memberships. CreatedBy and CreatedAt are set once
// at insert time and never change.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}
