package domain

import "time"

// Department represents an organizational unit users belong to.
type Department struct {
	ID          int64
	Name        string
	Description string
	Active      bool
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
