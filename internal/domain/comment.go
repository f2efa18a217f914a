package domain

import "time"

// Comment is an immutable note on a ticket. AuthorName and AuthorEmail are
// denormalized on read for rendering and notification fan-out.
type Comment struct {
	ID        int64
	TicketID  int64
	AuthorID  int64
	Content   string
	CreatedAt time.Time

	AuthorName  string
	AuthorEmail string
}
