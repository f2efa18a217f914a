package domain

import "time"

// TicketStatus enumerates ticket lifecycle states. The Spanish values are the
// wire format used in forms and stored in the database.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Abierto"
	TicketStatusInProgress TicketStatus = "En Progreso"
	TicketStatusResolved   TicketStatus = "Resuelto"
	TicketStatusClosed     TicketStatus = "Cerrado"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Baja"
	TicketPriorityMedium TicketPriority = "Media"
	TicketPriorityHigh   TicketPriority = "Alta"
)

// Ticket is the aggregate for help-desk requests.
type Ticket struct {
	ID             int64
	Title          string
	Description    string
	FailureDetails string
	Status         TicketStatus
	Priority       TicketPriority
	CreatorID      int64
	AssigneeID     *int64
	ImageFilename  *string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasImage reports whether the ticket has a stored attachment.
func (t *Ticket) HasImage() bool {
	return t.ImageFilename != nil && *t.ImageFilename != ""
}

// ImageURL derives the public path of the stored attachment.
func (t *Ticket) ImageURL() string {
	if !t.HasImage() {
		return ""
	}
	return "/uploads/" + *t.ImageFilename
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// CanTransition applies the single business rule of the status machine:
// a ticket already resolved or closed can never go back to open.
func CanTransition(current, next TicketStatus) bool {
	if !ValidStatus(next) {
		return false
	}
	if next == TicketStatusOpen &&
		(current == TicketStatusResolved || current == TicketStatusClosed) {
		return false
	}
	return true
}
