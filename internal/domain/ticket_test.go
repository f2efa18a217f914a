package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		current TicketStatus
		next    TicketStatus
		allowed bool
	}{
		{"open to in progress", TicketStatusOpen, TicketStatusInProgress, true},
		{"open to resolved", TicketStatusOpen, TicketStatusResolved, true},
		{"open to closed", TicketStatusOpen, TicketStatusClosed, true},
		{"in progress to open", TicketStatusInProgress, TicketStatusOpen, true},
		{"in progress to resolved", TicketStatusInProgress, TicketStatusResolved, true},
		{"resolved to closed", TicketStatusResolved, TicketStatusClosed, true},
		{"resolved to in progress", TicketStatusResolved, TicketStatusInProgress, true},
		{"closed to resolved", TicketStatusClosed, TicketStatusResolved, true},
		{"resolved to open rejected", TicketStatusResolved, TicketStatusOpen, false},
		{"closed to open rejected", TicketStatusClosed, TicketStatusOpen, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, CanTransition(tc.current, tc.next))
		})
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(TicketStatusOpen))
	assert.True(t, ValidStatus(TicketStatusClosed))
	assert.False(t, ValidStatus(TicketStatus("Pendiente")))
	assert.False(t, ValidStatus(TicketStatus("")))
}

func TestValidPriority(t *testing.T) {
	assert.True(t, ValidPriority(TicketPriorityMedium))
	assert.False(t, ValidPriority(TicketPriority("Urgente")))
}

func TestTicketImage(t *testing.T) {
	ticket := &Ticket{}
	assert.False(t, ticket.HasImage())
	assert.Equal(t, "", ticket.ImageURL())

	name := "20240101120000_ab12cd34_captura.png"
	ticket.ImageFilename = &name
	assert.True(t, ticket.HasImage())
	assert.Equal(t, "/uploads/20240101120000_ab12cd34_captura.png", ticket.ImageURL())
}
