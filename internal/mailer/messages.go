package mailer

import (
	"fmt"

	"github.com/mesadeayuda/helpdesk/internal/domain"
)

// Builder composes the notification messages. It carries only the public URL
// needed for ticket links.
type Builder struct {
	appURL string
}

// NewBuilder constructs a message builder.
func NewBuilder(appURL string) *Builder {
	return &Builder{appURL: appURL}
}

func (b *Builder) ticketLink(ticketID int64) string {
	return fmt.Sprintf("%s/tickets/%d", b.appURL, ticketID)
}

// TicketCreated notifies the creator that their ticket was registered.
func (b *Builder) TicketCreated(ticket *domain.Ticket, creator *domain.User) Message {
	subject := fmt.Sprintf("[Ticket #%d] Tu ticket ha sido creado", ticket.ID)
	text := fmt.Sprintf(
		"Hola %s,\n\nTu ticket #%d: %q ha sido creado exitosamente.\n\nEstado: %s\nPrioridad: %s\n\nPuedes ver el ticket aquí: %s\n\nSaludos,\nSistema de Tickets\n",
		creator.Name, ticket.ID, ticket.Title, ticket.Status, ticket.Priority, b.ticketLink(ticket.ID))
	return Message{To: []string{creator.Email}, Subject: subject, TextBody: text}
}

// TicketAssigned notifies the assignee of a new assignment.
func (b *Builder) TicketAssigned(ticket *domain.Ticket, assignee, creator *domain.User) Message {
	subject := fmt.Sprintf("[Ticket #%d] Se te ha asignado un nuevo ticket", ticket.ID)
	text := fmt.Sprintf(
		"Hola %s,\n\nSe te ha asignado el ticket #%d: %q\n\nCreado por: %s\nEstado: %s\n\nPuedes ver el ticket aquí: %s\n\nSaludos,\nSistema de Tickets\n",
		assignee.Name, ticket.ID, ticket.Title, creator.Name, ticket.Status, b.ticketLink(ticket.ID))
	return Message{To: []string{assignee.Email}, Subject: subject, TextBody: text}
}

// TicketAssignedToCreator tells the creator who took their ticket.
func (b *Builder) TicketAssignedToCreator(ticket *domain.Ticket, assignee, creator *domain.User) Message {
	subject := fmt.Sprintf("[Ticket #%d] Tu ticket ha sido asignado", ticket.ID)
	text := fmt.Sprintf(
		"Hola %s,\n\nTu ticket #%d: %q ha sido asignado a %s.\n\nEstado: %s\n\nPuedes ver el ticket aquí: %s\n\nSaludos,\nSistema de Tickets\n",
		creator.Name, ticket.ID, ticket.Title, assignee.Name, ticket.Status, b.ticketLink(ticket.ID))
	return Message{To: []string{creator.Email}, Subject: subject, TextBody: text}
}

// StatusChanged notifies the creator of a lifecycle transition.
func (b *Builder) StatusChanged(ticket *domain.Ticket, creator *domain.User, oldStatus, newStatus domain.TicketStatus, actorName string) Message {
	subject := fmt.Sprintf("[Ticket #%d] Estado actualizado: %s → %s", ticket.ID, oldStatus, newStatus)
	text := fmt.Sprintf(
		"Hola %s,\n\nEl estado de tu ticket #%d: %q ha sido actualizado.\n\nEstado anterior: %s\nNuevo estado: %s\nCambiado por: %s\n\nPuedes ver el ticket aquí: %s\n\nSaludos,\nSistema de Tickets\n",
		creator.Name, ticket.ID, ticket.Title, oldStatus, newStatus, actorName, b.ticketLink(ticket.ID))
	return Message{To: []string{creator.Email}, Subject: subject, TextBody: text}
}

// NewComment notifies everyone involved in the ticket thread.
func (b *Builder) NewComment(ticket *domain.Ticket, comment *domain.Comment, recipients []string) Message {
	subject := fmt.Sprintf("[Ticket #%d] Nuevo comentario", ticket.ID)
	text := fmt.Sprintf(
		"Se ha agregado un nuevo comentario al ticket #%d: %q\n\nAutor: %s\nComentario: %s\n\nPuedes ver el ticket aquí: %s\n\nSaludos,\nSistema de Tickets\n",
		ticket.ID, ticket.Title, comment.AuthorName, preview(comment.Content, 200), b.ticketLink(ticket.ID))
	return Message{To: recipients, Subject: subject, TextBody: text}
}

// UnassignedAlert warns administrators about a ticket nobody owns.
func (b *Builder) UnassignedAlert(ticket *domain.Ticket, adminEmails []string) Message {
	subject := fmt.Sprintf("NUEVO TICKET SIN ASIGNAR: #%d", ticket.ID)
	text := fmt.Sprintf(
		"Se ha creado un nuevo ticket que requiere atención.\n\nTicket: %s\nPrioridad: %s\nCreado por: %s\n\nPuedes ver el ticket aquí: %s\n",
		ticket.Title, ticket.Priority, ticket.CreatedBy, b.ticketLink(ticket.ID))
	return Message{To: adminEmails, Subject: subject, TextBody: text}
}

// PasswordReset carries the signed reset link.
func (b *Builder) PasswordReset(user *domain.User, token string) Message {
	resetURL := fmt.Sprintf("%s/auth/reset/confirm?token=%s", b.appURL, token)
	subject := "Restablecer tu contraseña"
	text := fmt.Sprintf(
		"Hola %s,\n\nRecibimos una solicitud para restablecer tu contraseña. Visita el siguiente enlace:\n\n%s\n\nSi no solicitaste este cambio, ignora este correo.\n\nSaludos,\nSistema de Tickets\n",
		user.Name, resetURL)
	return Message{To: []string{user.Email}, Subject: subject, TextBody: text}
}

// CommentRecipients computes the fan-out for a new comment: the creator, the
// assignee, and every prior commenter, minus the comment's author and without
// duplicates. Order follows first appearance.
func CommentRecipients(creatorEmail string, assigneeEmail string, commenterEmails []string, authorEmail string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(email string) {
		if email == "" || email == authorEmail {
			return
		}
		if _, dup := seen[email]; dup {
			return
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	add(creatorEmail)
	add(assigneeEmail)
	for _, email := range commenterEmails {
		add(email)
	}
	return out
}

// preview truncates by runes so accented text never splits mid-sequence.
func preview(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
