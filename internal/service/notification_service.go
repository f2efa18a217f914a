package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/mesadeayuda/helpdesk/internal/domain"
	"github.com/mesadeayuda/helpdesk/internal/events"
	"github.com/mesadeayuda/helpdesk/internal/mailer"
	"github.com/mesadeayuda/helpdesk/internal/observability"
	"github.com/mesadeayuda/helpdesk/internal/repository"
)

// NotificationService turns domain events into emails. Every send runs in its
// own goroutine; failures are logged and never reach the request that caused
// them.
type NotificationService struct {
	dispatcher events.Dispatcher
	tickets    repository.TicketRepository
	users      repository.UserRepository
	comments   repository.CommentRepository
	mail       mailer.Mailer
	messages   *mailer.Builder
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NotificationDependencies bundles requirements for the notification service.
type NotificationDependencies struct {
	Dispatcher  events.Dispatcher
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	CommentRepo repository.CommentRepository
	Mailer      mailer.Mailer
	Messages    *mailer.Builder
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		comments:   deps.CommentRepo,
		mail:       deps.Mailer,
		messages:   deps.Messages,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// RegisterHandlers subscribes to the dispatcher.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
}

// handleTicketCreated notifies the creator; when nobody was assigned yet it
// also alerts every user with admin permission.
func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	ticket, creator, err := n.ticketWithCreator(ctx, event.TicketID)
	if err != nil {
		return err
	}
	if creator.Email != "" {
		n.send(n.messages.TicketCreated(ticket, creator))
	}

	payload, _ := event.Payload.(events.TicketCreatedPayload)
	if payload.AssigneeID == nil {
		admins, err := n.users.ListAdminEmails(ctx)
		if err != nil {
			return err
		}
		if len(admins) > 0 {
			n.send(n.messages.UnassignedAlert(ticket, admins))
		}
	}
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	ticket, creator, err := n.ticketWithCreator(ctx, event.TicketID)
	if err != nil {
		return err
	}
	assignee, err := n.users.GetByID(ctx, payload.AssigneeID)
	if err != nil {
		return err
	}
	if assignee.Email != "" {
		n.send(n.messages.TicketAssigned(ticket, assignee, creator))
	}
	if creator.ID != assignee.ID && creator.Email != "" {
		n.send(n.messages.TicketAssignedToCreator(ticket, assignee, creator))
	}
	return nil
}

// handleTicketStatusChanged notifies the creator, unless the creator made
// the change.
func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	ticket, creator, err := n.ticketWithCreator(ctx, event.TicketID)
	if err != nil {
		return err
	}
	if event.ActorID == creator.ID || creator.Email == "" {
		return nil
	}
	actorName := ""
	if actor, err := n.users.GetByID(ctx, event.ActorID); err == nil {
		actorName = actor.Name
	}
	n.send(n.messages.StatusChanged(ticket, creator, payload.OldStatus, payload.NewStatus, actorName))
	return nil
}

// handleCommentAdded fans out to the creator, the assignee and every prior
// commenter, minus the comment's author.
func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CommentAddedPayload)
	if !ok {
		return nil
	}
	ticket, creator, err := n.ticketWithCreator(ctx, event.TicketID)
	if err != nil {
		return err
	}
	comments, err := n.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return err
	}

	var comment *domain.Comment
	commenterEmails := make([]string, 0, len(comments))
	for i := range comments {
		commenterEmails = append(commenterEmails, comments[i].AuthorEmail)
		if comments[i].ID == payload.CommentID {
			comment = &comments[i]
		}
	}
	if comment == nil {
		return nil
	}

	assigneeEmail := ""
	if ticket.AssigneeID != nil {
		if assignee, err := n.users.GetByID(ctx, *ticket.AssigneeID); err == nil {
			assigneeEmail = assignee.Email
		}
	}
	recipients := mailer.CommentRecipients(creator.Email, assigneeEmail, commenterEmails, comment.AuthorEmail)
	if len(recipients) > 0 {
		n.send(n.messages.NewComment(ticket, comment, recipients))
	}
	return nil
}

func (n *NotificationService) ticketWithCreator(ctx context.Context, ticketID int64) (*domain.Ticket, *domain.User, error) {
	ticket, err := n.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	creator, err := n.users.GetByID(ctx, ticket.CreatorID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, creator, nil
}

// send dispatches one message fire-and-forget.
func (n *NotificationService) send(msg mailer.Message) {
	go func() {
		err := n.mail.Send(msg)
		if n.metrics != nil {
			n.metrics.RecordMail(err == nil)
		}
		if err != nil {
			n.logger.Error("error enviando correo",
				zap.String("subject", msg.Subject),
				zap.Strings("to", msg.To),
				zap.Error(err))
		}
	}()
}
