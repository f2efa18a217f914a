package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/microcosm-cc/bluemonday"

	"github.com/mesadeayuda/helpdesk/internal/domain"
	"github.com/mesadeayuda/helpdesk/internal/events"
	"github.com/mesadeayuda/helpdesk/internal/repository"
	"github.com/mesadeayuda/helpdesk/internal/storage"
	"github.com/mesadeayuda/helpdesk/pkg/util"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	uploads    *storage.UploadStore
	dispatcher events.Dispatcher
	sanitizer  *bluemonday.Policy
	perPage    int
}

// TicketDependencies bundles requirements for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CommentRepo  repository.CommentRepository
	UserRepo     repository.UserRepository
	Uploads      *storage.UploadStore
	Dispatcher   events.Dispatcher
	ItemsPerPage int
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title          string
	Description    string
	FailureDetails string
	Priority       domain.TicketPriority
	AssigneeID     *int64
	Image          *multipart.FileHeader
}

// TicketUpdateInput describes the edit-form payload. Status and assignee run
// through the same rules as the dedicated actions.
type TicketUpdateInput struct {
	Title          string
	Description    string
	FailureDetails string
	Status         domain.TicketStatus
	Priority       domain.TicketPriority
	AssigneeID     *int64
}

// TicketListInput describes listing filters.
type TicketListInput struct {
	Status string
	Page   int
}

// TicketPage is one page of the ticket list.
type TicketPage struct {
	Tickets    []domain.Ticket
	Total      int
	Page       int
	PerPage    int
	TotalPages int
	Status     string
}

// DashboardData aggregates the dashboard counters.
type DashboardData struct {
	Total         int
	Open          int
	InProgress    int
	MyCreated     int
	MyAssigned    int
	RecentTickets []domain.Ticket
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	perPage := deps.ItemsPerPage
	if perPage <= 0 {
		perPage = 10
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		uploads:    deps.Uploads,
		dispatcher: deps.Dispatcher,
		sanitizer:  bluemonday.StrictPolicy(),
		perPage:    perPage,
	}
}

// Create opens a new ticket, storing the attached image when present.
func (s *TicketService) Create(ctx context.Context, creator *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, util.NewValidationError("el título es obligatorio", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, util.NewValidationError("prioridad inválida", map[string]any{"prioridad": string(priority)})
	}
	if input.AssigneeID != nil {
		if err := s.ensureAssignable(ctx, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	ticket := &domain.Ticket{
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		FailureDetails: strings.TrimSpace(input.FailureDetails),
		Status:         domain.TicketStatusOpen,
		Priority:       priority,
		CreatorID:      creator.ID,
		AssigneeID:     input.AssigneeID,
		CreatedBy:      creator.Name,
	}
	if input.AssigneeID != nil {
		ticket.Status = domain.TicketStatusInProgress
	}

	if input.Image != nil {
		filename, err := s.uploads.Save(input.Image)
		if err != nil {
			return nil, err
		}
		ticket.ImageFilename = &filename
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		if ticket.ImageFilename != nil {
			_ = s.uploads.Delete(*ticket.ImageFilename)
		}
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  creator.ID,
		Payload: events.TicketCreatedPayload{
			AssigneeID: ticket.AssigneeID,
			Priority:   ticket.Priority,
			Title:      ticket.Title,
		},
	})
	return ticket, nil
}

// List returns one page of tickets visible to the viewer. Callers whose role
// grants less than write access on tickets only see tickets they created or
// were assigned.
func (s *TicketService) List(ctx context.Context, viewer *domain.User, input TicketListInput) (*TicketPage, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	filter := repository.TicketFilter{
		Limit:  s.perPage,
		Offset: (page - 1) * s.perPage,
	}
	if viewer.Role.PermissionFor(domain.CategoryTickets) < domain.PermWrite {
		id := viewer.ID
		filter.InvolvedUserID = &id
	}
	if input.Status != "" && input.Status != "todos" {
		status := domain.TicketStatus(input.Status)
		if !domain.ValidStatus(status) {
			return nil, util.NewValidationError("estado inválido", map[string]any{"estado": input.Status})
		}
		filter.Status = &status
	}

	total, err := s.tickets.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := (total + s.perPage - 1) / s.perPage
	if totalPages == 0 {
		totalPages = 1
	}
	status := input.Status
	if status == "" {
		status = "todos"
	}
	return &TicketPage{
		Tickets:    tickets,
		Total:      total,
		Page:       page,
		PerPage:    s.perPage,
		TotalPages: totalPages,
		Status:     status,
	}, nil
}

// Get fetches a ticket with its comments, enforcing per-ticket access.
func (s *TicketService) Get(ctx context.Context, viewer *domain.User, id int64) (*domain.Ticket, []domain.Comment, error) {
	ticket, err := s.fetch(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !s.canView(viewer, ticket) {
		return nil, nil, util.NewForbidden("No tiene permisos para ver este ticket")
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, comments, nil
}

// Update applies the edit form. Assignment and status run through the same
// rules as the dedicated actions, including events.
func (s *TicketService) Update(ctx context.Context, actor *domain.User, id int64, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, util.NewValidationError("el título es obligatorio", nil)
	}
	if !domain.ValidStatus(input.Status) {
		return nil, util.NewValidationError("estado inválido", map[string]any{"estado": string(input.Status)})
	}
	if !domain.ValidPriority(input.Priority) {
		return nil, util.NewValidationError("prioridad inválida", map[string]any{"prioridad": string(input.Priority)})
	}

	oldStatus := ticket.Status
	newStatus := input.Status
	if newStatus != oldStatus && !domain.CanTransition(oldStatus, newStatus) {
		return nil, util.NewBusinessRuleViolation("Un ticket resuelto o cerrado no puede volver a Abierto")
	}

	newAssignee := input.AssigneeID
	assigned := newAssignee != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *newAssignee)
	if assigned {
		if err := s.ensureAssignable(ctx, *newAssignee); err != nil {
			return nil, err
		}
		// Picking up an open ticket moves it to En Progreso.
		if ticket.AssigneeID == nil && oldStatus == domain.TicketStatusOpen && newStatus == domain.TicketStatusOpen {
			newStatus = domain.TicketStatusInProgress
		}
	}

	ticket.Title = title
	ticket.Description = strings.TrimSpace(input.Description)
	ticket.FailureDetails = strings.TrimSpace(input.FailureDetails)
	ticket.Priority = input.Priority
	ticket.Status = newStatus
	ticket.AssigneeID = newAssignee

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if assigned {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Payload:  events.TicketAssignedPayload{AssigneeID: *newAssignee},
		})
	}
	if ticket.Status != oldStatus {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Payload:  events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: ticket.Status},
		})
	}
	return ticket, nil
}

// UpdateStatus performs an explicit status transition.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.User, id int64, status domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(status) {
		return nil, util.NewValidationError("estado inválido", map[string]any{"estado": string(status)})
	}
	ticket, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status == status {
		return ticket, nil
	}
	if !domain.CanTransition(ticket.Status, status) {
		return nil, util.NewBusinessRuleViolation("Un ticket resuelto o cerrado no puede volver a Abierto")
	}
	oldStatus := ticket.Status
	ticket.Status = status
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: status},
	})
	return ticket, nil
}

// Assign hands the ticket to a user. An unassigned Abierto ticket moves to
// En Progreso as a side effect.
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, id, assigneeID int64) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAssignable(ctx, assigneeID); err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	wasUnassigned := ticket.AssigneeID == nil
	ticket.AssigneeID = &assigneeID
	if wasUnassigned && ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusInProgress
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketAssignedPayload{AssigneeID: assigneeID},
	})
	if ticket.Status != oldStatus {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Payload:  events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: ticket.Status},
		})
	}
	return ticket, nil
}

// DeleteImage removes the stored file and clears the column.
func (s *TicketService) DeleteImage(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.ImageFilename == nil {
		return ticket, nil
	}
	filename := *ticket.ImageFilename
	ticket.ImageFilename = nil
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.uploads.Delete(filename); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Delete removes the ticket, its comments (FK cascade) and its image file.
func (s *TicketService) Delete(ctx context.Context, id int64) error {
	ticket, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return err
	}
	if ticket.ImageFilename != nil {
		return s.uploads.Delete(*ticket.ImageFilename)
	}
	return nil
}

// AddComment appends a sanitized comment, enforcing per-ticket access.
func (s *TicketService) AddComment(ctx context.Context, author *domain.User, ticketID int64, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(s.sanitizer.Sanitize(content))
	if content == "" {
		return nil, util.NewValidationError("Contenido requerido", nil)
	}
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canView(author, ticket) {
		return nil, util.NewForbidden("No tiene permisos para comentar este ticket")
	}
	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: author.ID,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	comment.AuthorName = author.Name
	comment.AuthorEmail = author.Email
	s.publish(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		ActorID:  author.ID,
		Payload:  events.CommentAddedPayload{CommentID: comment.ID},
	})
	return comment, nil
}

// Dashboard aggregates the landing-page counters. Users without ticket read
// access see zeroes.
func (s *TicketService) Dashboard(ctx context.Context, viewer *domain.User) (*DashboardData, error) {
	data := &DashboardData{}
	if viewer.Role.PermissionFor(domain.CategoryTickets) < domain.PermRead {
		return data, nil
	}

	var err error
	if data.Total, err = s.tickets.Count(ctx, repository.TicketFilter{}); err != nil {
		return nil, err
	}
	open := domain.TicketStatusOpen
	if data.Open, err = s.tickets.Count(ctx, repository.TicketFilter{Status: &open}); err != nil {
		return nil, err
	}
	inProgress := domain.TicketStatusInProgress
	if data.InProgress, err = s.tickets.Count(ctx, repository.TicketFilter{Status: &inProgress}); err != nil {
		return nil, err
	}
	viewerID := viewer.ID
	if data.MyCreated, err = s.tickets.Count(ctx, repository.TicketFilter{CreatorID: &viewerID}); err != nil {
		return nil, err
	}
	if data.MyAssigned, err = s.tickets.Count(ctx, repository.TicketFilter{AssigneeID: &viewerID}); err != nil {
		return nil, err
	}
	if data.RecentTickets, err = s.tickets.List(ctx, repository.TicketFilter{Limit: 5}); err != nil {
		return nil, err
	}
	return data, nil
}

// AssignableUsers lists active users for the assignment select.
func (s *TicketService) AssignableUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.ListActive(ctx)
}

func (s *TicketService) canView(viewer *domain.User, ticket *domain.Ticket) bool {
	if viewer.Role.PermissionFor(domain.CategoryTickets) >= domain.PermWrite {
		return true
	}
	if ticket.CreatorID == viewer.ID {
		return true
	}
	return ticket.AssigneeID != nil && *ticket.AssigneeID == viewer.ID
}

func (s *TicketService) ensureAssignable(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewValidationError("el usuario asignado no existe", nil)
		}
		return err
	}
	if !user.Active {
		return util.NewValidationError("no se puede asignar a un usuario inactivo", nil)
	}
	return nil
}

func (s *TicketService) fetch(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	_ = s.dispatcher.Publish(ctx, event)
}
