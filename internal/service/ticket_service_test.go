package service

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesadeayuda/helpdesk/internal/config"
	"github.com/mesadeayuda/helpdesk/internal/domain"
	"github.com/mesadeayuda/helpdesk/internal/events"
	"github.com/mesadeayuda/helpdesk/internal/mailer"
	"github.com/mesadeayuda/helpdesk/internal/repository"
	"github.com/mesadeayuda/helpdesk/internal/storage"
	"github.com/mesadeayuda/helpdesk/pkg/util"
)

// ---- in-memory fakes ----

type fakeTicketRepo struct {
	mu      sync.Mutex
	nextID  int64
	tickets map[int64]domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[int64]domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ticket.ID = r.nextID
	ticket.CreatedAt = time.Now().UTC()
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now().UTC()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if matches(ticket, filter) {
			out = append(out, ticket)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Offset > 0 && filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else if filter.Offset >= len(out) {
		out = nil
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeTicketRepo) Count(_ context.Context, filter repository.TicketFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, ticket := range r.tickets {
		if matches(ticket, filter) {
			count++
		}
	}
	return count, nil
}

func matches(ticket domain.Ticket, filter repository.TicketFilter) bool {
	if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
		return false
	}
	if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
		return false
	}
	if filter.InvolvedUserID != nil {
		involved := ticket.CreatorID == *filter.InvolvedUserID ||
			(ticket.AssigneeID != nil && *ticket.AssigneeID == *filter.InvolvedUserID)
		if !involved {
			return false
		}
	}
	if filter.Status != nil && ticket.Status != *filter.Status {
		return false
	}
	return true
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	nextID   int64
	comments []domain.Comment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	comment.ID = r.nextID
	comment.CreatedAt = time.Now().UTC()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Comment
	for _, c := range r.comments {
		if c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int64]domain.User
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[int64]domain.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = int64(len(r.users) + 1)
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, nil
}

func (r *fakeUserRepo) ListActive(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, user := range r.users {
		if user.Active {
			out = append(out, user)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ListAdminEmails(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, user := range r.users {
		if user.Active && user.Email != "" && user.Role != nil && user.Role.PermAdmin > 0 {
			out = append(out, user.Email)
		}
	}
	return out, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	ch   chan mailer.Message
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{ch: make(chan mailer.Message, 32)}
}

func (m *recordingMailer) Send(msg mailer.Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	m.ch <- msg
	return nil
}

// waitFor blocks until n messages arrived or the deadline passes.
func (m *recordingMailer) waitFor(t *testing.T, n int) []mailer.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	var got []mailer.Message
	for len(got) < n {
		select {
		case msg := <-m.ch:
			got = append(got, msg)
		case <-deadline:
			t.Fatalf("expected %d emails, got %d", n, len(got))
		}
	}
	return got
}

func (m *recordingMailer) noMore(t *testing.T) {
	t.Helper()
	select {
	case msg := <-m.ch:
		t.Fatalf("unexpected extra email: %q", msg.Subject)
	case <-time.After(100 * time.Millisecond):
	}
}

// ---- fixture ----

var (
	adminRole = domain.Role{ID: 1, Name: "Administrador", PermTickets: 2, PermUsers: 2, PermDepartments: 2, PermAdmin: 2, Active: true}
	techRole  = domain.Role{ID: 2, Name: "Técnico", PermTickets: 2, PermUsers: 1, PermDepartments: 1, Active: true}
	userRole  = domain.Role{ID: 3, Name: "Usuario", PermTickets: 1, Active: true}
)

type fixture struct {
	tickets   *TicketService
	ticketDB  *fakeTicketRepo
	comments  *fakeCommentRepo
	users     *fakeUserRepo
	mail      *recordingMailer
	uploads   *storage.UploadStore
	uploadDir string
}

func newFixture(t *testing.T, users ...domain.User) *fixture {
	t.Helper()
	uploadDir := t.TempDir()
	uploads, err := storage.NewUploadStore(config.UploadConfig{
		Dir:               uploadDir,
		MaxSizeBytes:      5 * 1024 * 1024,
		AllowedExtensions: []string{"jpg", "jpeg", "png", "gif"},
	})
	require.NoError(t, err)

	ticketDB := newFakeTicketRepo()
	commentDB := &fakeCommentRepo{}
	userDB := newFakeUserRepo(users...)
	mail := newRecordingMailer()
	dispatcher := events.NewInMemoryDispatcher()

	notifications := NewNotificationService(NotificationDependencies{
		Dispatcher:  dispatcher,
		TicketRepo:  ticketDB,
		UserRepo:    userDB,
		CommentRepo: commentDB,
		Mailer:      mail,
		Messages:    mailer.NewBuilder("http://localhost:8080"),
		Logger:      zap.NewNop(),
	})
	notifications.RegisterHandlers()

	tickets := NewTicketService(TicketDependencies{
		TicketRepo:   ticketDB,
		CommentRepo:  commentDB,
		UserRepo:     userDB,
		Uploads:      uploads,
		Dispatcher:   dispatcher,
		ItemsPerPage: 10,
	})
	return &fixture{
		tickets:   tickets,
		ticketDB:  ticketDB,
		comments:  commentDB,
		users:     userDB,
		mail:      mail,
		uploads:   uploads,
		uploadDir: uploadDir,
	}
}

func testUser(id int64, name string, role domain.Role) domain.User {
	roleCopy := role
	return domain.User{
		ID:     id,
		Name:   name,
		Email:  strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		RoleID: role.ID,
		Role:   &roleCopy,
		Active: true,
	}
}

// ---- tests ----

func TestListOnlyShowsInvolvedTicketsForLimitedRoles(t *testing.T) {
	creator := testUser(1, "Ana Soto", userRole)
	assignee := testUser(2, "Luis Rojas", userRole)
	outsider := testUser(3, "Eva Mora", userRole)
	admin := testUser(4, "Root Admin", adminRole)
	f := newFixture(t, creator, assignee, outsider, admin)
	ctx := context.Background()

	assigneeID := assignee.ID
	require.NoError(t, f.ticketDB.Create(ctx, &domain.Ticket{Title: "mío", Status: domain.TicketStatusOpen, CreatorID: creator.ID}))
	require.NoError(t, f.ticketDB.Create(ctx, &domain.Ticket{Title: "asignado", Status: domain.TicketStatusInProgress, CreatorID: admin.ID, AssigneeID: &assigneeID}))
	require.NoError(t, f.ticketDB.Create(ctx, &domain.Ticket{Title: "ajeno", Status: domain.TicketStatusOpen, CreatorID: admin.ID}))

	page, err := f.tickets.List(ctx, &creator, TicketListInput{})
	require.NoError(t, err)
	require.Len(t, page.Tickets, 1)
	assert.Equal(t, "mío", page.Tickets[0].Title)

	page, err = f.tickets.List(ctx, &assignee, TicketListInput{})
	require.NoError(t, err)
	require.Len(t, page.Tickets, 1)
	assert.Equal(t, "asignado", page.Tickets[0].Title)

	page, err = f.tickets.List(ctx, &outsider, TicketListInput{})
	require.NoError(t, err)
	assert.Empty(t, page.Tickets)

	page, err = f.tickets.List(ctx, &admin, TicketListInput{})
	require.NoError(t, err)
	assert.Len(t, page.Tickets, 3)
	assert.Equal(t, 3, page.Total)
}

func TestListFiltersByStatus(t *testing.T) {
	admin := testUser(1, "Root Admin", adminRole)
	f := newFixture(t, admin)
	ctx := context.Background()

	require.NoError(t, f.ticketDB.Create(ctx, &domain.Ticket{Title: "a", Status: domain.TicketStatusOpen, CreatorID: admin.ID}))
	require.NoError(t, f.ticketDB.Create(ctx, &domain.Ticket{Title: "b", Status: domain.TicketStatusClosed, CreatorID: admin.ID}))

	page, err := f.tickets.List(ctx, &admin, TicketListInput{Status: "Cerrado"})
	require.NoError(t, err)
	require.Len(t, page.Tickets, 1)
	assert.Equal(t, "b", page.Tickets[0].Title)

	_, err = f.tickets.List(ctx, &admin, TicketListInput{Status: "Pendiente"})
	assert.Error(t, err)
}

func TestUpdateStatusRejectsReopening(t *testing.T) {
	admin := testUser(1, "Root Admin", adminRole)
	f := newFixture(t, admin)
	ctx := context.Background()

	ticket := &domain.Ticket{Title: "t", Status: domain.TicketStatusResolved, CreatorID: admin.ID}
	require.NoError(t, f.ticketDB.Create(ctx, ticket))

	_, err := f.tickets.UpdateStatus(ctx, &admin, ticket.ID, domain.TicketStatusOpen)
	require.Error(t, err)
	domainErr := util.ToDomainError(err)
	assert.Equal(t, 422, domainErr.HTTPStatus)

	stored, getErr := f.ticketDB.GetByID(ctx, ticket.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TicketStatusResolved, stored.Status)

	ticket.Status = domain.TicketStatusClosed
	require.NoError(t, f.ticketDB.Update(ctx, ticket))
	_, err = f.tickets.UpdateStatus(ctx, &admin, ticket.ID, domain.TicketStatusOpen)
	require.Error(t, err)
	stored, getErr = f.ticketDB.GetByID(ctx, ticket.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)
}

func TestAssignFlipsOpenTicketToInProgress(t *testing.T) {
	admin := testUser(1, "Root Admin", adminRole)
	tech := testUser(2, "Luis Rojas", techRole)
	f := newFixture(t, admin, tech)
	ctx := context.Background()

	ticket := &domain.Ticket{Title: "t", Status: domain.TicketStatusOpen, CreatorID: admin.ID}
	require.NoError(t, f.ticketDB.Create(ctx, ticket))

	updated, err := f.tickets.Assign(ctx, &admin, ticket.ID, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, tech.ID, *updated.AssigneeID)

	stored, err := f.ticketDB.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)

	// one email to the assignee, one to the creator; the status notice is
	// suppressed because the creator made the change
	msgs := f.mail.waitFor(t, 2)
	f.mail.noMore(t)
	recipients := map[string]bool{}
	for _, msg := range msgs {
		assert.Contains(t, msg.Subject, "asignado")
		for _, to := range msg.To {
			recipients[to] = true
		}
	}
	assert.True(t, recipients[tech.Email])
	assert.True(t, recipients[admin.Email])
}

func TestAssignRejectsInactiveUser(t *testing.T) {
	admin := testUser(1, "Root Admin", adminRole)
	inactive := testUser(2, "Baja Total", userRole)
	inactive.Active = false
	f := newFixture(t, admin, inactive)
	ctx := context.Background()

	ticket := &domain.Ticket{Title: "t", Status: domain.TicketStatusOpen, CreatorID: admin.ID}
	require.NoError(t, f.ticketDB.Create(ctx, ticket))

	_, err := f.tickets.Assign(ctx, &admin, ticket.ID, inactive.ID)
	require.Error(t, err)
	stored, getErr := f.ticketDB.GetByID(ctx, ticket.ID)
	require.NoError(t, getErr)
	assert.Nil(t, stored.AssigneeID)
}

func TestCreateUnassignedAlertsAdminsOnce(t *testing.T) {
	creator := testUser(1, "Ana Soto", userRole)
	admin := testUser(2, "Root Admin", adminRole)
	f := newFixture(t, creator, admin)
	ctx := context.Background()

	_, err := f.tickets.Create(ctx, &creator, TicketCreateInput{Title: "Sin red"})
	require.NoError(t, err)

	msgs := f.mail.waitFor(t, 2)
	f.mail.noMore(t)

	alerts, assignments := 0, 0
	for _, msg := range msgs {
		if strings.HasPrefix(msg.Subject, "NUEVO TICKET SIN ASIGNAR") {
			alerts++
			assert.Equal(t, []string{admin.Email}, msg.To)
		}
		if strings.Contains(msg.Subject, "Se te ha asignado") {
			assignments++
		}
	}
	assert.Equal(t, 1, alerts)
	assert.Equal(t, 0, assignments)
}

func TestCreateWithAssigneeSkipsAdminAlert(t *testing.T) {
	creator := testUser(1, "Ana Soto", userRole)
	tech := testUser(2, "Luis Rojas", techRole)
	admin := testUser(3, "Root Admin", adminRole)
	f := newFixture(t, creator, tech, admin)
	ctx := context.Background()

	techID := tech.ID
	ticket, err := f.tickets.Create(ctx, &creator, TicketCreateInput{Title: "Disco lleno", AssigneeID: &techID})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)

	msgs := f.mail.waitFor(t, 1)
	f.mail.noMore(t)
	for _, msg := range msgs {
		assert.False(t, strings.HasPrefix(msg.Subject, "NUEVO TICKET SIN ASIGNAR"))
	}
}

func TestDeleteRemovesImageFile(t *testing.T) {
	admin := testUser(1, "Root Admin", adminRole)
	f := newFixture(t, admin)
	ctx := context.Background()

	filename := "20240101120000_abcd1234_captura.png"
	path := filepath.Join(f.uploadDir, filename)
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))

	ticket := &domain.Ticket{Title: "t", Status: domain.TicketStatusOpen, CreatorID: admin.ID, ImageFilename: &filename}
	require.NoError(t, f.ticketDB.Create(ctx, ticket))
	require.NoError(t, f.comments.Create(ctx, &domain.Comment{TicketID: ticket.ID, AuthorID: admin.ID, Content: "hola"}))

	require.NoError(t, f.tickets.Delete(ctx, ticket.ID))

	_, err := f.ticketDB.GetByID(ctx, ticket.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteImageClearsColumn(t *testing.T) {
	admin := testUser(1, "Root Admin", adminRole)
	f := newFixture(t, admin)
	ctx := context.Background()

	filename := "20240101120000_abcd1234_captura.png"
	path := filepath.Join(f.uploadDir, filename)
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))

	ticket := &domain.Ticket{Title: "t", Status: domain.TicketStatusOpen, CreatorID: admin.ID, ImageFilename: &filename}
	require.NoError(t, f.ticketDB.Create(ctx, ticket))

	updated, err := f.tickets.DeleteImage(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.ImageFilename)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAddCommentSanitizesAndChecksAccess(t *testing.T) {
	creator := testUser(1, "Ana Soto", userRole)
	outsider := testUser(2, "Eva Mora", userRole)
	f := newFixture(t, creator, outsider)
	ctx := context.Background()

	ticket := &domain.Ticket{Title: "t", Status: domain.TicketStatusOpen, CreatorID: creator.ID}
	require.NoError(t, f.ticketDB.Create(ctx, ticket))

	comment, err := f.tickets.AddComment(ctx, &creator, ticket.ID, `hola <script>alert(1)</script>mundo`)
	require.NoError(t, err)
	assert.NotContains(t, comment.Content, "<script>")
	assert.Contains(t, comment.Content, "hola")

	_, err = f.tickets.AddComment(ctx, &outsider, ticket.ID, "no debería poder")
	require.Error(t, err)
	assert.Equal(t, 403, util.ToDomainError(err).HTTPStatus)

	_, err = f.tickets.AddComment(ctx, &creator, ticket.ID, "<script></script>")
	require.Error(t, err)
	assert.Equal(t, 400, util.ToDomainError(err).HTTPStatus)
}

func TestGetEnforcesPerTicketAccess(t *testing.T) {
	creator := testUser(1, "Ana Soto", userRole)
	outsider := testUser(2, "Eva Mora", userRole)
	admin := testUser(3, "Root Admin", adminRole)
	f := newFixture(t, creator, outsider, admin)
	ctx := context.Background()

	ticket := &domain.Ticket{Title: "t", Status: domain.TicketStatusOpen, CreatorID: creator.ID}
	require.NoError(t, f.ticketDB.Create(ctx, ticket))

	_, _, err := f.tickets.Get(ctx, &creator, ticket.ID)
	assert.NoError(t, err)
	_, _, err = f.tickets.Get(ctx, &admin, ticket.ID)
	assert.NoError(t, err)
	_, _, err = f.tickets.Get(ctx, &outsider, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, 403, util.ToDomainError(err).HTTPStatus)
}

func TestCommentFanOutSkipsAuthor(t *testing.T) {
	creator := testUser(1, "Ana Soto", userRole)
	tech := testUser(2, "Luis Rojas", techRole)
	f := newFixture(t, creator, tech)
	ctx := context.Background()

	techID := tech.ID
	ticket := &domain.Ticket{Title: "t", Status: domain.TicketStatusInProgress, CreatorID: creator.ID, AssigneeID: &techID}
	require.NoError(t, f.ticketDB.Create(ctx, ticket))

	_, err := f.tickets.AddComment(ctx, &tech, ticket.ID, "revisando el equipo")
	require.NoError(t, err)

	msgs := f.mail.waitFor(t, 1)
	f.mail.noMore(t)
	assert.Contains(t, msgs[0].Subject, "Nuevo comentario")
	assert.Equal(t, []string{creator.Email}, msgs[0].To)
}
