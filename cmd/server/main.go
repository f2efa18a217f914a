package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"go.uber.org/zap"

	httptransport "github.com/mesadeayuda/helpdesk/internal/api/http"
	"github.com/mesadeayuda/helpdesk/internal/api/http/handlers"
	"github.com/mesadeayuda/helpdesk/internal/auth"
	"github.com/mesadeayuda/helpdesk/internal/config"
	"github.com/mesadeayuda/helpdesk/internal/domain"
	"github.com/mesadeayuda/helpdesk/internal/events"
	"github.com/mesadeayuda/helpdesk/internal/mailer"
	"github.com/mesadeayuda/helpdesk/internal/observability"
	"github.com/mesadeayuda/helpdesk/internal/persistence"
	"github.com/mesadeayuda/helpdesk/internal/repository"
	"github.com/mesadeayuda/helpdesk/internal/service"
	"github.com/mesadeayuda/helpdesk/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	uploads, err := storage.NewUploadStore(cfg.Upload)
	if err != nil {
		logger.Fatal("failed to prepare upload dir", zap.Error(err))
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	deptRepo := repository.NewDepartmentRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	reportRepo := repository.NewReportRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	mail := mailer.NewSMTPMailer(cfg.Mail)
	messages := mailer.NewBuilder(cfg.App.PublicURL)

	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:  dispatcher,
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		CommentRepo: commentRepo,
		Mailer:      mail,
		Messages:    messages,
		Logger:      logger,
		Metrics:     metrics,
	})
	notifications.RegisterHandlers()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo: userRepo,
		RoleRepo: roleRepo,
		Mailer:   mail,
		Messages: messages,
		Logger:   logger,
		Metrics:  metrics,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		CommentRepo:  commentRepo,
		UserRepo:     userRepo,
		Uploads:      uploads,
		Dispatcher:   dispatcher,
		ItemsPerPage: cfg.App.ItemsPerPage,
	})
	adminService := service.NewAdminService(service.AdminDependencies{
		UserRepo:       userRepo,
		RoleRepo:       roleRepo,
		DepartmentRepo: deptRepo,
		BcryptCost:     cfg.Auth.BcryptCost,
	})
	reportService := service.NewReportService(reportRepo, cfg.App.Location())

	sessions := auth.NewSessionManager(cfg.Session, redis.Client)
	authMiddleware := auth.NewMiddleware(sessions, userRepo, logger)
	render := handlers.NewRenderer(sessions)

	engine := html.New("./web/templates", ".html")
	location := cfg.App.Location()
	engine.AddFunc("localtime", func(t time.Time) string {
		return domain.FormatLocal(t, location)
	})
	engine.AddFunc("add", func(a, b int) int { return a + b })
	engine.AddFunc("sub", func(a, b int) int { return a - b })
	engine.AddFunc("deref", func(p *int64) int64 {
		if p == nil {
			return 0
		}
		return *p
	})
	app := fiber.New(fiber.Config{
		Views:     engine,
		BodyLimit: int(cfg.Upload.MaxSizeBytes) + 1<<20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, "1.0.0", pg, redis),
		Auth:       handlers.NewAuthHandler(render, authService, sessions),
		Dashboard:  handlers.NewDashboardHandler(render, ticketService),
		Tickets:    handlers.NewTicketsHandler(render, ticketService),
		Comments:   handlers.NewCommentsHandler(ticketService, cfg.App.Location()),
		Uploads:    handlers.NewUploadsHandler(uploads),
		AdminUsers: handlers.NewAdminUsersHandler(render, adminService),
		AdminDepts: handlers.NewAdminDepartmentsHandler(render, adminService),
		AdminRoles: handlers.NewAdminRolesHandler(render, adminService),
		Reports:    handlers.NewReportsHandler(reportService),
		Middleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
