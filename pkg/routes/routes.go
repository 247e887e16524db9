package pkg

import (
	"context"
	"os"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"ExamPortal/internal/auth"
	"ExamPortal/internal/config"
	"ExamPortal/internal/exam"
	"ExamPortal/internal/notification"
	"ExamPortal/internal/queue"
	"ExamPortal/internal/realtime"
	"ExamPortal/internal/scheduler"
	"ExamPortal/internal/scraper"
	"ExamPortal/internal/worker"
	"ExamPortal/pkg/middleware"
)

var Modules = fx.Module("portal",
	fx.Provide(
		config.NewLogger,
		config.NewSugaredLogger,
		config.NewMongoDBConfig,
		config.NewMongoDBClient,
		config.NewResendConfig,
		config.NewEmailService,
		config.NewRedisOpt,
		auth.NewUserRepository,
		realtime.NewRegistry,
		realtime.NewHub,
		realtime.NewHandler,
		notification.NewRepository,
		NewNotificationService,
		notification.NewHandler,
		exam.NewRepository,
		NewExamService,
		exam.NewHandler,
		scraper.NewClient,
		scraper.NewService,
		scraper.NewHandler,
		queue.NewClient,
		NewScheduler,
		NewWorker,
		NewEchoServer,
	),
	fx.Invoke(
		EnsureIndexes,
		RegisterRoutes,
		StartScheduler,
		StartWorker,
	),
)

// NewNotificationService binds the concrete repository, hub, user directory
// and mailer onto the producer's interfaces.
func NewNotificationService(repo *notification.Repository, hub *realtime.Hub, users *auth.UserRepository, email *config.EmailService, log *zap.SugaredLogger) *notification.Service {
	return notification.NewService(repo, hub, users, email, log)
}

func NewExamService(repo *exam.Repository, hub *realtime.Hub, log *zap.SugaredLogger) *exam.Service {
	return exam.NewService(repo, hub, log)
}

func NewScheduler(examRepo *exam.Repository, notifSvc *notification.Service, notifRepo *notification.Repository, tasks *queue.Client, log *zap.SugaredLogger) *scheduler.Scheduler {
	return scheduler.NewScheduler(examRepo, notifSvc, notifRepo, tasks, log)
}

func NewWorker(redisOpt asynq.RedisClientOpt, scraperSvc *scraper.Service, log *zap.SugaredLogger) *worker.Worker {
	return worker.NewWorker(redisOpt, scraperSvc, log)
}

func NewEchoServer(lc fx.Lifecycle, log *zap.SugaredLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	middleware.SetupMiddleware(e)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infof("Server running on http://localhost%s", addr)
			go func() {
				if err := e.Start(addr); err != nil {
					log.Errorw("Server stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down the server ...")
			return e.Shutdown(ctx)
		},
	})
	return e
}

// EnsureIndexes creates the collection indexes on startup.
func EnsureIndexes(lc fx.Lifecycle, notifRepo *notification.Repository, examRepo *exam.Repository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := notifRepo.EnsureIndexes(ctx); err != nil {
				return err
			}
			return examRepo.EnsureIndexes(ctx)
		},
	})
}

func StartScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) error {
	return s.Start(lc)
}

func StartWorker(lc fx.Lifecycle, w *worker.Worker) {
	w.Start(lc)
}

func RegisterRoutes(e *echo.Echo,
	ws *realtime.Handler,
	notifications *notification.Handler,
	exams *exam.Handler,
	ingest *scraper.Handler,
) {
	// Public surface: the live socket and the headline ticker.
	e.GET("/ws", ws.Serve)
	e.GET("/notifications/ticker", notifications.Ticker)

	protected := e.Group("/api")
	protected.Use(middleware.JWTMiddleware)
	protected.Use(middleware.CasbinMiddleware)

	protected.GET("/notifications/me", notifications.ListMine)
	protected.GET("/notifications/me/unread-count", notifications.UnreadCount)
	protected.PUT("/notifications/:id/read", notifications.MarkRead)
	protected.PUT("/notifications/read-all", notifications.MarkAllRead)
	protected.POST("/notifications", notifications.Create)
	protected.DELETE("/notifications/:id", notifications.Delete)

	protected.GET("/exams/:id", exams.Get)
	protected.POST("/exams", exams.Create)
	protected.PUT("/exams/:id", exams.Update)

	protected.POST("/scraper/notifications", ingest.IngestNotifications)
	protected.POST("/scraper/exams", ingest.IngestExams)
}
