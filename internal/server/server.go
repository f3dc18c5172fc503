// Package server is the composition root: it opens the store, builds the
// services and handlers, mounts the routes and runs the HTTP server with
// graceful shutdown.
//
//	config.Config → store (mongo | sqlite) + lock.Locker
//	             → services → handlers → chi router
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/faculty-review/internal/auth"
	"github.com/sakif/faculty-review/internal/config"
	"github.com/sakif/faculty-review/internal/handler"
	"github.com/sakif/faculty-review/internal/lock"
	"github.com/sakif/faculty-review/internal/middleware"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
	mongoRepo "github.com/sakif/faculty-review/internal/repository/mongo"
	sqliteRepo "github.com/sakif/faculty-review/internal/repository/sqlite"
	"github.com/sakif/faculty-review/internal/service"
)

// Server owns the store and, when configured, the Redis client. Both are
// closed when Start returns.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  repository.Store
	redis  *redis.Client
}

// New opens the configured store and locker and builds the router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var (
		locker      lock.Locker = lock.NewLocal()
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = lock.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("server: opening redis: %w", err)
		}
		locker = lock.NewRedis(redisClient, logger)
		logger.Info("recompute lock uses redis")
	}

	s, err := NewWithStore(cfg, logger, store, locker)
	if err != nil {
		store.Close()
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, err
	}
	s.redis = redisClient
	return s, nil
}

// NewWithStore builds the server around an already open store. Tests use it
// with an in-memory SQLite database.
func NewWithStore(cfg config.Config, logger *slog.Logger, store repository.Store, locker lock.Locker) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}
	if err := s.setupRoutes(locker); err != nil {
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}
	return s, nil
}

func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		db, err := mongoRepo.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("server: opening mongo store: %w", err)
		}
		return db, nil
	case config.StoreSQLite:
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("server: creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("server: opening sqlite store: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("server: unknown store %q", cfg.Store)
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes wires every dependency and mounts the API.
//
// Global middleware, in order: request id, real ip, access log, panic
// recovery, CORS. Everything under /api that is not public sits behind
// auth.RequireAuth; admin routes add auth.RequireRole(admin).
func (s *Server) setupRoutes(locker lock.Locker) error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.JWTTTL)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()

	// === Services ===
	activity := service.NewActivityLogger(s.store, s.logger)
	reviewSvc := service.NewReviewService(s.store, s.store, s.store, locker, activity, s.logger)
	authSvc := service.NewAuthService(s.store, s.store, tokens, passwords, activity, s.config.AdminInvitationToken, s.logger)
	facultySvc := service.NewFacultyService(s.store, s.store, reviewSvc, activity, s.logger)
	reactionSvc := service.NewReactionService(s.store, s.store, s.store, locker, activity, s.logger)
	notificationSvc := service.NewNotificationService(s.store)
	adminSvc := service.NewAdminService(s.store, reviewSvc, activity, s.logger)
	visitorSvc := service.NewVisitorService(s.store)

	// === Handlers ===
	authH := handler.NewAuthHandler(authSvc, s.logger)
	facultyH := handler.NewFacultyHandler(facultySvc, reviewSvc, s.logger)
	reviewH := handler.NewReviewHandler(reviewSvc, reactionSvc, s.logger)
	notificationH := handler.NewNotificationHandler(notificationSvc, s.logger)
	adminH := handler.NewAdminHandler(adminSvc, s.logger)
	visitorH := handler.NewVisitorHandler(visitorSvc, s.logger)

	requireAuth := auth.RequireAuth(tokens, s.store, s.logger)
	requireAdmin := auth.RequireRole(model.RoleAdmin)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(s.config.AllowedOrigins))
	if middleware.AllowsAnyOrigin(s.config.AllowedOrigins) {
		s.logger.Warn("CORS allows any origin; set ALLOWED_ORIGINS in production")
	}

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Route("/api", func(r chi.Router) {
		// Public
		r.Post("/auth/register", authH.HandleRegister)
		r.Post("/auth/login", authH.HandleLogin)
		r.Post("/visitor", visitorH.HandleRecord)
		r.Get("/faculties", facultyH.HandleList)
		r.Get("/faculties/{id}", facultyH.HandleGet)
		r.Get("/faculties/{id}/reviews", facultyH.HandleReviews)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/auth/me", authH.HandleMe)
			r.Get("/auth/favorites", authH.HandleFavorites)
			r.Post("/auth/favorites/{facultyId}", authH.HandleAddFavorite)
			r.Delete("/auth/favorites/{facultyId}", authH.HandleRemoveFavorite)

			r.Post("/user/reviews", reviewH.HandleCreate)
			r.Get("/user/reviews/my", reviewH.HandleMine)
			r.Put("/user/reviews/{id}", reviewH.HandleUpdate)
			r.Delete("/user/reviews/{id}", reviewH.HandleDelete)

			r.Get("/user/notifications/my", notificationH.HandleMine)
			r.Delete("/user/notifications/{id}", notificationH.HandleDelete)

			r.Post("/reviews/{id}/like", reviewH.HandleLike)
			r.Post("/reviews/{id}/dislike", reviewH.HandleDislike)
			r.Post("/reviews/{id}/flag", reviewH.HandleFlag)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				r.Post("/faculties", facultyH.HandleCreate)
				r.Put("/faculties/{id}", facultyH.HandleUpdate)
				r.Delete("/faculties/{id}", facultyH.HandleDelete)

				r.Get("/admin/metrics", adminH.HandleMetrics)
				r.Get("/admin/users", adminH.HandleUsers)
				r.Get("/admin/users/{id}/reviews", adminH.HandleUserReviews)
				r.Delete("/admin/users/{id}", adminH.HandleDeleteUser)
				r.Get("/admin/flagged-reviews", adminH.HandleFlaggedReviews)
				r.Delete("/admin/reviews/{id}", adminH.HandleDeleteReview)
				r.Get("/admin/activities", adminH.HandleActivities)
			})
		})
	})

	// The SPA bundle, when configured, owns every other path.
	if s.config.StaticDir != "" {
		s.router.Handle("/*", spaHandler(s.config.StaticDir))
	}

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("store", s.config.Store),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("closing store", slog.String("error", err.Error()))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("closing redis", slog.String("error", err.Error()))
		}
	}
}
