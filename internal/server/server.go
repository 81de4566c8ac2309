package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coursehub/apiserver/config"
	"github.com/coursehub/apiserver/internal/db"
	"github.com/coursehub/apiserver/internal/handlers"
	"github.com/coursehub/apiserver/internal/mq"
	"github.com/coursehub/apiserver/internal/services"
	"github.com/coursehub/apiserver/internal/storage"
	"github.com/coursehub/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// Server wraps the HTTP server and the backends it owns.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	queue      *mq.MQ
	logger     zerolog.Logger
}

// New opens the database and optional backends and wires the routes.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	courseRepo := store.NewCourseRepository(dbConn)
	videoRepo := store.NewVideoRepository(dbConn)
	paymentRepo := store.NewPaymentRepository(dbConn)

	authService, err := services.NewAuthService(userRepo, services.AuthConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		TokenTTL: cfg.Auth.TokenTTL,
	})
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	courseService := services.NewCourseService(courseRepo, videoRepo, paymentRepo)

	objects, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if objects != nil {
		courseService.WithURLSigner(objects, cfg.Storage.PresignTTL)
		logger.Info().Str("backend", cfg.Storage.Backend).Str("bucket", objects.Bucket()).Msg("video urls are presigned")
	}

	queue, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if queue != nil {
		courseService.WithEvents(queue, cfg.MQ.PaymentsChannel)
		logger.Info().Str("backend", cfg.MQ.Backend).Str("channel", cfg.MQ.PaymentsChannel).Msg("payment events enabled")
	}

	router := NewRouter(logger, cfg.CORS, authService, courseService)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		db:         dbConn,
		queue:      queue,
		logger:     logger,
	}, nil
}

// NewRouter builds the HTTP routes and middleware stack.
func NewRouter(
	logger zerolog.Logger,
	corsCfg config.CORSConfig,
	authService *services.AuthService,
	courseService *services.CourseService,
) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		hlog.NewHandler(logger),
		requestIDLogger,
		hlog.AccessHandler(logRequest),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: corsCfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}),
	)

	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, authService)
	handlers.CourseRouter(router, courseService, handlers.RequireAuth(authService))
	return router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.queue != nil {
		err = errors.Join(err, s.queue.Close())
	}
	if s.db != nil {
		err = errors.Join(err, s.db.Close())
	}
	return err
}

func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func logRequest(r *http.Request, status, size int, duration time.Duration) {
	event := hlog.FromRequest(r).Info()
	if status >= http.StatusInternalServerError {
		event = hlog.FromRequest(r).Error()
	}
	event.
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}
