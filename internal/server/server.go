// Package server is the composition root: it builds every service once,
// wires handlers to routes and owns the lifetime of the database and the
// dispatch queue.
//
// DEPENDENCY GRAPH:
//
//	config ─► sqlite.DB ─► credential.Store ──────────────┐
//	       ─► executor.Executor ─► service.APIClient ◄─────┤
//	       ─► auth.Provider ─► OAuthService ◄──────────────┘
//	dispatch.Queue ─► AvatarService, FeedService (emitters)
//	OAuth + Profile + Avatar + Feed ─► SessionService ─► handlers
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/image-feed/internal/auth"
	"github.com/sakif/image-feed/internal/config"
	"github.com/sakif/image-feed/internal/credential"
	"github.com/sakif/image-feed/internal/dispatch"
	"github.com/sakif/image-feed/internal/executor"
	"github.com/sakif/image-feed/internal/handler"
	"github.com/sakif/image-feed/internal/middleware"
	sqliteRepo "github.com/sakif/image-feed/internal/repository/sqlite"
	"github.com/sakif/image-feed/internal/service"
)

// Server owns the router and every long-lived resource.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger

	db    *sqliteRepo.DB
	queue *dispatch.Queue

	session  *service.SessionService
	feed     *service.FeedService
	profiles *service.ProfileService
	avatars  *service.AvatarService
	tokens   *auth.TokenService
	provider *auth.Provider

	events *handler.EventsHandler
}

// New builds the dependency graph. The caller must call Close (Start does
// it on return) to release the database and stop the queue.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := newServer(ctx, cfg, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newServer(ctx context.Context, cfg *config.Config, db *sqliteRepo.DB, logger *slog.Logger) (*Server, error) {
	creds, err := newCredentialStore(ctx, cfg, db, logger)
	if err != nil {
		return nil, err
	}

	var tokens *auth.TokenService
	if cfg.JWTSecret != "" {
		tokens, err = auth.NewTokenService(cfg.JWTSecret, 0)
		if err != nil {
			return nil, fmt.Errorf("creating token service: %w", err)
		}
	} else {
		logger.Warn("JWT_SECRET not set, /api is not protected by a session cookie")
	}

	queue := dispatch.NewQueue(logger)
	queue.Start()

	exec := executor.New(executor.NewHTTPClient(cfg.HTTPTimeout), logger)
	api := service.NewAPIClient(cfg.BaseURL, exec, creds)
	provider := auth.NewProvider(auth.ProviderConfig{
		ClientID:           cfg.AccessKey,
		ClientSecret:       cfg.SecretKey,
		RedirectURI:        cfg.RedirectURI,
		Scopes:             cfg.Scopes,
		AuthorizeURL:       cfg.AuthorizeURL,
		TokenURL:           cfg.TokenURL,
		NativeRedirectPath: cfg.NativeRedirectPath,
	})

	oauth := service.NewOAuthService(provider, exec, creds, logger)
	avatars := service.NewAvatarService(api, queue, logger)
	profiles := service.NewProfileService(api, avatars, logger)
	feed := service.NewFeedService(api, cfg.PerPage, queue, logger)
	session := service.NewSessionService(oauth, profiles, avatars, feed, creds, logger)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		queue:    queue,
		session:  session,
		feed:     feed,
		profiles: profiles,
		avatars:  avatars,
		tokens:   tokens,
		provider: provider,
	}

	if err := s.setupRoutes(); err != nil {
		queue.Stop()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// newCredentialStore picks the encrypted store when a passphrase is set.
func newCredentialStore(ctx context.Context, cfg *config.Config, db *sqliteRepo.DB, logger *slog.Logger) (credential.Store, error) {
	if cfg.CredentialPassphrase == "" {
		logger.Warn("CREDENTIAL_PASSPHRASE not set, the bearer token will not survive a restart")
		return credential.NewMemoryStore(), nil
	}
	store, err := credential.NewSecureStore(ctx, db, cfg.CredentialPassphrase, logger)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}
	return store, nil
}

// setupRoutes registers every route.
//
//	GET    /healthz
//	GET    /                       → HTML feed page
//	GET    /auth/login             → redirect to login (or resume)
//	POST   /auth/callback          → exchange code, start session
//	POST   /auth/logout            → session cookie required
//	GET    /api/profile
//	GET    /api/photos
//	POST   /api/photos/next
//	POST   /api/photos/{id}/like
//	DELETE /api/photos/{id}/like
//	GET    /api/events             → server-sent events
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}` + "\n"))
	})

	pageHandler, err := handler.NewPageHandler(s.session, s.feed, s.profiles, s.avatars, s.tokens, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	s.router.Get("/", pageHandler.HandleFeed)

	authHandler := handler.NewAuthHandler(s.provider, s.session, s.tokens, s.logger)
	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.HandleLogin)
		r.Post("/callback", authHandler.HandleCallback)
		r.With(auth.RequireAuth(s.tokens)).Post("/logout", authHandler.HandleLogout)
	})

	profileHandler := handler.NewProfileHandler(s.profiles, s.avatars, s.logger)
	feedHandler := handler.NewFeedHandler(s.feed, s.logger)
	s.events = handler.NewEventsHandler(s.feed, s.avatars, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(s.tokens))

		r.Get("/profile", profileHandler.HandleGet)
		r.Get("/photos", feedHandler.HandleList)
		r.Post("/photos/next", feedHandler.HandleNext)
		r.Post("/photos/{id}/like", feedHandler.HandleLike)
		r.Delete("/photos/{id}/like", feedHandler.HandleUnlike)
		r.Get("/events", s.events.HandleStream)
	})

	return nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Restore resumes a stored session. A failure only means the user has to
// log in again, so it is logged rather than returned.
func (s *Server) Restore(ctx context.Context) {
	profile, ok, err := s.session.Restore(ctx)
	switch {
	case err != nil:
		s.logger.Warn("session restore failed", slog.String("error", err.Error()))
	case ok:
		s.logger.Info("session restored", slog.String("username", profile.Username))
	default:
		s.logger.Info("no stored session")
	}
}

// Close ends open event streams, stops the dispatch queue and closes the
// database.
func (s *Server) Close() error {
	s.events.Close()
	s.queue.Stop()
	return s.db.Close()
}

// httpServer configures the listener side. Shutdown waits for active
// requests, so open event streams are ended when it begins.
func (s *Server) httpServer() *http.Server {
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Long enough for a handler waiting on an upstream call; the event
		// stream clears its own deadline.
		WriteTimeout: s.config.HTTPTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	srv.RegisterOnShutdown(s.events.Close)
	return srv
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully and
// releases every resource.
func (s *Server) Start() error {
	defer s.Close()

	srv := s.httpServer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go s.Restore(ctx)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("api", s.config.BaseURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
