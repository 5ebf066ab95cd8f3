// Package web serves the OAuth-gated dashboard where admins edit a guild's auto-delete settings.
package web

import (
	"context"
	"net/http"
	"time"

	"modpanel/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// GuildDirectory exposes the bot's cached view of the guilds it has joined.
type GuildDirectory interface {
	Guild(guildID string) (*discordgo.Guild, bool)
}

type Server struct {
	store    *storage.Store
	guilds   GuildDirectory
	auth     Authenticator
	sessions *SessionManager
	logger   *zap.Logger
	router   *chi.Mux
}

func NewServer(store *storage.Store, guilds GuildDirectory, auth Authenticator, sessions *SessionManager, logger *zap.Logger) *Server {
	s := &Server{
		store:    store,
		guilds:   guilds,
		auth:     auth,
		sessions: sessions,
		logger:   logger,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/", s.handleIndex)
	s.router.Get("/login", s.handleLogin)
	s.router.Get("/callback", s.handleCallback)
	s.router.Get("/logout", s.handleLogout)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/save", s.handleSave)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type sessionKey struct{}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.sessions.Load(r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) Session {
	session, _ := ctx.Value(sessionKey{}).(Session)
	return session
}

// ListenAndServe runs the server until ctx is cancelled, then shuts it down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
