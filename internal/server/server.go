package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tbgers/tbgclient/internal/logging"
	"github.com/tbgers/tbgclient/internal/storage"
	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/chat"
)

// Config holds server configuration.
type Config struct {
	Hostname     string
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Hostname:     "127.0.0.1",
		Port:         4096,
		EnableCORS:   false,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No write timeout for SSE
	}
}

// Server is the HTTP gateway to one forum.
type Server struct {
	config   *Config
	router   *chi.Mux
	httpSrv  *http.Server
	sessions *pool
	chat     *chat.Connection
}

// New creates a server whose sessions talk to the forum described by opts.
// Saved sessions are looked up in store.
func New(cfg *Config, opts api.Options, store *storage.Storage) *Server {
	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		sessions: newPool(opts, store),
		chat:     chat.NewConnection(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", UserHeader},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	s.router.Use(s.sessionScope)
}

// requestLogger logs each request at debug level, and failures at warn.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		ev := logging.Debug()
		if ww.Status() >= http.StatusInternalServerError {
			ev = logging.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("requestID", middleware.GetReqID(r.Context())).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// sessionScope enters the session named by the user header, if any, for
// the duration of the request. Without the header the default session is
// current.
func (s *Server) sessionScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get(UserHeader)
		if user == "" {
			next.ServeHTTP(w, r)
			return
		}
		sess, err := s.sessions.get(r.Context(), user)
		if err != nil {
			writeForumError(w, err)
			return
		}
		ctx, scope := sess.Enter(r.Context())
		defer func() {
			if err := scope.Exit(); err != nil {
				logging.Error().Err(err).Str("user", user).Msg("Session scope corrupted")
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// StartChat polls the chat with the default session until ctx is done, so
// chat events reach /event subscribers.
func (s *Server) StartChat(ctx context.Context, interval time.Duration) {
	go func() {
		if err := s.chat.Run(ctx, interval, nil); err != nil && ctx.Err() == nil {
			logging.Error().Err(err).Msg("Chat polling stopped")
		}
	}()
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         net.JoinHostPort(s.config.Hostname, strconv.Itoa(s.config.Port)),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	logging.Info().Str("addr", s.httpSrv.Addr).Msg("Gateway listening")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
