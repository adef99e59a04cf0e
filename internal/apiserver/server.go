// Package apiserver exposes the SmolMind agent core over a small REST API:
// agent and tool listings, direct tool calls and persisted chat sessions.
package apiserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/klubi/smolmind/internal/agent"
	"github.com/klubi/smolmind/internal/store"
)

// Server is the SmolMind REST API server.
type Server struct {
	router *mux.Router
	core   *agent.Core
	convs  *store.Conversations
	logger *zap.Logger
	server *http.Server

	mu    sync.Mutex
	locks map[string]*sync.Mutex // session name -> turn lock
}

// NewServer creates a fully-wired Server ready to Start().
func NewServer(addr string, core *agent.Core, convs *store.Conversations, logger *zap.Logger) *Server {
	srv := &Server{
		router: mux.NewRouter(),
		core:   core,
		convs:  convs,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
	srv.server = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Turns wait on the model, which can take minutes on local backends.
		WriteTimeout: 5 * time.Minute,
	}
	srv.registerRoutes()
	return srv
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening and serving HTTP requests. It blocks until the
// server is shut down or encounters a fatal error.
func (s *Server) Start() error {
	s.logger.Info("API server starting", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// sessionLock returns the mutex serialising turns of one session.
func (s *Server) sessionLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *Server) forgetSession(name string) {
	s.mu.Lock()
	delete(s.locks, name)
	s.mu.Unlock()
}
