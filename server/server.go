// Package server exposes the chat backend over HTTP for a remote presentation
// layer: schematic discovery and reading, the per-document session store, and
// a WebSocket that streams chat events.
//
//	GET    /api/files                       list .asc files
//	GET    /api/files/content?file=         read one file
//	GET    /api/workspace                   current working directory
//	PUT    /api/workspace                   change working directory
//	GET    /api/chats?file=                 session index, newest first
//	PUT    /api/chats?file=                 save a session
//	GET    /api/chats/session?file=&id=     load a session
//	DELETE /api/chats/session?file=&id=     delete a session
//	GET    /ws/chat                         streaming chat
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tailored-agentic-units/spicy/agent"
	"github.com/tailored-agentic-units/spicy/memory"
	"github.com/tailored-agentic-units/spicy/observability"
	"github.com/tailored-agentic-units/spicy/workspace"
)

const shutdownTimeout = 5 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithObserver routes server events to o.
func WithObserver(o observability.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// Server serves the backend RPC surface.
type Server struct {
	cfg       Config
	store     memory.Store
	streamer  agent.Streamer
	workspace *workspace.Workspace
	observer  observability.Observer
	upgrader  websocket.Upgrader
	engine    *gin.Engine
}

// New creates a Server over the given collaborators.
func New(cfg *Config, store memory.Store, streamer agent.Streamer, ws *workspace.Workspace, opts ...Option) *Server {
	merged := DefaultConfig()
	merged.Merge(cfg)

	s := &Server{
		cfg:       merged,
		store:     store,
		streamer:  streamer,
		workspace: ws,
		observer:  observability.NoOpObserver{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(merged.AllowedOrigins),
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(merged.Mode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.logRequests())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	{
		api.GET("/files", s.listFiles)
		api.GET("/files/content", s.readFile)

		api.GET("/workspace", s.getWorkspace)
		api.PUT("/workspace", s.setWorkspace)

		api.GET("/chats", s.listSessions)
		api.PUT("/chats", s.saveSession)
		api.GET("/chats/session", s.loadSession)
		api.DELETE("/chats/session", s.deleteSession)
	}

	s.engine.GET("/ws/chat", s.chat)
}

// Handler returns the HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.emit(ctx, EventListen, observability.LevelInfo, map[string]any{"addr": s.cfg.Addr})
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.emit(c.Request.Context(), EventRequest, observability.LevelVerbose, map[string]any{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

func (s *Server) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	s.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "server.Server",
		Data:      data,
	})
}

// checkOrigin allows non-browser clients, same-host pages, and the configured
// origins.
func checkOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if u, err := url.Parse(o); err == nil {
			allowed[u.Host] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host || allowed[u.Host]
	}
}
