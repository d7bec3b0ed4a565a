package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/instrctl/internal/auth"
	"github.com/danmuck/instrctl/internal/catalog"
	"github.com/danmuck/instrctl/internal/journal"
	"github.com/danmuck/instrctl/internal/observability"
	"github.com/danmuck/instrctl/internal/persistence"
	"github.com/danmuck/instrctl/internal/send"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Options wires the operator API to the session state.
type Options struct {
	Node        string
	CorsOrigins []string
	Catalog     *catalog.Catalog
	Store       persistence.Store
	Pipeline    *send.Pipeline
	Journal     *journal.Journal
	Markers     catalog.Markers
	Logger      zerolog.Logger
	// Auth guards mutating routes when set.
	Auth auth.Validator
}

// Server exposes the catalog and send pipeline over HTTP.
type Server struct {
	opts    Options
	router  *gin.Engine
	started time.Time
}

func New(opts Options) *Server {
	if opts.Node == "" {
		opts.Node = "instrctl"
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(opts.Logger))
	r.Use(observability.RequestMetricsMiddleware(opts.Node))
	if len(opts.CorsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: opts.CorsOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "PATCH"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}
	s := &Server{opts: opts, router: r, started: time.Now()}
	s.registerRoutes()
	return s
}

// requireOperator rejects calls without a valid bearer token.
func (s *Server) requireOperator(c *gin.Context) {
	if s.opts.Auth == nil {
		c.Next()
		return
	}
	if err := s.opts.Auth.Validate(auth.BearerToken(c.GetHeader("Authorization"))); err != nil {
		s.opts.Logger.Warn().Str("path", c.FullPath()).Msg("server.Server.requireOperator denied")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Next()
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.opts.Logger.Info().Str("addr", addr).Msg("server.Server.Run listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.opts.Logger.Info().Msg("server.Server.Run stopped")
		return nil
	}
}
