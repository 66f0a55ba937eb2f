// Package server assembles the HTTP server: the admission pipeline, the
// health endpoint and the v1 API routes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/pkg/errors"

	"github.com/ragchat/ragchat/plugin/vectorstore"
	"github.com/ragchat/ragchat/server/auth"
	"github.com/ragchat/ragchat/server/profile"
	"github.com/ragchat/ragchat/server/ratelimit"
	v1 "github.com/ragchat/ragchat/server/router/api/v1"
	"github.com/ragchat/ragchat/store"
)

type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	Profile *profile.Profile
	Store   *store.Store
}

func NewServer(p *profile.Profile, st *store.Store, assistant v1.Responder, vs *vectorstore.Store) *Server {
	e := echo.New()

	// Admission pipeline: authentication strictly before rate limiting. A
	// request must clear both gates before any handler runs.
	e.Use(auth.New(p.APIKey).Middleware())
	e.Use(ratelimit.NewRegistry(p.RateLimitCapacity, p.RateLimitRefillTokens, p.RateLimitRefillInterval).Middleware())

	e.GET("/healthz", func(c *echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	v1.NewAPIV1Service(p, st, assistant, vs).RegisterRoutes(e)

	return &Server{
		echo: e,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", p.Addr, p.Port),
			Handler:           e,
			ReadHeaderTimeout: 3 * time.Second,
		},
		Profile: p,
		Store:   st,
	}
}

// Handler exposes the router, used by tests to drive requests in-process.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
