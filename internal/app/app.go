// Package app builds the process-wide service instance: static metadata, the
// echo engine, and its single route.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/Serious-senpai/pet-house/internal/config"
	"github.com/Serious-senpai/pet-house/internal/router"
)

// App is the long-lived service instance.  Its fields are set once by New
// and never change afterwards.
type App struct {
	Title       string
	Description string // README contents
	Version     string

	echo *echo.Echo
}

type options struct {
	routeMW     []echo.MiddlewareFunc
	logRequests bool
}

// Option customises New.
type Option func(*options)

// WithRouteMiddleware wraps the registered route with mw, outermost first.
func WithRouteMiddleware(mw ...echo.MiddlewareFunc) Option {
	return func(o *options) { o.routeMW = append(o.routeMW, mw...) }
}

// WithRequestLogging enables echo's access log.
func WithRequestLogging() Option {
	return func(o *options) { o.logRequests = true }
}

// New reads the README at cfg.ReadmePath and builds the service.  A missing
// or unreadable README is returned as an error and no engine is built.
func New(cfg config.Config, opts ...Option) (*App, error) {
	readme, err := os.ReadFile(cfg.ReadmePath)
	if err != nil {
		return nil, fmt.Errorf("read readme %s: %w", cfg.ReadmePath, err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.INFO)
	e.Use(echomw.Recover())
	if o.logRequests {
		e.Use(echomw.Logger())
	}
	router.RegisterRoutes(e, o.routeMW...)

	return &App{
		Title:       config.Title,
		Description: string(readme),
		Version:     config.Version,
		echo:        e,
	}, nil
}

// Routes lists the registered routes.
func (a *App) Routes() []*echo.Route { return a.echo.Routes() }

// ListenerAddr is the bound address once Run has started listening, else nil.
func (a *App) ListenerAddr() net.Addr { return a.echo.ListenerAddr() }

// ServeHTTP lets the App be mounted on any http.Server or httptest.Server.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) { a.echo.ServeHTTP(w, r) }

// Start listens on addr and blocks until the server stops.  A server closed
// through Shutdown returns nil.
func (a *App) Start(addr string) error {
	if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (a *App) Shutdown(ctx context.Context) error { return a.echo.Shutdown(ctx) }

// Hooks are optional callbacks around Run.  OnStart runs once the listener
// is bound; OnStop runs after cancellation, before Shutdown.  Neither runs
// when the bind fails.
type Hooks struct {
	OnStart func()
	OnStop  func()
}

// Run serves on addr until ctx is cancelled, then shuts down within timeout.
func (a *App) Run(ctx context.Context, addr string, timeout time.Duration, hooks Hooks) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	// echo serves on a preset listener instead of binding again
	a.echo.Listener = ln

	errc := make(chan error, 1)
	go func() { errc <- a.Start(addr) }()
	if hooks.OnStart != nil {
		hooks.OnStart()
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	if hooks.OnStop != nil {
		hooks.OnStop()
	}

	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}
