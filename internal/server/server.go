// Package server wires the HTTP surface: auth, knowledge-base CRUD and
// search, question resolution and submission history.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/formpilot/formpilot/config"
	"github.com/formpilot/formpilot/internal/formparser"
	"github.com/formpilot/formpilot/internal/provider"
	"github.com/formpilot/formpilot/internal/resolve"
	"github.com/formpilot/formpilot/internal/runtime"
	"github.com/formpilot/formpilot/internal/store"
	"github.com/formpilot/formpilot/internal/telemetry"
)

func Run(cfg *config.Config, addr string) error {
	e := newEcho()

	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: %w", err)
	}

	ctx := context.Background()
	st, err := store.New(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.Storage.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
	}

	backends, err := provider.NewBackends(cfg.LLM, rdb, cfg.Storage.Redis)
	if err != nil {
		return err
	}
	tele := telemetry.New(cfg.Telemetry.Enabled)
	resolver := resolve.New(backends, cfg.Resolve.BackendTimeout, cfg.Resolve.MaxConcurrent, tele)

	api := e.Group("/api")

	auth := &AuthHandler{Store: st, Secret: secret}
	auth.Register(api.Group("/auth"))

	me := api.Group("/me")
	me.Use(runtime.EchoAuthMiddleware(secret))
	me.GET("", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"user_id": c.Get("user_id").(string)})
	})

	kh := &KnowledgeHandler{Store: st}
	kh.Register(api.Group("/knowledge"), secret)

	fh := &FormsHandler{
		Store:    st,
		Resolver: resolver,
		Fetcher:  formparser.NewChromeFetcher(cfg.Resolve.BackendTimeout),
	}
	fh.Register(api, secret)

	if addr == "" {
		addr = cfg.Server.Address
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// newEcho builds the echo instance with the shared middleware stack.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}
