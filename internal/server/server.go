package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/planwise/planwise/config"
	"github.com/planwise/planwise/internal/chat"
	"github.com/planwise/planwise/internal/completion"
	"github.com/planwise/planwise/internal/logger"
	"github.com/planwise/planwise/internal/pricing"
	"github.com/planwise/planwise/internal/runtime"
	"github.com/planwise/planwise/internal/store"
)

func init() {
	// Amounts go out as JSON numbers, matching what clients send.
	decimal.MarshalJSONWithoutQuotes = true
}

// Deps are the handlers' collaborators.
type Deps struct {
	Users          UserStore
	Chat           ChatService
	Secret         []byte
	TokenTTL       time.Duration
	SecureCookies  bool
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer
	Ping           func(context.Context) error
	Log            *logger.Logger
}

// NewEcho builds the HTTP API.
func NewEcho(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if len(d.AllowedOrigins) == 0 {
		d.AllowedOrigins = []string{"*"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = errorHandler(d.Log)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURIPath:   true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			d.Log.Info("http request",
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     d.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error {
		if d.Ping != nil {
			if err := d.Ping(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
		}
		return c.String(http.StatusOK, "ok")
	})
	registerDocs(e)
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")
	auth := &AuthHandler{Store: d.Users, Secret: d.Secret, TokenTTL: d.TokenTTL, SecureCookies: d.SecureCookies, Log: d.Log}
	auth.Register(api.Group("/auth"))
	api.GET("/me", auth.me, runtime.EchoAuthMiddleware(d.Secret))

	ch := &ChatHandler{Chat: d.Chat}
	ch.Register(api, d.Secret)
	return e
}

// errorHandler renders every error as {"error": "..."} and hides internal
// causes from the client.
func errorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := "failed to process message"
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			code = he.Code
			msg = fmt.Sprint(he.Message)
		case chat.IsValidation(err):
			code = http.StatusBadRequest
			msg = err.Error()
		case errors.Is(err, chat.ErrNotFound):
			code = http.StatusNotFound
			msg = chat.ErrNotFound.Error()
		}
		req := c.Request()
		if code >= http.StatusInternalServerError {
			log.Error("request failed", "method", req.Method, "path", req.URL.Path, "status", code, "error", err)
		} else {
			log.Debug("request rejected", "method", req.Method, "path", req.URL.Path, "status", code, "error", err)
		}
		if c.Response().Committed {
			return
		}
		if req.Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, HTTPError{Error: msg})
	}
}

// Run wires the service from cfg and serves until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if err := cfg.Server.Validate(); err != nil {
		return err
	}
	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}
	dsn, err := runtime.BuildPostgresDSN(cfg)
	if err != nil {
		return err
	}
	if err := Migrate("", dsn, "up", 0); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.Close()

	rdb, err := runtime.RedisClient(ctx, cfg.Storage.Redis)
	if err != nil {
		return err
	}
	var (
		cache  pricing.Cache
		locker chat.Locker = chat.NoopLocker{}
	)
	if rdb != nil {
		defer rdb.Close()
		cache = pricing.RedisCache{Client: rdb}
		locker = chat.NewRedisLocker(rdb)
	} else {
		cache = pricing.NewMemoryCache(cfg.Pricing.CacheTTL)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := runtime.NewMetrics(reg)

	lookup := pricing.Cached{
		Next: pricing.NewSerpAPI(pricing.SerpAPIOptions{
			APIKey:   cfg.Pricing.SerpAPIKey,
			Endpoint: cfg.Pricing.Endpoint,
			Timeout:  cfg.Pricing.Timeout,
			Logger:   log,
		}),
		Cache: cache,
		TTL:   cfg.Pricing.CacheTTL,
		Log:   log,
	}
	llm, err := completion.New(ctx, cfg.LLM, log)
	if err != nil {
		return err
	}

	svc := chat.NewService(chat.Deps{
		Store:      st,
		Pricing:    lookup,
		Completion: llm,
		Locker:     locker,
		Metrics:    metrics,
		Logger:     log,
	}, chat.Options{
		HistoryLimit: cfg.Chat.HistoryLimit,
		PricingLimit: cfg.Pricing.Limit,
		LockTTL:      cfg.Chat.LockTTL,
		Model:        cfg.LLM.Model,
	})

	e := NewEcho(Deps{
		Users:          st,
		Chat:           svc,
		Secret:         secret,
		TokenTTL:       cfg.Server.TokenTTL,
		SecureCookies:  cfg.Server.SecureCookies,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gatherer:       reg,
		Ping:           st.Ping,
		Log:            log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "address", cfg.Server.Address)
		if err := e.Start(cfg.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	log.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}
