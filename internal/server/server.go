package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/scribe/config"
	"github.com/mohammad-safakhou/scribe/internal/embed"
	"github.com/mohammad-safakhou/scribe/internal/extract"
	"github.com/mohammad-safakhou/scribe/internal/llm"
	"github.com/mohammad-safakhou/scribe/internal/rank"
	"github.com/mohammad-safakhou/scribe/internal/research"
	"github.com/mohammad-safakhou/scribe/internal/search"
	"github.com/mohammad-safakhou/scribe/internal/store"
)

func Run(cfg *config.Config, addr string) error {
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
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	registerDocs(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()

	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	_ = Migrate("file://migrations", dsn, "up", 0)
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	// Redis is optional: without it the extraction cache and the
	// cleanup lock degrade off.
	var rdb *redis.Client
	if raddr := cfg.Storage.Redis.Addr(); raddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     raddr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("redis unreachable (%s): %v, continuing without cache", raddr, err)
		} else {
			rdb = client
		}
	}

	// Shared pipeline dependencies (top-level DI)
	chain := search.NewDefaultChain(search.Options{
		BraveAPIKey:  cfg.Search.Brave.APIKey,
		SerperAPIKey: cfg.Search.Serper.APIKey,
	}, log.New(log.Writer(), "[SEARCH] ", log.LstdFlags))

	extractLogger := log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags)
	extractor := extract.NewExtractor(extractLogger)
	if cfg.Extract.Timeout > 0 {
		extractor.Timeout = cfg.Extract.Timeout
	}
	if rdb != nil {
		extractor.Cache = extract.NewRedisCache(rdb, cfg.Extract.CacheTTL, extractLogger)
	}

	embedder, err := embed.New(embed.Options{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Dimension:  cfg.Embedding.Dimension,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		OllamaHost: cfg.Embedding.OllamaHost,
	})
	if err != nil {
		return err
	}

	llmClient := llm.NewOpenAIClient(llm.Options{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
	})

	deps := research.Deps{
		Resolver:   chain,
		Extractor:  extractor,
		Ranker:     rank.New(embedder, log.New(log.Writer(), "[RANK] ", log.LstdFlags)),
		Truncate:   rank.Truncate,
		LLM:        llmClient,
		Logger:     log.New(log.Writer(), "[AGENT] ", log.LstdFlags),
		NumResults: cfg.Search.NumResults,
	}
	pipeline := research.NewPipeline(deps, st)
	builder := research.NewBuilder(pipeline, st, log.New(log.Writer(), "[BUILDER] ", log.LstdFlags))

	secret := cfg.Server.JWTSecret
	if secret == "" {
		return fmt.Errorf("jwt secret not configured (server.jwt_secret or SCRIBE_JWT_SECRET)")
	}
	auth := &AuthHandler{Store: st, Secret: []byte(secret), Env: cfg.Server.Env}

	lib, err := NewLibrary(cfg.Library.MaxReports, log.New(log.Writer(), "[LIBRARY] ", log.LstdFlags))
	if err != nil {
		return err
	}
	if err := lib.Rebuild(ctx, st); err != nil {
		log.Printf("library rebuild failed: %v", err)
	}

	api := e.Group("/api")
	auth.Register(api.Group("/auth"))

	rh := NewResearchHandler(st, builder, lib)
	rh.Register(api.Group(""), auth.Secret)

	lh := &LibraryHandler{Library: lib}
	lh.Register(api.Group("/library"), auth.Secret)

	sched := &Scheduler{
		Store:         st,
		Rdb:           rdb,
		CronSpec:      cfg.Scheduler.CleanupCron,
		RetentionDays: cfg.Scheduler.RetentionDays,
		Stop:          make(chan struct{}),
		Logger:        log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
	}
	sched.Start()

	if addr == "" {
		addr = cfg.Server.Listen
	}
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
