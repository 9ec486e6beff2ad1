package server

import (
	"context"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/talkio/internal/config"
	"github.com/nfrund/talkio/internal/database"
	"github.com/nfrund/talkio/internal/domain"
	"github.com/nfrund/talkio/internal/logging"
	appmiddleware "github.com/nfrund/talkio/internal/middleware"
	"github.com/nfrund/talkio/internal/module"
	"github.com/nfrund/talkio/internal/modules/chat"
	"github.com/nfrund/talkio/internal/presence"
	"github.com/nfrund/talkio/internal/pubsub"
	"github.com/surrealdb/surrealdb.go"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E        *echo.Echo
	Cfg      *config.Config
	PubSub   *pubsub.WatermillBridge
	Registry *presence.Registry
	Store    domain.MessageRepository

	db          *surrealdb.DB
	modules     []module.Module
	ctx         context.Context
	cancel      context.CancelFunc
	stopTracing func()
}

// New creates a new Server instance.
func New() *Server {
	logging.New()
	cfg := config.New()

	ctx, cancel := context.WithCancel(context.Background())

	var db *surrealdb.DB
	var store domain.MessageRepository
	switch cfg.Store {
	case config.StoreMemory:
		slog.Info("Using in-memory message store")
		store = database.NewMemoryMessageStore()
	default:
		var err error
		db, err = database.NewDB(ctx, cfg)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			cancel()
			os.Exit(1)
		}
		store = database.NewSurrealMessageStore(db)
	}

	tracer, stopTracing, err := pubsub.SetupTracing(ctx, pubsub.LoadTracingConfigFromEnv())
	if err != nil {
		slog.Warn("Tracing setup failed, continuing without it", "error", err)
		tracer, stopTracing, _ = pubsub.SetupTracing(ctx, pubsub.TracingConfig{})
	}

	bridge := pubsub.NewWatermillBridgeWithTracer(tracer)
	registry := presence.NewRegistry(bridge)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.RequestID())
	e.Use(appmiddleware.Logger)
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{cfg.ClientURL},
	}))

	modules := []module.Module{
		chat.New(chat.Dependencies{
			Subscriber: bridge,
			Registry:   registry,
			Store:      store,
		}),
	}

	return &Server{
		E:           e,
		Cfg:         cfg,
		PubSub:      bridge,
		Registry:    registry,
		Store:       store,
		db:          db,
		modules:     modules,
		ctx:         ctx,
		cancel:      cancel,
		stopTracing: stopTracing,
	}
}
