package chat

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/talkio/internal/domain"
	"github.com/nfrund/talkio/internal/middleware"
	"github.com/nfrund/talkio/internal/module"
	"github.com/nfrund/talkio/internal/presence"
	"github.com/nfrund/talkio/internal/pubsub"
)

// ChatModule implements the module.Module interface for the realtime chat feature.
type ChatModule struct {
	module.BaseModule
	subscriber pubsub.Subscriber
	registry   *presence.Registry
	store      domain.MessageRepository
	router     *Router
}

// Dependencies holds all the services that the ChatModule requires to operate.
type Dependencies struct {
	Subscriber pubsub.Subscriber
	Registry   *presence.Registry
	Store      domain.MessageRepository
}

// New creates a new instance of the ChatModule, injecting its dependencies.
func New(deps Dependencies) *ChatModule {
	return &ChatModule{
		subscriber: deps.Subscriber,
		registry:   deps.Registry,
		store:      deps.Store,
		router:     NewRouter(deps.Store, deps.Registry),
	}
}

// Name returns the module name.
func (m *ChatModule) Name() string {
	return "chat"
}

// Boot sets up the routes and starts background services for the chat module.
func (m *ChatModule) Boot(ctx context.Context, g *echo.Group) error {
	slog.Info("Booting ChatModule")

	// Fan presence snapshots out to connected clients.
	presenceSubscriber := NewPresenceSubscriber(m.subscriber, m.registry)
	go presenceSubscriber.Start(ctx)

	handler := NewHandler(m.router, m.registry, m.store)

	g.GET("/ws", handler.ServeWS)
	g.GET("/api/messages/:user1/:user2", handler.HistoryGet,
		middleware.Identity(), middleware.RateLimiter())

	return nil
}

// Shutdown is called on application termination.
func (m *ChatModule) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down ChatModule")
	return nil
}

// Router exposes the delivery router, useful for tests.
func (m *ChatModule) Router() *Router {
	return m.router
}
