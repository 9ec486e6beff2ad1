package chat

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/talkio/internal/domain"
	"github.com/nfrund/talkio/internal/middleware"
	"github.com/nfrund/talkio/internal/presence"
)

// Handler holds dependencies for the chat module's HTTP handlers.
type Handler struct {
	router   *Router
	registry *presence.Registry
	store    domain.MessageRepository
}

// NewHandler creates a new chat handler with its dependencies.
func NewHandler(router *Router, registry *presence.Registry, store domain.MessageRepository) *Handler {
	return &Handler{router: router, registry: registry, store: store}
}

// ServeWS upgrades the request to a WebSocket connection and starts a
// session for it. Identity is not known at upgrade time; the client
// announces it with a user:online event.
func (h *Handler) ServeWS(c echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		// In a production environment, check the origin to prevent CSRF.
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Error("failed to upgrade websocket connection", "error", err)
		return c.String(http.StatusInternalServerError, "Failed to upgrade to WebSocket")
	}

	session := NewSession(conn, h.router, h.registry)

	go session.writePump()
	go session.readPump()

	return nil
}

// HistoryGet returns the conversation between two users, oldest first,
// deleted messages excluded. This is how a user who was offline catches up
// on messages persisted while they were away.
func (h *Handler) HistoryGet(c echo.Context) error {
	user1 := c.Param("user1")
	user2 := c.Param("user2")

	messages, err := h.store.ListConversation(c.Request().Context(), user1, user2)
	if err != nil {
		middleware.FromContext(c.Request().Context()).Error("failed to load conversation",
			"user1", user1, "user2", user2, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load conversation")
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	return c.JSON(http.StatusOK, messages)
}
