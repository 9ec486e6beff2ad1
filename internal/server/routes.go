package server

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes boots every module and sets up the application-level routes.
func (s *Server) RegisterRoutes() {
	for _, m := range s.modules {
		if err := m.Boot(s.ctx, s.E.Group("")); err != nil {
			slog.Error("Failed to boot module", "module", m.Name(), "error", err)
			os.Exit(1)
		}
	}

	s.E.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
}
