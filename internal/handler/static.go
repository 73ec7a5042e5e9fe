package handler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/deppfellow/iban-manager/internal/errs"
	"github.com/deppfellow/iban-manager/internal/server"
	"github.com/labstack/echo/v4"
)

// StaticHandler serves the single page UI from the configured static dir.
type StaticHandler struct {
	Handler
}

func NewStaticHandler(s *server.Server) *StaticHandler {
	return &StaticHandler{
		Handler: NewHandler(s),
	}
}

// ServeUI serves the file at the request path when it exists and
// index.html otherwise, so client side routes survive a reload.
// Paths under /api never fall through to the UI.
func (h *StaticHandler) ServeUI(c echo.Context) error {
	path := c.Request().URL.Path
	if path == "/api" || strings.HasPrefix(path, "/api/") {
		return echo.ErrNotFound
	}

	root := h.server.Config.Server.StaticDir

	// Clean against "/" first so ".." cannot climb out of root.
	name := filepath.Join(root, filepath.FromSlash(filepath.Clean("/"+path)))
	if isFile(name) {
		return c.File(name)
	}

	index := filepath.Join(root, "index.html")
	if !isFile(index) {
		return errs.NewNotFoundError("Page not found", false, nil)
	}

	// index.html must be revalidated so a deploy reaches open tabs.
	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.File(index)
}

func isFile(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.Mode().IsRegular()
}
