package handlers

import (
	"io/fs"
	"net/http"

	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
	"github.com/labstack/echo/v4"
)

const (
	scriptContentType  = "application/javascript; charset=utf-8"
	scriptCacheControl = "public, max-age=300"
	scriptNotFound     = "// Tracking script not found"
)

// ScriptHandler serves the storefront tracking script
type ScriptHandler struct {
	fsys fs.FS
	name string
	log  logger.Logger
}

// NewScriptHandler serves the file name from fsys
func NewScriptHandler(fsys fs.FS, name string, log logger.Logger) *ScriptHandler {
	return &ScriptHandler{fsys: fsys, name: name, log: log}
}

// Serve returns the tracking script
// @Summary Tracking script
// @Description Storefront script that copies the Capty click id into the cart attributes
// @Tags Tracking
// @Produce application/javascript
// @Success 200 {string} string
// @Failure 404 {string} string "// Tracking script not found"
// @Router /capty-tracking.js [get]
func (h *ScriptHandler) Serve(c echo.Context) error {
	content, err := fs.ReadFile(h.fsys, h.name)
	if err != nil {
		h.log.Error("failed to load tracking script", "path", h.name, "error", err)
		return c.Blob(http.StatusNotFound, scriptContentType, []byte(scriptNotFound))
	}

	c.Response().Header().Set(echo.HeaderCacheControl, scriptCacheControl)
	return c.Blob(http.StatusOK, scriptContentType, content)
}
