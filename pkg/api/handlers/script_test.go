package handlers

import (
	"net/http"
	"testing"
	"testing/fstest"

	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeScript(t *testing.T) {
	fsys := fstest.MapFS{
		"capty-tracking.js": {Data: []byte("(function(){})();")},
	}

	t.Run("Success - serves cached javascript", func(t *testing.T) {
		h := NewScriptHandler(fsys, "capty-tracking.js", logger.Nop())
		c, rec := get("/capty-tracking.js")

		require.NoError(t, h.Serve(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/javascript; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))
		assert.Equal(t, "(function(){})();", rec.Body.String())
	})

	t.Run("Error - missing file", func(t *testing.T) {
		h := NewScriptHandler(fsys, "missing.js", logger.Nop())
		c, rec := get("/capty-tracking.js")

		require.NoError(t, h.Serve(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "application/javascript; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Empty(t, rec.Header().Get("Cache-Control"))
		assert.Equal(t, "// Tracking script not found", rec.Body.String())
	})
}
