package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"autometer/internal/http/middleware"
)

func newTestRouter(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	return r
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newTestRouter(zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Errorf("expected one panic log entry, got %d", logs.FilterMessage("panic recovered").Len())
	}
}

func TestLogging_RecordsRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newTestRouter(zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one access log entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["path"] != "/ok" {
		t.Errorf("expected path /ok, got %v", ctx["path"])
	}
	if ctx["status"] != int64(200) {
		t.Errorf("expected status 200, got %v", ctx["status"])
	}
}
