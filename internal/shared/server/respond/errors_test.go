package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"research-backend/internal/shared/telemetry"
)

func TestErrorWritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)
	t.Cleanup(telemetry.SetLogger(zap.New(core)))

	r := gin.New()
	r.GET("/client", func(c *gin.Context) {
		Error(c, http.StatusUnprocessableEntity, "validation_failed", "Requirement: Research domain is mandatory.", gin.H{"gate": "domain_required"})
	})
	r.GET("/server", func(c *gin.Context) {
		Error(c, http.StatusInternalServerError, "internal_error", "boom", nil)
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/client", nil))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "validation_failed" {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}
	details, ok := body.Error.Details.(map[string]any)
	if !ok || details["gate"] != "domain_required" {
		t.Fatalf("unexpected details %#v", body.Error.Details)
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/server", nil))

	entries := logs.FilterMessage("http.error").All()
	if len(entries) != 2 {
		t.Fatalf("expected two http.error entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn for 4xx, got %s", entries[0].Level)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error for 5xx, got %s", entries[1].Level)
	}
}

func TestCreatedAndNoContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/created", func(c *gin.Context) { Created(c, gin.H{"id": "p1"}) })
	r.POST("/empty", func(c *gin.Context) { NoContent(c) })

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/created", nil))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil || body["id"] != "p1" {
		t.Fatalf("unexpected body %q (%v)", resp.Body.String(), err)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/empty", nil))
	if resp.Code != http.StatusNoContent || resp.Body.Len() != 0 {
		t.Fatalf("expected empty 204, got %d %q", resp.Code, resp.Body.String())
	}
}
