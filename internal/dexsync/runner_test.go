package dexsync

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"shinydex/internal/apperr"
)

func TestRunnerRejectsConcurrentStart(t *testing.T) {
	src := &fakeSource{block: make(chan struct{})}
	r := NewRunner(New(src, newMemStore(), Options{Workers: 1}, zerolog.Nop()), zerolog.Nop())

	if err := r.Start(3); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !r.Status().Running {
		t.Fatalf("status should report running")
	}
	if err := r.Start(0); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	close(src.block)
	r.Wait()

	st := r.Status()
	if st.Running || st.LastError != "" || st.FinishedAt == nil {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.LastSummary == nil || st.LastSummary.Total != 135 || st.LastSummary.Results[0].Range != "252-386" {
		t.Fatalf("unexpected summary: %+v", st.LastSummary)
	}

	// a finished run frees the slot
	if err := r.Start(7); err != nil {
		t.Fatalf("restart: %v", err)
	}
	r.Wait()
}

func TestRunnerStopCancels(t *testing.T) {
	src := &fakeSource{block: make(chan struct{})}
	r := NewRunner(New(src, newMemStore(), Options{Workers: 1}, zerolog.Nop()), zerolog.Nop())

	if err := r.Start(0); err != nil {
		t.Fatalf("start: %v", err)
	}
	r.Stop()

	st := r.Status()
	if st.Running || !strings.Contains(st.LastError, "context canceled") {
		t.Fatalf("unexpected status after stop: %+v", st)
	}
}

func TestRunnerValidatesGeneration(t *testing.T) {
	r := NewRunner(New(&fakeSource{}, newMemStore(), DefaultOptions(), zerolog.Nop()), zerolog.Nop())

	if err := r.Start(12); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if r.Status().Running {
		t.Fatalf("invalid start must not run")
	}
}

func TestSyncRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	src := &fakeSource{block: make(chan struct{})}
	runner := NewRunner(New(src, newMemStore(), Options{Workers: 1}, zerolog.Nop()), zerolog.Nop())
	defer runner.Stop()

	engine := gin.New()
	NewHandler(runner).RegisterRoutes(engine.Group("/sync"))

	send := func(method, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(http.MethodPost, "/sync", `{"generation": 42}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid generation: %d %s", rec.Code, rec.Body.String())
	}

	rec := send(http.MethodPost, "/sync", `{"generation": 1}`)
	if rec.Code != http.StatusAccepted || !strings.Contains(rec.Body.String(), `"running":true`) {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}

	if rec := send(http.MethodPost, "/sync", ``); rec.Code != http.StatusConflict {
		t.Fatalf("second start: %d %s", rec.Code, rec.Body.String())
	}

	rec = send(http.MethodGet, "/sync/status", ``)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"generation":1`) {
		t.Fatalf("status: %d %s", rec.Code, rec.Body.String())
	}

	close(src.block)
	runner.Wait()

	rec = send(http.MethodGet, "/sync/status", ``)
	if !strings.Contains(rec.Body.String(), `"total":151`) {
		t.Fatalf("final status: %s", rec.Body.String())
	}
}
