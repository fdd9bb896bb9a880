package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, n int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	NewHandler(newSeededService(t, n)).RegisterRoutes(r.Group("/pokemon"))
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListRoute(t *testing.T) {
	r := newTestRouter(t, 200)

	rec := do(r, http.MethodGet, "/pokemon?generation=1&limit=500&page=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	var page Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Pokemon) != 50 || page.Pokemon[0].ID != 51 {
		t.Fatalf("unexpected page: %d rows, first %d", len(page.Pokemon), page.Pokemon[0].ID)
	}
	p := page.Pagination
	if p.TotalCount != 151 || p.TotalPages != 4 || !p.HasNext || !p.HasPrev || p.Limit != 50 {
		t.Fatalf("unexpected pagination: %+v", p)
	}

	// raw body keeps the camelCase pagination keys
	if !strings.Contains(rec.Body.String(), `"totalCount":151`) {
		t.Fatalf("missing totalCount key: %s", rec.Body.String())
	}
}

func TestRouteValidation(t *testing.T) {
	r := newTestRouter(t, 10)

	cases := []struct {
		method, target, body string
		status               int
	}{
		{http.MethodGet, "/pokemon?generation=12", "", http.StatusBadRequest},
		{http.MethodGet, "/pokemon?page=zero", "", http.StatusBadRequest},
		{http.MethodGet, "/pokemon/abc", "", http.StatusBadRequest},
		{http.MethodGet, "/pokemon/2000", "", http.StatusBadRequest},
		{http.MethodGet, "/pokemon/500", "", http.StatusNotFound},
		{http.MethodGet, "/pokemon/5", "", http.StatusOK},
		{http.MethodGet, "/pokemon/generation/0", "", http.StatusBadRequest},
		{http.MethodGet, "/pokemon/generation/x", "", http.StatusBadRequest},
		{http.MethodGet, "/pokemon/search", "", http.StatusBadRequest},
		{http.MethodPost, "/pokemon/types", `{"page":1}`, http.StatusBadRequest},
		{http.MethodPost, "/pokemon/types", `not json`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		rec := do(r, tc.method, tc.target, tc.body)
		if rec.Code != tc.status {
			t.Fatalf("%s %s: status = %d, want %d (%s)", tc.method, tc.target, rec.Code, tc.status, rec.Body.String())
		}
		if tc.status >= 400 && !strings.Contains(rec.Body.String(), `"error"`) {
			t.Fatalf("%s %s: missing error body", tc.method, tc.target)
		}
	}
}

func TestTypeRoutes(t *testing.T) {
	r := newTestRouter(t, 160)

	rec := do(r, http.MethodGet, "/pokemon/types", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `["electric","grass","normal","poison"]`) {
		t.Fatalf("types: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(r, http.MethodPost, "/pokemon/types", `{"type":"ELECTRIC","page":1,"limit":20}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("by type: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Type       string             `json:"type"`
		Pokemon    []struct{ ID int } `json:"pokemon"`
		Pagination Pagination         `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Type != "electric" || len(body.Pokemon) != 1 || body.Pokemon[0].ID != 25 || body.Pagination.TotalCount != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestGenerationRoutes(t *testing.T) {
	r := newTestRouter(t, 260)

	rec := do(r, http.MethodGet, "/pokemon/generation/2?search=chik", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("generation: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Generation int                `json:"generation"`
		Pokemon    []struct{ ID int } `json:"pokemon"`
		Pagination Pagination         `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Generation != 2 || len(body.Pokemon) != 1 || body.Pokemon[0].ID != 152 {
		t.Fatalf("unexpected body: %+v", body)
	}

	rec = do(r, http.MethodGet, "/pokemon/generation/1", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Pagination.Limit != 50 || body.Pagination.TotalCount != 151 {
		t.Fatalf("generation listing defaults: %+v", body.Pagination)
	}

	rec = do(r, http.MethodGet, "/pokemon/generations", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"synced":151`) {
		t.Fatalf("generations: %d %s", rec.Code, rec.Body.String())
	}
}

func TestSearchRoute(t *testing.T) {
	r := newTestRouter(t, 30)

	rec := do(r, http.MethodGet, "/pokemon/search?q=pika", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"pikachu"`) {
		t.Fatalf("search: %d %s", rec.Code, rec.Body.String())
	}
}
