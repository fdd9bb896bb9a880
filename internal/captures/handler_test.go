package captures

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"shinydex/internal/apperr"
	"shinydex/internal/auth"
	"shinydex/pkg/models"
)

type fakeCatalog map[int]models.Pokemon

func (f fakeCatalog) GetPokemon(_ context.Context, id int) (*models.Pokemon, error) {
	p, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("pokemon not found")
	}
	return &p, nil
}

// asUser stands in for the auth middleware.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			ctx := auth.WithIdentity(c.Request.Context(), auth.Identity{UserID: userID})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func newTestRouter(t *testing.T, userID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	art := "https://img.example/pikachu.png"
	cat := fakeCatalog{25: {
		ID:    25,
		Name:  "pikachu",
		Types: []models.TypeSlot{{Slot: 1, Type: models.NamedResource{Name: "electric"}}},
		Sprites: models.Sprites{Other: models.OtherSprites{
			OfficialArtwork: models.SpritePair{FrontDefault: &art},
		}},
	}}

	l, _ := newTestLedger(t)
	r := gin.New()
	g := r.Group("/captures", asUser(userID))
	NewHandler(l, cat).RegisterRoutes(g)
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCaptureRoutes(t *testing.T) {
	r := newTestRouter(t, "ash")

	rec := do(r, http.MethodPost, "/captures", `{"pokemon_id":25}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("capture by id: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(r, http.MethodPost, "/captures", `{"pokemon":{"id":4,"name":"Charmander","types":[{"slot":1,"type":{"name":"fire"}}]}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("capture by snapshot: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(r, http.MethodPost, "/captures", `{"pokemon_id":25}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d", rec.Code)
	}

	rec = do(r, http.MethodGet, "/captures", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	var body struct {
		Pokemon []Entry `json:"pokemon"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Pokemon) != 2 {
		t.Fatalf("list = %+v", body.Pokemon)
	}
	var pika *Entry
	for i := range body.Pokemon {
		if body.Pokemon[i].ID == 25 {
			pika = &body.Pokemon[i]
		}
	}
	if pika == nil || !pika.IsShiny || pika.Sprites.Other.OfficialArtwork.FrontDefault != "https://img.example/pikachu.png" {
		t.Fatalf("pikachu entry = %+v", pika)
	}
	if !strings.Contains(rec.Body.String(), `"official-artwork"`) {
		t.Fatalf("display shape lost sprite nesting: %s", rec.Body.String())
	}

	rec = do(r, http.MethodGet, "/captures/25", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"captured":true`) {
		t.Fatalf("is captured: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(r, http.MethodDelete, "/captures/25", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"released":1`) {
		t.Fatalf("release: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(r, http.MethodDelete, "/captures/25", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"released":0`) {
		t.Fatalf("release again: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(r, http.MethodGet, "/captures/stats", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"caught":1`) {
		t.Fatalf("stats: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCaptureRouteErrors(t *testing.T) {
	r := newTestRouter(t, "ash")

	cases := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodPost, "/captures", `{`, http.StatusBadRequest},
		{http.MethodPost, "/captures", `{}`, http.StatusBadRequest},
		{http.MethodPost, "/captures", `{"pokemon_id":151}`, http.StatusNotFound},
		{http.MethodPost, "/captures", `{"pokemon":{"id":2000,"name":"x"}}`, http.StatusBadRequest},
		{http.MethodDelete, "/captures/abc", "", http.StatusBadRequest},
		{http.MethodGet, "/captures/0", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := do(r, tc.method, tc.target, tc.body)
		if rec.Code != tc.want {
			t.Fatalf("%s %s %s: got %d want %d (%s)", tc.method, tc.target, tc.body, rec.Code, tc.want, rec.Body.String())
		}
	}
}

func TestCaptureRoutesRequireIdentity(t *testing.T) {
	r := newTestRouter(t, "")

	for _, target := range []string{"/captures", "/captures/stats", "/captures/25"} {
		if rec := do(r, http.MethodGet, target, ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s anonymous: %d", target, rec.Code)
		}
	}
}
