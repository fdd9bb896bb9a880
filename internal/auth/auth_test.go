package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"shinydex/internal/constants"
	"shinydex/pkg/database"
)

func newTestAuth(t *testing.T) (*gin.Engine, *Repo, TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenAndMigrate(database.Config{Path: filepath.Join(t.TempDir(), "auth.db")}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepo(db)
	tokens := TokenService{Secret: []byte("test-secret"), Issuer: "shinydex", Duration: time.Hour}

	r := gin.New()
	NewHandler(repo, tokens, zerolog.Nop()).RegisterRoutes(r.Group("/auth"))
	return r, repo, tokens
}

type call struct {
	method, path, body string
	bearer             string
	cookie             *http.Cookie
}

func (c call) do(r http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == constants.SessionCookie {
			return ck
		}
	}
	return nil
}

func TestRegisterLoginMe(t *testing.T) {
	r, _, _ := newTestAuth(t)

	rec := call{method: http.MethodPost, path: "/auth/register", body: `{"username":"ash","email":"Ash@Pallet.town","password":"pikapika"}`}.do(r)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}

	rec = call{method: http.MethodPost, path: "/auth/register", body: `{"username":"ash","email":"other@pallet.town","password":"pikapika"}`}.do(r)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: %d %s", rec.Code, rec.Body.String())
	}

	rec = call{method: http.MethodPost, path: "/auth/login", body: `{"email":"ash@pallet.town","password":"wrong-pass"}`}.do(r)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", rec.Code)
	}

	rec = call{method: http.MethodPost, path: "/auth/login", body: `{"email":"ash@pallet.town","password":"pikapika"}`}.do(r)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Token string   `json:"token"`
		User  Identity `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Token == "" {
		t.Fatalf("login body: %s", rec.Body.String())
	}
	cookie := sessionCookie(rec)
	if cookie == nil || cookie.Value != body.Token || !cookie.HttpOnly {
		t.Fatalf("session cookie missing or wrong: %+v", cookie)
	}

	rec = call{method: http.MethodGet, path: "/auth/me", cookie: cookie}.do(r)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"username":"ash"`) {
		t.Fatalf("me via cookie: %d %s", rec.Code, rec.Body.String())
	}

	rec = call{method: http.MethodGet, path: "/auth/me", bearer: body.Token}.do(r)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), body.User.UserID) {
		t.Fatalf("me via bearer: %d %s", rec.Code, rec.Body.String())
	}

	rec = call{method: http.MethodGet, path: "/auth/me"}.do(r)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "not authenticated") {
		t.Fatalf("anonymous me: %d %s", rec.Code, rec.Body.String())
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	r, _, _ := newTestAuth(t)

	rec := call{method: http.MethodPost, path: "/auth/register", body: `{"username":"misty","email":"misty@cerulean.gym","password":"starmie1"}`}.do(r)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d", rec.Code)
	}
	token := sessionCookie(rec).Value

	rec = call{method: http.MethodPost, path: "/auth/logout", bearer: token}.do(r)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body.String())
	}
	if ck := sessionCookie(rec); ck == nil || ck.MaxAge >= 0 {
		t.Fatalf("logout should expire the cookie: %+v", ck)
	}

	rec = call{method: http.MethodGet, path: "/auth/me", bearer: token}.do(r)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token accepted: %d", rec.Code)
	}
}

func TestChangePassword(t *testing.T) {
	r, _, _ := newTestAuth(t)

	rec := call{method: http.MethodPost, path: "/auth/register", body: `{"username":"brock","email":"brock@pewter.gym","password":"onix1234"}`}.do(r)
	token := sessionCookie(rec).Value

	rec = call{method: http.MethodPost, path: "/auth/change-password", bearer: token, body: `{"old_password":"nope","new_password":"geodude12"}`}.do(r)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong old password: %d", rec.Code)
	}

	rec = call{method: http.MethodPost, path: "/auth/change-password", bearer: token, body: `{"old_password":"onix1234","new_password":"geodude12"}`}.do(r)
	if rec.Code != http.StatusOK {
		t.Fatalf("change password: %d %s", rec.Code, rec.Body.String())
	}

	rec = call{method: http.MethodPost, path: "/auth/login", body: `{"email":"brock@pewter.gym","password":"geodude12"}`}.do(r)
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password: %d", rec.Code)
	}
}

func TestVerifierRejectsForeignTokens(t *testing.T) {
	_, repo, tokens := newTestAuth(t)
	ctx := context.Background()

	u := &User{ID: "ghost", Username: "ghost", Email: "ghost@tower"}
	tok, _, err := tokens.Sign(u)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// valid signature but no such user
	if _, err := NewVerifier(tokens, repo).Verify(ctx, tok); err == nil {
		t.Fatalf("unknown user accepted")
	}

	other := TokenService{Secret: []byte("other"), Issuer: "shinydex", Duration: time.Hour}
	forged, _, _ := other.Sign(u)
	if _, err := NewVerifier(tokens, nil).Verify(ctx, forged); err == nil {
		t.Fatalf("token signed with another secret accepted")
	}

	if _, err := NewVerifier(tokens, nil).Verify(ctx, tok); err != nil {
		t.Fatalf("stateless verify: %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"":             "",
	}
	for in, want := range cases {
		if got := BearerToken(in); got != want {
			t.Fatalf("BearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUnaryInterceptor(t *testing.T) {
	_, repo, tokens := newTestAuth(t)
	u := User{ID: "u-1", Username: "red", Email: "red@kanto", PasswordHash: "x"}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	tok, _, _ := tokens.Sign(&u)

	intercept := UnaryInterceptor(NewVerifier(tokens, repo))
	info := &grpc.UnaryServerInfo{FullMethod: "/shinydex.v1.CatalogService/ListCaptures"}
	echo := func(ctx context.Context, _ any) (any, error) {
		return UserIDFrom(ctx), nil
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+tok))
	got, err := intercept(ctx, nil, info, echo)
	if err != nil || got != "u-1" {
		t.Fatalf("authenticated call: %v %v", got, err)
	}

	got, err = intercept(context.Background(), nil, info, echo)
	if err != nil || got != "" {
		t.Fatalf("anonymous call: %v %v", got, err)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer garbage"))
	if _, err := intercept(ctx, nil, info, echo); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}
