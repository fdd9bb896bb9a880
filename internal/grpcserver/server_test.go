package grpcserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"shinydex/internal/auth"
	"shinydex/internal/captures"
	"shinydex/internal/catalog"
	"shinydex/pkg/database"
	"shinydex/pkg/models"
)

type fixture struct {
	server *Server
	auth   auth.Verifier
	token  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenAndMigrate(database.Config{Path: filepath.Join(t.TempDir(), "rpc.db")}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	catRepo := catalog.NewRepo(db, zerolog.Nop())
	var rows []models.Pokemon
	for id := 1; id <= 25; id++ {
		rows = append(rows, models.Pokemon{ID: id, Name: fmt.Sprintf("poke-%d", id)})
	}
	if err := catRepo.UpsertBatch(ctx, rows); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ledger := captures.NewLedger(captures.NewRepo(db), nil, zerolog.Nop())
	if _, err := ledger.Capture(ctx, "u-ash", captures.Snapshot{PokemonID: 25, Name: "pikachu"}); err != nil {
		t.Fatalf("capture: %v", err)
	}

	users := auth.NewRepo(db)
	u := auth.User{ID: "u-ash", Username: "ash", Email: "ash@pallet.town", PasswordHash: "x"}
	if err := users.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	tokens := auth.TokenService{Secret: []byte("rpc-secret"), Issuer: "shinydex", Duration: time.Hour}
	tok, _, err := tokens.Sign(&u)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	return fixture{
		server: NewServer(catalog.NewService(catRepo, nil, zerolog.Nop()), ledger, zerolog.Nop()),
		auth:   auth.NewVerifier(tokens, users),
		token:  tok,
	}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("struct: %v", err)
	}
	return s
}

func dialBufconn(t *testing.T, f fixture) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(auth.UnaryInterceptor(f.auth)))
	Register(srv, f.server)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke(ctx context.Context, conn *grpc.ClientConn, method string, in *structpb.Struct) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out)
	return out, err
}

func TestGRPCListAndGet(t *testing.T) {
	f := newFixture(t)
	conn := dialBufconn(t, f)
	ctx := context.Background()

	out, err := invoke(ctx, conn, "ListPokemon", mustStruct(t, map[string]any{
		"generations": []any{1},
		"limit":       10,
		"page":        2,
	}))
	if err != nil {
		t.Fatalf("ListPokemon: %v", err)
	}
	pag := out.GetFields()["pagination"].GetStructValue().GetFields()
	if pag["totalCount"].GetNumberValue() != 25 || pag["page"].GetNumberValue() != 2 {
		t.Fatalf("pagination = %v", pag)
	}
	if n := len(out.GetFields()["pokemon"].GetListValue().GetValues()); n != 10 {
		t.Fatalf("page size = %d", n)
	}

	out, err = invoke(ctx, conn, "GetPokemon", mustStruct(t, map[string]any{"id": 7}))
	if err != nil {
		t.Fatalf("GetPokemon: %v", err)
	}
	if name := out.GetFields()["pokemon"].GetStructValue().GetFields()["name"].GetStringValue(); name != "poke-7" {
		t.Fatalf("name = %q", name)
	}
}

func TestGRPCErrorCodes(t *testing.T) {
	f := newFixture(t)
	conn := dialBufconn(t, f)
	ctx := context.Background()

	cases := []struct {
		method string
		in     map[string]any
		want   codes.Code
	}{
		{"GetPokemon", map[string]any{"id": 30}, codes.NotFound},
		{"GetPokemon", map[string]any{"id": 5000}, codes.InvalidArgument},
		{"GetPokemon", map[string]any{}, codes.InvalidArgument},
		{"GetPokemon", map[string]any{"id": 1.5}, codes.InvalidArgument},
		{"ListPokemon", map[string]any{"generations": []any{12}}, codes.InvalidArgument},
		{"ListPokemon", map[string]any{"generations": "kanto"}, codes.InvalidArgument},
		{"ListPokemon", map[string]any{"page": -1}, codes.InvalidArgument},
		{"ListPokemon", map[string]any{"page": 0}, codes.InvalidArgument},
		{"ListPokemon", map[string]any{"limit": -20}, codes.InvalidArgument},
		{"ListPokemon", map[string]any{"offset": -5}, codes.InvalidArgument},
		{"ListCaptures", map[string]any{}, codes.Unauthenticated},
	}
	for _, tc := range cases {
		_, err := invoke(ctx, conn, tc.method, mustStruct(t, tc.in))
		if status.Code(err) != tc.want {
			t.Fatalf("%s %v: got %v want %v", tc.method, tc.in, err, tc.want)
		}
	}
}

func TestGRPCListCapturesWithToken(t *testing.T) {
	f := newFixture(t)
	conn := dialBufconn(t, f)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+f.token)
	out, err := invoke(ctx, conn, "ListCaptures", &structpb.Struct{})
	if err != nil {
		t.Fatalf("ListCaptures: %v", err)
	}
	list := out.GetFields()["pokemon"].GetListValue().GetValues()
	if len(list) != 1 || list[0].GetStructValue().GetFields()["id"].GetNumberValue() != 25 {
		t.Fatalf("captures = %v", list)
	}
}

func TestConnectHandler(t *testing.T) {
	f := newFixture(t)

	mux := http.NewServeMux()
	path, h := NewConnectHandler(f.server, connect.WithInterceptors(auth.ConnectInterceptor(f.auth)))
	mux.Handle(path, h)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(srv.Client(), srv.URL)
	ctx := context.Background()

	out, err := client.GetPokemon(ctx, mustStruct(t, map[string]any{"id": 25}))
	if err != nil {
		t.Fatalf("GetPokemon: %v", err)
	}
	if name := out.GetFields()["pokemon"].GetStructValue().GetFields()["name"].GetStringValue(); name != "poke-25" {
		t.Fatalf("name = %q", name)
	}

	_, err = client.GetPokemon(ctx, mustStruct(t, map[string]any{"id": 26}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Fatalf("missing id: %v", err)
	}

	_, err = client.ListCaptures(ctx, &structpb.Struct{})
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Fatalf("anonymous ListCaptures: %v", err)
	}

	authed := NewClient(srv.Client(), srv.URL, connect.WithInterceptors(bearer(f.token)))
	out, err = authed.ListCaptures(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("ListCaptures: %v", err)
	}
	if n := len(out.GetFields()["pokemon"].GetListValue().GetValues()); n != 1 {
		t.Fatalf("captures = %d", n)
	}
}

func bearer(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set("Authorization", "Bearer "+token)
			return next(ctx, req)
		}
	}
}
