package grpcserver

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"shinydex/internal/apperr"
)

// Path is the mount point of the Connect handler.
const Path = "/" + ServiceName + "/"

func procedure(method string) string {
	return Path + method
}

type structHandler func(context.Context, *structpb.Struct) (*structpb.Struct, error)

func connectUnary(fn structHandler) func(context.Context, *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
		out, err := fn(ctx, req.Msg)
		if err != nil {
			// connect codes share the gRPC numbering
			return nil, connect.NewError(connect.Code(apperr.GRPCCode(err)), errors.New(apperr.Message(err)))
		}
		return connect.NewResponse(out), nil
	}
}

// NewConnectHandler serves the same service over the Connect, gRPC and
// gRPC-Web protocols from a plain HTTP server.
func NewConnectHandler(s *Server, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	methods := map[string]structHandler{
		"ListPokemon":  s.ListPokemon,
		"GetPokemon":   s.GetPokemon,
		"ListCaptures": s.ListCaptures,
	}
	for name, fn := range methods {
		p := procedure(name)
		mux.Handle(p, connect.NewUnaryHandler(p, connectUnary(fn), opts...))
	}
	return Path, mux
}

// Client calls the service over Connect. The HTTP client may carry the
// session cookie or an interceptor may set the Authorization header.
type Client struct {
	listPokemon  *connect.Client[structpb.Struct, structpb.Struct]
	getPokemon   *connect.Client[structpb.Struct, structpb.Struct]
	listCaptures *connect.Client[structpb.Struct, structpb.Struct]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	return &Client{
		listPokemon:  connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+procedure("ListPokemon"), opts...),
		getPokemon:   connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+procedure("GetPokemon"), opts...),
		listCaptures: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+procedure("ListCaptures"), opts...),
	}
}

func (c *Client) ListPokemon(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return unwrap(c.listPokemon.CallUnary(ctx, connect.NewRequest(req)))
}

func (c *Client) GetPokemon(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return unwrap(c.getPokemon.CallUnary(ctx, connect.NewRequest(req)))
}

func (c *Client) ListCaptures(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return unwrap(c.listCaptures.CallUnary(ctx, connect.NewRequest(req)))
}

func unwrap(res *connect.Response[structpb.Struct], err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}
