package grpcserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/structpb"

	"shinydex/internal/apperr"
	"shinydex/internal/auth"
	"shinydex/internal/captures"
	"shinydex/internal/catalog"
)

// Server implements the catalog RPCs on top of the core services. Methods
// return apperr errors; the gRPC and Connect adapters translate them.
type Server struct {
	Catalog *catalog.Service
	Ledger  *captures.Ledger
	logger  zerolog.Logger
}

func NewServer(cat *catalog.Service, ledger *captures.Ledger, logger zerolog.Logger) *Server {
	return &Server{Catalog: cat, Ledger: ledger, logger: logger}
}

// ListPokemon takes {generations, search, type, page, limit, offset} and
// answers with the same body as GET /pokemon.
func (s *Server) ListPokemon(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := filterFromStruct(req)
	if err != nil {
		return nil, err
	}
	page, err := s.Catalog.ListPokemon(ctx, f)
	if err != nil {
		return nil, err
	}
	return toStruct(page)
}

// GetPokemon takes {id} and answers {pokemon}.
func (s *Server) GetPokemon(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, ok, err := intField(req, "id")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Validation("id required")
	}
	p, err := s.Catalog.GetPokemon(ctx, id)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]any{"pokemon": p})
}

// ListCaptures answers {pokemon} for the calling user.
func (s *Server) ListCaptures(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	rows, err := s.Ledger.List(ctx, auth.UserIDFrom(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]captures.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, captures.EntryOf(r))
	}
	return toStruct(map[string]any{"pokemon": out})
}

func filterFromStruct(req *structpb.Struct) (catalog.Filter, error) {
	var f catalog.Filter
	fields := req.GetFields()

	if v, ok := fields["generations"]; ok {
		switch k := v.GetKind().(type) {
		case *structpb.Value_ListValue:
			for _, item := range k.ListValue.GetValues() {
				n, err := wholeNumber("generations", item)
				if err != nil {
					return f, err
				}
				f.Generations = append(f.Generations, n)
			}
		case *structpb.Value_NumberValue:
			n, err := wholeNumber("generations", v)
			if err != nil {
				return f, err
			}
			f.Generations = []int{n}
		default:
			return f, apperr.Validation("generations must be a list of numbers")
		}
	}

	f.Search = fields["search"].GetStringValue()
	f.Type = fields["type"].GetStringValue()

	// same rules as the query string: present page/limit are >= 1, offset >= 0
	page, ok, err := intField(req, "page")
	if err != nil {
		return f, err
	}
	if ok && page < 1 {
		return f, apperr.Validation("page must be a positive integer")
	}
	f.Page = page

	limit, ok, err := intField(req, "limit")
	if err != nil {
		return f, err
	}
	if ok && limit < 1 {
		return f, apperr.Validation("limit must be a positive integer")
	}
	f.Limit = limit

	off, ok, err := intField(req, "offset")
	if err != nil {
		return f, err
	}
	if ok {
		if off < 0 {
			return f, apperr.Validation("offset must be a non-negative integer")
		}
		f.Offset = &off
	}
	return f, f.Validate()
}

func intField(req *structpb.Struct, name string) (int, bool, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, false, nil
	}
	n, err := wholeNumber(name, v)
	return n, err == nil, err
}

func wholeNumber(name string, v *structpb.Value) (int, error) {
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || num.NumberValue != math.Trunc(num.NumberValue) || math.Abs(num.NumberValue) > math.MaxInt32 {
		return 0, apperr.Validation(fmt.Sprintf("%s must be an integer", name))
	}
	return int(num.NumberValue), nil
}

// toStruct goes through JSON so the RPC bodies match the HTTP ones field for field.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, apperr.Internal("encode response", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, apperr.Internal("encode response", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, apperr.Internal("encode response", err)
	}
	return out, nil
}
