package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestKindsMapToStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		code   codes.Code
		msg    string
	}{
		{Validation("bad id"), http.StatusBadRequest, codes.InvalidArgument, "bad id"},
		{Unauthenticated("not authenticated"), http.StatusUnauthorized, codes.Unauthenticated, "not authenticated"},
		{Conflict("already captured"), http.StatusConflict, codes.AlreadyExists, "already captured"},
		{NotFound("pokemon not found"), http.StatusNotFound, codes.NotFound, "pokemon not found"},
		{Internal("query failed", errors.New("disk I/O error")), http.StatusInternalServerError, codes.Internal, "internal server error"},
		{errors.New("plain"), http.StatusInternalServerError, codes.Internal, "internal server error"},
	}

	for _, tc := range cases {
		wrapped := fmt.Errorf("handler: %w", tc.err)
		if got := HTTPStatus(wrapped); got != tc.status {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.status)
		}
		if got := GRPCCode(wrapped); got != tc.code {
			t.Fatalf("GRPCCode(%v) = %v, want %v", tc.err, got, tc.code)
		}
		if got := Message(wrapped); got != tc.msg {
			t.Fatalf("Message(%v) = %q, want %q", tc.err, got, tc.msg)
		}
	}
}

func TestIsMatchesKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("capture: %w", Conflict("already captured"))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict kind to match")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("conflict must not match not found")
	}

	inner := errors.New("boom")
	if !errors.Is(Internal("x", inner), inner) {
		t.Fatalf("internal error should unwrap to its cause")
	}
}
