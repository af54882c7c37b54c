package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := ErrInternalServer.WithInternal(internal)

	if err.Error() != "Internal server error: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
	if !stdErrors.Is(err, internal) {
		t.Fatal("expected wrapped error to unwrap to the internal error")
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}
	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}
	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	sentinel := New("invitation.expired", "Invitation has expired", http.StatusGone)

	copied := sentinel.WithInternal(stdErrors.New("row 12"))
	if !stdErrors.Is(copied, sentinel) {
		t.Fatal("expected copy with internal error to match sentinel")
	}

	renamed := sentinel.WithMessage("gone")
	if !stdErrors.Is(fmt.Errorf("accept: %w", renamed), sentinel) {
		t.Fatal("expected wrapped copy with new message to match sentinel")
	}

	other := New("invitation.revoked", "revoked", http.StatusGone)
	if stdErrors.Is(other, sentinel) {
		t.Fatal("expected different codes not to match")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestStatusOf(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"nil":      {nil, http.StatusOK},
		"conflict": {fmt.Errorf("create: %w", ErrConflict), http.StatusConflict},
		"state":    {ErrInvalidState, http.StatusUnprocessableEntity},
		"expired":  {ErrExpired, http.StatusGone},
		"raw":      {stdErrors.New("db down"), http.StatusInternalServerError},
	}

	for name, tc := range cases {
		if got := StatusOf(tc.err); got != tc.want {
			t.Fatalf("%s: StatusOf = %d, want %d", name, got, tc.want)
		}
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}

func TestKindOf(t *testing.T) {
	cases := map[string]struct {
		err  error
		want Kind
	}{
		"nil":          {nil, ""},
		"bad request":  {NewBadRequest("email is required"), KindBadRequest},
		"not found":    {New("invitation.not_found", "missing", http.StatusNotFound), KindNotFound},
		"conflict":     {fmt.Errorf("create: %w", ErrConflict), KindConflict},
		"state":        {ErrInvalidState.WithMessage("invitation is accepted"), KindInvalidState},
		"expired":      {ErrExpired, KindExpired},
		"forbidden":    {ErrForbidden, KindForbidden},
		"unauthorized": {New("auth.required", "login", http.StatusUnauthorized), KindForbidden},
		"raw":          {stdErrors.New("db down"), KindInternal},
		"internal":     {ErrInternalServer, KindInternal},
	}

	for name, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("%s: KindOf = %q, want %q", name, got, tc.want)
		}
	}
}
