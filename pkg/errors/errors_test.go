package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"client input", ClientInput("bad query"), http.StatusBadRequest},
		{"upstream", UpstreamDegraded("boom"), http.StatusFailedDependency},
		{"internal", Internal("fetch", errors.New("dial tcp: refused")), http.StatusInternalServerError},
		{"wrapped client input", fmt.Errorf("validating: %w", ClientInput("x")), http.StatusBadRequest},
		{"bare sentinel", ErrUpstreamDegraded, http.StatusFailedDependency},
		{"plain error", errors.New("surprise"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("fetch", cause)

	if !errors.Is(err, ErrInternal) {
		t.Error("expected ErrInternal kind")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
	if got, want := err.Error(), "internal error: fetch: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestKind(t *testing.T) {
	if Kind(ClientInput("x")) != ErrClientInput {
		t.Error("expected ErrClientInput")
	}
	if Kind(UpstreamDegraded("x")) != ErrUpstreamDegraded {
		t.Error("expected ErrUpstreamDegraded")
	}
	if Kind(errors.New("x")) != ErrInternal {
		t.Error("expected ErrInternal for unknown errors")
	}
}
