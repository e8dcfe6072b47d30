package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

func TestNormalizePassesAppErrorThrough(t *testing.T) {
	original := Unprocessable("product not found: p-1")
	original.Context = "UpstreamService"

	got := Normalize(original, "OrdersController")
	if got != original {
		t.Fatal("existing AppError should pass through unchanged")
	}
	if got.Context != "UpstreamService" {
		t.Errorf("existing context must not be overwritten, got %q", got.Context)
	}
}

func TestNormalizeWrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("call failed: %w", NotFound("order with id 'x' not found"))

	got := Normalize(wrapped, "OrdersController")
	if got.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", got.StatusCode)
	}
	if got.Code != CodeNotFound {
		t.Errorf("expected %s, got %s", CodeNotFound, got.Code)
	}
}

func TestNormalizeDomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"order not found", domain.ErrOrderNotFound, http.StatusNotFound, CodeNotFound},
		{"wrapped order not found", fmt.Errorf("find: %w", domain.ErrOrderNotFound), http.StatusNotFound, CodeNotFound},
		{"product not found", domain.ErrProductNotFound, http.StatusUnprocessableEntity, CodeUnprocessable},
		{"upstream unavailable", domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable, CodeServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.err, "OrdersController")
			if got.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, got.StatusCode)
			}
			if got.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, got.Code)
			}
			if got.Context != "OrdersController" {
				t.Errorf("expected context to be set, got %q", got.Context)
			}
			if got.Timestamp.IsZero() {
				t.Error("timestamp must be set")
			}
		})
	}
}

func TestNormalizeTransportDown(t *testing.T) {
	markers := []error{
		errors.New("kafka: client has run out of available brokers to talk to"),
		errors.New("dial tcp 127.0.0.1:9092: connect: connection refused"),
		errors.New("no subscribers for pattern"),
		fmt.Errorf("publish: %w", errors.New("broker not connected")),
	}

	for _, err := range markers {
		got := Normalize(err, "OrdersController")
		if got.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("error %q: expected 503, got %d", err, got.StatusCode)
		}
		if got.Code != CodeServiceUnavailable {
			t.Errorf("error %q: expected %s, got %s", err, CodeServiceUnavailable, got.Code)
		}
		if got.Message != "required microservice is unavailable or there is no connection" {
			t.Errorf("unexpected message: %q", got.Message)
		}
	}
}

func TestNormalizeValidationError(t *testing.T) {
	err := &ValidationError{Messages: []string{
		"items failed on the 'min' rule",
		"quantity failed on the 'gt' rule",
	}}

	got := Normalize(fmt.Errorf("bind: %w", err), "OrdersController")
	if got.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", got.StatusCode)
	}
	if got.Code != CodeBadRequest {
		t.Errorf("expected %s, got %s", CodeBadRequest, got.Code)
	}

	details, ok := got.Details.([]string)
	if !ok {
		t.Fatalf("expected details to be []string, got %T", got.Details)
	}
	if len(details) != 2 {
		t.Errorf("expected 2 detail messages, got %d", len(details))
	}
}

func TestNormalizeUnknownErrorIs500(t *testing.T) {
	err := errors.New("something exploded")

	got := Normalize(err, "OrdersController")
	if got.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", got.StatusCode)
	}
	if got.Code != CodeInternalServerError {
		t.Errorf("expected %s, got %s", CodeInternalServerError, got.Code)
	}
	if got.Details != "something exploded" {
		t.Errorf("expected diagnostics in details, got %v", got.Details)
	}
}

// Таймаут запроса не имеет собственной ветки классификации и уходит в 500.
func TestNormalizeTimeoutFallsThroughTo500(t *testing.T) {
	err := fmt.Errorf("request %q timed out after 5s: %w", "orders.create", context.DeadlineExceeded)

	got := Normalize(err, "OrdersController")
	if got.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500 for timeout, got %d", got.StatusCode)
	}
}

func TestNormalizeNil(t *testing.T) {
	got := Normalize(nil, "OrdersController")
	if got.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500 for nil error, got %d", got.StatusCode)
	}
	if got.Message != "internal server error" {
		t.Errorf("unexpected message: %q", got.Message)
	}
}

func TestCodeForStatus(t *testing.T) {
	tests := map[int]string{
		http.StatusBadRequest:     CodeBadRequest,
		http.StatusUnauthorized:   CodeUnauthorized,
		http.StatusForbidden:      CodeForbidden,
		http.StatusNotFound:       CodeNotFound,
		http.StatusConflict:       CodeConflict,
		http.StatusTeapot:         CodeInternalServerError,
		http.StatusGatewayTimeout: CodeInternalServerError,
	}
	for status, want := range tests {
		if got := codeForStatus(status); got != want {
			t.Errorf("status %d: expected %s, got %s", status, want, got)
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	empty := &ValidationError{}
	if empty.Error() != "validation failed" {
		t.Errorf("unexpected message: %q", empty.Error())
	}

	withMessages := &ValidationError{Messages: []string{"first", "second"}}
	if withMessages.Error() != "validation failed: first" {
		t.Errorf("unexpected message: %q", withMessages.Error())
	}
}
