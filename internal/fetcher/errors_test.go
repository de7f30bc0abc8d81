package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit, true},
		{http.StatusRequestTimeout, ErrorTypeTimeout, true},
		{http.StatusNotFound, ErrorTypeNotFound, false},
		{http.StatusBadRequest, ErrorTypeClient, false},
		{http.StatusUnauthorized, ErrorTypeClient, false},
		{http.StatusInternalServerError, ErrorTypeServer, true},
		{http.StatusBadGateway, ErrorTypeServer, true},
		{http.StatusMultipleChoices, ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := ClassifyHTTPError(tt.status)
			if err.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", err.Type, tt.wantType)
			}
			if err.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", err.Retryable, tt.retryable)
			}
			if err.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", err.StatusCode, tt.status)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), true},
		{"wrapped server error", fmt.Errorf("quote: %w", NewServerError(503)), true},
		{"not found", NewNotFoundError("ZZZZ"), false},
		{"validation", NewValidationError("empty body"), false},
		{"timeout", NewTimeoutError(context.DeadlineExceeded), true},
		{"cancelled", fmt.Errorf("fetch: %w", context.Canceled), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("yahoo: %w", NewNetworkError(cause))

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find the cause")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatal("errors.As did not find the FetchError")
	}
	if fe.Type != ErrorTypeNetwork {
		t.Errorf("Type = %q, want %q", fe.Type, ErrorTypeNetwork)
	}
}

func TestCheckResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, Options{Timeout: 50 * time.Millisecond})

	tests := []struct {
		path     string
		wantNil  bool
		wantType ErrorType
	}{
		{"/ok", true, ""},
		{"/missing", false, ErrorTypeNotFound},
		{"/down", false, ErrorTypeServer},
		{"/slow", false, ErrorTypeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := client.R().SetContext(context.Background()).Get(tt.path)
			got := CheckResponse(resp, err)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("CheckResponse() = %v, want nil", got)
				}
				return
			}

			var fe *FetchError
			if !errors.As(got, &fe) {
				t.Fatalf("CheckResponse() = %v, want *FetchError", got)
			}
			if fe.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", fe.Type, tt.wantType)
			}
		})
	}
}

func TestKey(t *testing.T) {
	if got, want := Key("yahoo", "AAPL"), "fetcher:yahoo:AAPL"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}
