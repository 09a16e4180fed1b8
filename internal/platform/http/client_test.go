package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient() *Client {
	return NewClient(ClientOptions{
		Name:            "test",
		Timeout:         2 * time.Second,
		RequestsPerMin:  600,
		MaxRetryTimeout: 3 * time.Second,
		Headers:         http.Header{"X-Api-Key": []string{"secret"}},
	})
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"name":"nova","value":42}`)
	}))
	defer server.Close()

	var out struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}
	if err := newTestClient().GetJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if out.Name != "nova" || out.Value != 42 {
		t.Errorf("decoded %+v", out)
	}
}

func TestGetJSONErrors(t *testing.T) {
	tests := []struct {
		name         string
		handler      http.HandlerFunc
		expectedCall int32
		check        func(t *testing.T, err error)
	}{
		{
			name: "not found is permanent",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			expectedCall: 1,
			check: func(t *testing.T, err error) {
				var statusErr *HTTPStatusError
				if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
					t.Errorf("error = %v, want 404 HTTPStatusError", err)
				}
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"name":`)
			},
			expectedCall: 1,
			check: func(t *testing.T, err error) {
				var decodeErr *DecodeError
				if !errors.As(err, &decodeErr) {
					t.Errorf("error = %v, want DecodeError", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				tt.handler(w, r)
			}))
			defer server.Close()

			var out map[string]interface{}
			err := newTestClient().GetJSON(context.Background(), server.URL, &out)
			if err == nil {
				t.Fatal("expected an error")
			}
			tt.check(t, err)
			if got := atomic.LoadInt32(&calls); got != tt.expectedCall {
				t.Errorf("calls = %d, want %d", got, tt.expectedCall)
			}
		})
	}
}

func TestDoRequestRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	var out map[string]interface{}
	if err := newTestClient().GetJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestDoRequestHonoursCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	started := time.Now()
	var out map[string]interface{}
	err := newTestClient().GetJSON(ctx, server.URL, &out)
	if err == nil {
		t.Fatal("expected an error")
	}
	if time.Since(started) > 2*time.Second {
		t.Errorf("request outlived its context: %v", time.Since(started))
	}
}

func TestHTTPStatusErrorRetryable(t *testing.T) {
	cases := map[int]bool{
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusBadGateway:          true,
		http.StatusBadRequest:          false,
		http.StatusNotFound:            false,
		http.StatusUnauthorized:        false,
	}
	for code, want := range cases {
		if got := (&HTTPStatusError{StatusCode: code}).Retryable(); got != want {
			t.Errorf("Retryable(%d) = %v, want %v", code, got, want)
		}
	}
}
