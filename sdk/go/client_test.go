package teamloadsdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
)

func TestAPIErrorEnvelopeDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/tasks/t1/assign" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"code":"incompetent_assignment","message":"nope","details":{"skill_id":"s1"}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/v0")
	_, err := c.AssignTask(context.Background(), "t1", "m1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Code != "incompetent_assignment" || apiErr.Details["skill_id"] != "s1" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestClientErrorsKeepBreakerClosed(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL)
	for i := 0; i < 6; i++ {
		if err := c.Health(context.Background()); errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("breaker opened on 4xx responses")
		}
	}
	if atomic.LoadInt32(&calls) != 6 {
		t.Fatalf("expected 6 calls to reach the server, got %d", calls)
	}
}

func TestServerErrorsOpenBreaker(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var opened bool
	c := New(srv.URL)
	c.OnStateChange = func(_ string, _, to gobreaker.State) {
		if to == gobreaker.StateOpen {
			opened = true
		}
	}
	var last error
	for i := 0; i < 6; i++ {
		last = c.Health(context.Background())
	}
	if !opened || !errors.Is(last, ErrCircuitOpen) {
		t.Fatalf("expected open breaker, got %v", last)
	}
	if n := atomic.LoadInt32(&calls); n != 4 {
		t.Fatalf("expected 4 calls before tripping, got %d", n)
	}
}

func TestListMembersDecodesLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"m1","name":"Ada","weekly_availability":40,"load":{"workload_percentage":50,"band":"normal"}}]`))
	}))
	defer srv.Close()

	rows, err := New(srv.URL).ListMembers(context.Background())
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Ada" || rows[0].Load.Band != "normal" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}
