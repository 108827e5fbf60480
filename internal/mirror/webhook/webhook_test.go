package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSyncPostsActionAndCollection(t *testing.T) {
	var got struct {
		Action string          `json:"action"`
		Type   string          `json:"type"`
		Data   json.RawMessage `json:"data"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.Sync(context.Background(), "accounts", []map[string]any{{"id": "a1"}}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got.Action != "sync" || got.Type != "accounts" {
		t.Fatalf("payload = %+v", got)
	}
	if len(got.Data) == 0 {
		t.Fatalf("payload carries no data")
	}
}

func TestSyncReportsEndpointErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.Sync(context.Background(), "accounts", nil); err == nil {
		t.Fatalf("expected error for 502 response")
	}
}

func TestFetchQueriesNamedCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") != "load" {
			t.Errorf("action = %q, want load", r.URL.Query().Get("action"))
		}
		if r.URL.Query().Get("type") != "transactions" {
			t.Errorf("type = %q, want transactions", r.URL.Query().Get("type"))
		}
		w.Write([]byte(`[{"id":"t1"}]`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	raw, err := c.Fetch(context.Background(), "transactions")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil || len(items) != 1 {
		t.Fatalf("fetched = %s (err %v)", raw, err)
	}
}

func TestNewRejectsMissingEndpoint(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}
