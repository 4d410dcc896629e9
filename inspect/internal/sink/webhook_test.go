package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/osawyer/domscope/inspect/capture"
)

func TestWebhook_SendContext(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: got %q", ct)
		}
		body, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"success":true,"enhancedSnapshot":{"nodes":[{"interactive":true},{"interactive":false}]}}`))
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL)
	c := capture.Context{ID: "ctx-1", URL: "https://shop.example", ChatID: "chat-7"}
	if err := w.SendContext(context.Background(), c); err != nil {
		t.Fatalf("send: %v", err)
	}

	var posted map[string]any
	if err := json.Unmarshal(body, &posted); err != nil {
		t.Fatalf("posted body: %v", err)
	}
	// Contexts post bare: the endpoint reads identity fields at top level.
	if posted["chatId"] != "chat-7" || posted["sourceUrl"] != "https://shop.example" {
		t.Errorf("posted identity: %v", posted)
	}
}

func TestWebhook_UnparseableReplyIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("thanks"))
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL)
	if err := w.SendContext(context.Background(), capture.Context{}); err != nil {
		t.Errorf("send: %v", err)
	}
}

func TestWebhook_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookRetries(2))
	if err := w.SendContext(context.Background(), capture.Context{}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls: got %d, want 2", calls.Load())
	}
}

func TestWebhook_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookRetries(1))
	if err := w.SendContext(context.Background(), capture.Context{}); err == nil {
		t.Fatal("want error after exhausting retries")
	}
	if calls.Load() != 2 {
		t.Errorf("calls: got %d, want 2 (initial + 1 retry)", calls.Load())
	}
}

func TestWebhook_SendEventEnvelope(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL)
	ev := capture.Event{Type: capture.EventVisibilityChange, Timestamp: 123}
	if err := w.SendEvent(context.Background(), ev); err != nil {
		t.Fatalf("send event: %v", err)
	}

	var posted struct {
		Type string        `json:"type"`
		Data capture.Event `json:"data"`
	}
	if err := json.Unmarshal(body, &posted); err != nil {
		t.Fatalf("posted body: %v", err)
	}
	if posted.Type != "event" || posted.Data.Type != capture.EventVisibilityChange {
		t.Errorf("envelope: %+v", posted)
	}
}

func TestCallback_NilHandlers(t *testing.T) {
	cb := NewCallback(nil, nil)
	if err := cb.SendContext(context.Background(), capture.Context{}); err != nil {
		t.Errorf("context: %v", err)
	}
	if err := cb.SendEvent(context.Background(), capture.Event{}); err != nil {
		t.Errorf("event: %v", err)
	}
}

func TestRouter_FansOut(t *testing.T) {
	var a, b int
	r := NewRouter(nil,
		NewCallback(func(context.Context, capture.Context) error { a++; return nil }, nil),
		NewCallback(func(context.Context, capture.Context) error { b++; return nil }, nil),
	)
	if err := r.SendContext(context.Background(), capture.Context{}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if a != 1 || b != 1 {
		t.Errorf("deliveries: a=%d b=%d", a, b)
	}
}

func TestRouter_ContinuesPastFailure(t *testing.T) {
	boom := errors.New("boom")
	var delivered int
	r := NewRouter(nil,
		NewCallback(func(context.Context, capture.Context) error { return boom }, nil),
		NewCallback(func(context.Context, capture.Context) error { delivered++; return nil }, nil),
	)

	err := r.SendContext(context.Background(), capture.Context{})
	if !errors.Is(err, boom) {
		t.Errorf("error: got %v, want first failure", err)
	}
	if delivered != 1 {
		t.Error("failure in one sink blocked the next")
	}
}

func TestStdout_WritesEnvelopes(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)

	if err := s.SendContext(context.Background(), capture.Context{ID: "ctx-1"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	var line struct {
		Type string          `json:"type"`
		Data capture.Context `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("line: %v", err)
	}
	if line.Type != "context" || line.Data.ID != "ctx-1" {
		t.Errorf("envelope: %+v", line)
	}
}
