package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lennylodge/gateway/core/extract"
)

func TestChat_Buffered_DecodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ai/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
			t.Error("buffered chat must not negotiate a stream")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"text":"hello back","sources":[{"url":"https://a.example"}]}`))
	}))
	defer server.Close()

	response, err := New(server.URL).WithHTTPClient(server.Client()).Chat(context.Background(), ChatRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !response.OK || response.Text != "hello back" {
		t.Errorf("unexpected response: %+v", response)
	}
	if len(response.Sources) != 1 {
		t.Errorf("expected 1 source, got %v", response.Sources)
	}
}

func TestChat_Non2xx_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"ok":false,"error":"UPSTREAM_CALL_FAILED"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).WithHTTPClient(server.Client()).Chat(context.Background(), ChatRequest{Message: "hello"})
	if err == nil {
		t.Fatal("expected an error for gateway failure")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestStreamChat_DispatchesHandlersInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
			t.Error("streaming chat must send the event-stream accept header")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(
			"data: {\"type\":\"response.output_text.delta\",\"delta\":\"Wel\"}\n\n" +
				"data: {\"type\":\"response.output_text.delta\",\"delta\":\"come\"}\n\n" +
				"data: {\"type\":\"response.web_search_call.completed\",\"sources\":[{\"url\":\"https://s.example\"}]}\n\n" +
				"data: [DONE]\n\n"))
	}))
	defer server.Close()

	var text strings.Builder
	var sources []extract.Source
	doneCalls := 0

	err := New(server.URL).WithHTTPClient(server.Client()).StreamChat(context.Background(), ChatRequest{Message: "hi"}, Handlers{
		OnDelta:   func(delta string) { text.WriteString(delta) },
		OnSources: func(s []extract.Source) { sources = s },
		OnDone:    func() { doneCalls++ },
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if text.String() != "Welcome" {
		t.Errorf("expected assembled text %q, got %q", "Welcome", text.String())
	}
	if len(sources) != 1 || sources[0].URL != "https://s.example" {
		t.Errorf("unexpected sources: %v", sources)
	}
	if doneCalls != 1 {
		t.Errorf("expected OnDone exactly once, got %d", doneCalls)
	}
}

func TestStreamChat_EOFWithoutSentinel_OnDoneStillFires(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"type\":\"response.output_text.delta\",\"delta\":\"cut\"}\n\n"))
	}))
	defer server.Close()

	doneCalls := 0
	err := New(server.URL).WithHTTPClient(server.Client()).StreamChat(context.Background(), ChatRequest{Message: "hi"}, Handlers{
		OnDone: func() { doneCalls++ },
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if doneCalls != 1 {
		t.Errorf("expected OnDone exactly once, got %d", doneCalls)
	}
}

func TestStreamChat_GatewayError_ReturnsErrorWithoutDispatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"ok":false,"error":"NOT_CONFIGURED"}`))
	}))
	defer server.Close()

	dispatched := false
	err := New(server.URL).WithHTTPClient(server.Client()).StreamChat(context.Background(), ChatRequest{Message: "hi"}, Handlers{
		OnDelta: func(string) { dispatched = true },
		OnDone:  func() { dispatched = true },
	})
	if err == nil {
		t.Fatal("expected an error for a failed stream request")
	}
	if dispatched {
		t.Error("handlers must not run when the request failed outright")
	}
}

func TestStreamChat_NilHandlers_NoPanic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"type\":\"response.output_text.delta\",\"delta\":\"x\"}\n\ndata: [DONE]\n\n"))
	}))
	defer server.Close()

	if err := New(server.URL).WithHTTPClient(server.Client()).StreamChat(context.Background(), ChatRequest{Message: "hi"}, Handlers{}); err != nil {
		t.Fatalf("expected nil error with nil handlers, got %v", err)
	}
}
