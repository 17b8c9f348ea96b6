package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lennylodge/gateway/providers/ai"
)

func testProvider(serverURL string) *Provider {
	return New().WithAPIKey("test-key").WithBaseURL(serverURL)
}

func TestCall_Success_ExtractsTextSourcesAndCitations(t *testing.T) {
	responseBody := `{
		"output": [
			{
				"type": "web_search_call",
				"action": {"sources": [{"url": "https://found.example", "title": "Found"}]}
			},
			{
				"type": "message",
				"content": [
					{
						"type": "output_text",
						"text": "The answer.",
						"annotations": [{"type": "url_citation", "url": "https://cite.example", "title": "Cite"}]
					}
				]
			}
		]
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("expected path /responses, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		w.Write([]byte(responseBody))
	}))
	defer server.Close()

	result, err := testProvider(server.URL).Call(context.Background(), ai.CallRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if !result.Succeeded || result.Status != http.StatusOK {
		t.Errorf("expected succeeded 200, got %+v", result)
	}
	if result.OutputText != "The answer." {
		t.Errorf("expected output text, got %q", result.OutputText)
	}
	if len(result.Sources) != 1 || result.Sources[0].URL != "https://found.example" {
		t.Errorf("unexpected sources: %v", result.Sources)
	}
	if len(result.Citations) != 1 || result.Citations[0].URL != "https://cite.example" {
		t.Errorf("unexpected citations: %v", result.Citations)
	}
	if result.Raw == nil {
		t.Error("expected Raw to carry the parsed body")
	}
}

func TestCall_Non2xx_ResultNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	result, err := testProvider(server.URL).Call(context.Background(), ai.CallRequest{})
	if err != nil {
		t.Fatalf("expected nil error for upstream 429, got %v", err)
	}
	if result.Succeeded {
		t.Error("expected Succeeded false")
	}
	if result.Status != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", result.Status)
	}
	if result.RawText == "" {
		t.Error("expected upstream body retained in RawText")
	}
}

func TestCall_NonJSONBody_RawNilTextKept(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream proxy error"))
	}))
	defer server.Close()

	result, err := testProvider(server.URL).Call(context.Background(), ai.CallRequest{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.Raw != nil {
		t.Error("expected Raw nil for non-JSON body")
	}
	if result.RawText != "upstream proxy error" {
		t.Errorf("expected raw text retained, got %q", result.RawText)
	}
}

func TestCall_TransportFailure_ReturnsError(t *testing.T) {
	provider := New().WithAPIKey("k").WithBaseURL("http://127.0.0.1:1")
	if _, err := provider.Call(context.Background(), ai.CallRequest{}); err == nil {
		t.Fatal("expected a transport error")
	}
}

func TestCall_WebSearch_RequestCarriesToolAndInclude(t *testing.T) {
	var captured responseRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Write([]byte(`{"output":[]}`))
	}))
	defer server.Close()

	_, err := testProvider(server.URL).Call(context.Background(), ai.CallRequest{
		Messages:       []ai.Message{{Role: ai.RoleUser, Content: "research"}},
		WebSearch:      true,
		AllowedDomains: []string{"streeteasy.com"},
		MaxToolCalls:   3,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if len(captured.Tools) != 1 || captured.Tools[0].Type != "web_search" {
		t.Fatalf("expected web_search tool, got %+v", captured.Tools)
	}
	if captured.Tools[0].Filters == nil || len(captured.Tools[0].Filters.AllowedDomains) != 1 {
		t.Errorf("expected domain filter, got %+v", captured.Tools[0].Filters)
	}
	if len(captured.Include) != 1 || captured.Include[0] != includeSources {
		t.Errorf("expected sources include, got %v", captured.Include)
	}
	if captured.MaxToolCalls == nil || *captured.MaxToolCalls != 3 {
		t.Errorf("expected max_tool_calls 3, got %v", captured.MaxToolCalls)
	}
}

func TestCall_NoModelInRequest_UsesProviderDefault(t *testing.T) {
	var captured responseRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"output":[]}`))
	}))
	defer server.Close()

	provider := testProvider(server.URL).WithModel("custom-model")
	if _, err := provider.Call(context.Background(), ai.CallRequest{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if captured.Model != "custom-model" {
		t.Errorf("expected model %q, got %q", "custom-model", captured.Model)
	}
}

func TestStream_Success_ReturnsOpenBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload responseRequest
		json.NewDecoder(r.Body).Decode(&payload)
		if payload.Stream == nil || !*payload.Stream {
			t.Error("expected stream:true in request")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"type\":\"response.completed\"}\n\ndata: [DONE]\n\n"))
	}))
	defer server.Close()

	handle, err := testProvider(server.URL).Stream(context.Background(), ai.CallRequest{Stream: true})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	defer handle.Body.Close()

	if handle.ContentType != "text/event-stream" {
		t.Errorf("expected event-stream content type, got %q", handle.ContentType)
	}

	body, err := io.ReadAll(handle.Body)
	if err != nil {
		t.Fatalf("failed to read stream: %v", err)
	}
	if len(body) == 0 {
		t.Error("expected stream bytes")
	}
}

func TestStream_PreStreamNon2xx_ReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"overloaded"}`))
	}))
	defer server.Close()

	_, err := testProvider(server.URL).Stream(context.Background(), ai.CallRequest{Stream: true})

	var statusErr *ai.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *ai.StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", statusErr.Status)
	}
	if len(statusErr.Body) == 0 {
		t.Error("expected upstream error body retained")
	}
}

func TestConfigured(t *testing.T) {
	if (&Provider{}).Configured() {
		t.Error("expected Configured false without API key")
	}
	if !(&Provider{apiKey: "k"}).Configured() {
		t.Error("expected Configured true with API key")
	}
}
