package xai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lennylodge/gateway/providers/ai"
)

func testProvider(serverURL string) *Provider {
	return New().WithAPIKey("test-key").WithBaseURL(serverURL)
}

func TestCall_Success_ExtractsChoiceContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"grok says hi"}}]}`))
	}))
	defer server.Close()

	result, err := testProvider(server.URL).Call(context.Background(), ai.CallRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !result.Succeeded {
		t.Error("expected Succeeded true")
	}
	if result.OutputText != "grok says hi" {
		t.Errorf("expected choice content, got %q", result.OutputText)
	}
}

func TestCall_RequestShape_ModelMessagesTemperature(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := testProvider(server.URL).Call(context.Background(), ai.CallRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "be terse"},
			{Role: ai.RoleUser, Content: "question"},
		},
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if captured.Model != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, captured.Model)
	}
	if len(captured.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(captured.Messages))
	}
	if captured.Temperature != requestTemperature {
		t.Errorf("expected temperature %v, got %v", requestTemperature, captured.Temperature)
	}
}

func TestCall_Non2xx_ResultNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"upstream broke"}`))
	}))
	defer server.Close()

	result, err := testProvider(server.URL).Call(context.Background(), ai.CallRequest{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.Succeeded {
		t.Error("expected Succeeded false")
	}
	if result.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", result.Status)
	}
}

func TestCall_EmptyChoices_EmptyOutputText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	result, err := testProvider(server.URL).Call(context.Background(), ai.CallRequest{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.OutputText != "" {
		t.Errorf("expected empty output text, got %q", result.OutputText)
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
