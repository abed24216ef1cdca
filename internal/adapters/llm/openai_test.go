package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAI_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Model != "gpt-test" || len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("unexpected request: %+v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 0,
			"model": "gpt-test",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "Total is 42"}}]
		}`))
	}))
	defer server.Close()

	adapter, err := NewOpenAIAdapter("sk-test", server.URL, "gpt-test", 0)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := adapter.Generate(context.Background(), "system prompt", "total?")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if resp != "Total is 42" {
		t.Errorf("unexpected response: %s", resp)
	}
}

func TestOpenAI_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "bad model", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	adapter, _ := NewOpenAIAdapter("sk-test", server.URL, "nope", 0)
	if _, err := adapter.Generate(context.Background(), "", "hi"); err == nil {
		t.Error("should error on 400")
	}
}

func TestOpenAI_MissingKey(t *testing.T) {
	if _, err := NewOpenAIAdapter("", "", "", 0); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestOpenAI_DefaultModel(t *testing.T) {
	adapter, _ := NewOpenAIAdapter("sk-test", "", "", 0)
	if adapter.Model() != "gpt-4o" {
		t.Errorf("unexpected default model: %s", adapter.Model())
	}
}
