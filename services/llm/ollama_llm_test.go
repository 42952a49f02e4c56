package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaClientChat(t *testing.T) {
	var captured ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		resp := ollamaChatResponse{
			Message: Message{Role: "assistant", Content: "fixed code"},
			Done:    true,
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL, "llama3:70b")
	if err != nil {
		t.Fatalf("NewOllamaClient: %v", err)
	}

	numCtx := 4096
	content, err := client.Chat(context.Background(),
		[]Message{{Role: "user", Content: "fix this"}},
		GenerationParams{NumCtx: &numCtx})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if content != "fixed code" {
		t.Errorf("content = %q, want %q", content, "fixed code")
	}

	if captured.Model != "llama3:70b" {
		t.Errorf("model = %q", captured.Model)
	}
	if captured.Stream {
		t.Error("stream should be false")
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Errorf("messages = %+v", captured.Messages)
	}
	got, ok := captured.Options["num_ctx"]
	if !ok {
		t.Fatal("num_ctx option not sent")
	}
	// JSON numbers decode as float64
	if got.(float64) != 4096 {
		t.Errorf("num_ctx = %v", got)
	}
}

func TestOllamaClientChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL, "llama3:70b")
	if err != nil {
		t.Fatalf("NewOllamaClient: %v", err)
	}
	if _, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "x"}}, GenerationParams{}); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestOllamaClientModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'nope' not found"}`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL, "nope")
	if err != nil {
		t.Fatalf("NewOllamaClient: %v", err)
	}
	_, err = client.Chat(context.Background(), []Message{{Role: "user", Content: "x"}}, GenerationParams{})
	if err == nil {
		t.Fatal("expected model-not-found error")
	}
}

func TestNewOllamaClientRequiresBaseURL(t *testing.T) {
	if _, err := NewOllamaClient("", "llama3:70b"); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}
