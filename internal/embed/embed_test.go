package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewPicksProvider(t *testing.T) {
	if _, err := New(Options{Provider: "watson"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	for _, provider := range []string{"", ProviderOpenAI, ProviderOllama} {
		e, err := New(Options{Provider: provider})
		if err != nil {
			t.Fatalf("New(%q): %v", provider, err)
		}
		if e == nil {
			t.Fatalf("New(%q) returned nil embedder", provider)
		}
	}
}

func TestOpenAIEmbedMissingKey(t *testing.T) {
	e := NewOpenAI(Options{})
	if _, err := e.Embed(context.Background(), []string{"text"}); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestOpenAIEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "text-embedding-3-small" {
			t.Errorf("model = %q", req.Model)
		}
		type datum struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Data []datum `json:"data"`
		}{}
		for i := range req.Input {
			resp.Data = append(resp.Data, datum{Embedding: []float32{float32(i), 1}, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOpenAI(Options{APIKey: "test-key", BaseURL: srv.URL, Dimension: 2})
	vecs, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	if vecs[1][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("second vector = %v", vecs[1])
	}
}

func TestOllamaEmbed(t *testing.T) {
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("model = %q", req.Model)
		}
		prompts = append(prompts, req.Prompt)
		fmt.Fprintf(w, `{"embedding": [0.5, %d]}`, len(prompts))
	}))
	defer srv.Close()

	e := NewOllama(Options{Model: "nomic-embed-text", OllamaHost: srv.URL + "/"})
	vecs, err := e.Embed(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	if got := []string{"one", "two"}; prompts[0] != got[0] || prompts[1] != got[1] {
		t.Errorf("prompts = %v", prompts)
	}
	if vecs[0][1] != 1 || vecs[1][1] != 2 {
		t.Errorf("vectors = %v", vecs)
	}
}

func TestOllamaDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"embedding": [1, 2, 3]}`)
	}))
	defer srv.Close()

	e := NewOllama(Options{OllamaHost: srv.URL, Dimension: 4})
	if _, err := e.Embed(context.Background(), []string{"text"}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
