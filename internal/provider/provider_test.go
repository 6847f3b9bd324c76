package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/formpilot/formpilot/config"
	"github.com/formpilot/formpilot/internal/resolve"
)

func TestOpenAIGenerate(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, "What is your role?") {
			t.Errorf("question missing from prompt: %q", req.Messages[1].Content)
		}
		if !strings.Contains(req.Messages[1].Content, "Senior engineer, 5 years at Acme") {
			t.Errorf("user context missing from prompt: %q", req.Messages[1].Content)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "  Software Engineer\n"}},
			},
		})
	}))
	defer srv.Close()

	o := NewOpenAI(resolve.SourceAIPrimary, "test-key", srv.URL, "gpt-3.5-turbo", 0.7, 150, time.Second)
	answer, err := o.Generate(context.Background(), "What is your role?", "Senior engineer, 5 years at Acme")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if answer != "Software Engineer" {
		t.Fatalf("expected trimmed answer, got %q", answer)
	}
}

func TestOpenAIGenerateErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			o := NewOpenAI(resolve.SourceAIPrimary, "k", srv.URL, "", 0, 0, time.Second)
			_, err := o.Generate(context.Background(), "q", "")
			if err == nil {
				t.Fatal("expected error")
			}
			var ge *GenerationError
			if !errors.As(err, &ge) || ge.Backend != resolve.SourceAIPrimary {
				t.Fatalf("expected GenerationError for ai_primary, got %v", err)
			}
		})
	}
}

func TestGeminiGenerate(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/models/gemini-1.5-pro-002:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("key"); got != "gem-key" {
			t.Errorf("unexpected api key %q", got)
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.SystemInstruction == nil {
			t.Errorf("unexpected request shape: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "Pune, India"}},
				}},
			},
		})
	}))
	defer srv.Close()

	g := NewGemini(resolve.SourceAISecondary, "gem-key", srv.URL, "", 0.5, 100, time.Second)
	answer, err := g.Generate(context.Background(), "Where are you located?", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if answer != "Pune, India" {
		t.Fatalf("unexpected answer %q", answer)
	}
}

func TestGeminiGenerateNoCandidates(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"candidates": []interface{}{}})
	}))
	defer srv.Close()
	g := NewGemini(resolve.SourceAISecondary, "k", srv.URL, "", 0, 0, time.Second)
	if _, err := g.Generate(context.Background(), "q", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestStaticAlwaysAnswers(t *testing.T) {
	t.Parallel()
	s := NewStatic("Will follow up by email.")
	if s.Tag() != resolve.SourceStaticFallback {
		t.Fatalf("unexpected tag %s", s.Tag())
	}
	answer, err := s.Generate(context.Background(), "anything", "")
	if err != nil || answer != "Will follow up by email." {
		t.Fatalf("got %q, %v", answer, err)
	}
}

func TestCacheKeyDependsOnAllInputs(t *testing.T) {
	t.Parallel()
	base := cacheKey(resolve.SourceAIPrimary, "q", "ctx")
	if base != cacheKey(resolve.SourceAIPrimary, "q", "ctx") {
		t.Fatal("cache key must be deterministic")
	}
	for _, other := range []string{
		cacheKey(resolve.SourceAISecondary, "q", "ctx"),
		cacheKey(resolve.SourceAIPrimary, "q2", "ctx"),
		cacheKey(resolve.SourceAIPrimary, "q", "ctx2"),
	} {
		if other == base {
			t.Fatalf("cache key collision: %s", other)
		}
	}
}

func TestNewBackendsChainAssembly(t *testing.T) {
	t.Parallel()
	cfg := config.LLMConfig{
		Providers: map[string]config.LLMProvider{
			"openai": {Type: "openai", APIKey: "a"},
			"gemini": {Type: "gemini", APIKey: "b"},
			"nokey":  {Type: "openai"},
		},
		Routing: config.LLMRoutingConfig{
			Primary:       "openai",
			Secondary:     "gemini",
			FallbackReply: "static reply",
		},
	}
	backends, err := NewBackends(cfg, nil, config.RedisConfig{})
	if err != nil {
		t.Fatalf("NewBackends: %v", err)
	}
	want := []resolve.Source{resolve.SourceAIPrimary, resolve.SourceAISecondary, resolve.SourceStaticFallback}
	if len(backends) != len(want) {
		t.Fatalf("expected %d backends, got %d", len(want), len(backends))
	}
	for i, b := range backends {
		if b.Tag() != want[i] {
			t.Fatalf("backend %d: got tag %s want %s", i, b.Tag(), want[i])
		}
	}
}

func TestNewBackendsSkipsUnconfiguredTiers(t *testing.T) {
	t.Parallel()
	cfg := config.LLMConfig{
		Providers: map[string]config.LLMProvider{
			"nokey": {Type: "openai"},
		},
		Routing: config.LLMRoutingConfig{Primary: "nokey"},
	}
	backends, err := NewBackends(cfg, nil, config.RedisConfig{})
	if err != nil {
		t.Fatalf("NewBackends: %v", err)
	}
	if len(backends) != 0 {
		t.Fatalf("expected empty chain, got %d backends", len(backends))
	}
}

func TestNewBackendsUnknownProvider(t *testing.T) {
	t.Parallel()
	cfg := config.LLMConfig{
		Providers: map[string]config.LLMProvider{
			"weird": {Type: "carrier-pigeon", APIKey: "k"},
		},
		Routing: config.LLMRoutingConfig{Primary: "weird"},
	}
	if _, err := NewBackends(cfg, nil, config.RedisConfig{}); err == nil {
		t.Fatal("expected error for unsupported provider type")
	}
}
