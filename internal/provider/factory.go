package provider

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/formpilot/formpilot/config"
	"github.com/formpilot/formpilot/internal/resolve"
)

// NewBackends assembles the ordered tier chain from config: routing.primary,
// then routing.secondary, then a static fallback when fallback_reply is set.
// When rdb is non-nil every LLM tier is wrapped with the Redis answer cache.
func NewBackends(cfg config.LLMConfig, rdb *redis.Client, redisCfg config.RedisConfig) ([]resolve.Backend, error) {
	var backends []resolve.Backend

	tiers := []struct {
		name string
		tag  resolve.Source
	}{
		{cfg.Routing.Primary, resolve.SourceAIPrimary},
		{cfg.Routing.Secondary, resolve.SourceAISecondary},
	}
	for _, tier := range tiers {
		if tier.name == "" {
			continue
		}
		pc, ok := cfg.Providers[tier.name]
		if !ok {
			return nil, fmt.Errorf("llm.routing references unknown provider %q", tier.name)
		}
		if pc.APIKey == "" {
			// A tier without credentials is skipped rather than failing
			// every question at runtime.
			continue
		}
		backend, err := newBackend(tier.tag, pc)
		if err != nil {
			return nil, err
		}
		if rdb != nil {
			backend = NewCached(backend, rdb, redisCfg.CacheTTL)
		}
		backends = append(backends, backend)
	}

	if cfg.Routing.FallbackReply != "" {
		backends = append(backends, NewStatic(cfg.Routing.FallbackReply))
	}
	return backends, nil
}

func newBackend(tag resolve.Source, pc config.LLMProvider) (resolve.Backend, error) {
	switch pc.Type {
	case "openai", "":
		return NewOpenAI(tag, pc.APIKey, pc.BaseURL, pc.Model, pc.Temperature, pc.MaxTokens, pc.Timeout), nil
	case "gemini":
		return NewGemini(tag, pc.APIKey, pc.BaseURL, pc.Model, pc.Temperature, pc.MaxTokens, pc.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", pc.Type)
	}
}
