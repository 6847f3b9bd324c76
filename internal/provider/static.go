package provider

import (
	"context"

	"github.com/formpilot/formpilot/internal/resolve"
)

// Static is the last-resort tier: it answers every question with one
// configured reply. An empty reply makes it a no-op that the resolver treats
// as a miss.
type Static struct {
	reply string
}

// NewStatic creates a static fallback tier with the given reply.
func NewStatic(reply string) *Static {
	return &Static{reply: reply}
}

func (s *Static) Tag() resolve.Source { return resolve.SourceStaticFallback }

func (s *Static) Generate(_ context.Context, _, _ string) (string, error) {
	return s.reply, nil
}
