package engine

import (
	"sync"

	"github.com/google/uuid"
)

// TokenGenerator produces run tokens for batch correlation. Every log line
// and RunResult of one batch carries the same token.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator is the production token source. UUIDv7 embeds a
// timestamp in the high bits, so tokens sort by run start time.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails, which does not happen in practice.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens in order. Tests use it so
// run output is byte-stable across executions.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator yielding the given tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token, panicking when exhausted
// so a test that consumes more runs than it declared fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
