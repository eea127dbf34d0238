package gateway

import (
	"io"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// pendingRefs exposes the live correlation refs for assertions.
func (g *LegacyGateway) pendingRefs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	refs := make([]string, 0, len(g.pending))
	for ref := range g.pending {
		refs = append(refs, ref)
	}
	return refs
}
