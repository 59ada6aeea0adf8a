package testutil

// FixedQueryIDGenerator returns the same query id every time.
//
// Log output then stays identical across runs, which keeps golden
// transcripts stable.
//
// Thread-safety: FixedQueryIDGenerator is stateless and safe for concurrent use.
type FixedQueryIDGenerator struct {
	id string
}

// NewFixedQueryIDGenerator creates a generator that always returns id.
// If id is empty, Generate() returns "test-query".
func NewFixedQueryIDGenerator(id string) *FixedQueryIDGenerator {
	if id == "" {
		id = "test-query"
	}
	return &FixedQueryIDGenerator{id: id}
}

// Generate returns the fixed id.
//
// Implements engine.QueryIDGenerator interface.
func (g *FixedQueryIDGenerator) Generate() string {
	return g.id
}
