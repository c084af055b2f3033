package memory

import (
	"time"

	"github.com/driftline/recall-go-sdk/memory/summarizer"
)

// Defaults for the facade surface.
const (
	DefaultConversationLimit = 5
	DefaultChannelLimit      = 10
	DefaultCleanupDays       = 30
	DefaultCacheWindow       = 24 * time.Hour
)

// Option configures the Store.
type Option func(*Store)

// WithVectorStore sets the backing vector store. Required: a Store
// without one refuses to initialize.
func WithVectorStore(vs VectorStore) Option {
	return func(s *Store) {
		s.vs = vs
	}
}

// WithSummarizer enables digesting of aged-out conversations during
// cleanup. Off by default.
func WithSummarizer(sum summarizer.Summarizer) Option {
	return func(s *Store) {
		s.summarizer = sum
	}
}

// WithHotCache toggles the in-process exact-key cache layer in front of
// the semantic search-result cache. On by default; a hot hit skips one
// embedding round-trip and one store query.
func WithHotCache(enabled bool) Option {
	return func(s *Store) {
		s.hotEnabled = enabled
	}
}
