package memory

import (
	"context"
	"errors"
	"time"
)

// Category identifies one of the content types handled by the memory
// subsystem. Each category maps to its own collection.
type Category string

const (
	CategoryConversation   Category = "conversation"
	CategoryChannelMessage Category = "channel_message"
	CategoryThreadMessage  Category = "thread_message"
	CategoryBotResponse    Category = "bot_response"
	CategorySearchResult   Category = "search_result"
)

// Categories returns all categories in collection-creation order.
func Categories() []Category {
	return []Category{
		CategoryConversation,
		CategoryChannelMessage,
		CategoryThreadMessage,
		CategoryBotResponse,
		CategorySearchResult,
	}
}

// collectionName maps a category to its collection name. Write and read
// paths both go through this table so the names cannot drift.
func collectionName(c Category) string {
	return string(c) + "s"
}

// collectionDescription returns the fixed descriptive label attached to a
// category's collection at creation.
func collectionDescription(c Category) string {
	switch c {
	case CategoryConversation:
		return "User-bot conversation exchanges"
	case CategoryChannelMessage:
		return "Channel message history"
	case CategoryThreadMessage:
		return "Thread message history"
	case CategoryBotResponse:
		return "Bot responses"
	case CategorySearchResult:
		return "Cached web search results"
	}
	return string(c)
}

// Record is a stored unit: an id unique within its category, the
// embeddable document text, and string-keyed metadata for filtering and
// display. The embedding itself is produced inside the vector store via
// its embedding hook and never handled by callers.
type Record struct {
	ID       string
	Document string
	Metadata map[string]string
}

// SearchHit is one ranked result of a similarity query. Distance is
// ascending-better: 0 means an exact semantic match.
type SearchHit struct {
	Document string
	Metadata map[string]string
	Distance float32
}

// Filter selects records within a collection. Where entries are exact
// string matches joined by AND. OlderThan, when set, matches records whose
// timestamp metadata is strictly before the given instant; stores that
// cannot evaluate it return ErrFilterUnsupported.
type Filter struct {
	Where     map[string]string
	OlderThan time.Time
}

// ErrFilterUnsupported is returned by Collection.DeleteWhere when the
// store cannot push the filter down. Callers fall back to a client-side
// scan with the same boundary semantics.
var ErrFilterUnsupported = errors.New("filter not supported by this store")

// VectorStore is the persistent collection store backing the memory
// subsystem. Implementations: chromem (SDK-provided, embedded).
//
// The store owns the embedding hook: documents are embedded inside Add,
// Upsert, and Query, and a hook failure must degrade (zero vector) rather
// than fail the operation.
type VectorStore interface {
	// Collection returns the named collection, creating it with the
	// given description if absent. Idempotent.
	Collection(name, description string) (Collection, error)

	// Close releases resources.
	Close() error
}

// Collection is a named set of records within a VectorStore. Safe for
// concurrent use; any internal locking is the store's concern.
type Collection interface {
	// Add inserts a record and errors if the id already exists.
	Add(ctx context.Context, id, document string, metadata map[string]string) error

	// Upsert inserts or replaces the record with the given id.
	Upsert(ctx context.Context, id, document string, metadata map[string]string) error

	// Query returns up to topK nearest neighbors of the query text,
	// nearest first, optionally restricted to records matching all
	// where entries.
	Query(ctx context.Context, text string, topK int, where map[string]string) ([]SearchHit, error)

	// Get returns the full set of records matching all where entries
	// (all records when where is nil).
	Get(ctx context.Context, where map[string]string) ([]Record, error)

	// Delete removes the records with the given ids.
	Delete(ctx context.Context, ids ...string) error

	// DeleteWhere removes all records matching the filter and reports
	// how many were removed. Returns ErrFilterUnsupported when the
	// filter cannot be pushed down.
	DeleteWhere(ctx context.Context, f Filter) (int, error)

	// Count returns the number of records in the collection.
	Count() int
}
