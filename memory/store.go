package memory

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driftline/recall-go-sdk/memory/summarizer"
)

// Store is the facade the bot layer talks to. It owns the category
// collections and enforces the fail-open contract: every method returns a
// success flag or an empty result, never an error.
//
// A Store starts uninitialized. Until Initialize succeeds, every data
// operation is a logged no-op, so owning applications can treat memory as
// optional infrastructure.
type Store struct {
	vs         VectorStore
	summarizer summarizer.Summarizer
	hotEnabled bool
	hot        *hotCache

	mu          sync.RWMutex
	collections map[Category]Collection

	// now is swapped in tests to pin record timestamps.
	now func() time.Time
}

// New creates an uninitialized Store.
func New(opts ...Option) *Store {
	s := &Store{
		hotEnabled: true,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize opens the vector store and gets or creates the five category
// collections. Idempotent: once ready, further calls return true without
// touching the store. Returns false, with the cause logged, when the
// backing store is missing or unavailable; the Store then stays
// uninitialized and all operations no-op.
func (s *Store) Initialize() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collections != nil {
		return true
	}
	if s.vs == nil {
		log.Printf("[MEMORY] initialize: no vector store configured")
		return false
	}

	collections := make(map[Category]Collection, len(Categories()))
	for _, cat := range Categories() {
		col, err := s.vs.Collection(collectionName(cat), collectionDescription(cat))
		if err != nil {
			log.Printf("[MEMORY] initialize: collection %q: %v", collectionName(cat), err)
			return false
		}
		collections[cat] = col
	}

	if s.hotEnabled {
		hot, err := newHotCache()
		if err != nil {
			log.Printf("[MEMORY] initialize: hot cache disabled: %v", err)
		} else {
			s.hot = hot
		}
	}

	s.collections = collections
	log.Printf("[MEMORY] initialized with %d collections", len(collections))
	return true
}

// Initialized reports whether Initialize has succeeded.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collections != nil
}

// collection returns the category's collection, or false while the Store
// is uninitialized.
func (s *Store) collection(cat Category) (Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collections == nil {
		return nil, false
	}
	return s.collections[cat], true
}

// AddConversation stores one user-bot exchange. Insert-only: every call
// produces a new record. Extra metadata keys are merged in for later
// filtering; reserved keys win on collision.
func (s *Store) AddConversation(ctx context.Context, userID, channelID, message, response string, extra map[string]string) bool {
	col, ok := s.collection(CategoryConversation)
	if !ok {
		return false
	}
	rec, err := shapeConversation(userID, channelID, message, response, extra, s.now())
	if err != nil {
		log.Printf("[MEMORY] add conversation: %v", err)
		return false
	}
	return s.write(ctx, col.Add, CategoryConversation, rec)
}

// AddChannelMessage stores a channel message. Upsert keyed by channel and
// message id; messageID defaults to a fresh uuid when empty.
func (s *Store) AddChannelMessage(ctx context.Context, channelID, userName, message, messageID string) bool {
	col, ok := s.collection(CategoryChannelMessage)
	if !ok {
		return false
	}
	if messageID == "" {
		messageID = uuid.New().String()
	}
	rec, err := shapeChannelMessage(channelID, userName, message, messageID, s.now())
	if err != nil {
		log.Printf("[MEMORY] add channel message: %v", err)
		return false
	}
	return s.write(ctx, col.Upsert, CategoryChannelMessage, rec)
}

// AddThreadMessage stores a message posted inside a thread. Upsert, like
// channel messages.
func (s *Store) AddThreadMessage(ctx context.Context, threadID, parentChannelID, userName, message, messageID string) bool {
	col, ok := s.collection(CategoryThreadMessage)
	if !ok {
		return false
	}
	if messageID == "" {
		messageID = uuid.New().String()
	}
	rec, err := shapeThreadMessage(threadID, parentChannelID, userName, message, messageID, s.now())
	if err != nil {
		log.Printf("[MEMORY] add thread message: %v", err)
		return false
	}
	return s.write(ctx, col.Upsert, CategoryThreadMessage, rec)
}

// AddBotResponse stores a response the bot produced. Insert-only.
func (s *Store) AddBotResponse(ctx context.Context, channelID, userID, response, responseType string, extra map[string]string) bool {
	col, ok := s.collection(CategoryBotResponse)
	if !ok {
		return false
	}
	rec, err := shapeBotResponse(channelID, userID, response, responseType, extra, s.now())
	if err != nil {
		log.Printf("[MEMORY] add bot response: %v", err)
		return false
	}
	return s.write(ctx, col.Add, CategoryBotResponse, rec)
}

// SearchConversations returns up to limit past exchanges semantically
// closest to the query, nearest first. Non-empty userID and channelID are
// ANDed into an equality filter. Empty on any failure.
func (s *Store) SearchConversations(ctx context.Context, query, userID, channelID string, limit int) []SearchHit {
	if limit <= 0 {
		limit = DefaultConversationLimit
	}

	where := map[string]string{}
	if userID != "" {
		where[metaUserID] = userID
	}
	if channelID != "" {
		where[metaChannelID] = channelID
	}

	return s.search(ctx, CategoryConversation, query, limit, where)
}

// SearchChannelContext returns up to limit channel messages semantically
// closest to the query, restricted to the given channel.
func (s *Store) SearchChannelContext(ctx context.Context, query, channelID string, limit int) []SearchHit {
	if limit <= 0 {
		limit = DefaultChannelLimit
	}

	var where map[string]string
	if channelID != "" {
		where = map[string]string{metaChannelID: channelID}
	}

	return s.search(ctx, CategoryChannelMessage, query, limit, where)
}

// CleanupOldData deletes, in every category, the records whose timestamp
// is strictly older than now minus the given number of days. When the
// store supports it the age filter is pushed down; otherwise the category
// is scanned and matching ids deleted client-side, with identical strict
// boundary semantics. With a summarizer configured, aged conversations
// are condensed into a digest record before deletion. Idempotent;
// returns false only when the Store is uninitialized or a category sweep
// failed outright.
func (s *Store) CleanupOldData(ctx context.Context, days int) bool {
	if !s.Initialized() {
		return false
	}
	if days <= 0 {
		days = DefaultCleanupDays
	}
	cutoff := s.now().AddDate(0, 0, -days)

	ok := true
	for _, cat := range Categories() {
		col, _ := s.collection(cat)

		if cat == CategoryConversation && s.summarizer != nil {
			s.digestConversations(ctx, col, cutoff)
		}

		deleted, err := col.DeleteWhere(ctx, Filter{OlderThan: cutoff})
		if errors.Is(err, ErrFilterUnsupported) {
			deleted, err = s.sweep(ctx, col, cutoff)
		}
		if err != nil {
			log.Printf("[MEMORY] cleanup %s: %v", cat, err)
			ok = false
			continue
		}
		log.Printf("[MEMORY] cleanup %s: deleted %d records older than %s", cat, deleted, cutoff.Format(time.RFC3339))
	}
	return ok
}

// sweep is the client-side cleanup fallback: scan every record, parse its
// timestamp, and delete the set strictly older than the cutoff. Records
// with missing or malformed timestamps are skipped, not deleted.
func (s *Store) sweep(ctx context.Context, col Collection, cutoff time.Time) (int, error) {
	records, err := col.Get(ctx, nil)
	if err != nil {
		return 0, err
	}

	var stale []string
	for _, rec := range records {
		ts, ok := recordTime(rec)
		if !ok {
			log.Printf("[MEMORY] cleanup: record %s has no usable timestamp, skipping", rec.ID)
			continue
		}
		if ts.Before(cutoff) {
			stale = append(stale, rec.ID)
		}
	}

	if len(stale) == 0 {
		return 0, nil
	}
	if err := col.Delete(ctx, stale...); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// digestConversations condenses the conversations about to age out into a
// single digest record. Any failure is logged and cleanup proceeds with
// plain deletion.
func (s *Store) digestConversations(ctx context.Context, col Collection, cutoff time.Time) {
	records, err := col.Get(ctx, nil)
	if err != nil {
		log.Printf("[MEMORY] digest: %v", err)
		return
	}

	var texts []string
	for _, rec := range records {
		if rec.Metadata["kind"] == "digest" {
			continue
		}
		if ts, ok := recordTime(rec); ok && ts.Before(cutoff) {
			texts = append(texts, rec.Document)
		}
	}
	if len(texts) == 0 {
		return
	}

	digest, err := s.summarizer.Summarize(ctx, texts)
	if err != nil {
		log.Printf("[MEMORY] digest: summarize: %v", err)
		return
	}

	rec := shapeConversationDigest(digest, len(texts), s.now())
	if err := col.Add(ctx, rec.ID, rec.Document, rec.Metadata); err != nil {
		log.Printf("[MEMORY] digest: store: %v", err)
		return
	}
	log.Printf("[MEMORY] digested %d aged conversations", len(texts))
}

// Stats returns the record count per category. Empty while the Store is
// uninitialized.
func (s *Store) Stats() map[Category]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[Category]int, len(s.collections))
	for cat, col := range s.collections {
		stats[cat] = col.Count()
	}
	return stats
}

// Close releases the backing store. The Store is unusable afterwards.
func (s *Store) Close() error {
	if s.vs == nil {
		return nil
	}
	return s.vs.Close()
}

type writeFunc func(ctx context.Context, id, document string, metadata map[string]string) error

// write persists a shaped record, converting any store error into a
// logged false per the fail-open contract.
func (s *Store) write(ctx context.Context, put writeFunc, cat Category, rec Record) bool {
	if err := put(ctx, rec.ID, rec.Document, rec.Metadata); err != nil {
		log.Printf("[MEMORY] write %s %s: %v", cat, rec.ID, err)
		return false
	}
	return true
}

// search runs a filtered similarity query, converting any failure into an
// empty result.
func (s *Store) search(ctx context.Context, cat Category, query string, limit int, where map[string]string) []SearchHit {
	col, ok := s.collection(cat)
	if !ok {
		return nil
	}
	if len(where) == 0 {
		where = nil
	}

	hits, err := col.Query(ctx, query, limit, where)
	if err != nil {
		log.Printf("[MEMORY] search %s: %v", cat, err)
		return nil
	}
	return hits
}

// recordTime parses a record's timestamp metadata.
func recordTime(rec Record) (time.Time, bool) {
	raw, ok := rec.Metadata[metaTimestamp]
	if !ok || raw == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(timestampFormat, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
