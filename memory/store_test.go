package memory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/driftline/recall-go-sdk/memory"
	"github.com/driftline/recall-go-sdk/memory/embedder/hash"
	"github.com/driftline/recall-go-sdk/memory/store/chromem"
)

func newStore(t *testing.T, opts ...memory.Option) *memory.Store {
	t.Helper()
	backend := chromem.New(chromem.Config{Embedder: hash.New(32)})
	s := memory.New(append([]memory.Option{memory.WithVectorStore(backend)}, opts...)...)
	if !s.Initialize() {
		t.Fatal("initialize failed")
	}
	return s
}

func TestUninitialized_AllOperationsNoOp(t *testing.T) {
	ctx := context.Background()
	s := memory.New() // no vector store, never initialized

	if s.Initialize() {
		t.Fatal("Initialize must fail without a vector store")
	}
	if s.AddConversation(ctx, "U1", "C1", "hi", "hello", nil) {
		t.Fatal("AddConversation must return false when uninitialized")
	}
	if s.AddChannelMessage(ctx, "C1", "alice", "hi", "") {
		t.Fatal("AddChannelMessage must return false when uninitialized")
	}
	if s.AddThreadMessage(ctx, "T1", "C1", "alice", "hi", "") {
		t.Fatal("AddThreadMessage must return false when uninitialized")
	}
	if s.AddBotResponse(ctx, "C1", "U1", "hello", "", nil) {
		t.Fatal("AddBotResponse must return false when uninitialized")
	}
	if s.CacheSearchResult(ctx, "q", "r", "web") {
		t.Fatal("CacheSearchResult must return false when uninitialized")
	}
	if _, ok := s.GetCachedSearch(ctx, "q", memory.DefaultCacheWindow); ok {
		t.Fatal("GetCachedSearch must miss when uninitialized")
	}
	if hits := s.SearchConversations(ctx, "hi", "", "", 0); len(hits) != 0 {
		t.Fatal("SearchConversations must be empty when uninitialized")
	}
	if hits := s.SearchChannelContext(ctx, "hi", "C1", 0); len(hits) != 0 {
		t.Fatal("SearchChannelContext must be empty when uninitialized")
	}
	if s.CleanupOldData(ctx, 30) {
		t.Fatal("CleanupOldData must return false when uninitialized")
	}
	if stats := s.Stats(); len(stats) != 0 {
		t.Fatal("Stats must be empty when uninitialized")
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	s := newStore(t)
	if !s.Initialize() {
		t.Fatal("second Initialize must be a no-op returning true")
	}
	if !s.Initialized() {
		t.Fatal("Initialized() = false after successful Initialize")
	}
}

func TestAddConversation_SearchByUser(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if !s.AddConversation(ctx, "1", "2", "hi", "hello", nil) {
		t.Fatal("add conversation failed")
	}

	hits := s.SearchConversations(ctx, "hi", "1", "", 0)
	if len(hits) < 1 {
		t.Fatal("expected at least one hit")
	}
	if hits[0].Metadata["user_id"] != "1" {
		t.Fatalf("first hit user_id = %q, want \"1\"", hits[0].Metadata["user_id"])
	}
	if !strings.Contains(hits[0].Document, "hi") {
		t.Fatalf("document %q does not contain the message", hits[0].Document)
	}
}

func TestSearchConversations_FiltersAreConjoined(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	s.AddConversation(ctx, "1", "C1", "deploy the service", "done", nil)
	s.AddConversation(ctx, "1", "C2", "restart the worker", "done", nil)
	s.AddConversation(ctx, "2", "C1", "check the logs", "done", nil)

	hits := s.SearchConversations(ctx, "service", "1", "C1", 10)
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want exactly the one matching both ids", len(hits))
	}
	if hits[0].Metadata["user_id"] != "1" || hits[0].Metadata["channel_id"] != "C1" {
		t.Fatalf("wrong hit: %v", hits[0].Metadata)
	}
}

func TestAddConversation_EmptyMessageRejected(t *testing.T) {
	s := newStore(t)
	if s.AddConversation(context.Background(), "1", "2", "", "hello", nil) {
		t.Fatal("empty message must be rejected")
	}
}

func TestInsertOnlyCategories_EveryAddIsANewRecord(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	s.AddConversation(ctx, "1", "2", "first", "a", nil)
	s.AddConversation(ctx, "1", "2", "second", "b", nil)
	s.AddBotResponse(ctx, "2", "1", "third", "", nil)

	stats := s.Stats()
	if stats[memory.CategoryConversation] != 2 {
		t.Fatalf("conversation count = %d, want 2", stats[memory.CategoryConversation])
	}
	if stats[memory.CategoryBotResponse] != 1 {
		t.Fatalf("bot response count = %d, want 1", stats[memory.CategoryBotResponse])
	}
}

func TestUpsertCategories_SameIDCollapses(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	s.AddChannelMessage(ctx, "C1", "alice", "first version", "m1")
	s.AddChannelMessage(ctx, "C1", "alice", "edited version", "m1")
	s.AddThreadMessage(ctx, "T1", "C1", "bob", "first", "m2")
	s.AddThreadMessage(ctx, "T1", "C1", "bob", "edited", "m2")

	stats := s.Stats()
	if stats[memory.CategoryChannelMessage] != 1 {
		t.Fatalf("channel message count = %d, want 1", stats[memory.CategoryChannelMessage])
	}
	if stats[memory.CategoryThreadMessage] != 1 {
		t.Fatalf("thread message count = %d, want 1", stats[memory.CategoryThreadMessage])
	}

	hits := s.SearchChannelContext(ctx, "version", "C1", 5)
	if len(hits) != 1 || !strings.Contains(hits[0].Document, "edited version") {
		t.Fatalf("expected only the later write, got %v", hits)
	}
}

func TestChannelMessage_DefaultedMessageIDsStayDistinct(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	s.AddChannelMessage(ctx, "C1", "alice", "one", "")
	s.AddChannelMessage(ctx, "C1", "alice", "two", "")

	if n := s.Stats()[memory.CategoryChannelMessage]; n != 2 {
		t.Fatalf("count = %d, want 2 distinct records", n)
	}
}

func TestStats_CoversAllCategories(t *testing.T) {
	s := newStore(t)

	stats := s.Stats()
	if len(stats) != len(memory.Categories()) {
		t.Fatalf("stats has %d categories, want %d", len(stats), len(memory.Categories()))
	}
	for _, cat := range memory.Categories() {
		if n, ok := stats[cat]; !ok || n != 0 {
			t.Fatalf("category %s: count %d present %v, want 0 and present", cat, n, ok)
		}
	}
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if !s.CacheSearchResult(ctx, "weather in berlin", "sunny, 21C", "web") {
		t.Fatal("cache write failed")
	}

	result, ok := s.GetCachedSearch(ctx, "weather in berlin", memory.DefaultCacheWindow)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if !strings.Contains(result, "sunny, 21C") {
		t.Fatalf("payload %q does not contain the cached result", result)
	}
}

func TestCacheRoundTrip_SemanticPathOnly(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.WithHotCache(false))

	s.CacheSearchResult(ctx, "weather in berlin", "sunny, 21C", "web")

	result, ok := s.GetCachedSearch(ctx, "weather in berlin", memory.DefaultCacheWindow)
	if !ok {
		t.Fatal("expected a semantic cache hit")
	}
	if result != "sunny, 21C" {
		t.Fatalf("payload = %q, want the text after the result marker", result)
	}
}

func TestGetCachedSearch_ZeroWindowAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	s.CacheSearchResult(ctx, "weather in berlin", "sunny", "web")

	if _, ok := s.GetCachedSearch(ctx, "weather in berlin", 0); ok {
		t.Fatal("freshness is strict; a zero window must always miss")
	}
}

func TestCacheSearchResult_SameQuerySourceUpserts(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.WithHotCache(false))

	s.CacheSearchResult(ctx, "weather in berlin", "stale", "web")
	s.CacheSearchResult(ctx, "weather in berlin", "fresh", "web")

	if n := s.Stats()[memory.CategorySearchResult]; n != 1 {
		t.Fatalf("count = %d, want 1 after re-caching", n)
	}
	result, ok := s.GetCachedSearch(ctx, "weather in berlin", memory.DefaultCacheWindow)
	if !ok || result != "fresh" {
		t.Fatalf("got %q/%v, want the later write", result, ok)
	}
}

func TestCleanup_FreshDataUntouched(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	s.AddConversation(ctx, "1", "2", "hi", "hello", nil)
	s.AddChannelMessage(ctx, "C1", "alice", "hi", "m1")

	if !s.CleanupOldData(ctx, 30) {
		t.Fatal("cleanup failed")
	}
	if !s.CleanupOldData(ctx, 30) {
		t.Fatal("second cleanup failed")
	}

	stats := s.Stats()
	if stats[memory.CategoryConversation] != 1 || stats[memory.CategoryChannelMessage] != 1 {
		t.Fatalf("fresh records were deleted: %v", stats)
	}
}

func TestClose(t *testing.T) {
	s := newStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestCleanup_DefaultDays(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	s.AddConversation(ctx, "1", "2", "hi", "hello", nil)

	if !s.CleanupOldData(ctx, 0) {
		t.Fatal("cleanup with defaulted days failed")
	}
	if s.Stats()[memory.CategoryConversation] != 1 {
		t.Fatal("record newer than the default window was deleted")
	}
}
