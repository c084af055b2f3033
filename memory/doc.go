// Package memory provides semantic memory for conversational bots.
//
// Conversation turns, channel and thread messages, bot responses, and
// cached web-search results are embedded and persisted as documents, and
// the most semantically relevant ones are retrieved for a given query.
//
// Architecture:
//   - VectorStore: persistent collection store with similarity query
//     (chromem-go for the SDK, swappable for production backends)
//   - Embedder: text-to-vector conversion with an ordered fallback chain
//     (remote endpoint, optional local model, hash fallback)
//   - Store: the facade the bot layer talks to
//
// The facade fails open: every public operation returns a success flag or
// an empty result on failure and never panics or returns an error. Vector
// memory is an enhancement to the owning bot, never a dependency; a bot
// whose Initialize returned false keeps working with memory features
// silently disabled.
package memory
