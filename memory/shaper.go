package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Metadata truncation limits. Metadata exists for filtering and display,
// not full-text reconstruction; the full text lives in the document.
const (
	maxConversationField = 500
	maxMessageField      = 1000
	maxSearchField       = 500
)

// metaTimestamp is the metadata key every category carries. Cleanup and
// cache freshness both parse it, so the format is fixed here.
const (
	metaTimestamp = "timestamp"
	metaUserID    = "user_id"
	metaChannelID = "channel_id"
	metaThreadID  = "thread_id"
	metaParentID  = "parent_channel_id"
	metaSource    = "source"
)

const timestampFormat = time.RFC3339Nano

// shapeConversation builds the record for one user-bot exchange.
// Insert-only: the id carries a nanosecond timestamp so every exchange is
// a distinct record.
func shapeConversation(userID, channelID, message, response string, extra map[string]string, now time.Time) (Record, error) {
	if message == "" {
		return Record{}, fmt.Errorf("conversation requires a non-empty message")
	}

	metadata := map[string]string{
		metaUserID:    userID,
		metaChannelID: channelID,
		"message":     clip(message, maxConversationField),
		"response":    clip(response, maxConversationField),
		metaTimestamp: now.Format(timestampFormat),
	}
	mergeExtra(metadata, extra)

	return Record{
		ID:       fmt.Sprintf("conv_%s_%s_%d", userID, channelID, now.UnixNano()),
		Document: fmt.Sprintf("User: %s\nAssistant: %s", message, response),
		Metadata: metadata,
	}, nil
}

// shapeChannelMessage builds the record for a channel message. Upsert:
// the id is derived from the channel and message ids, so re-ingesting the
// same message (or an edit of it) replaces the earlier record.
func shapeChannelMessage(channelID, userName, message, messageID string, now time.Time) (Record, error) {
	if message == "" {
		return Record{}, fmt.Errorf("channel message requires a non-empty message")
	}

	return Record{
		ID:       fmt.Sprintf("chan_%s_%s", channelID, messageID),
		Document: fmt.Sprintf("%s: %s", userName, message),
		Metadata: map[string]string{
			metaChannelID: channelID,
			"user_name":   userName,
			"message":     clip(message, maxMessageField),
			"message_id":  messageID,
			metaTimestamp: now.Format(timestampFormat),
		},
	}, nil
}

// shapeThreadMessage builds the record for a message inside a thread.
// Upsert, keyed like channel messages.
func shapeThreadMessage(threadID, parentChannelID, userName, message, messageID string, now time.Time) (Record, error) {
	if message == "" {
		return Record{}, fmt.Errorf("thread message requires a non-empty message")
	}

	return Record{
		ID:       fmt.Sprintf("thread_%s_%s", threadID, messageID),
		Document: fmt.Sprintf("%s: %s", userName, message),
		Metadata: map[string]string{
			metaThreadID:  threadID,
			metaParentID:  parentChannelID,
			"user_name":   userName,
			"message":     clip(message, maxMessageField),
			"message_id":  messageID,
			metaTimestamp: now.Format(timestampFormat),
		},
	}, nil
}

// shapeBotResponse builds the record for a response the bot produced.
// Insert-only, like conversations.
func shapeBotResponse(channelID, userID, response, responseType string, extra map[string]string, now time.Time) (Record, error) {
	if response == "" {
		return Record{}, fmt.Errorf("bot response requires a non-empty response")
	}
	if responseType == "" {
		responseType = "message"
	}

	metadata := map[string]string{
		metaChannelID:   channelID,
		metaUserID:      userID,
		"response":      clip(response, maxConversationField),
		"response_type": responseType,
		metaTimestamp:   now.Format(timestampFormat),
	}
	mergeExtra(metadata, extra)

	return Record{
		ID:       fmt.Sprintf("bot_%s_%d", channelID, now.UnixNano()),
		Document: fmt.Sprintf("Assistant: %s", response),
		Metadata: metadata,
	}, nil
}

// resultMarker separates the result payload from the query and source
// inside a search-result document. GetCachedSearch extracts everything
// after it.
const resultMarker = "Result: "

// shapeSearchResult builds the record for a cached search result. Upsert:
// the id is a content hash of (query, source) with no timestamp component,
// so re-caching the same query against the same source replaces the stale
// entry in place. The write time lives in metadata for freshness checks.
func shapeSearchResult(query, result, source string, now time.Time) (Record, error) {
	if query == "" {
		return Record{}, fmt.Errorf("search result requires a non-empty query")
	}

	sum := sha256.Sum256([]byte(query + "|" + source))

	return Record{
		ID:       fmt.Sprintf("search_%s", hex.EncodeToString(sum[:])[:16]),
		Document: fmt.Sprintf("Query: %s\nSource: %s\n%s%s", query, source, resultMarker, result),
		Metadata: map[string]string{
			"query":          clip(query, maxSearchField),
			metaSource:       source,
			"result_preview": clip(result, maxSearchField),
			metaTimestamp:    now.Format(timestampFormat),
		},
	}, nil
}

// shapeConversationDigest builds the condensed record a Summarizer
// produces from aged-out conversations. It lives in the conversation
// collection with a fresh timestamp; the empty user and channel ids keep
// it out of id-filtered searches while unfiltered similarity queries can
// still surface it.
func shapeConversationDigest(digest string, count int, now time.Time) Record {
	return Record{
		ID:       fmt.Sprintf("conv_digest_%d", now.UnixNano()),
		Document: fmt.Sprintf("Summary of %d earlier conversations:\n%s", count, digest),
		Metadata: map[string]string{
			metaUserID:    "",
			metaChannelID: "",
			"message":     clip(digest, maxConversationField),
			"response":    "",
			"kind":        "digest",
			metaTimestamp: now.Format(timestampFormat),
		},
	}
}

// mergeExtra folds caller-supplied metadata into the category schema
// without letting it clobber the reserved keys.
func mergeExtra(metadata, extra map[string]string) {
	for k, v := range extra {
		if _, reserved := metadata[k]; reserved {
			continue
		}
		metadata[k] = v
	}
}

// clip truncates s to at most max bytes.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
