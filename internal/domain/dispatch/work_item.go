package dispatch

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WorkItem is the message enqueued per upload event and consumed by the
// transcription worker.
type WorkItem struct {
	ObjectKey string `json:"object_key"`
	Filename  string `json:"filename"`
	Extension string `json:"extension"`
	SessionID string `json:"session_or_case_id"`
}

// PartitionKey constrains relative ordering: all uploads for one session are
// processed in arrival order, different sessions process independently.
func (w WorkItem) PartitionKey() string {
	return w.SessionID
}

// NewDedupKey builds the queue deduplication id. The timestamp and random
// suffix mean true duplicate events for the same object are only reduced in
// probability, not eliminated; the worker's job-level idempotency check is
// the authoritative dedup mechanism.
func (w WorkItem) NewDedupKey() string {
	return fmt.Sprintf("%s-%d-%s", w.ObjectKey, time.Now().UnixMilli(), uuid.NewString()[:8])
}

// ParseObjectKey decodes a raw object key from a store event into a work
// item. Keys look like {sessionOrCaseId}/{artifactId}/{filename}; anything
// without a directory part is attributed to the "unknown" session.
func ParseObjectKey(raw string) (WorkItem, error) {
	decoded, err := url.QueryUnescape(strings.ReplaceAll(raw, "+", " "))
	if err != nil {
		return WorkItem{}, fmt.Errorf("decode object key %q: %w", raw, err)
	}
	if decoded == "" {
		return WorkItem{}, fmt.Errorf("empty object key")
	}

	filename := decoded
	sessionID := "unknown"
	if idx := strings.LastIndex(decoded, "/"); idx >= 0 {
		filename = decoded[idx+1:]
		// A leading slash yields an empty first segment; an empty
		// MessageGroupId is rejected by the queue, so fall back to the same
		// bucket as keys without a directory part.
		if first := strings.Index(decoded, "/"); first > 0 {
			sessionID = decoded[:first]
		}
	}

	extension := ""
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		extension = filename[idx+1:]
	}

	return WorkItem{
		ObjectKey: decoded,
		Filename:  filename,
		Extension: extension,
		SessionID: sessionID,
	}, nil
}
