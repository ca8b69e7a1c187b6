// Package queue defines the audit event exchanged over the message broker
// and the background consumer that records it.
package queue

// TextProcessedQueue is the durable queue audit events are published to.
const TextProcessedQueue = "text.processed"

// Operations carried in TextProcessedEvent.Operation.
const (
    OpSimplify = "simplify"
    OpDetect   = "detect"
)

// TextProcessedEvent is published after a text endpoint answered.  The input
// text itself is never included, only its size, so the audit trail holds no
// health details of the caller.
type TextProcessedEvent struct {
    EventID         string   `json:"event_id"`
    RequestID       string   `json:"request_id,omitempty"`
    Operation       string   `json:"operation"`
    InputChars      int      `json:"input_chars"`
    TermsReplaced   int      `json:"terms_replaced,omitempty"`
    DosageExplained bool     `json:"dosage_explained,omitempty"`
    Label           string   `json:"label,omitempty"`
    MatchedKeywords []string `json:"matched_keywords,omitempty"`
    ProcessedAt     string   `json:"processed_at"`
}
