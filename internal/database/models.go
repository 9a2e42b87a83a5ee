package database

import "time"

// Search outcomes stored in the log.
const (
	OutcomeMatched = "matched"
	OutcomeNoMatch = "no_match"
	OutcomeFailed  = "failed"
)

// SearchRecord is one attempted image search. Records are an audit trail
// only; they are never consulted when answering a new search.
type SearchRecord struct {
	ID            uint      `db:"id"`
	Transport     string    `db:"transport"`
	ChatID        string    `db:"chat_id"`
	MessageID     string    `db:"message_id"`
	UserID        string    `db:"user_id"`
	Threshold     float64   `db:"threshold"`
	Outcome       string    `db:"outcome"`
	AcceptedCount int       `db:"accepted_count"`
	ErrorCode     string    `db:"error_code"`
	CreatedAt     time.Time `db:"created_at"`
}

// SearchStats aggregates search outcomes over a time window.
type SearchStats struct {
	Total   int `db:"total"`
	Matched int `db:"matched"`
	NoMatch int `db:"no_match"`
	Failed  int `db:"failed"`
}
