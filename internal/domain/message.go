package domain

import "time"

// Message is a single chat message in a share's append-only feed.
// Seq is assigned by the store and defines the order; CreatedAt is informational.
type Message struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// LogEntry is one activity record ("Bob edited a schedule").
// Entries are independent, so ordering by the client clock is good enough.
type LogEntry struct {
	ID       string    `json:"id"`
	ShareID  string    `json:"shareId"`
	User     string    `json:"user"`
	Action   string    `json:"action"`
	ClientTS time.Time `json:"clientTs"`
}
