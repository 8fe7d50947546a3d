package api

import "time"

// Company is a single persisted named entity. ID is assigned by the store
// on insert and never reused.
type Company struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Snapshot is the full ordered contents of a store at one point in its
// write history. Companies are sorted by ascending ID.
type Snapshot struct {
	Version   uint64    `json:"version"`
	Companies []Company `json:"companies"`
}

// Len returns the number of companies in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Companies)
}

// Notification is a user-visible alert raised after a company is added.
type Notification struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Company   *Company  `json:"company,omitempty"`
}
