// Package transactions streams transaction counts by status to a client
// while the transactions-by-status view is active.
package transactions

import (
	"time"
)

// EventAddress is the event bus address carrying status change events
const EventAddress = "mtp.transactions.status"

// Status is a transaction processing status
type Status string

// Known statuses
const (
	StatusNew       Status = "NEW"
	StatusValidated Status = "VALIDATED"
	StatusProcessed Status = "PROCESSED"
	StatusFailed    Status = "FAILED"
	StatusInvalid   Status = "INVALID"
)

// Statuses lists the known statuses in processing order
var Statuses = []Status{StatusNew, StatusValidated, StatusProcessed, StatusFailed, StatusInvalid}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Event reports that a transaction reached Status. PreviousStatus is empty
// for a newly created transaction.
type Event struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	PreviousStatus Status    `json:"previousStatus,omitempty"`
	Time           time.Time `json:"time"`
}

// Snapshot is the number of transactions per status at a point in time
type Snapshot struct {
	Time   time.Time        `json:"time"`
	Counts map[Status]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

// NewSnapshot builds a snapshot from counts. Every known status is present.
func NewSnapshot(counts map[Status]int64, at time.Time) Snapshot {
	s := Snapshot{Time: at, Counts: make(map[Status]int64, len(Statuses))}
	for _, status := range Statuses {
		s.Counts[status] = 0
	}
	for status, n := range counts {
		s.Counts[status] = n
		s.Total += n
	}
	return s
}
