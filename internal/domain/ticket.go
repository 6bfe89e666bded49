package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "OPEN"
	TicketStatusClosed TicketStatus = "CLOSED"
)

// ValidStatus reports whether s is a known lifecycle state. Status is
// freely settable in either direction; there is no one-way transition table.
func ValidStatus(s TicketStatus) bool {
	return s == TicketStatusOpen || s == TicketStatusClosed
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	return p == TicketPriorityLow || p == TicketPriorityMedium || p == TicketPriorityHigh
}

// Ticket is the aggregate for support requests. OwnerID references the
// submitting user; all fields except Status and Priority are immutable
// after creation.
type Ticket struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description string
	Category    string
	Status      TicketStatus
	Priority    TicketPriority
	CreatedAt   time.Time
}

// Overdue reports whether the ticket counts toward the overdue total.
// Currently this is literally "not closed"; a time-based SLA computation
// would replace this.
func (t *Ticket) Overdue() bool {
	return t.Status != TicketStatusClosed
}

// TicketSummary holds the per-scope dashboard counts.
type TicketSummary struct {
	Open    int64 `json:"open"`
	Closed  int64 `json:"closed"`
	Overdue int64 `json:"overdue"`
}
