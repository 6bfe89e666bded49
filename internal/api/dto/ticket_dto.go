package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload. Category carries the issue-type label; when
// priority is omitted the classifier derives it from the category.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Priority    domain.TicketPriority `json:"priority,omitempty"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// TicketResponse describes a ticket.
type TicketResponse struct {
	ID          int64                 `json:"id"`
	OwnerID     int64                 `json:"owner_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    string                `json:"category,omitempty"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedAt   time.Time             `json:"created_at"`
}

// SummaryResponse carries the dashboard counts for a scope.
type SummaryResponse struct {
	Open    int64 `json:"open"`
	Closed  int64 `json:"closed"`
	Overdue int64 `json:"overdue"`
}

// CategoryBreakdownResponse maps category labels to ticket counts.
type CategoryBreakdownResponse struct {
	Categories map[string]int64 `json:"categories"`
}
