package service

import (
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// defaultPriorities maps an issue-type label to the priority a new ticket
// starts with. Consulted only at creation; later priority edits bypass it.
var defaultPriorities = map[string]domain.TicketPriority{
	"password reset":        domain.TicketPriorityLow,
	"software installation": domain.TicketPriorityMedium,
	"hardware problem":      domain.TicketPriorityHigh,
	"network connectivity":  domain.TicketPriorityHigh,
	"email access":          domain.TicketPriorityMedium,
	"other":                 domain.TicketPriorityLow,
}

// ClassifyPriority maps a free-form issue-type label to its default
// priority. Matching is trimmed and case-insensitive; unknown or missing
// labels default to LOW.
func ClassifyPriority(issueType string) domain.TicketPriority {
	key := strings.ToLower(strings.TrimSpace(issueType))
	if priority, ok := defaultPriorities[key]; ok {
		return priority
	}
	return domain.TicketPriorityLow
}
