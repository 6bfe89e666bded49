package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
}

// TicketCreateInput describes ticket creation payload. Category doubles as
// the issue-type label fed to the priority classifier when no explicit
// priority is supplied.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    string
	Priority    domain.TicketPriority
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket creates a ticket for a user. New tickets always start OPEN
// with a UTC creation timestamp assigned by the store.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" {
		return nil, errorutil.NewValidationError("title required", nil)
	}
	if description == "" {
		return nil, errorutil.NewValidationError("description required", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = ClassifyPriority(input.Category)
	} else if !domain.ValidPriority(priority) {
		return nil, errorutil.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		OwnerID:     actor.UserID,
		Title:       title,
		Description: description,
		Category:    strings.TrimSpace(input.Category),
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, errorutil.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket, ensuring the actor may see it.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin() && ticket.OwnerID != actor.UserID {
		return nil, errorutil.NewForbidden("not the ticket owner")
	}
	return ticket, nil
}

// SetStatus updates a ticket's lifecycle state. Status is freely settable
// to either value; closing is not one-way.
func (s *TicketService) SetStatus(ctx context.Context, actor domain.Actor, ticketID int64, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(newStatus) {
		return nil, errorutil.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}
	ticket, err := s.loadOwnedTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	if err := s.tickets.UpdateStatus(ctx, ticketID, newStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, errorutil.MapError(err)
	}
	ticket.Status = newStatus
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

// SetPriority changes a ticket's priority, bypassing the classifier.
func (s *TicketService) SetPriority(ctx context.Context, actor domain.Actor, ticketID int64, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	if !domain.ValidPriority(newPriority) {
		return nil, errorutil.NewValidationError("invalid priority", map[string]any{"priority": newPriority})
	}
	ticket, err := s.loadOwnedTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	oldPriority := ticket.Priority
	if err := s.tickets.UpdatePriority(ctx, ticketID, newPriority); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, errorutil.MapError(err)
	}
	ticket.Priority = newPriority
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: newPriority,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets in scope matching the status filter, further
// narrowed by searchTerm when present. Ordering is newest first.
func (s *TicketService) ListTickets(ctx context.Context, scope domain.Scope, status domain.TicketStatus, searchTerm string) ([]domain.Ticket, error) {
	if !domain.ValidStatus(status) {
		return nil, errorutil.NewValidationError("invalid status", map[string]any{"status": status})
	}
	filter := repository.TicketFilter{
		OwnerID: scope.OwnerID,
		Status:  &status,
	}
	if term := strings.TrimSpace(searchTerm); term != "" {
		filter.SearchTerm = &term
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	return tickets, nil
}

// Summary returns the open/closed/overdue counts for a scope. The counts
// cover the full status population in scope, independent of any search
// term active on a listing.
func (s *TicketService) Summary(ctx context.Context, scope domain.Scope) (domain.TicketSummary, error) {
	summary, err := s.tickets.CountByStatus(ctx, scope)
	if err != nil {
		return domain.TicketSummary{}, errorutil.MapError(err)
	}
	return summary, nil
}

// CategoryBreakdown groups all tickets by category label. Categories with
// no tickets are absent from the result.
func (s *TicketService) CategoryBreakdown(ctx context.Context) (map[string]int64, error) {
	breakdown, err := s.tickets.CategoryBreakdown(ctx)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	return breakdown, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, errorutil.MapError(err)
	}
	return ticket, nil
}

// loadOwnedTicket enforces ownership on mutations: a non-admin actor may
// only alter tickets they own.
func (s *TicketService) loadOwnedTicket(ctx context.Context, actor domain.Actor, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin() && ticket.OwnerID != actor.UserID {
		return nil, errorutil.NewForbidden("not the ticket owner")
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func eventActor(actor domain.Actor) events.Actor {
	return events.Actor{UserID: actor.UserID, Role: actor.Role}
}
