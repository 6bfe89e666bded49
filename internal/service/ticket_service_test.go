package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

// stubTicketRepo mirrors the filter/order semantics of the Postgres
// repository: status and scope are ANDed, search ORs a case-insensitive
// substring match on title/description with exact id equality for numeric
// terms, and listing orders by created_at then id, newest first.
type stubTicketRepo struct {
	nextID  int64
	clock   time.Time
	tickets map[int64]*domain.Ticket
}

func newStubTicketRepo() *stubTicketRepo {
	return &stubTicketRepo{
		nextID:  1,
		clock:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		tickets: make(map[int64]*domain.Ticket),
	}
}

func (r *stubTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = r.nextID
	r.nextID++
	r.clock = r.clock.Add(time.Minute)
	ticket.CreatedAt = r.clock
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *stubTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *stubTicketRepo) UpdateStatus(_ context.Context, id int64, status domain.TicketStatus) error {
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Status = status
	return nil
}

func (r *stubTicketRepo) UpdatePriority(_ context.Context, id int64, priority domain.TicketPriority) error {
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Priority = priority
	return nil
}

func (r *stubTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var matched []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.OwnerID != nil && ticket.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			titleMatch := strings.Contains(strings.ToLower(ticket.Title), term)
			descMatch := strings.Contains(strings.ToLower(ticket.Description), term)
			idMatch := false
			if id, err := strconv.ParseInt(term, 10, 64); err == nil {
				idMatch = ticket.ID == id
			}
			if !titleMatch && !descMatch && !idMatch {
				continue
			}
		}
		matched = append(matched, *ticket)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return matched, nil
}

func (r *stubTicketRepo) CountByStatus(_ context.Context, scope domain.Scope) (domain.TicketSummary, error) {
	var summary domain.TicketSummary
	for _, ticket := range r.tickets {
		if scope.OwnerID != nil && ticket.OwnerID != *scope.OwnerID {
			continue
		}
		if ticket.Status == domain.TicketStatusOpen {
			summary.Open++
		}
		if ticket.Status == domain.TicketStatusClosed {
			summary.Closed++
		} else {
			summary.Overdue++
		}
	}
	return summary, nil
}

func (r *stubTicketRepo) CategoryBreakdown(_ context.Context) (map[string]int64, error) {
	breakdown := make(map[string]int64)
	for _, ticket := range r.tickets {
		breakdown[ticket.Category]++
	}
	return breakdown, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var (
	alice = domain.Actor{UserID: 1, Role: domain.UserRoleUser}
	bob   = domain.Actor{UserID: 2, Role: domain.UserRoleUser}
	admin = domain.Actor{UserID: 99, Role: domain.UserRoleAdmin}
)

func newTicketService(repo repository.TicketRepository) *TicketService {
	return NewTicketService(TicketDependencies{TicketRepo: repo})
}

func mustCreate(t *testing.T, svc *TicketService, actor domain.Actor, input TicketCreateInput) *domain.Ticket {
	t.Helper()
	ticket, err := svc.CreateTicket(context.Background(), actor, input)
	if err != nil {
		t.Fatalf("CreateTicket(%q): %v", input.Title, err)
	}
	return ticket
}

func ticketIDs(tickets []domain.Ticket) []int64 {
	ids := make([]int64, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.ID)
	}
	return ids
}

// ---------------------------------------------------------------------------
// CreateTicket
// ---------------------------------------------------------------------------

func TestCreateTicket_DefaultsAndClassification(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)

	ticket := mustCreate(t, svc, alice, TicketCreateInput{
		Title:       "  Laptop broken  ",
		Description: "laptop won't boot",
		Category:    "Hardware Problem",
	})

	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("new ticket status = %q, want OPEN", ticket.Status)
	}
	if ticket.Priority != domain.TicketPriorityHigh {
		t.Errorf("classified priority = %q, want HIGH", ticket.Priority)
	}
	if ticket.Title != "Laptop broken" {
		t.Errorf("title not trimmed: %q", ticket.Title)
	}
	if ticket.OwnerID != alice.UserID {
		t.Errorf("owner = %d, want %d", ticket.OwnerID, alice.UserID)
	}
	if ticket.ID == 0 {
		t.Error("ticket id not assigned")
	}
	if ticket.CreatedAt.IsZero() {
		t.Error("CreatedAt must not be zero")
	}
}

func TestCreateTicket_ExplicitPriorityBypassesClassifier(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)

	ticket := mustCreate(t, svc, alice, TicketCreateInput{
		Title:       "VPN down",
		Description: "cannot connect",
		Category:    "Password Reset",
		Priority:    domain.TicketPriorityHigh,
	})
	if ticket.Priority != domain.TicketPriorityHigh {
		t.Errorf("priority = %q, want explicit HIGH", ticket.Priority)
	}
}

func TestCreateTicket_ValidationFailuresHaveNoSideEffect(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)

	cases := []TicketCreateInput{
		{Title: "", Description: "desc"},
		{Title: "   ", Description: "desc"},
		{Title: "title", Description: ""},
		{Title: "title", Description: "desc", Priority: "BANANAS"},
	}
	for _, input := range cases {
		if _, err := svc.CreateTicket(context.Background(), alice, input); !errorutil.IsCode(err, "VALIDATION_FAILED") {
			t.Errorf("input %+v: expected VALIDATION_FAILED, got %v", input, err)
		}
	}
	if len(repo.tickets) != 0 {
		t.Errorf("expected no tickets persisted after failed creates, got %d", len(repo.tickets))
	}
}

func TestCreateTicket_PublishesEvent(t *testing.T) {
	repo := newStubTicketRepo()
	dispatcher := events.NewInMemoryDispatcher()
	var captured []events.Event
	dispatcher.Subscribe(events.EventTicketCreated, func(_ context.Context, e events.Event) error {
		captured = append(captured, e)
		return nil
	})
	svc := NewTicketService(TicketDependencies{TicketRepo: repo, Dispatcher: dispatcher})

	ticket := mustCreate(t, svc, alice, TicketCreateInput{Title: "a", Description: "b", Category: "Other"})

	if len(captured) != 1 {
		t.Fatalf("expected 1 ticket_created event, got %d", len(captured))
	}
	if captured[0].TicketID != ticket.ID {
		t.Errorf("event ticket id = %d, want %d", captured[0].TicketID, ticket.ID)
	}
	if captured[0].Actor.UserID != alice.UserID {
		t.Errorf("event actor = %d, want %d", captured[0].Actor.UserID, alice.UserID)
	}
	if captured[0].ID == "" || captured[0].Timestamp.IsZero() {
		t.Error("event id and timestamp must be populated")
	}
}

// ---------------------------------------------------------------------------
// SetStatus / SetPriority
// ---------------------------------------------------------------------------

func TestSetStatus_UnknownTicketLeavesStoreUnchanged(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)
	existing := mustCreate(t, svc, alice, TicketCreateInput{Title: "t", Description: "d"})

	if _, err := svc.SetStatus(context.Background(), alice, 9999, domain.TicketStatusClosed); !errorutil.IsCode(err, "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	unaffected, err := svc.GetTicket(context.Background(), alice, existing.ID)
	if err != nil {
		t.Fatalf("read after failed update: %v", err)
	}
	if unaffected.Status != domain.TicketStatusOpen {
		t.Errorf("existing ticket mutated by failed update: status %q", unaffected.Status)
	}
}

func TestSetStatus_InvalidValueRejected(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)
	ticket := mustCreate(t, svc, alice, TicketCreateInput{Title: "t", Description: "d"})

	if _, err := svc.SetStatus(context.Background(), alice, ticket.ID, "ARCHIVED"); !errorutil.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestSetStatus_OwnershipEnforced(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)
	ticket := mustCreate(t, svc, alice, TicketCreateInput{Title: "t", Description: "d"})

	if _, err := svc.SetStatus(context.Background(), bob, ticket.ID, domain.TicketStatusClosed); !errorutil.IsCode(err, "FORBIDDEN") {
		t.Fatalf("expected FORBIDDEN for non-owner, got %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), admin, ticket.ID, domain.TicketStatusClosed); err != nil {
		t.Fatalf("admin should mutate any ticket: %v", err)
	}
}

func TestSetStatus_Reopen(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)
	ticket := mustCreate(t, svc, alice, TicketCreateInput{Title: "t", Description: "d"})

	if _, err := svc.SetStatus(context.Background(), alice, ticket.ID, domain.TicketStatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}
	reopened, err := svc.SetStatus(context.Background(), alice, ticket.ID, domain.TicketStatusOpen)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Status != domain.TicketStatusOpen {
		t.Errorf("status = %q after reopen, want OPEN", reopened.Status)
	}
}

func TestSetPriority_UpdatesAndValidates(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)
	ticket := mustCreate(t, svc, alice, TicketCreateInput{Title: "t", Description: "d", Category: "Other"})

	updated, err := svc.SetPriority(context.Background(), alice, ticket.ID, domain.TicketPriorityMedium)
	if err != nil {
		t.Fatalf("SetPriority: %v", err)
	}
	if updated.Priority != domain.TicketPriorityMedium {
		t.Errorf("priority = %q, want MEDIUM", updated.Priority)
	}

	if _, err := svc.SetPriority(context.Background(), alice, ticket.ID, "CRITICAL"); !errorutil.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("expected VALIDATION_FAILED for unknown priority, got %v", err)
	}
	if _, err := svc.SetPriority(context.Background(), alice, 4242, domain.TicketPriorityLow); !errorutil.IsCode(err, "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if _, err := svc.SetPriority(context.Background(), bob, ticket.ID, domain.TicketPriorityLow); !errorutil.IsCode(err, "FORBIDDEN") {
		t.Errorf("expected FORBIDDEN for non-owner, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Listing, search, ordering
// ---------------------------------------------------------------------------

func TestListTickets_StatusPartition(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)
	t1 := mustCreate(t, svc, alice, TicketCreateInput{Title: "one", Description: "d"})
	t2 := mustCreate(t, svc, alice, TicketCreateInput{Title: "two", Description: "d"})
	t3 := mustCreate(t, svc, alice, TicketCreateInput{Title: "three", Description: "d"})
	if _, err := svc.SetStatus(context.Background(), alice, t2.ID, domain.TicketStatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}

	scope := domain.ScopeOwner(alice.UserID)
	open, err := svc.ListTickets(context.Background(), scope, domain.TicketStatusOpen, "")
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	closed, err := svc.ListTickets(context.Background(), scope, domain.TicketStatusClosed, "")
	if err != nil {
		t.Fatalf("list closed: %v", err)
	}

	if len(open)+len(closed) != 3 {
		t.Errorf("partition omission: open=%d closed=%d", len(open), len(closed))
	}
	seen := make(map[int64]int)
	for _, ticket := range append(open, closed...) {
		seen[ticket.ID]++
	}
	for _, id := range []int64{t1.ID, t2.ID, t3.ID} {
		if seen[id] != 1 {
			t.Errorf("ticket %d appears %d times across partitions, want exactly 1", id, seen[id])
		}
	}
}

func TestListTickets_OrderingNewestFirst(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)
	t1 := mustCreate(t, svc, alice, TicketCreateInput{Title: "first", Description: "d"})
	t2 := mustCreate(t, svc, alice, TicketCreateInput{Title: "second", Description: "d"})
	t3 := mustCreate(t, svc, alice, TicketCreateInput{Title: "third", Description: "d"})

	tickets, err := svc.ListTickets(context.Background(), domain.ScopeOwner(alice.UserID), domain.TicketStatusOpen, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := ticketIDs(tickets)
	want := []int64{t3.ID, t2.ID, t1.ID}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ordering = %v, want %v", got, want)
		}
	}
}

func TestListTickets_SearchCaseInsensitive(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)
	mustCreate(t, svc, alice, TicketCreateInput{Title: "Hardware failure", Description: "screen flickers"})
	mustCreate(t, svc, alice, TicketCreateInput{Title: "email issue", Description: "HARDWARE related maybe"})
	mustCreate(t, svc, alice, TicketCreateInput{Title: "unrelated", Description: "nothing here"})

	scope := domain.ScopeOwner(alice.UserID)
	lower, err := svc.ListTickets(context.Background(), scope, domain.TicketStatusOpen, "hardware")
	if err != nil {
		t.Fatalf("search lower: %v", err)
	}
	upper, err := svc.ListTickets(context.Background(), scope, domain.TicketStatusOpen, "HARDWARE")
	if err != nil {
		t.Fatalf("search upper: %v", err)
	}

	if len(lower) != 2 {
		t.Errorf("expected 2 matches for 'hardware', got %d", len(lower))
	}
	lowerIDs, upperIDs := ticketIDs(lower), ticketIDs(upper)
	if len(lowerIDs) != len(upperIDs) {
		t.Fatalf("case sensitivity leak: %v vs %v", lowerIDs, upperIDs)
	}
	for i := range lowerIDs {
		if lowerIDs[i] != upperIDs[i] {
			t.Fatalf("case sensitivity leak: %v vs %v", lowerIDs, upperIDs)
		}
	}
}

func TestListTickets_NumericSearchMatchesID(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)
	mustCreate(t, svc, alice, TicketCreateInput{Title: "alpha", Description: "d"})
	mustCreate(t, svc, alice, TicketCreateInput{Title: "beta", Description: "d"})
	// Third ticket gets id 3; the fourth mentions "3" in its title.
	target := mustCreate(t, svc, alice, TicketCreateInput{Title: "gamma", Description: "d"})
	textual := mustCreate(t, svc, alice, TicketCreateInput{Title: "needs 3 reboots", Description: "d"})

	tickets, err := svc.ListTickets(context.Background(), domain.ScopeOwner(alice.UserID), domain.TicketStatusOpen, "3")
	if err != nil {
		t.Fatalf("numeric search: %v", err)
	}
	found := make(map[int64]bool)
	for _, ticket := range tickets {
		found[ticket.ID] = true
	}
	if !found[target.ID] {
		t.Errorf("exact id match missing: ticket %d not returned", target.ID)
	}
	if !found[textual.ID] {
		t.Errorf("textual '3' match missing: ticket %d not returned", textual.ID)
	}
	if len(tickets) != 2 {
		t.Errorf("expected exactly 2 matches, got %d", len(tickets))
	}
}

func TestListTickets_ScopeRestriction(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)
	mustCreate(t, svc, alice, TicketCreateInput{Title: "alice ticket", Description: "d"})
	mustCreate(t, svc, bob, TicketCreateInput{Title: "bob ticket", Description: "d"})

	mine, err := svc.ListTickets(context.Background(), domain.ScopeOwner(alice.UserID), domain.TicketStatusOpen, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].OwnerID != alice.UserID {
		t.Errorf("scope leak: %+v", mine)
	}

	all, err := svc.ListTickets(context.Background(), domain.ScopeAll(), domain.TicketStatusOpen, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("admin scope should see 2 tickets, got %d", len(all))
	}
}

// ---------------------------------------------------------------------------
// Summary and category breakdown
// ---------------------------------------------------------------------------

func TestSummary_MatchesListCountsIndependentOfSearch(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)
	mustCreate(t, svc, alice, TicketCreateInput{Title: "printer", Description: "d"})
	mustCreate(t, svc, alice, TicketCreateInput{Title: "monitor", Description: "d"})
	closedTicket := mustCreate(t, svc, alice, TicketCreateInput{Title: "keyboard", Description: "d"})
	if _, err := svc.SetStatus(context.Background(), alice, closedTicket.ID, domain.TicketStatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}

	scope := domain.ScopeOwner(alice.UserID)

	// A search narrows the visible list but must not affect the counts.
	searched, err := svc.ListTickets(context.Background(), scope, domain.TicketStatusOpen, "printer")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(searched) != 1 {
		t.Fatalf("expected 1 search hit, got %d", len(searched))
	}

	summary, err := svc.Summary(context.Background(), scope)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	open, _ := svc.ListTickets(context.Background(), scope, domain.TicketStatusOpen, "")
	closed, _ := svc.ListTickets(context.Background(), scope, domain.TicketStatusClosed, "")

	if summary.Open != int64(len(open)) {
		t.Errorf("open count = %d, list has %d", summary.Open, len(open))
	}
	if summary.Closed != int64(len(closed)) {
		t.Errorf("closed count = %d, list has %d", summary.Closed, len(closed))
	}
	if summary.Overdue != summary.Open {
		t.Errorf("overdue = %d, want %d (overdue is literally not-closed)", summary.Overdue, summary.Open)
	}
}

func TestCategoryBreakdown_GroupsAllTickets(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)
	mustCreate(t, svc, alice, TicketCreateInput{Title: "a", Description: "d", Category: "Hardware Problem"})
	mustCreate(t, svc, bob, TicketCreateInput{Title: "b", Description: "d", Category: "Hardware Problem"})
	mustCreate(t, svc, bob, TicketCreateInput{Title: "c", Description: "d", Category: "Email Access"})

	breakdown, err := svc.CategoryBreakdown(context.Background())
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if breakdown["Hardware Problem"] != 2 {
		t.Errorf("Hardware Problem = %d, want 2", breakdown["Hardware Problem"])
	}
	if breakdown["Email Access"] != 1 {
		t.Errorf("Email Access = %d, want 1", breakdown["Email Access"])
	}
	if _, present := breakdown["Password Reset"]; present {
		t.Error("empty categories must be absent, not zero-filled")
	}
}

// ---------------------------------------------------------------------------
// End-to-end lifecycle
// ---------------------------------------------------------------------------

func TestTicketLifecycle_SubmitCloseAndRecount(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(repo)

	ticket := mustCreate(t, svc, alice, TicketCreateInput{
		Title:       "Laptop",
		Description: "laptop won't boot",
		Category:    "Hardware Problem",
	})
	if ticket.Priority != domain.TicketPriorityHigh {
		t.Fatalf("priority = %q, want HIGH", ticket.Priority)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("status = %q, want OPEN", ticket.Status)
	}

	if _, err := svc.SetStatus(context.Background(), alice, ticket.ID, domain.TicketStatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}

	scope := domain.ScopeOwner(alice.UserID)
	open, _ := svc.ListTickets(context.Background(), scope, domain.TicketStatusOpen, "")
	closed, _ := svc.ListTickets(context.Background(), scope, domain.TicketStatusClosed, "")
	if len(open) != 0 {
		t.Errorf("open list should exclude closed ticket, got %v", ticketIDs(open))
	}
	if len(closed) != 1 || closed[0].ID != ticket.ID {
		t.Errorf("closed list should include ticket %d, got %v", ticket.ID, ticketIDs(closed))
	}

	summary, err := svc.Summary(context.Background(), scope)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Open != 0 || summary.Closed != 1 || summary.Overdue != 0 {
		t.Errorf("summary = %+v, want {Open:0 Closed:1 Overdue:0}", summary)
	}
}
