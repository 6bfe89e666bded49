package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures list query parameters. A nil OwnerID means the
// whole system (admin scope).
type TicketFilter struct {
	OwnerID    *int64
	Status     *domain.TicketStatus
	SearchTerm *string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus) error
	UpdatePriority(ctx context.Context, id int64, priority domain.TicketPriority) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByStatus(ctx context.Context, scope domain.Scope) (domain.TicketSummary, error)
	CategoryBreakdown(ctx context.Context) (map[string]int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (owner_id, title, description, category, status, priority)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		ticket.OwnerID,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Status,
		ticket.Priority,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `
        SELECT id, owner_id, title, description, category, status, priority, created_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus) error {
	const query = `UPDATE tickets SET status=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) UpdatePriority(ctx context.Context, id int64, priority domain.TicketPriority) error {
	const query = `UPDATE tickets SET priority=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, priority, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args := buildListQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// buildListQuery assembles the parameterized SELECT for a filter. Search
// matches title or description case-insensitively; when the term parses as
// an integer it additionally matches the ticket id exactly. Ordering is
// newest first, tie-broken by id so results are deterministic.
func buildListQuery(filter TicketFilter) (string, []any) {
	base := `SELECT id, owner_id, title, description, category, status, priority, created_at
             FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		term := strings.TrimSpace(*filter.SearchTerm)
		args = append(args, "%"+strings.ToLower(term)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		textMatch := fmt.Sprintf("LOWER(title) LIKE %s OR LOWER(description) LIKE %s", placeholder, placeholder)
		if id, err := strconv.ParseInt(term, 10, 64); err == nil {
			args = append(args, id)
			clauses = append(clauses, fmt.Sprintf("(%s OR id=$%d)", textMatch, len(args)))
		} else {
			clauses = append(clauses, "("+textMatch+")")
		}
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC, id DESC`,
		base, strings.Join(clauses, " AND "))
	return query, args
}

func (r *ticketRepository) CountByStatus(ctx context.Context, scope domain.Scope) (domain.TicketSummary, error) {
	base := `SELECT
                COUNT(*) FILTER (WHERE status=$1),
                COUNT(*) FILTER (WHERE status=$2),
                COUNT(*) FILTER (WHERE status<>$2)
             FROM tickets`
	args := []any{domain.TicketStatusOpen, domain.TicketStatusClosed}

	query := base
	if scope.OwnerID != nil {
		args = append(args, *scope.OwnerID)
		query = fmt.Sprintf("%s WHERE owner_id=$%d", base, len(args))
	}

	var summary domain.TicketSummary
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&summary.Open,
		&summary.Closed,
		&summary.Overdue,
	); err != nil {
		return domain.TicketSummary{}, err
	}
	return summary, nil
}

func (r *ticketRepository) CategoryBreakdown(ctx context.Context) (map[string]int64, error) {
	const query = `SELECT category, COUNT(*) FROM tickets GROUP BY category`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := make(map[string]int64)
	for rows.Next() {
		var category string
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		breakdown[category] = count
	}
	return breakdown, rows.Err()
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.OwnerID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Category,
			&ticket.Status,
			&ticket.Priority,
			&ticket.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
