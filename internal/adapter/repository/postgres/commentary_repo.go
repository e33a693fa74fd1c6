package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/finverse/ledger-backend/internal/domain"
)

// commentaryRepository implements domain.CommentaryRepository
type commentaryRepository struct {
	db *DB
}

// NewCommentaryRepository creates a new commentary repository
func NewCommentaryRepository(db *DB) domain.CommentaryRepository {
	return &commentaryRepository{db: db}
}

// Save stores a commentary entry
func (r *commentaryRepository) Save(ctx context.Context, c *domain.Commentary) error {
	query := `
		INSERT INTO commentary (id, owner_id, operation, event_ids, text, available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	eventIDs := make([]string, 0, len(c.EventIDs))
	for _, id := range c.EventIDs {
		eventIDs = append(eventIDs, id.String())
	}

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.OwnerID,
		c.Operation,
		pq.Array(eventIDs),
		c.Text,
		c.Available,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save commentary: %w", err)
	}

	return nil
}

// ListByOwner retrieves the latest commentary for an owner, newest first
func (r *commentaryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Commentary, error) {
	query := `
		SELECT id, owner_id, operation, event_ids, text, available, created_at
		FROM commentary
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list commentary: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.Commentary, 0)
	for rows.Next() {
		var c domain.Commentary
		var eventIDs []string
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Operation, pq.Array(&eventIDs), &c.Text, &c.Available, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan commentary: %w", err)
		}

		c.EventIDs = make([]uuid.UUID, 0, len(eventIDs))
		for _, s := range eventIDs {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("failed to parse event id: %w", err)
			}
			c.EventIDs = append(c.EventIDs, id)
		}
		items = append(items, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commentary: %w", err)
	}

	return items, nil
}
