package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/finverse/ledger-backend/internal/domain"
)

// CommentaryRepository implements domain.CommentaryRepository in process
type CommentaryRepository struct {
	mu    sync.RWMutex
	items []domain.Commentary
}

// NewCommentaryRepository creates an empty CommentaryRepository
func NewCommentaryRepository() *CommentaryRepository {
	return &CommentaryRepository{}
}

// Save stores a commentary entry
func (r *CommentaryRepository) Save(ctx context.Context, c *domain.Commentary) error {
	if c.ID == uuid.Nil {
		return errors.New("commentary ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *c
	stored.EventIDs = slices.Clone(c.EventIDs)
	r.items = append(r.items, stored)
	return nil
}

// ListByOwner retrieves the latest commentary for an owner, newest first
func (r *CommentaryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Commentary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Commentary, 0)
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		if r.items[i].OwnerID != ownerID {
			continue
		}
		c := r.items[i]
		c.EventIDs = slices.Clone(c.EventIDs)
		out = append(out, &c)
	}
	return out, nil
}
