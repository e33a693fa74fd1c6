package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NoInsightAvailable is stored when the advisory collaborator fails
const NoInsightAvailable = "No insight available."

// Commentary is advisory text generated after a commit. It is never part of the atomic unit.
type Commentary struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Operation string
	EventIDs  []uuid.UUID
	Text      string
	Available bool
	CreatedAt time.Time
}

// AdvisoryContext is what the collaborator sees about a settled operation
type AdvisoryContext struct {
	OwnerID   uuid.UUID
	Operation string
	State     Entity
	Events    []*LedgerEvent
}

// AdvisoryCollaborator produces human readable commentary for a settled operation
type AdvisoryCollaborator interface {
	GenerateCommentary(ctx context.Context, in AdvisoryContext) (string, error)
}
