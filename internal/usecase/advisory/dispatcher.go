// Package advisory turns committed ledger operations into commentary.
// It runs strictly after commit and can never affect a ledger outcome.
package advisory

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/usecase/ledger"
)

// Config bounds the worker pool
type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration // per collaborator call
}

// DefaultConfig is used when the server config leaves a field unset
var DefaultConfig = Config{Workers: 2, QueueSize: 64, Timeout: 10 * time.Second}

var _ ledger.CommitObserver = (*Dispatcher)(nil)

type job struct {
	ctx context.Context
	in  domain.AdvisoryContext
}

// Dispatcher is a ledger.CommitObserver feeding a bounded pool of workers
type Dispatcher struct {
	Collaborator   domain.AdvisoryCollaborator
	CommentaryRepo domain.CommentaryRepository
	Logger         *slog.Logger
	Clock          func() time.Time

	cfg    Config
	jobs   chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a new Dispatcher. Call Start before the first commit.
func NewDispatcher(collaborator domain.AdvisoryCollaborator, repo domain.CommentaryRepository, logger *slog.Logger, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig.QueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		Collaborator:   collaborator,
		CommentaryRepo: repo,
		Logger:         logger,
		Clock:          time.Now,
		cfg:            cfg,
		jobs:           make(chan job, cfg.QueueSize),
	}
}

// Start launches the workers
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.process(j)
			}
		}()
	}
}

// Stop refuses new work, lets the workers drain the queue and waits for them
// until ctx expires
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnCommit enqueues a commentary request without blocking the caller.
// When the queue is full the request is dropped with a warning.
func (d *Dispatcher) OnCommit(ctx context.Context, req ledger.Request, res *ledger.Result) {
	in := domain.AdvisoryContext{
		OwnerID:   req.OwnerID,
		Operation: string(res.Operation),
		State:     res.State,
		Events:    res.Events,
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.Logger.Warn("advisory dispatcher stopped, dropping request", "operation", in.Operation, "owner_id", in.OwnerID)
		return
	}

	select {
	case d.jobs <- job{ctx: context.WithoutCancel(ctx), in: in}:
	default:
		d.Logger.Warn("advisory queue full, dropping request",
			"operation", in.Operation,
			"owner_id", in.OwnerID,
			"queue_size", d.cfg.QueueSize,
		)
	}
}

// process asks the collaborator for commentary and stores the outcome.
// Any failure is stored as the fixed fallback text.
func (d *Dispatcher) process(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.cfg.Timeout)
	defer cancel()

	text, err := d.Collaborator.GenerateCommentary(ctx, j.in)
	text = strings.TrimSpace(text)
	available := err == nil && text != ""
	if !available {
		if err == nil {
			err = errors.New("empty commentary")
		}
		d.Logger.Warn("advisory generation failed",
			"operation", j.in.Operation,
			"owner_id", j.in.OwnerID,
			"error", err,
		)
		text = domain.NoInsightAvailable
	}

	eventIDs := make([]uuid.UUID, 0, len(j.in.Events))
	for _, e := range j.in.Events {
		eventIDs = append(eventIDs, e.ID)
	}

	c := &domain.Commentary{
		ID:        uuid.New(),
		OwnerID:   j.in.OwnerID,
		Operation: j.in.Operation,
		EventIDs:  eventIDs,
		Text:      text,
		Available: available,
		CreatedAt: d.Clock().UTC(),
	}
	if err := d.CommentaryRepo.Save(j.ctx, c); err != nil {
		d.Logger.Error("failed to save commentary", "owner_id", c.OwnerID, "error", err)
	}
}
