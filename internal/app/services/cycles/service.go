package cycles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/matrix"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/metrics"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/plan"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/pkg/logger"
)

// Service owns the cycle lifecycle. It is the only component that opens,
// fills and seals cycles; everything downstream reacts to the events it
// appends.
type Service struct {
	matrix storage.MatrixStore
	events storage.EventStore
	plans  *plan.Store
	log    *logger.Logger
	now    func() time.Time
}

// New creates the cycle manager.
func New(mstore storage.MatrixStore, events storage.EventStore, plans *plan.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("cycles")
	}
	return &Service{
		matrix: mstore,
		events: events,
		plans:  plans,
		log:    log,
		now:    time.Now,
	}
}

// GetOrOpen returns the owner's open cycle, lazily opening cycle number one
// for owners who never cycled. Owners whose latest cycle completed must go
// through Reenter; for them matrix.ErrNoOpenCycle is returned.
func (s *Service) GetOrOpen(ctx context.Context, ownerID string) (matrix.Cycle, error) {
	c, err := s.matrix.GetOpenCycle(ctx, ownerID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return matrix.Cycle{}, fmt.Errorf("get open cycle: %w", err)
	}

	existing, err := s.matrix.ListCycles(ctx, ownerID)
	if err != nil {
		return matrix.Cycle{}, fmt.Errorf("list cycles: %w", err)
	}
	if len(existing) > 0 {
		return matrix.Cycle{}, fmt.Errorf("owner %s: %w", ownerID, matrix.ErrNoOpenCycle)
	}
	return s.open(ctx, ownerID, 1)
}

// Fill takes the next slot of the given cycle for occupantID using the
// caller's view of the filled count as the concurrency guard. When the sixth
// slot fills, the store seals the cycle and a completion event is appended.
func (s *Service) Fill(ctx context.Context, c matrix.Cycle, occupantID string) (matrix.Cycle, error) {
	filled, err := s.matrix.FillSlot(ctx, c.ID, c.SlotsFilled, occupantID)
	if err != nil {
		return matrix.Cycle{}, err
	}

	if filled.Status == matrix.CycleCompleted {
		ev := matrix.Event{
			ID:          uuid.NewString(),
			Type:        matrix.EventCycleCompleted,
			CycleID:     filled.ID,
			OwnerID:     filled.OwnerID,
			CycleNumber: filled.Number,
			BaseValue:   filled.BaseValue,
		}
		if _, err := s.events.AppendEvent(ctx, ev); err != nil {
			return matrix.Cycle{}, fmt.Errorf("append completion event for cycle %s: %w", filled.ID, err)
		}
		metrics.RecordCycleCompleted()
		s.log.WithFields(map[string]interface{}{
			"owner": filled.OwnerID,
			"cycle": filled.ID,
			"num":   filled.Number,
		}).Info("cycle completed")
	}
	return filled, nil
}

// Reenter opens the owner's next cycle after a completion, enforcing the
// monthly reentry quota.
func (s *Service) Reenter(ctx context.Context, ownerID string) (matrix.Cycle, error) {
	existing, err := s.matrix.ListCycles(ctx, ownerID)
	if err != nil {
		return matrix.Cycle{}, fmt.Errorf("list cycles: %w", err)
	}
	if len(existing) == 0 {
		return matrix.Cycle{}, fmt.Errorf("owner %s has never cycled: %w", ownerID, matrix.ErrCycleNotCompleted)
	}
	latest := existing[len(existing)-1]
	if latest.Status != matrix.CycleCompleted {
		return matrix.Cycle{}, fmt.Errorf("owner %s cycle %d: %w", ownerID, latest.Number, matrix.ErrCycleNotCompleted)
	}

	period := s.now().UTC().Format("2006-01")
	used, err := s.matrix.CountReentries(ctx, ownerID, period)
	if err != nil {
		return matrix.Cycle{}, fmt.Errorf("count reentries: %w", err)
	}
	limit := s.plans.Current().Reentry.MonthlyLimit
	if used >= limit {
		return matrix.Cycle{}, fmt.Errorf("owner %s used %d/%d reentries in %s: %w",
			ownerID, used, limit, period, matrix.ErrReentryLimit)
	}

	return s.open(ctx, ownerID, latest.Number+1)
}

func (s *Service) open(ctx context.Context, ownerID string, number int) (matrix.Cycle, error) {
	c := matrix.Cycle{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Number:    number,
		Status:    matrix.CycleOpen,
		BaseValue: s.plans.Current().Cycle.BaseValue,
		OpenedAt:  s.now().UTC(),
	}
	created, err := s.matrix.CreateCycle(ctx, c)
	if err != nil {
		return matrix.Cycle{}, fmt.Errorf("create cycle %d for %s: %w", number, ownerID, err)
	}

	ev := matrix.Event{
		ID:          uuid.NewString(),
		Type:        matrix.EventCycleOpened,
		CycleID:     created.ID,
		OwnerID:     ownerID,
		CycleNumber: number,
		BaseValue:   created.BaseValue,
	}
	if _, err := s.events.AppendEvent(ctx, ev); err != nil {
		return matrix.Cycle{}, fmt.Errorf("append open event for cycle %s: %w", created.ID, err)
	}

	s.log.WithFields(map[string]interface{}{"owner": ownerID, "num": number}).Info("cycle opened")
	return created, nil
}

// HasReentered reports whether the owner ever opened a second cycle. Used for
// fidelity pool eligibility.
func (s *Service) HasReentered(ctx context.Context, ownerID string) (bool, error) {
	return s.matrix.HasReentered(ctx, ownerID)
}
