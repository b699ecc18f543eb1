package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/bonus"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/matrix"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/metrics"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/plan"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/career"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/payout"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/ranking"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/upline"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/pkg/logger"
)

// DefaultBatchSize caps how many events one settlement pass drains.
const DefaultBatchSize = 100

// Service consumes cycle lifecycle events and turns completions into bonus
// records and ledger credits. Every award is keyed by (origin cycle,
// recipient, pool, level), so a retried event only pays the awards that did
// not land the first time.
type Service struct {
	participants storage.ParticipantStore
	matrix       storage.MatrixStore
	events       storage.EventStore
	bonuses      storage.BonusStore
	ledger       storage.LedgerStore
	upline       *upline.Service
	career       *career.Service
	board        ranking.Leaderboard
	plans        *plan.Store
	log          *logger.Logger
}

// New creates the settlement processor.
func New(
	participants storage.ParticipantStore,
	mstore storage.MatrixStore,
	events storage.EventStore,
	bonuses storage.BonusStore,
	ledger storage.LedgerStore,
	uplineSvc *upline.Service,
	careerSvc *career.Service,
	board ranking.Leaderboard,
	plans *plan.Store,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.NewDefault("settlement")
	}
	return &Service{
		participants: participants,
		matrix:       mstore,
		events:       events,
		bonuses:      bonuses,
		ledger:       ledger,
		upline:       uplineSvc,
		career:       careerSvc,
		board:        board,
		plans:        plans,
		log:          log,
	}
}

// ProcessPending settles unprocessed events in creation order and returns how
// many were fully settled. A failing event is left unprocessed for the next
// pass; later events still run because awards never depend on each other's
// ledger state.
func (s *Service) ProcessPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	pending, err := s.events.ListUnprocessedEvents(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list unprocessed events: %w", err)
	}

	settled := 0
	for _, ev := range pending {
		if err := s.ProcessEvent(ctx, ev); err != nil {
			s.log.WithError(err).WithField("event", ev.ID).Warn("settle event failed; will retry")
			continue
		}
		settled++
	}
	return settled, nil
}

// ProcessEvent settles a single event. Safe to call repeatedly.
func (s *Service) ProcessEvent(ctx context.Context, ev matrix.Event) error {
	if ev.Processed {
		return nil
	}
	if err := s.events.RecordEventAttempt(ctx, ev.ID); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	start := time.Now()

	switch ev.Type {
	case matrix.EventCycleOpened:
		// Bookkeeping only; nothing to pay.
	case matrix.EventCycleCompleted:
		if err := s.settleCompletion(ctx, ev); err != nil {
			metrics.RecordSettlement("failed", time.Since(start))
			return err
		}
		metrics.RecordSettlement("settled", time.Since(start))
	default:
		s.log.WithField("event", ev.ID).Warnf("unknown event type %q; dropping", ev.Type)
	}

	if err := s.events.MarkEventProcessed(ctx, ev.ID); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

func (s *Service) settleCompletion(ctx context.Context, ev matrix.Event) error {
	cycle, err := s.matrix.GetCycle(ctx, ev.CycleID)
	if err != nil {
		return fmt.Errorf("lookup cycle: %w", err)
	}
	if cycle.Status != matrix.CycleCompleted {
		return fmt.Errorf("cycle %s not completed", cycle.ID)
	}

	cfg := s.plans.Current()
	ancestors, err := s.upline.Resolve(ctx, cycle.OwnerID, len(cfg.Depth.Weights))
	if err != nil {
		return fmt.Errorf("resolve upline: %w", err)
	}

	uplineIDs := make([]string, 0, len(ancestors))
	fidelityIDs := make([]string, 0, len(ancestors))
	for _, a := range ancestors {
		uplineIDs = append(uplineIDs, a.Participant.ID)
		reentered, err := s.matrix.HasReentered(ctx, a.Participant.ID)
		if err != nil {
			return fmt.Errorf("check reentry of %s: %w", a.Participant.ID, err)
		}
		if reentered {
			fidelityIDs = append(fidelityIDs, a.Participant.ID)
		}
	}

	period := ranking.Period(ev.CreatedAt)
	standings, err := s.board.Top(ctx, period, len(cfg.TopRank.Weights))
	if err != nil {
		return fmt.Errorf("read leaderboard: %w", err)
	}

	breakdown := payout.Calculate(cfg, payout.Input{
		Base:           cycle.BaseValue,
		OwnerID:        cycle.OwnerID,
		Upline:         uplineIDs,
		FidelityUpline: fidelityIDs,
		Standings:      standings,
	})

	var failures int
	for _, award := range breakdown.Awards {
		if err := s.applyAward(ctx, cycle, period, award); err != nil {
			failures++
			s.log.WithError(err).WithFields(map[string]interface{}{
				"cycle":     cycle.ID,
				"recipient": award.RecipientID,
				"pool":      award.Pool,
			}).Error("apply award failed")
		}
	}
	if failures > 0 {
		return fmt.Errorf("cycle %s: %d of %d awards failed", cycle.ID, failures, len(breakdown.Awards))
	}

	// The leaderboard holds the absolute count of the owner's cycle awards
	// for the period, so a retried event rewrites the same score.
	count, err := s.bonuses.CountBonusRecords(ctx, cycle.OwnerID, bonus.PoolCycle, period)
	if err != nil {
		return fmt.Errorf("count cycle records: %w", err)
	}
	if count > 0 {
		if err := s.board.Record(ctx, period, cycle.OwnerID, count); err != nil {
			return fmt.Errorf("record leaderboard: %w", err)
		}
	}

	if _, err := s.career.ApplyCycle(ctx, cycle.OwnerID); err != nil {
		return fmt.Errorf("apply career cycle: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"cycle":  cycle.ID,
		"owner":  cycle.OwnerID,
		"total":  breakdown.Total(),
		"awards": len(breakdown.Awards),
	}).Info("cycle settled")
	return nil
}

// applyAward persists one award. An existing record means an earlier pass
// already settled it: the record and its credit are written atomically, so a
// record can never exist without its money. Career accruals are recorded
// without a ledger credit; pin rewards are credited separately by the career
// service.
func (s *Service) applyAward(ctx context.Context, cycle matrix.Cycle, period string, award bonus.Award) error {
	exists, err := s.bonuses.BonusRecordExists(ctx, cycle.ID, award.RecipientID, award.Pool, award.Level)
	if err != nil {
		return fmt.Errorf("check bonus record: %w", err)
	}
	if exists {
		return nil
	}

	rec := bonus.Record{
		ID:          uuid.NewString(),
		RecipientID: award.RecipientID,
		Pool:        award.Pool,
		Level:       award.Level,
		Amount:      award.Amount,
		OriginCycle: cycle.ID,
		OriginOwner: cycle.OwnerID,
		Period:      period,
		Status:      bonus.StatusPaid,
	}
	if award.Pool == bonus.PoolCareer {
		rec.Status = bonus.StatusAccrued
		if _, err := s.bonuses.CreateBonusRecord(ctx, rec); err != nil {
			return fmt.Errorf("create bonus record: %w", err)
		}
		return nil
	}

	entry := bonus.LedgerEntry{
		ID:            uuid.NewString(),
		ParticipantID: award.RecipientID,
		Amount:        award.Amount,
		Pool:          award.Pool,
		Description:   fmt.Sprintf("%s pool, cycle %s level %d", award.Pool, cycle.ID, award.Level),
	}
	if _, err := s.ledger.CreditAward(ctx, rec, entry); err != nil {
		return fmt.Errorf("credit award: %w", err)
	}
	metrics.RecordBonus(string(award.Pool), award.Amount)
	return nil
}
