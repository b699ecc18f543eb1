package career

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/bonus"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/participant"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/plan"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/pkg/logger"
)

// maxSubtreeNodes bounds the downline walk when totalling line cycles.
const maxSubtreeNodes = 100000

// Progress describes a participant's standing on the pin ladder.
type Progress struct {
	ParticipantID string
	Pin           string
	TotalCycles   int
	OwnCycles     int
	LineCycles    map[string]int
	NextPin       string
	NextThreshold int
	ValidToward   int
}

// Service advances participants through the career pin ladder. Qualification
// counts completed cycles across the sponsor downline, with each direct line
// capped at the pin's line percentage so no single leg carries a promotion.
type Service struct {
	participants storage.ParticipantStore
	matrix       storage.MatrixStore
	bonuses      storage.BonusStore
	ledger       storage.LedgerStore
	plans        *plan.Store
	log          *logger.Logger
}

// New creates the career service.
func New(participants storage.ParticipantStore, mstore storage.MatrixStore, bonuses storage.BonusStore, ledger storage.LedgerStore, plans *plan.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("career")
	}
	return &Service{
		participants: participants,
		matrix:       mstore,
		bonuses:      bonuses,
		ledger:       ledger,
		plans:        plans,
		log:          log,
	}
}

// ApplyCycle recomputes the owner's career standing after a completed cycle
// and promotes through every pin now qualified for. Promotion rewards are
// ledger-credited once; reruns are no-ops because the reward record is keyed
// by owner and pin.
func (s *Service) ApplyCycle(ctx context.Context, ownerID string) (participant.Participant, error) {
	p, err := s.participants.GetParticipant(ctx, ownerID)
	if err != nil {
		return participant.Participant{}, fmt.Errorf("lookup participant: %w", err)
	}

	own, lines, err := s.cycleTotals(ctx, ownerID)
	if err != nil {
		return participant.Participant{}, err
	}

	total := own
	for _, n := range lines {
		total += n
	}

	cfg := s.plans.Current()
	current := pinIndex(cfg.Career.Pins, p.Pin)
	promotedTo := current
	for i := current + 1; i < len(cfg.Career.Pins); i++ {
		pin := cfg.Career.Pins[i]
		if !qualifies(pin, own, lines) {
			break
		}
		promotedTo = i
	}

	p.CareerCycles = total
	if promotedTo > current {
		for i := current + 1; i <= promotedTo; i++ {
			if err := s.awardPin(ctx, ownerID, cfg.Career.Pins[i]); err != nil {
				return participant.Participant{}, err
			}
		}
		p.Pin = cfg.Career.Pins[promotedTo].Name
		s.log.WithFields(map[string]interface{}{
			"participant": ownerID,
			"pin":         p.Pin,
			"cycles":      total,
		}).Info("career promotion")
	}

	updated, err := s.participants.UpdateParticipant(ctx, p)
	if err != nil {
		return participant.Participant{}, fmt.Errorf("update participant: %w", err)
	}
	return updated, nil
}

// ProgressFor reports where a participant stands toward the next pin.
func (s *Service) ProgressFor(ctx context.Context, participantID string) (Progress, error) {
	p, err := s.participants.GetParticipant(ctx, participantID)
	if err != nil {
		return Progress{}, fmt.Errorf("lookup participant: %w", err)
	}

	own, lines, err := s.cycleTotals(ctx, participantID)
	if err != nil {
		return Progress{}, err
	}

	total := own
	for _, n := range lines {
		total += n
	}

	prog := Progress{
		ParticipantID: participantID,
		Pin:           p.Pin,
		TotalCycles:   total,
		OwnCycles:     own,
		LineCycles:    lines,
	}
	cfg := s.plans.Current()
	next := pinIndex(cfg.Career.Pins, p.Pin) + 1
	if next < len(cfg.Career.Pins) {
		pin := cfg.Career.Pins[next]
		prog.NextPin = pin.Name
		prog.NextThreshold = pin.Threshold
		prog.ValidToward = validToward(pin, own, lines)
	}
	return prog, nil
}

// qualifies checks both requirements of a pin: enough valid cycles under the
// line caps, and enough distinct producing lines.
func qualifies(pin plan.Pin, own int, lines map[string]int) bool {
	if validToward(pin, own, lines) < pin.Threshold {
		return false
	}
	if pin.MinLines > 0 {
		producing := 0
		for _, n := range lines {
			if n > 0 {
				producing++
			}
		}
		if producing < pin.MinLines {
			return false
		}
	}
	return true
}

// validToward applies the pin's per-line cap: each direct line contributes at
// most MaxLinePct of the threshold; the owner's own cycles are uncapped.
func validToward(pin plan.Pin, own int, lines map[string]int) int {
	lineCap := int(math.Floor(float64(pin.Threshold) * pin.MaxLinePct / 100))
	valid := own
	for _, n := range lines {
		if n > lineCap {
			n = lineCap
		}
		valid += n
	}
	return valid
}

// cycleTotals returns the owner's own completed cycles and, per direct line,
// the completed cycles across that line's entire sponsor subtree.
func (s *Service) cycleTotals(ctx context.Context, ownerID string) (int, map[string]int, error) {
	ownCounts, err := s.matrix.CountCompletedCycles(ctx, []string{ownerID}, "")
	if err != nil {
		return 0, nil, fmt.Errorf("count own cycles: %w", err)
	}

	directs, err := s.participants.ListDirects(ctx, ownerID)
	if err != nil {
		return 0, nil, fmt.Errorf("list directs: %w", err)
	}

	lines := make(map[string]int, len(directs))
	for _, direct := range directs {
		ids, err := s.subtreeIDs(ctx, direct.ID)
		if err != nil {
			return 0, nil, err
		}
		counts, err := s.matrix.CountCompletedCycles(ctx, ids, "")
		if err != nil {
			return 0, nil, fmt.Errorf("count line cycles: %w", err)
		}
		lineTotal := 0
		for _, n := range counts {
			lineTotal += n
		}
		lines[direct.ID] = lineTotal
	}
	return ownCounts[ownerID], lines, nil
}

func (s *Service) subtreeIDs(ctx context.Context, rootID string) ([]string, error) {
	ids := []string{rootID}
	for i := 0; i < len(ids); i++ {
		if len(ids) > maxSubtreeNodes {
			return nil, fmt.Errorf("downline of %s exceeds %d nodes", rootID, maxSubtreeNodes)
		}
		directs, err := s.participants.ListDirects(ctx, ids[i])
		if err != nil {
			return nil, fmt.Errorf("list directs of %s: %w", ids[i], err)
		}
		for _, d := range directs {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}

func (s *Service) awardPin(ctx context.Context, ownerID string, pin plan.Pin) error {
	if pin.Reward <= 0 {
		return nil
	}

	origin := fmt.Sprintf("pin:%s", pin.Name)
	exists, err := s.bonuses.BonusRecordExists(ctx, origin, ownerID, bonus.PoolCareer, 0)
	if err != nil {
		return fmt.Errorf("check pin reward: %w", err)
	}
	if exists {
		return nil
	}

	rec := bonus.Record{
		ID:          uuid.NewString(),
		RecipientID: ownerID,
		Pool:        bonus.PoolCareer,
		Amount:      pin.Reward,
		OriginCycle: origin,
		OriginOwner: ownerID,
		Status:      bonus.StatusPaid,
	}
	entry := bonus.LedgerEntry{
		ID:            uuid.NewString(),
		ParticipantID: ownerID,
		Amount:        pin.Reward,
		Pool:          bonus.PoolCareer,
		Description:   fmt.Sprintf("career pin %s reward", pin.Name),
	}
	if _, err := s.ledger.CreditAward(ctx, rec, entry); err != nil {
		return fmt.Errorf("credit pin reward: %w", err)
	}
	return nil
}

func pinIndex(pins []plan.Pin, name string) int {
	for i, pin := range pins {
		if pin.Name == name {
			return i
		}
	}
	return -1
}
