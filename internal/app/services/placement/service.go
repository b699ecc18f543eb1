package placement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/matrix"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/participant"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/metrics"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/cycles"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/pkg/logger"
)

const (
	// DefaultSearchDepth bounds how many tree generations the spillover
	// search may descend before giving up with matrix.ErrNoVacancy.
	DefaultSearchDepth = 128

	// fillRetries bounds how often a placement retries after losing a slot
	// to a concurrent writer.
	fillRetries = 5
)

// Placement is the outcome of placing one participant.
type Placement struct {
	Edge  matrix.Edge
	Cycle matrix.Cycle
}

// Service registers participants and places them in the spillover matrix.
type Service struct {
	participants storage.ParticipantStore
	matrix       storage.MatrixStore
	cycles       *cycles.Service
	searchDepth  int
	log          *logger.Logger
}

// New creates the placement engine.
func New(participants storage.ParticipantStore, mstore storage.MatrixStore, cyclesSvc *cycles.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("placement")
	}
	return &Service{
		participants: participants,
		matrix:       mstore,
		cycles:       cyclesSvc,
		searchDepth:  DefaultSearchDepth,
		log:          log,
	}
}

// Register creates a participant under a sponsor and places them. A
// participant with an empty sponsor becomes the network root and occupies no
// slot.
func (s *Service) Register(ctx context.Context, p participant.Participant) (participant.Participant, *Placement, error) {
	if strings.TrimSpace(p.Name) == "" {
		return participant.Participant{}, nil, fmt.Errorf("participant name is required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	if p.SponsorID != "" {
		if p.SponsorID == p.ID {
			return participant.Participant{}, nil, fmt.Errorf("participant %s: %w", p.ID, matrix.ErrSelfOrAncestorPlacement)
		}
		if _, err := s.participants.GetParticipant(ctx, p.SponsorID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return participant.Participant{}, nil, fmt.Errorf("sponsor %s: %w", p.SponsorID, matrix.ErrSponsorNotFound)
			}
			return participant.Participant{}, nil, fmt.Errorf("lookup sponsor: %w", err)
		}
	}

	created, err := s.participants.CreateParticipant(ctx, p)
	if err != nil {
		return participant.Participant{}, nil, fmt.Errorf("create participant: %w", err)
	}

	if created.SponsorID == "" {
		s.log.WithField("participant", created.ID).Info("network root registered")
		return created, nil, nil
	}

	placement, err := s.Place(ctx, created.ID)
	if err != nil {
		return participant.Participant{}, nil, err
	}
	return created, placement, nil
}

// SetStatus activates or deactivates a participant. Deactivated participants
// keep their position but are skipped by upline compression until reactivated.
func (s *Service) SetStatus(ctx context.Context, participantID string, status participant.Status) (participant.Participant, error) {
	if status != participant.StatusActive && status != participant.StatusInactive {
		return participant.Participant{}, fmt.Errorf("unknown status %q", status)
	}
	p, err := s.participants.GetParticipant(ctx, participantID)
	if err != nil {
		return participant.Participant{}, fmt.Errorf("lookup participant: %w", err)
	}
	if p.Status == status {
		return p, nil
	}
	p.Status = status
	updated, err := s.participants.UpdateParticipant(ctx, p)
	if err != nil {
		return participant.Participant{}, fmt.Errorf("update participant: %w", err)
	}
	s.log.WithFields(map[string]interface{}{"participant": participantID, "status": status}).Info("participant status changed")
	return updated, nil
}

// Place finds a vacant slot for an already-created participant via balanced
// spillover under their sponsor and fills it. The slot write is guarded by a
// compare-and-set on the cycle's filled count; on conflict the search reruns
// against fresh state.
func (s *Service) Place(ctx context.Context, participantID string) (*Placement, error) {
	p, err := s.participants.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("lookup participant: %w", err)
	}
	if p.SponsorID == "" {
		return nil, fmt.Errorf("participant %s has no sponsor", participantID)
	}
	if _, err := s.matrix.GetEdgeByDownline(ctx, participantID); err == nil {
		return nil, fmt.Errorf("participant %s: %w", participantID, matrix.ErrAlreadyPlaced)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup placement: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < fillRetries; attempt++ {
		ownerID, err := s.findVacancy(ctx, p.SponsorID, participantID)
		if err != nil {
			return nil, err
		}

		cycle, err := s.cycles.GetOrOpen(ctx, ownerID)
		if err != nil {
			if errors.Is(err, matrix.ErrNoOpenCycle) {
				// Owner sealed between selection and fill. Rerun.
				lastErr = err
				continue
			}
			return nil, err
		}

		filled, err := s.cycles.Fill(ctx, cycle, participantID)
		if err != nil {
			if errors.Is(err, matrix.ErrSlotConflict) || errors.Is(err, matrix.ErrNoOpenCycle) {
				lastErr = err
				continue
			}
			return nil, err
		}

		edge := matrix.Edge{
			ID:         uuid.NewString(),
			UplineID:   ownerID,
			DownlineID: participantID,
			Slot:       filled.SlotsFilled,
			Level:      1,
		}
		createdEdge, err := s.matrix.CreateEdge(ctx, edge)
		if err != nil {
			return nil, fmt.Errorf("create edge: %w", err)
		}

		metrics.RecordPlacement("placed")
		s.log.WithFields(map[string]interface{}{
			"participant": participantID,
			"upline":      ownerID,
			"slot":        edge.Slot,
		}).Info("participant placed")
		return &Placement{Edge: createdEdge, Cycle: filled}, nil
	}
	metrics.RecordPlacement("conflict")
	return nil, fmt.Errorf("place %s after %d attempts: %w", participantID, fillRetries, lastErr)
}

// findVacancy runs the balanced breadth-first search: starting at the
// sponsor, each generation's candidates are ranked by fewest occupied slots
// with earlier-placed nodes winning ties, and the frontier expands to the
// concatenated children of the current generation.
func (s *Service) findVacancy(ctx context.Context, sponsorID, placingID string) (string, error) {
	frontier := []string{sponsorID}
	seen := map[string]struct{}{sponsorID: {}}

	for depth := 0; depth < s.searchDepth; depth++ {
		bestID := ""
		bestOccupied := matrix.Width

		for _, nodeID := range frontier {
			if nodeID == placingID {
				return "", fmt.Errorf("participant %s in own spillover frontier: %w", placingID, matrix.ErrSelfOrAncestorPlacement)
			}
			occupied, eligible, err := s.occupancy(ctx, nodeID)
			if err != nil {
				return "", err
			}
			if !eligible || occupied >= matrix.Width {
				continue
			}
			if occupied < bestOccupied {
				bestOccupied = occupied
				bestID = nodeID
			}
		}
		if bestID != "" {
			return bestID, nil
		}

		next := make([]string, 0, len(frontier)*matrix.Width)
		for _, nodeID := range frontier {
			children, err := s.matrix.ListChildren(ctx, nodeID)
			if err != nil {
				return "", fmt.Errorf("list children of %s: %w", nodeID, err)
			}
			for _, child := range children {
				if _, ok := seen[child.DownlineID]; ok {
					return "", fmt.Errorf("node %s appears twice in tree: %w", child.DownlineID, matrix.ErrCorruptSponsorGraph)
				}
				seen[child.DownlineID] = struct{}{}
				next = append(next, child.DownlineID)
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}
	metrics.RecordPlacement("no_vacancy")
	return "", fmt.Errorf("no vacancy under sponsor %s: %w", sponsorID, matrix.ErrNoVacancy)
}

// occupancy reports how many slots a node's current cycle has taken and
// whether the node may receive placements at all. Owners whose latest cycle
// completed are full until they explicitly reenter; owners who never cycled
// count as empty because their first cycle opens lazily.
func (s *Service) occupancy(ctx context.Context, ownerID string) (int, bool, error) {
	open, err := s.matrix.GetOpenCycle(ctx, ownerID)
	if err == nil {
		return open.SlotsFilled, true, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, false, fmt.Errorf("open cycle of %s: %w", ownerID, err)
	}

	existing, err := s.matrix.ListCycles(ctx, ownerID)
	if err != nil {
		return 0, false, fmt.Errorf("cycles of %s: %w", ownerID, err)
	}
	if len(existing) > 0 {
		return matrix.Width, false, nil
	}
	return 0, true, nil
}
