package upline

import (
	"context"
	"errors"
	"fmt"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/matrix"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/participant"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/pkg/logger"
)

// DefaultMaxChain bounds the upward walk. A chain longer than this means the
// tree is corrupt, not deep.
const DefaultMaxChain = 10000

// Ancestor is one compressed upline level. Level is the position the ancestor
// earns after inactive participants are skipped, not the raw tree distance.
type Ancestor struct {
	Participant participant.Participant
	Level       int
}

// Service resolves compressed uplines over the structural matrix tree.
type Service struct {
	participants storage.ParticipantStore
	matrix       storage.MatrixStore
	maxChain     int
	log          *logger.Logger
}

// New creates the resolver.
func New(participants storage.ParticipantStore, mstore storage.MatrixStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("upline")
	}
	return &Service{
		participants: participants,
		matrix:       mstore,
		maxChain:     DefaultMaxChain,
		log:          log,
	}
}

// Resolve walks tree parents upward from startID and returns up to levels
// active ancestors. Inactive participants are skipped without consuming a
// level, so compensation compresses onto the nearest active uplines. The walk
// stops early at the tree root.
func (s *Service) Resolve(ctx context.Context, startID string, levels int) ([]Ancestor, error) {
	if levels <= 0 {
		return nil, nil
	}

	visited := map[string]struct{}{startID: {}}
	ancestors := make([]Ancestor, 0, levels)
	current := startID

	for steps := 0; len(ancestors) < levels; steps++ {
		if steps >= s.maxChain {
			return nil, fmt.Errorf("resolve upline of %s: %w", startID, matrix.ErrCorruptSponsorGraph)
		}

		edge, err := s.matrix.GetEdgeByDownline(ctx, current)
		if errors.Is(err, storage.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("resolve upline of %s: %w", startID, err)
		}

		if _, seen := visited[edge.UplineID]; seen {
			return nil, fmt.Errorf("resolve upline of %s: %w", startID, matrix.ErrCorruptSponsorGraph)
		}
		visited[edge.UplineID] = struct{}{}

		p, err := s.participants.GetParticipant(ctx, edge.UplineID)
		if err != nil {
			return nil, fmt.Errorf("resolve upline of %s: %w", startID, err)
		}
		if p.Active() {
			ancestors = append(ancestors, Ancestor{Participant: p, Level: len(ancestors) + 1})
		}
		current = edge.UplineID
	}

	return ancestors, nil
}

// ResolveIDs is Resolve reduced to ordered participant IDs.
func (s *Service) ResolveIDs(ctx context.Context, startID string, levels int) ([]string, error) {
	ancestors, err := s.Resolve(ctx, startID, levels)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(ancestors))
	for i, a := range ancestors {
		ids[i] = a.Participant.ID
	}
	return ids, nil
}
