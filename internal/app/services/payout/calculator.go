package payout

import (
	"math"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/bonus"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/plan"
)

// Standing is one leaderboard position, 1-based.
type Standing struct {
	ParticipantID string
	Position      int
}

// Input carries everything the calculator needs, pre-resolved. Upline and
// FidelityUpline are ordered nearest-first and already compressed to active
// (respectively reentered) participants.
type Input struct {
	Base           float64
	OwnerID        string
	Upline         []string
	FidelityUpline []string
	Standings      []Standing
}

// Calculate produces the full award breakdown for one completed cycle. It is
// deterministic and touches no storage. Each pool amount is rounded to cents
// before its shares are, so repeated runs produce identical figures.
func Calculate(cfg plan.Config, in Input) bonus.Breakdown {
	awards := make([]bonus.Award, 0, 2+2*len(cfg.Depth.Weights)+len(in.Standings))

	awards = append(awards, bonus.Award{
		RecipientID: in.OwnerID,
		Pool:        bonus.PoolCycle,
		Amount:      round2(in.Base * cfg.Cycle.PayoutPct / 100),
	})

	depthPool := round2(in.Base * cfg.Depth.TotalPct / 100)
	awards = append(awards, distributeLevels(bonus.PoolDepth, depthPool, cfg.Depth.Weights, in.Upline)...)

	fidelityPool := round2(in.Base * cfg.Fidelity.TotalPct / 100)
	awards = append(awards, distributeLevels(bonus.PoolFidelity, fidelityPool, cfg.Depth.Weights, in.FidelityUpline)...)

	topPool := round2(in.Base * cfg.TopRank.TotalPct / 100)
	for _, st := range in.Standings {
		if st.Position < 1 || st.Position > len(cfg.TopRank.Weights) {
			continue
		}
		awards = append(awards, bonus.Award{
			RecipientID: st.ParticipantID,
			Pool:        bonus.PoolTopRank,
			Level:       st.Position,
			Amount:      round2(topPool * cfg.TopRank.Weights[st.Position-1] / 100),
		})
	}

	awards = append(awards, bonus.Award{
		RecipientID: in.OwnerID,
		Pool:        bonus.PoolCareer,
		Amount:      round2(in.Base * cfg.Career.TotalPct / 100),
	})

	return bonus.Breakdown{Base: in.Base, Awards: awards}
}

// distributeLevels splits a pool over weighted levels. Level i pays the i-th
// recipient; when the line is shorter than the weight vector, the shares of
// the missing levels roll to the deepest recipient present. An empty line
// leaves the pool undistributed.
func distributeLevels(pool bonus.Pool, amount float64, weights []float64, line []string) []bonus.Award {
	if len(line) == 0 || amount <= 0 {
		return nil
	}

	awards := make([]bonus.Award, 0, len(weights))
	for i, weight := range weights {
		share := round2(amount * weight / 100)
		if share <= 0 {
			continue
		}
		idx := i
		if idx >= len(line) {
			idx = len(line) - 1
		}
		awards = append(awards, bonus.Award{
			RecipientID: line[idx],
			Pool:        pool,
			Level:       i + 1,
			Amount:      share,
		})
	}
	return awards
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
