package bonus

import "time"

// Pool identifies which compensation pool produced an award.
type Pool string

const (
	PoolCycle    Pool = "cycle"
	PoolDepth    Pool = "depth"
	PoolFidelity Pool = "fidelity"
	PoolTopRank  Pool = "top_rank"
	PoolCareer   Pool = "career"
)

// Status of a bonus record. Paid records have a matching ledger credit;
// accrued records are career bookkeeping without an immediate credit.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusAccrued Status = "accrued"
)

// Record is one award produced by settling a completed cycle. The tuple
// (OriginCycleID, RecipientID, Pool, Level) is unique and makes settlement
// retries idempotent.
type Record struct {
	ID          string
	RecipientID string
	Pool        Pool
	Level       int
	Amount      float64
	OriginCycle string
	OriginOwner string
	Period      string
	Status      Status
	CreatedAt   time.Time
}

// LedgerAccount holds a participant's running balance. LifetimeReceived only
// grows; Balance will diverge from it once withdrawals exist.
type LedgerAccount struct {
	ParticipantID    string
	Balance          float64
	LifetimeReceived float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LedgerEntry is the audit trail of a single balance mutation.
type LedgerEntry struct {
	ID            string
	ParticipantID string
	Amount        float64
	Pool          Pool
	Description   string
	BalanceAfter  float64
	CreatedAt     time.Time
}

// Award is a computed share before persistence: who gets how much from
// which pool and at which level (zero when the pool has no level notion).
type Award struct {
	RecipientID string
	Pool        Pool
	Level       int
	Amount      float64
}

// Breakdown is the full output of the calculator for one completed cycle.
type Breakdown struct {
	Base   float64
	Awards []Award
}

// Total sums all award amounts in the breakdown.
func (b Breakdown) Total() float64 {
	var total float64
	for _, a := range b.Awards {
		total += a.Amount
	}
	return total
}
