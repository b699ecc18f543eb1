package storage

import (
	"context"
	"errors"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/bonus"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/matrix"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/participant"
)

// ErrNotFound is wrapped by every store when a record does not exist.
var ErrNotFound = errors.New("not found")

// ParticipantStore persists distributor records and the sponsor graph.
type ParticipantStore interface {
	CreateParticipant(ctx context.Context, p participant.Participant) (participant.Participant, error)
	UpdateParticipant(ctx context.Context, p participant.Participant) (participant.Participant, error)
	GetParticipant(ctx context.Context, id string) (participant.Participant, error)
	ListParticipants(ctx context.Context) ([]participant.Participant, error)
	ListDirects(ctx context.Context, sponsorID string) ([]participant.Participant, error)
}

// MatrixStore persists cycles, structural tree edges and lifecycle events.
type MatrixStore interface {
	CreateCycle(ctx context.Context, c matrix.Cycle) (matrix.Cycle, error)
	GetCycle(ctx context.Context, id string) (matrix.Cycle, error)
	GetOpenCycle(ctx context.Context, ownerID string) (matrix.Cycle, error)
	ListCycles(ctx context.Context, ownerID string) ([]matrix.Cycle, error)
	// FillSlot assigns an occupant to the next slot if and only if the
	// cycle still has exactly expectedFilled slots taken. The sixth fill
	// seals the cycle in the same operation. A stale expectedFilled
	// returns matrix.ErrSlotConflict.
	FillSlot(ctx context.Context, cycleID string, expectedFilled int, occupantID string) (matrix.Cycle, error)
	CountReentries(ctx context.Context, ownerID, period string) (int, error)
	CountCompletedCycles(ctx context.Context, ownerIDs []string, period string) (map[string]int, error)
	HasReentered(ctx context.Context, ownerID string) (bool, error)

	CreateEdge(ctx context.Context, e matrix.Edge) (matrix.Edge, error)
	GetEdgeByDownline(ctx context.Context, downlineID string) (matrix.Edge, error)
	ListChildren(ctx context.Context, uplineID string) ([]matrix.Edge, error)
}

// EventStore is the append-only queue driving settlement.
type EventStore interface {
	AppendEvent(ctx context.Context, ev matrix.Event) (matrix.Event, error)
	ListUnprocessedEvents(ctx context.Context, limit int) ([]matrix.Event, error)
	MarkEventProcessed(ctx context.Context, id string) error
	RecordEventAttempt(ctx context.Context, id string) error
}

// BonusStore persists settlement outcomes.
type BonusStore interface {
	CreateBonusRecord(ctx context.Context, rec bonus.Record) (bonus.Record, error)
	BonusRecordExists(ctx context.Context, originCycle, recipientID string, pool bonus.Pool, level int) (bool, error)
	CountBonusRecords(ctx context.Context, recipientID string, pool bonus.Pool, period string) (int, error)
	ListBonusRecords(ctx context.Context, recipientID string) ([]bonus.Record, error)
	ListBonusRecordsByPeriod(ctx context.Context, pool bonus.Pool, period string) ([]bonus.Record, error)
}

// LedgerStore maintains participant balances. Credit must apply the increment
// atomically with respect to concurrent credits for the same participant.
type LedgerStore interface {
	Credit(ctx context.Context, entry bonus.LedgerEntry) (bonus.LedgerAccount, error)
	// CreditAward writes the bonus record and applies its ledger credit as
	// one atomic operation. Either both land or neither does, so a record's
	// existence proves its amount reached the ledger.
	CreditAward(ctx context.Context, rec bonus.Record, entry bonus.LedgerEntry) (bonus.LedgerAccount, error)
	GetLedgerAccount(ctx context.Context, participantID string) (bonus.LedgerAccount, error)
	ListLedgerEntries(ctx context.Context, participantID string) ([]bonus.LedgerEntry, error)
}
