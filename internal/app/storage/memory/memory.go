package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/bonus"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/matrix"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/participant"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu             sync.RWMutex
	nextID         int64
	participants   map[string]participant.Participant
	cycles         map[string]matrix.Cycle
	cyclesByOwner  map[string][]string
	edges          map[string]matrix.Edge
	edgeByDownline map[string]string
	childEdges     map[string][]string
	events         []matrix.Event
	eventIndex     map[string]int
	bonusRecords   map[string]bonus.Record
	bonusDedup     map[string]struct{}
	ledgerAccounts map[string]bonus.LedgerAccount
	ledgerEntries  map[string][]bonus.LedgerEntry
}

var _ storage.ParticipantStore = (*Store)(nil)
var _ storage.MatrixStore = (*Store)(nil)
var _ storage.EventStore = (*Store)(nil)
var _ storage.BonusStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:         1,
		participants:   make(map[string]participant.Participant),
		cycles:         make(map[string]matrix.Cycle),
		cyclesByOwner:  make(map[string][]string),
		edges:          make(map[string]matrix.Edge),
		edgeByDownline: make(map[string]string),
		childEdges:     make(map[string][]string),
		eventIndex:     make(map[string]int),
		bonusRecords:   make(map[string]bonus.Record),
		bonusDedup:     make(map[string]struct{}),
		ledgerAccounts: make(map[string]bonus.LedgerAccount),
		ledgerEntries:  make(map[string][]bonus.LedgerEntry),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func dedupKey(originCycle, recipientID string, pool bonus.Pool, level int) string {
	return fmt.Sprintf("%s|%s|%s|%d", originCycle, recipientID, pool, level)
}

// ParticipantStore implementation ---------------------------------------------

func (s *Store) CreateParticipant(_ context.Context, p participant.Participant) (participant.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.participants[p.ID]; exists {
		return participant.Participant{}, fmt.Errorf("participant %s already exists", p.ID)
	}
	if p.SponsorID != "" {
		if _, ok := s.participants[p.SponsorID]; !ok {
			return participant.Participant{}, fmt.Errorf("sponsor %s: %w", p.SponsorID, storage.ErrNotFound)
		}
	}

	now := time.Now().UTC()
	if p.Status == "" {
		p.Status = participant.StatusActive
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = now
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	s.participants[p.ID] = p
	return p, nil
}

func (s *Store) UpdateParticipant(_ context.Context, p participant.Participant) (participant.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.participants[p.ID]
	if !ok {
		return participant.Participant{}, fmt.Errorf("participant %s: %w", p.ID, storage.ErrNotFound)
	}

	p.CreatedAt = original.CreatedAt
	p.JoinedAt = original.JoinedAt
	p.UpdatedAt = time.Now().UTC()

	s.participants[p.ID] = p
	return p, nil
}

func (s *Store) GetParticipant(_ context.Context, id string) (participant.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[id]
	if !ok {
		return participant.Participant{}, fmt.Errorf("participant %s: %w", id, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ListParticipants(_ context.Context) ([]participant.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]participant.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ListDirects(_ context.Context, sponsorID string) ([]participant.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []participant.Participant
	for _, p := range s.participants {
		if p.SponsorID == sponsorID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// MatrixStore implementation --------------------------------------------------

func (s *Store) CreateCycle(_ context.Context, c matrix.Cycle) (matrix.Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = s.nextIDLocked()
	} else if _, exists := s.cycles[c.ID]; exists {
		return matrix.Cycle{}, fmt.Errorf("cycle %s already exists", c.ID)
	}
	for _, existingID := range s.cyclesByOwner[c.OwnerID] {
		if s.cycles[existingID].Status == matrix.CycleOpen {
			return matrix.Cycle{}, fmt.Errorf("owner %s already has an open cycle", c.OwnerID)
		}
	}

	now := time.Now().UTC()
	if c.Status == "" {
		c.Status = matrix.CycleOpen
	}
	if c.OpenedAt.IsZero() {
		c.OpenedAt = now
	}
	c.Slots = append([]string(nil), c.Slots...)
	c.CreatedAt = now
	c.UpdatedAt = now

	s.cycles[c.ID] = c
	s.cyclesByOwner[c.OwnerID] = append(s.cyclesByOwner[c.OwnerID], c.ID)
	return cloneCycle(c), nil
}

func (s *Store) GetCycle(_ context.Context, id string) (matrix.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cycles[id]
	if !ok {
		return matrix.Cycle{}, fmt.Errorf("cycle %s: %w", id, storage.ErrNotFound)
	}
	return cloneCycle(c), nil
}

func (s *Store) GetOpenCycle(_ context.Context, ownerID string) (matrix.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.cyclesByOwner[ownerID] {
		if c := s.cycles[id]; c.Status == matrix.CycleOpen {
			return cloneCycle(c), nil
		}
	}
	return matrix.Cycle{}, fmt.Errorf("open cycle for owner %s: %w", ownerID, storage.ErrNotFound)
}

func (s *Store) ListCycles(_ context.Context, ownerID string) ([]matrix.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.cyclesByOwner[ownerID]
	result := make([]matrix.Cycle, 0, len(ids))
	for _, id := range ids {
		result = append(result, cloneCycle(s.cycles[id]))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (s *Store) FillSlot(_ context.Context, cycleID string, expectedFilled int, occupantID string) (matrix.Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cycles[cycleID]
	if !ok {
		return matrix.Cycle{}, fmt.Errorf("cycle %s: %w", cycleID, storage.ErrNotFound)
	}
	if c.Status != matrix.CycleOpen {
		return matrix.Cycle{}, fmt.Errorf("cycle %s: %w", cycleID, matrix.ErrNoOpenCycle)
	}
	if c.SlotsFilled != expectedFilled {
		return matrix.Cycle{}, fmt.Errorf("cycle %s expected %d filled, have %d: %w",
			cycleID, expectedFilled, c.SlotsFilled, matrix.ErrSlotConflict)
	}

	now := time.Now().UTC()
	c.Slots = append(append([]string(nil), c.Slots...), occupantID)
	c.SlotsFilled++
	c.UpdatedAt = now
	if c.SlotsFilled == matrix.Width {
		c.Status = matrix.CycleCompleted
		c.CompletedAt = now
	}

	s.cycles[cycleID] = c
	return cloneCycle(c), nil
}

func (s *Store) CountReentries(_ context.Context, ownerID, period string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.cyclesByOwner[ownerID] {
		c := s.cycles[id]
		if c.Number > 1 && c.OpenedAt.UTC().Format("2006-01") == period {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountCompletedCycles(_ context.Context, ownerIDs []string, period string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int, len(ownerIDs))
	for _, ownerID := range ownerIDs {
		for _, id := range s.cyclesByOwner[ownerID] {
			c := s.cycles[id]
			if c.Status != matrix.CycleCompleted {
				continue
			}
			if period != "" && c.CompletedAt.UTC().Format("2006-01") != period {
				continue
			}
			result[ownerID]++
		}
	}
	return result, nil
}

func (s *Store) HasReentered(_ context.Context, ownerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.cyclesByOwner[ownerID] {
		if s.cycles[id].Number > 1 {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateEdge(_ context.Context, e matrix.Edge) (matrix.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.nextIDLocked()
	}
	if _, exists := s.edgeByDownline[e.DownlineID]; exists {
		return matrix.Edge{}, fmt.Errorf("downline %s: %w", e.DownlineID, matrix.ErrAlreadyPlaced)
	}

	e.CreatedAt = time.Now().UTC()
	s.edges[e.ID] = e
	s.edgeByDownline[e.DownlineID] = e.ID
	s.childEdges[e.UplineID] = append(s.childEdges[e.UplineID], e.ID)
	return e, nil
}

func (s *Store) GetEdgeByDownline(_ context.Context, downlineID string) (matrix.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.edgeByDownline[downlineID]
	if !ok {
		return matrix.Edge{}, fmt.Errorf("edge for downline %s: %w", downlineID, storage.ErrNotFound)
	}
	return s.edges[id], nil
}

func (s *Store) ListChildren(_ context.Context, uplineID string) ([]matrix.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.childEdges[uplineID]
	result := make([]matrix.Edge, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.edges[id])
	}
	return result, nil
}

// EventStore implementation ---------------------------------------------------

func (s *Store) AppendEvent(_ context.Context, ev matrix.Event) (matrix.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = s.nextIDLocked()
	} else if _, exists := s.eventIndex[ev.ID]; exists {
		return matrix.Event{}, fmt.Errorf("event %s already exists", ev.ID)
	}

	ev.CreatedAt = time.Now().UTC()
	s.eventIndex[ev.ID] = len(s.events)
	s.events = append(s.events, ev)
	return ev, nil
}

func (s *Store) ListUnprocessedEvents(_ context.Context, limit int) ([]matrix.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []matrix.Event
	for _, ev := range s.events {
		if ev.Processed {
			continue
		}
		result = append(result, ev)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *Store) MarkEventProcessed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.eventIndex[id]
	if !ok {
		return fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
	}
	s.events[idx].Processed = true
	s.events[idx].ProcessedAt = time.Now().UTC()
	return nil
}

func (s *Store) RecordEventAttempt(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.eventIndex[id]
	if !ok {
		return fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
	}
	s.events[idx].Attempts++
	return nil
}

// BonusStore implementation ---------------------------------------------------

func (s *Store) CreateBonusRecord(_ context.Context, rec bonus.Record) (bonus.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dedupKey(rec.OriginCycle, rec.RecipientID, rec.Pool, rec.Level)
	if _, exists := s.bonusDedup[key]; exists {
		return bonus.Record{}, fmt.Errorf("bonus record %s already exists", key)
	}
	if rec.ID == "" {
		rec.ID = s.nextIDLocked()
	}

	rec.CreatedAt = time.Now().UTC()
	s.bonusRecords[rec.ID] = rec
	s.bonusDedup[key] = struct{}{}
	return rec, nil
}

func (s *Store) BonusRecordExists(_ context.Context, originCycle, recipientID string, pool bonus.Pool, level int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.bonusDedup[dedupKey(originCycle, recipientID, pool, level)]
	return ok, nil
}

func (s *Store) CountBonusRecords(_ context.Context, recipientID string, pool bonus.Pool, period string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rec := range s.bonusRecords {
		if rec.RecipientID == recipientID && rec.Pool == pool && rec.Period == period {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListBonusRecords(_ context.Context, recipientID string) ([]bonus.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []bonus.Record
	for _, rec := range s.bonusRecords {
		if rec.RecipientID == recipientID {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ListBonusRecordsByPeriod(_ context.Context, pool bonus.Pool, period string) ([]bonus.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []bonus.Record
	for _, rec := range s.bonusRecords {
		if rec.Pool == pool && rec.Period == period {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// LedgerStore implementation --------------------------------------------------

func (s *Store) Credit(_ context.Context, entry bonus.LedgerEntry) (bonus.LedgerAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.creditLocked(entry), nil
}

// CreditAward writes the bonus record and the ledger credit under one lock
// acquisition; a duplicate record leaves the ledger untouched.
func (s *Store) CreditAward(_ context.Context, rec bonus.Record, entry bonus.LedgerEntry) (bonus.LedgerAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dedupKey(rec.OriginCycle, rec.RecipientID, rec.Pool, rec.Level)
	if _, exists := s.bonusDedup[key]; exists {
		return bonus.LedgerAccount{}, fmt.Errorf("bonus record %s already exists", key)
	}
	if rec.ID == "" {
		rec.ID = s.nextIDLocked()
	}
	rec.CreatedAt = time.Now().UTC()
	s.bonusRecords[rec.ID] = rec
	s.bonusDedup[key] = struct{}{}

	return s.creditLocked(entry), nil
}

func (s *Store) creditLocked(entry bonus.LedgerEntry) bonus.LedgerAccount {
	now := time.Now().UTC()
	acct, ok := s.ledgerAccounts[entry.ParticipantID]
	if !ok {
		acct = bonus.LedgerAccount{ParticipantID: entry.ParticipantID, CreatedAt: now}
	}
	acct.Balance += entry.Amount
	acct.LifetimeReceived += entry.Amount
	acct.UpdatedAt = now
	s.ledgerAccounts[entry.ParticipantID] = acct

	if entry.ID == "" {
		entry.ID = s.nextIDLocked()
	}
	entry.BalanceAfter = acct.Balance
	entry.CreatedAt = now
	s.ledgerEntries[entry.ParticipantID] = append(s.ledgerEntries[entry.ParticipantID], entry)
	return acct
}

func (s *Store) GetLedgerAccount(_ context.Context, participantID string) (bonus.LedgerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.ledgerAccounts[participantID]
	if !ok {
		return bonus.LedgerAccount{}, fmt.Errorf("ledger account %s: %w", participantID, storage.ErrNotFound)
	}
	return acct, nil
}

func (s *Store) ListLedgerEntries(_ context.Context, participantID string) ([]bonus.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.ledgerEntries[participantID]
	result := make([]bonus.LedgerEntry, len(entries))
	copy(result, entries)
	return result, nil
}

func cloneCycle(c matrix.Cycle) matrix.Cycle {
	c.Slots = append([]string(nil), c.Slots...)
	return c
}
