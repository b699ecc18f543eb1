package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/bonus"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/matrix"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/participant"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.ParticipantStore = (*Store)(nil)
var _ storage.MatrixStore = (*Store)(nil)
var _ storage.EventStore = (*Store)(nil)
var _ storage.BonusStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, storage.ErrNotFound)
	}
	return err
}

// --- ParticipantStore --------------------------------------------------------

func (s *Store) CreateParticipant(ctx context.Context, p participant.Participant) (participant.Participant, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = participant.StatusActive
	}
	now := time.Now().UTC()
	if p.JoinedAt.IsZero() {
		p.JoinedAt = now
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	sponsor := sql.NullString{String: p.SponsorID, Valid: p.SponsorID != ""}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (id, external_ref, name, sponsor_id, status, pin, career_cycles, reentries, joined_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.ExternalRef, p.Name, sponsor, p.Status, p.Pin, p.CareerCycles, p.Reentries, p.JoinedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return participant.Participant{}, err
	}
	return p, nil
}

func (s *Store) UpdateParticipant(ctx context.Context, p participant.Participant) (participant.Participant, error) {
	p.UpdatedAt = time.Now().UTC()
	sponsor := sql.NullString{String: p.SponsorID, Valid: p.SponsorID != ""}
	result, err := s.db.ExecContext(ctx, `
		UPDATE participants
		SET external_ref = $2, name = $3, sponsor_id = $4, status = $5, pin = $6,
		    career_cycles = $7, reentries = $8, updated_at = $9
		WHERE id = $1
	`, p.ID, p.ExternalRef, p.Name, sponsor, p.Status, p.Pin, p.CareerCycles, p.Reentries, p.UpdatedAt)
	if err != nil {
		return participant.Participant{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return participant.Participant{}, fmt.Errorf("participant %s: %w", p.ID, storage.ErrNotFound)
	}
	return p, nil
}

const participantColumns = `id, external_ref, name, COALESCE(sponsor_id, ''), status, pin, career_cycles, reentries, joined_at, created_at, updated_at`

func scanParticipant(row interface{ Scan(...interface{}) error }) (participant.Participant, error) {
	var p participant.Participant
	err := row.Scan(&p.ID, &p.ExternalRef, &p.Name, &p.SponsorID, &p.Status, &p.Pin,
		&p.CareerCycles, &p.Reentries, &p.JoinedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) GetParticipant(ctx context.Context, id string) (participant.Participant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		WHERE id = $1
	`, id)
	p, err := scanParticipant(row)
	if err != nil {
		return participant.Participant{}, notFound(err, "participant", id)
	}
	return p, nil
}

func (s *Store) ListParticipants(ctx context.Context) ([]participant.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectParticipants(rows)
}

func (s *Store) ListDirects(ctx context.Context, sponsorID string) ([]participant.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		WHERE sponsor_id = $1
		ORDER BY created_at
	`, sponsorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectParticipants(rows)
}

func collectParticipants(rows *sql.Rows) ([]participant.Participant, error) {
	var result []participant.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// --- MatrixStore -------------------------------------------------------------

const cycleColumns = `id, owner_id, number, status, slots_filled, slots, base_value, opened_at, completed_at, created_at, updated_at`

func scanCycle(row interface{ Scan(...interface{}) error }) (matrix.Cycle, error) {
	var (
		c           matrix.Cycle
		slots       pq.StringArray
		completedAt sql.NullTime
	)
	err := row.Scan(&c.ID, &c.OwnerID, &c.Number, &c.Status, &c.SlotsFilled, &slots,
		&c.BaseValue, &c.OpenedAt, &completedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return matrix.Cycle{}, err
	}
	c.Slots = []string(slots)
	if completedAt.Valid {
		c.CompletedAt = completedAt.Time
	}
	return c, nil
}

func (s *Store) CreateCycle(ctx context.Context, c matrix.Cycle) (matrix.Cycle, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = matrix.CycleOpen
	}
	now := time.Now().UTC()
	if c.OpenedAt.IsZero() {
		c.OpenedAt = now
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matrix_cycles (id, owner_id, number, status, slots_filled, slots, base_value, opened_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.OwnerID, c.Number, c.Status, c.SlotsFilled, pq.StringArray(c.Slots), c.BaseValue, c.OpenedAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return matrix.Cycle{}, err
	}
	return c, nil
}

func (s *Store) GetCycle(ctx context.Context, id string) (matrix.Cycle, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+cycleColumns+`
		FROM matrix_cycles
		WHERE id = $1
	`, id)
	c, err := scanCycle(row)
	if err != nil {
		return matrix.Cycle{}, notFound(err, "cycle", id)
	}
	return c, nil
}

func (s *Store) GetOpenCycle(ctx context.Context, ownerID string) (matrix.Cycle, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+cycleColumns+`
		FROM matrix_cycles
		WHERE owner_id = $1 AND status = 'open'
		ORDER BY number DESC
		LIMIT 1
	`, ownerID)
	c, err := scanCycle(row)
	if err != nil {
		return matrix.Cycle{}, notFound(err, "open cycle for owner", ownerID)
	}
	return c, nil
}

func (s *Store) ListCycles(ctx context.Context, ownerID string) ([]matrix.Cycle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cycleColumns+`
		FROM matrix_cycles
		WHERE owner_id = $1
		ORDER BY number
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []matrix.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) FillSlot(ctx context.Context, cycleID string, expectedFilled int, occupantID string) (matrix.Cycle, error) {
	now := time.Now().UTC()
	row := s.db.QueryRowContext(ctx, `
		UPDATE matrix_cycles
		SET slots = array_append(slots, $3),
		    slots_filled = slots_filled + 1,
		    status = CASE WHEN slots_filled + 1 >= $4 THEN 'completed' ELSE status END,
		    completed_at = CASE WHEN slots_filled + 1 >= $4 THEN $5 ELSE completed_at END,
		    updated_at = $5
		WHERE id = $1 AND status = 'open' AND slots_filled = $2
		RETURNING `+cycleColumns+`
	`, cycleID, expectedFilled, occupantID, matrix.Width, now)

	c, err := scanCycle(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return matrix.Cycle{}, err
	}

	// Distinguish why the guarded update missed.
	current, getErr := s.GetCycle(ctx, cycleID)
	if getErr != nil {
		return matrix.Cycle{}, getErr
	}
	if current.Status != matrix.CycleOpen {
		return matrix.Cycle{}, fmt.Errorf("cycle %s: %w", cycleID, matrix.ErrNoOpenCycle)
	}
	return matrix.Cycle{}, fmt.Errorf("cycle %s expected %d filled, have %d: %w",
		cycleID, expectedFilled, current.SlotsFilled, matrix.ErrSlotConflict)
}

func (s *Store) CountReentries(ctx context.Context, ownerID, period string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM matrix_cycles
		WHERE owner_id = $1 AND number > 1 AND to_char(opened_at, 'YYYY-MM') = $2
	`, ownerID, period).Scan(&count)
	return count, err
}

func (s *Store) CountCompletedCycles(ctx context.Context, ownerIDs []string, period string) (map[string]int, error) {
	if len(ownerIDs) == 0 {
		return map[string]int{}, nil
	}

	query := `
		SELECT owner_id, COUNT(*)
		FROM matrix_cycles
		WHERE owner_id = ANY($1) AND status = 'completed'
	`
	args := []interface{}{pq.StringArray(ownerIDs)}
	if period != "" {
		query += ` AND to_char(completed_at, 'YYYY-MM') = $2`
		args = append(args, period)
	}
	query += ` GROUP BY owner_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int, len(ownerIDs))
	for rows.Next() {
		var (
			ownerID string
			count   int
		)
		if err := rows.Scan(&ownerID, &count); err != nil {
			return nil, err
		}
		result[ownerID] = count
	}
	return result, rows.Err()
}

func (s *Store) HasReentered(ctx context.Context, ownerID string) (bool, error) {
	var reentered bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM matrix_cycles WHERE owner_id = $1 AND number > 1)
	`, ownerID).Scan(&reentered)
	return reentered, err
}

func (s *Store) CreateEdge(ctx context.Context, e matrix.Edge) (matrix.Edge, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matrix_edges (id, upline_id, downline_id, slot, level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.UplineID, e.DownlineID, e.Slot, e.Level, e.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return matrix.Edge{}, fmt.Errorf("downline %s: %w", e.DownlineID, matrix.ErrAlreadyPlaced)
		}
		return matrix.Edge{}, err
	}
	return e, nil
}

func (s *Store) GetEdgeByDownline(ctx context.Context, downlineID string) (matrix.Edge, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, upline_id, downline_id, slot, level, created_at
		FROM matrix_edges
		WHERE downline_id = $1
	`, downlineID)

	var e matrix.Edge
	if err := row.Scan(&e.ID, &e.UplineID, &e.DownlineID, &e.Slot, &e.Level, &e.CreatedAt); err != nil {
		return matrix.Edge{}, notFound(err, "edge for downline", downlineID)
	}
	return e, nil
}

func (s *Store) ListChildren(ctx context.Context, uplineID string) ([]matrix.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, upline_id, downline_id, slot, level, created_at
		FROM matrix_edges
		WHERE upline_id = $1
		ORDER BY created_at
	`, uplineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []matrix.Edge
	for rows.Next() {
		var e matrix.Edge
		if err := rows.Scan(&e.ID, &e.UplineID, &e.DownlineID, &e.Slot, &e.Level, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// --- EventStore --------------------------------------------------------------

func (s *Store) AppendEvent(ctx context.Context, ev matrix.Event) (matrix.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matrix_events (id, type, cycle_id, owner_id, cycle_number, base_value, attempts, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, ev.ID, ev.Type, ev.CycleID, ev.OwnerID, ev.CycleNumber, ev.BaseValue, ev.Attempts, ev.Processed, ev.CreatedAt)
	if err != nil {
		return matrix.Event{}, err
	}
	return ev, nil
}

func (s *Store) ListUnprocessedEvents(ctx context.Context, limit int) ([]matrix.Event, error) {
	query := `
		SELECT id, type, cycle_id, owner_id, cycle_number, base_value, attempts, processed, processed_at, created_at
		FROM matrix_events
		WHERE processed = FALSE
		ORDER BY created_at
	`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []matrix.Event
	for rows.Next() {
		var (
			ev          matrix.Event
			processedAt sql.NullTime
		)
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.CycleID, &ev.OwnerID, &ev.CycleNumber,
			&ev.BaseValue, &ev.Attempts, &ev.Processed, &processedAt, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if processedAt.Valid {
			ev.ProcessedAt = processedAt.Time
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

func (s *Store) MarkEventProcessed(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE matrix_events
		SET processed = TRUE, processed_at = $2
		WHERE id = $1
	`, id, time.Now().UTC())
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) RecordEventAttempt(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE matrix_events
		SET attempts = attempts + 1
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// --- BonusStore --------------------------------------------------------------

func (s *Store) CreateBonusRecord(ctx context.Context, rec bonus.Record) (bonus.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bonus_records (id, recipient_id, pool, level, amount, origin_cycle, origin_owner, period, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.ID, rec.RecipientID, rec.Pool, rec.Level, rec.Amount, rec.OriginCycle, rec.OriginOwner, rec.Period, rec.Status, rec.CreatedAt)
	if err != nil {
		return bonus.Record{}, err
	}
	return rec, nil
}

func (s *Store) BonusRecordExists(ctx context.Context, originCycle, recipientID string, pool bonus.Pool, level int) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bonus_records
			WHERE origin_cycle = $1 AND recipient_id = $2 AND pool = $3 AND level = $4
		)
	`, originCycle, recipientID, pool, level).Scan(&exists)
	return exists, err
}

func (s *Store) CountBonusRecords(ctx context.Context, recipientID string, pool bonus.Pool, period string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bonus_records
		WHERE recipient_id = $1 AND pool = $2 AND period = $3
	`, recipientID, pool, period).Scan(&count)
	return count, err
}

const bonusColumns = `id, recipient_id, pool, level, amount, origin_cycle, origin_owner, period, status, created_at`

func (s *Store) ListBonusRecords(ctx context.Context, recipientID string) ([]bonus.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bonusColumns+`
		FROM bonus_records
		WHERE recipient_id = $1
		ORDER BY created_at
	`, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBonusRecords(rows)
}

func (s *Store) ListBonusRecordsByPeriod(ctx context.Context, pool bonus.Pool, period string) ([]bonus.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bonusColumns+`
		FROM bonus_records
		WHERE pool = $1 AND period = $2
		ORDER BY created_at
	`, pool, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBonusRecords(rows)
}

func collectBonusRecords(rows *sql.Rows) ([]bonus.Record, error) {
	var result []bonus.Record
	for rows.Next() {
		var rec bonus.Record
		if err := rows.Scan(&rec.ID, &rec.RecipientID, &rec.Pool, &rec.Level, &rec.Amount,
			&rec.OriginCycle, &rec.OriginOwner, &rec.Period, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// --- LedgerStore -------------------------------------------------------------

func (s *Store) Credit(ctx context.Context, entry bonus.LedgerEntry) (bonus.LedgerAccount, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return bonus.LedgerAccount{}, err
	}
	defer tx.Rollback()

	acct, err := creditTx(ctx, tx, entry, now)
	if err != nil {
		return bonus.LedgerAccount{}, err
	}

	if err := tx.Commit(); err != nil {
		return bonus.LedgerAccount{}, err
	}
	return acct, nil
}

// CreditAward writes the bonus record and its ledger credit in one
// transaction. The unique key on (origin_cycle, recipient_id, pool, level)
// rejects a duplicate before the ledger is touched.
func (s *Store) CreditAward(ctx context.Context, rec bonus.Record, entry bonus.LedgerEntry) (bonus.LedgerAccount, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return bonus.LedgerAccount{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bonus_records (id, recipient_id, pool, level, amount, origin_cycle, origin_owner, period, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.ID, rec.RecipientID, rec.Pool, rec.Level, rec.Amount, rec.OriginCycle, rec.OriginOwner, rec.Period, rec.Status, rec.CreatedAt)
	if err != nil {
		return bonus.LedgerAccount{}, err
	}

	acct, err := creditTx(ctx, tx, entry, now)
	if err != nil {
		return bonus.LedgerAccount{}, err
	}

	if err := tx.Commit(); err != nil {
		return bonus.LedgerAccount{}, err
	}
	return acct, nil
}

func creditTx(ctx context.Context, tx *sql.Tx, entry bonus.LedgerEntry, now time.Time) (bonus.LedgerAccount, error) {
	var acct bonus.LedgerAccount
	acct.ParticipantID = entry.ParticipantID
	err := tx.QueryRowContext(ctx, `
		INSERT INTO ledger_accounts (participant_id, balance, lifetime_received, created_at, updated_at)
		VALUES ($1, $2, $2, $3, $3)
		ON CONFLICT (participant_id) DO UPDATE
		SET balance = ledger_accounts.balance + EXCLUDED.balance,
		    lifetime_received = ledger_accounts.lifetime_received + EXCLUDED.lifetime_received,
		    updated_at = EXCLUDED.updated_at
		RETURNING balance, lifetime_received, created_at, updated_at
	`, entry.ParticipantID, entry.Amount, now).Scan(&acct.Balance, &acct.LifetimeReceived, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return bonus.LedgerAccount{}, err
	}

	entry.BalanceAfter = acct.Balance
	entry.CreatedAt = now
	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, participant_id, amount, pool, description, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.ParticipantID, entry.Amount, entry.Pool, entry.Description, entry.BalanceAfter, entry.CreatedAt)
	if err != nil {
		return bonus.LedgerAccount{}, err
	}
	return acct, nil
}

func (s *Store) GetLedgerAccount(ctx context.Context, participantID string) (bonus.LedgerAccount, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT participant_id, balance, lifetime_received, created_at, updated_at
		FROM ledger_accounts
		WHERE participant_id = $1
	`, participantID)

	var acct bonus.LedgerAccount
	if err := row.Scan(&acct.ParticipantID, &acct.Balance, &acct.LifetimeReceived, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
		return bonus.LedgerAccount{}, notFound(err, "ledger account", participantID)
	}
	return acct, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, participantID string) ([]bonus.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participant_id, amount, pool, description, balance_after, created_at
		FROM ledger_entries
		WHERE participant_id = $1
		ORDER BY created_at
	`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []bonus.LedgerEntry
	for rows.Next() {
		var entry bonus.LedgerEntry
		if err := rows.Scan(&entry.ID, &entry.ParticipantID, &entry.Amount, &entry.Pool,
			&entry.Description, &entry.BalanceAfter, &entry.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
