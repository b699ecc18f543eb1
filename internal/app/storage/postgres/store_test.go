package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/bonus"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/matrix"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	return New(db), mock, func() { db.Close() }
}

func cycleRows(filled int, status matrix.CycleStatus) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "owner_id", "number", "status", "slots_filled", "slots",
		"base_value", "opened_at", "completed_at", "created_at", "updated_at",
	}).AddRow("cyc1", "root", 1, string(status), filled, "{m1}", 360.0, now, nil, now, now)
}

func TestFillSlot_ReturnsUpdatedCycle(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery("UPDATE matrix_cycles").
		WithArgs("cyc1", 0, "m1", matrix.Width, sqlmock.AnyArg()).
		WillReturnRows(cycleRows(1, matrix.CycleOpen))

	c, err := store.FillSlot(context.Background(), "cyc1", 0, "m1")
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if c.SlotsFilled != 1 || len(c.Slots) != 1 {
		t.Fatalf("cycle = %+v", c)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFillSlot_MissOnSealedCycle(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery("UPDATE matrix_cycles").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT .* FROM matrix_cycles").
		WithArgs("cyc1").
		WillReturnRows(cycleRows(matrix.Width, matrix.CycleCompleted))

	_, err := store.FillSlot(context.Background(), "cyc1", 5, "m1")
	if !errors.Is(err, matrix.ErrNoOpenCycle) {
		t.Fatalf("error = %v, want ErrNoOpenCycle", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFillSlot_MissOnStaleCount(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery("UPDATE matrix_cycles").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT .* FROM matrix_cycles").
		WithArgs("cyc1").
		WillReturnRows(cycleRows(2, matrix.CycleOpen))

	_, err := store.FillSlot(context.Background(), "cyc1", 1, "m1")
	if !errors.Is(err, matrix.ErrSlotConflict) {
		t.Fatalf("error = %v, want ErrSlotConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateEdge_MapsUniqueViolation(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec("INSERT INTO matrix_edges").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateEdge(context.Background(), matrix.Edge{UplineID: "a", DownlineID: "b", Slot: 1, Level: 1})
	if !errors.Is(err, matrix.ErrAlreadyPlaced) {
		t.Fatalf("error = %v, want ErrAlreadyPlaced", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCredit_UpsertsAccountAndWritesEntry(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO ledger_accounts").
		WithArgs("alice", 108.0, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"balance", "lifetime_received", "created_at", "updated_at"}).
			AddRow(208.0, 350.0, now, now))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(sqlmock.AnyArg(), "alice", 108.0, "cycle", "cycle bonus", 208.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	acct, err := store.Credit(context.Background(), bonus.LedgerEntry{
		ParticipantID: "alice",
		Amount:        108.0,
		Pool:          bonus.PoolCycle,
		Description:   "cycle bonus",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if acct.Balance != 208.0 {
		t.Fatalf("balance = %.2f, want 208.00", acct.Balance)
	}
	if acct.LifetimeReceived != 350.0 {
		t.Fatalf("lifetime received = %.2f, want 350.00", acct.LifetimeReceived)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCredit_RollsBackOnEntryFailure(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO ledger_accounts").
		WillReturnRows(sqlmock.NewRows([]string{"balance", "lifetime_received", "created_at", "updated_at"}).
			AddRow(10.0, 10.0, now, now))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.Credit(context.Background(), bonus.LedgerEntry{ParticipantID: "alice", Amount: 10.0, Pool: bonus.PoolDepth})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreditAward_WritesRecordAndCreditInOneTx(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bonus_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO ledger_accounts").
		WillReturnRows(sqlmock.NewRows([]string{"balance", "lifetime_received", "created_at", "updated_at"}).
			AddRow(108.0, 108.0, now, now))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := bonus.Record{
		RecipientID: "alice",
		Pool:        bonus.PoolCycle,
		Amount:      108.0,
		OriginCycle: "cyc1",
		OriginOwner: "alice",
		Period:      "2026-08",
		Status:      bonus.StatusPaid,
	}
	acct, err := store.CreditAward(context.Background(), rec, bonus.LedgerEntry{
		ParticipantID: "alice",
		Amount:        108.0,
		Pool:          bonus.PoolCycle,
	})
	if err != nil {
		t.Fatalf("credit award: %v", err)
	}
	if acct.Balance != 108.0 {
		t.Fatalf("balance = %.2f, want 108.00", acct.Balance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreditAward_RollsBackWhenRecordInsertFails(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bonus_records").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := store.CreditAward(context.Background(),
		bonus.Record{RecipientID: "alice", Pool: bonus.PoolCycle, OriginCycle: "cyc1", Status: bonus.StatusPaid},
		bonus.LedgerEntry{ParticipantID: "alice", Amount: 108.0, Pool: bonus.PoolCycle})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetParticipant_NotFound(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery("SELECT .* FROM participants").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetParticipant(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCountCompletedCycles_GroupsByOwner(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery("SELECT owner_id, COUNT").
		WithArgs(pq.StringArray{"a", "b"}).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "count"}).
			AddRow("a", 3).
			AddRow("b", 1))

	counts, err := store.CountCompletedCycles(context.Background(), []string{"a", "b"}, "")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts["a"] != 3 || counts["b"] != 1 {
		t.Fatalf("counts = %+v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
