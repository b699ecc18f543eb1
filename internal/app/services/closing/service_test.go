package closing

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/bonus"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/ranking"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage/memory"
)

func seedRecord(t *testing.T, s *memory.Store, pool bonus.Pool, period, recipient, cycle string, amount float64) {
	t.Helper()
	_, err := s.CreateBonusRecord(context.Background(), bonus.Record{
		RecipientID: recipient,
		Pool:        pool,
		Amount:      amount,
		OriginCycle: cycle,
		OriginOwner: "owner",
		Period:      period,
		Status:      bonus.StatusPaid,
	})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}
}

func TestCloseMonth_SummarizesPreviousPeriod(t *testing.T) {
	store := memory.New()
	board := ranking.NewMemory()
	closer := New(store, board, nil)

	// Fixed clock late in March: the previous period is still 2026-02 even
	// though February is short.
	closer.now = func() time.Time {
		return time.Date(2026, time.March, 31, 23, 0, 0, 0, time.UTC)
	}

	seedRecord(t, store, bonus.PoolTopRank, "2026-02", "alice", "c1", 4.05)
	seedRecord(t, store, bonus.PoolTopRank, "2026-02", "alice", "c2", 4.05)
	seedRecord(t, store, bonus.PoolTopRank, "2026-02", "bob", "c3", 2.92)
	seedRecord(t, store, bonus.PoolTopRank, "2026-03", "carol", "c4", 9.99)

	if err := board.Record(context.Background(), "2026-02", "alice", 2); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := board.Record(context.Background(), "2026-02", "bob", 1); err != nil {
		t.Fatalf("record: %v", err)
	}

	report, err := closer.CloseMonth(context.Background())
	if err != nil {
		t.Fatalf("close month: %v", err)
	}
	if report.Period != "2026-02" {
		t.Fatalf("period = %q, want 2026-02", report.Period)
	}
	if math.Abs(report.Paid-11.02) > 0.001 {
		t.Fatalf("paid = %.2f, want 11.02", report.Paid)
	}
	if report.Recipients != 2 {
		t.Fatalf("recipients = %d, want 2", report.Recipients)
	}
	if len(report.Standings) != 2 || report.Standings[0].ParticipantID != "alice" {
		t.Fatalf("standings = %+v, want alice first of 2", report.Standings)
	}
}

func TestCloseQuarter_WalksThreeMonthsBack(t *testing.T) {
	store := memory.New()
	board := ranking.NewMemory()
	closer := New(store, board, nil)
	closer.now = func() time.Time {
		return time.Date(2026, time.April, 1, 0, 15, 0, 0, time.UTC)
	}

	for _, period := range []string{"2026-01", "2026-02", "2026-03"} {
		seedRecord(t, store, bonus.PoolCareer, period, "alice", "c-"+period, 23.00)
	}
	seedRecord(t, store, bonus.PoolCareer, "2025-12", "alice", "c-old", 23.00)

	report, err := closer.CloseQuarter(context.Background())
	if err != nil {
		t.Fatalf("close quarter: %v", err)
	}
	want := []string{"2026-01", "2026-02", "2026-03"}
	if len(report.Periods) != len(want) || report.Periods[0] != want[0] || report.Periods[2] != want[2] {
		t.Fatalf("periods = %v, want %v", report.Periods, want)
	}
	if report.Records != 3 {
		t.Fatalf("records = %d, want 3", report.Records)
	}
	if math.Abs(report.Accrued-69.00) > 0.001 {
		t.Fatalf("accrued = %.2f, want 69.00", report.Accrued)
	}
}

func TestCloser_StartStop(t *testing.T) {
	store := memory.New()
	closer := New(store, ranking.NewMemory(), nil)

	if closer.Name() != "closing" {
		t.Fatalf("name = %q", closer.Name())
	}
	if err := closer.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := closer.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
