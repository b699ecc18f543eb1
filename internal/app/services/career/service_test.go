package career

import (
	"context"
	"fmt"
	"testing"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/bonus"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/matrix"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/participant"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/plan"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage/memory"
)

func newTestService(cfg plan.Config, store *memory.Store) *Service {
	return New(store, store, store, store, plan.NewStore(cfg, ""), nil)
}

func addParticipant(t *testing.T, store *memory.Store, id, sponsorID string) {
	t.Helper()
	if _, err := store.CreateParticipant(context.Background(), participant.Participant{ID: id, Name: id, SponsorID: sponsorID}); err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
}

func addCompletedCycles(t *testing.T, store *memory.Store, ownerID string, n int) {
	t.Helper()
	existing, err := store.ListCycles(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("list cycles: %v", err)
	}
	next := len(existing) + 1
	for i := 0; i < n; i++ {
		c := matrix.Cycle{
			ID:          fmt.Sprintf("%s-c%d", ownerID, next+i),
			OwnerID:     ownerID,
			Number:      next + i,
			Status:      matrix.CycleCompleted,
			SlotsFilled: matrix.Width,
		}
		if _, err := store.CreateCycle(context.Background(), c); err != nil {
			t.Fatalf("seed cycle: %v", err)
		}
	}
}

func TestApplyCycle_LineCapBlocksSingleLegPromotion(t *testing.T) {
	store := memory.New()
	svc := newTestService(plan.Default(), store)

	addParticipant(t, store, "root", "")
	addParticipant(t, store, "d1", "root")
	addCompletedCycles(t, store, "root", 1)
	addCompletedCycles(t, store, "d1", 10)

	// Bronze needs 5 valid cycles; one line contributes at most 50% of the
	// threshold, so d1's 10 cycles count as 2.
	p, err := svc.ApplyCycle(context.Background(), "root")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if p.Pin != "" {
		t.Fatalf("promoted to %q on a single capped leg", p.Pin)
	}
	if p.CareerCycles != 11 {
		t.Fatalf("career cycles = %d, want 11 (total is uncapped)", p.CareerCycles)
	}

	// A second leg closes the gap: 1 own + 2 capped + 2 = 5.
	addParticipant(t, store, "d2", "root")
	addCompletedCycles(t, store, "d2", 2)
	p, err = svc.ApplyCycle(context.Background(), "root")
	if err != nil {
		t.Fatalf("apply after d2: %v", err)
	}
	if p.Pin != "Bronze" {
		t.Fatalf("pin = %q, want Bronze", p.Pin)
	}
}

func TestApplyCycle_LineCountsWholeSubtree(t *testing.T) {
	store := memory.New()
	svc := newTestService(plan.Default(), store)

	addParticipant(t, store, "root", "")
	addParticipant(t, store, "d1", "root")
	addParticipant(t, store, "g1", "d1")
	addParticipant(t, store, "g2", "g1")
	addCompletedCycles(t, store, "g1", 1)
	addCompletedCycles(t, store, "g2", 1)

	prog, err := svc.ProgressFor(context.Background(), "root")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if prog.LineCycles["d1"] != 2 {
		t.Fatalf("d1 line cycles = %d, want 2", prog.LineCycles["d1"])
	}
	if prog.NextPin != "Bronze" || prog.NextThreshold != 5 {
		t.Fatalf("next = %s/%d, want Bronze/5", prog.NextPin, prog.NextThreshold)
	}
	if prog.ValidToward != 2 {
		t.Fatalf("valid toward = %d, want 2", prog.ValidToward)
	}
}

func TestApplyCycle_RewardCreditedOnce(t *testing.T) {
	cfg := plan.Default()
	cfg.Career.Pins = []plan.Pin{
		{Name: "Bronze", Threshold: 2, Reward: 50, MaxLinePct: 100},
	}
	store := memory.New()
	svc := newTestService(cfg, store)

	addParticipant(t, store, "root", "")
	addCompletedCycles(t, store, "root", 2)

	p, err := svc.ApplyCycle(context.Background(), "root")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if p.Pin != "Bronze" {
		t.Fatalf("pin = %q, want Bronze", p.Pin)
	}

	acct, err := store.GetLedgerAccount(context.Background(), "root")
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if acct.Balance != 50 {
		t.Fatalf("balance = %.2f, want 50.00", acct.Balance)
	}

	// Reapplying after more cycles must not pay the same pin again.
	addCompletedCycles(t, store, "root", 1)
	if _, err := svc.ApplyCycle(context.Background(), "root"); err != nil {
		t.Fatalf("reapply: %v", err)
	}
	acct, err = store.GetLedgerAccount(context.Background(), "root")
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if acct.Balance != 50 {
		t.Fatalf("balance after reapply = %.2f, want 50.00", acct.Balance)
	}

	exists, err := store.BonusRecordExists(context.Background(), "pin:Bronze", "root", bonus.PoolCareer, 0)
	if err != nil || !exists {
		t.Fatalf("pin reward record missing: exists=%v err=%v", exists, err)
	}
}

func TestApplyCycle_PromotesThroughMultiplePins(t *testing.T) {
	cfg := plan.Default()
	cfg.Career.Pins = []plan.Pin{
		{Name: "Bronze", Threshold: 2, MaxLinePct: 100},
		{Name: "Prata", Threshold: 4, Reward: 100, MaxLinePct: 100},
	}
	store := memory.New()
	svc := newTestService(cfg, store)

	addParticipant(t, store, "root", "")
	addCompletedCycles(t, store, "root", 4)

	p, err := svc.ApplyCycle(context.Background(), "root")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if p.Pin != "Prata" {
		t.Fatalf("pin = %q, want Prata", p.Pin)
	}
	acct, err := store.GetLedgerAccount(context.Background(), "root")
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if acct.Balance != 100 {
		t.Fatalf("balance = %.2f, want 100.00 (only Prata carries a reward)", acct.Balance)
	}
}
