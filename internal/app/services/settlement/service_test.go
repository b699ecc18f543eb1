package settlement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/bonus"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/matrix"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/participant"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/plan"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/career"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/cycles"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/ranking"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/upline"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage/memory"
)

type fixture struct {
	store  *memory.Store
	cycles *cycles.Service
	board  *ranking.MemoryLeaderboard
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	plans := plan.NewStore(plan.Default(), "")
	store := memory.New()
	board := ranking.NewMemory()
	uplineSvc := upline.New(store, store, nil)
	careerSvc := career.New(store, store, store, store, plans, nil)
	cyclesSvc := cycles.New(store, store, plans, nil)
	svc := New(store, store, store, store, store, uplineSvc, careerSvc, board, plans, nil)
	return &fixture{store: store, cycles: cyclesSvc, board: board, svc: svc}
}

// chain builds a1 <- a2 <- ... <- aN with matching tree edges and returns the
// deepest member's ID.
func (f *fixture) chain(t *testing.T, length int) string {
	t.Helper()
	prev := ""
	for i := 1; i <= length; i++ {
		id := fmt.Sprintf("a%d", i)
		if _, err := f.store.CreateParticipant(context.Background(), participant.Participant{ID: id, Name: id, SponsorID: prev}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		if prev != "" {
			if _, err := f.store.CreateEdge(context.Background(), matrix.Edge{UplineID: prev, DownlineID: id, Slot: 1, Level: 1}); err != nil {
				t.Fatalf("edge: %v", err)
			}
		}
		prev = id
	}
	return prev
}

func (f *fixture) completeCycle(t *testing.T, ownerID string) matrix.Cycle {
	t.Helper()
	c, err := f.cycles.GetOrOpen(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("open cycle: %v", err)
	}
	for i := 0; i < matrix.Width; i++ {
		c, err = f.cycles.Fill(context.Background(), c, fmt.Sprintf("occ%d", i+1))
		if err != nil {
			t.Fatalf("fill: %v", err)
		}
	}
	return c
}

func (f *fixture) balance(t *testing.T, id string) float64 {
	t.Helper()
	acct, err := f.store.GetLedgerAccount(context.Background(), id)
	if err != nil {
		return 0
	}
	return acct.Balance
}

func TestProcessPending_PaysCycleDepthAndCareer(t *testing.T) {
	f := newFixture(t)
	leaf := f.chain(t, 4)
	f.completeCycle(t, leaf)

	settled, err := f.svc.ProcessPending(context.Background(), 0)
	if err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if settled != 2 {
		t.Fatalf("settled = %d, want 2 (open + completion)", settled)
	}

	// Owner: 30% of 360. Career accrues without a ledger credit.
	if got := f.balance(t, leaf); got != 108.00 {
		t.Fatalf("owner balance = %.2f, want 108.00", got)
	}

	// a3 is level 1 (7% of 24.52); a1 is level 3 and absorbs the rolled
	// levels 3..6 (10+15+25+35 percent).
	if got := f.balance(t, "a3"); math.Abs(got-1.72) > 0.001 {
		t.Fatalf("a3 balance = %.2f, want 1.72", got)
	}
	want := 2.45 + 3.68 + 6.13 + 8.58
	if got := f.balance(t, "a1"); math.Abs(got-want) > 0.02 {
		t.Fatalf("a1 balance = %.2f, want about %.2f", got, want)
	}

	// Career accrual recorded but not credited.
	records, err := f.store.ListBonusRecords(context.Background(), leaf)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	var foundCareer bool
	for _, rec := range records {
		if rec.Pool == bonus.PoolCareer {
			foundCareer = true
			if rec.Status != bonus.StatusAccrued || rec.Amount != 23.00 {
				t.Fatalf("career record = %+v", rec)
			}
		}
	}
	if !foundCareer {
		t.Fatalf("career accrual record missing")
	}
}

func TestProcessPending_Idempotent(t *testing.T) {
	f := newFixture(t)
	leaf := f.chain(t, 3)
	f.completeCycle(t, leaf)

	if _, err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	first := f.balance(t, leaf)

	// Replays must not double-pay even with the processed flag cleared.
	events, err := f.store.ListUnprocessedEvents(context.Background(), 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events left unprocessed: %d", len(events))
	}

	if _, err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if got := f.balance(t, leaf); got != first {
		t.Fatalf("balance moved on reprocess: %.2f -> %.2f", first, got)
	}
}

func TestProcessEvent_ReplaySkipsPaidAwards(t *testing.T) {
	f := newFixture(t)
	leaf := f.chain(t, 3)
	completed := f.completeCycle(t, leaf)

	events, err := f.store.ListUnprocessedEvents(context.Background(), 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	var completionEvent matrix.Event
	for _, ev := range events {
		if ev.Type == matrix.EventCycleCompleted {
			completionEvent = ev
		}
	}

	if err := f.svc.ProcessEvent(context.Background(), completionEvent); err != nil {
		t.Fatalf("process: %v", err)
	}
	balance := f.balance(t, leaf)

	// Force a replay of the same event payload.
	if err := f.svc.ProcessEvent(context.Background(), completionEvent); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if got := f.balance(t, leaf); got != balance {
		t.Fatalf("replay changed balance: %.2f -> %.2f", balance, got)
	}

	exists, err := f.store.BonusRecordExists(context.Background(), completed.ID, leaf, bonus.PoolCycle, 0)
	if err != nil || !exists {
		t.Fatalf("cycle bonus record missing: exists=%v err=%v", exists, err)
	}
}

func TestProcessPending_RecordsLeaderboardOnce(t *testing.T) {
	f := newFixture(t)
	leaf := f.chain(t, 2)
	f.completeCycle(t, leaf)

	if _, err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("process: %v", err)
	}

	events, _ := f.store.ListUnprocessedEvents(context.Background(), 0)
	if len(events) != 0 {
		t.Fatalf("pending events remain")
	}

	standings, err := f.board.Top(context.Background(), currentPeriod(), 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(standings) != 1 || standings[0].ParticipantID != leaf {
		t.Fatalf("standings = %+v", standings)
	}
}

func TestProcessPending_FidelityOnlyForReentered(t *testing.T) {
	f := newFixture(t)
	leaf := f.chain(t, 3)

	// a1 reenters before the leaf cycles; a2 does not.
	f.completeCycle(t, "a1")
	if _, err := f.cycles.Reenter(context.Background(), "a1"); err != nil {
		t.Fatalf("reenter a1: %v", err)
	}
	f.completeCycle(t, leaf)

	if _, err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("process: %v", err)
	}

	leafRecords := map[bonus.Pool]bool{}
	for _, id := range []string{"a1", "a2"} {
		records, err := f.store.ListBonusRecords(context.Background(), id)
		if err != nil {
			t.Fatalf("list records: %v", err)
		}
		for _, rec := range records {
			if rec.Pool == bonus.PoolFidelity && rec.OriginOwner == leaf {
				if id == "a2" {
					t.Fatalf("fidelity paid to non-reentered a2: %+v", rec)
				}
				leafRecords[rec.Pool] = true
			}
		}
	}
	if !leafRecords[bonus.PoolFidelity] {
		t.Fatalf("no fidelity records for reentered a1")
	}
}

// flakyLedger rejects a number of award credits before recovering.
type flakyLedger struct {
	storage.LedgerStore
	failures int
}

func (l *flakyLedger) CreditAward(ctx context.Context, rec bonus.Record, entry bonus.LedgerEntry) (bonus.LedgerAccount, error) {
	if l.failures > 0 {
		l.failures--
		return bonus.LedgerAccount{}, errors.New("ledger unavailable")
	}
	return l.LedgerStore.CreditAward(ctx, rec, entry)
}

func TestProcessPending_RetryPaysAwardMissedByCreditFailure(t *testing.T) {
	plans := plan.NewStore(plan.Default(), "")
	store := memory.New()
	board := ranking.NewMemory()
	ledger := &flakyLedger{LedgerStore: store, failures: 1}
	uplineSvc := upline.New(store, store, nil)
	careerSvc := career.New(store, store, store, store, plans, nil)
	cyclesSvc := cycles.New(store, store, plans, nil)
	svc := New(store, store, store, store, ledger, uplineSvc, careerSvc, board, plans, nil)
	f := &fixture{store: store, cycles: cyclesSvc, board: board, svc: svc}

	leaf := f.chain(t, 2)
	completed := f.completeCycle(t, leaf)

	// The owner's cycle credit fails; the event must stay pending and the
	// record must not exist without its money.
	settled, err := f.svc.ProcessPending(context.Background(), 0)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if settled != 1 {
		t.Fatalf("settled = %d, want 1 (only the open event)", settled)
	}
	events, err := f.store.ListUnprocessedEvents(context.Background(), 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].Type != matrix.EventCycleCompleted {
		t.Fatalf("pending events = %+v, want the completion", events)
	}
	exists, err := f.store.BonusRecordExists(context.Background(), completed.ID, leaf, bonus.PoolCycle, 0)
	if err != nil {
		t.Fatalf("record exists: %v", err)
	}
	if exists {
		t.Fatalf("cycle record written although its credit failed")
	}
	if got := f.balance(t, leaf); got != 0 {
		t.Fatalf("owner balance = %.2f before retry, want 0", got)
	}
	uplineEntries, err := f.store.ListLedgerEntries(context.Background(), "a1")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	firstPassEntries := len(uplineEntries)
	if firstPassEntries == 0 {
		t.Fatalf("upline depth awards should have landed on the first pass")
	}

	// The retry pays only the missed award.
	if _, err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	events, _ = f.store.ListUnprocessedEvents(context.Background(), 0)
	if len(events) != 0 {
		t.Fatalf("event still pending after retry")
	}
	if got := f.balance(t, leaf); got != 108.00 {
		t.Fatalf("owner balance = %.2f after retry, want 108.00", got)
	}
	uplineEntries, _ = f.store.ListLedgerEntries(context.Background(), "a1")
	if len(uplineEntries) != firstPassEntries {
		t.Fatalf("upline entries grew on retry: %d -> %d", firstPassEntries, len(uplineEntries))
	}

	// The retried event still lands the owner on the leaderboard, once.
	standings, err := f.board.Top(context.Background(), currentPeriod(), 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(standings) != 1 || standings[0].ParticipantID != leaf {
		t.Fatalf("standings = %+v, want only %s", standings, leaf)
	}
}

func currentPeriod() string {
	return ranking.Period(time.Now())
}
