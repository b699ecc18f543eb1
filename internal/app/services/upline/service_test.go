package upline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/matrix"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/participant"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage/memory"
)

// buildChain creates a straight tree a1 <- a2 <- ... <- leaf, one edge per
// link, and returns the leaf ID.
func buildChain(t *testing.T, store *memory.Store, length int) string {
	t.Helper()
	prev := ""
	for i := 1; i <= length; i++ {
		id := fmt.Sprintf("a%d", i)
		if _, err := store.CreateParticipant(context.Background(), participant.Participant{ID: id, Name: id, SponsorID: prev}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		if prev != "" {
			if _, err := store.CreateEdge(context.Background(), matrix.Edge{UplineID: prev, DownlineID: id, Slot: 1, Level: 1}); err != nil {
				t.Fatalf("edge %s->%s: %v", prev, id, err)
			}
		}
		prev = id
	}
	return prev
}

func TestResolve_WalksNearestFirst(t *testing.T) {
	store := memory.New()
	leaf := buildChain(t, store, 8)
	svc := New(store, store, nil)

	ancestors, err := svc.Resolve(context.Background(), leaf, 6)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(ancestors) != 6 {
		t.Fatalf("ancestors = %d, want 6", len(ancestors))
	}
	if ancestors[0].Participant.ID != "a7" || ancestors[0].Level != 1 {
		t.Fatalf("first ancestor = %+v", ancestors[0])
	}
	if ancestors[5].Participant.ID != "a2" || ancestors[5].Level != 6 {
		t.Fatalf("sixth ancestor = %+v", ancestors[5])
	}
}

func TestResolve_CompressesInactive(t *testing.T) {
	store := memory.New()
	leaf := buildChain(t, store, 5)
	svc := New(store, store, nil)

	// Deactivate the direct parent; its level must pass to the grandparent
	// without consuming a slot.
	p, err := store.GetParticipant(context.Background(), "a4")
	if err != nil {
		t.Fatalf("get a4: %v", err)
	}
	p.Status = participant.StatusInactive
	if _, err := store.UpdateParticipant(context.Background(), p); err != nil {
		t.Fatalf("deactivate a4: %v", err)
	}

	ancestors, err := svc.Resolve(context.Background(), leaf, 6)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"a3", "a2", "a1"}
	if len(ancestors) != len(want) {
		t.Fatalf("ancestors = %d, want %d", len(ancestors), len(want))
	}
	for i, id := range want {
		if ancestors[i].Participant.ID != id || ancestors[i].Level != i+1 {
			t.Fatalf("ancestor %d = %+v, want %s at level %d", i, ancestors[i], id, i+1)
		}
	}
}

func TestResolve_StopsAtRoot(t *testing.T) {
	store := memory.New()
	leaf := buildChain(t, store, 3)
	svc := New(store, store, nil)

	ancestors, err := svc.Resolve(context.Background(), leaf, 6)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(ancestors) != 2 {
		t.Fatalf("ancestors = %d, want 2", len(ancestors))
	}
}

func TestResolve_DetectsEdgeLoop(t *testing.T) {
	store := memory.New()
	for _, id := range []string{"x", "y"} {
		if _, err := store.CreateParticipant(context.Background(), participant.Participant{ID: id, Name: id}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if _, err := store.CreateEdge(context.Background(), matrix.Edge{UplineID: "x", DownlineID: "y", Slot: 1, Level: 1}); err != nil {
		t.Fatalf("edge: %v", err)
	}
	if _, err := store.CreateEdge(context.Background(), matrix.Edge{UplineID: "y", DownlineID: "x", Slot: 1, Level: 1}); err != nil {
		t.Fatalf("edge: %v", err)
	}

	svc := New(store, store, nil)
	_, err := svc.Resolve(context.Background(), "y", 6)
	if !errors.Is(err, matrix.ErrCorruptSponsorGraph) {
		t.Fatalf("err = %v, want ErrCorruptSponsorGraph", err)
	}
}

func TestResolveIDs(t *testing.T) {
	store := memory.New()
	leaf := buildChain(t, store, 4)
	svc := New(store, store, nil)

	ids, err := svc.ResolveIDs(context.Background(), leaf, 2)
	if err != nil {
		t.Fatalf("resolve ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a3" || ids[1] != "a2" {
		t.Fatalf("ids = %v", ids)
	}
}
