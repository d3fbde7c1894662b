package room

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreForTest(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, time.Hour), mr
}

func TestNewCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := NewCode()
		if err != nil {
			t.Fatalf("NewCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not 6 chars", code)
		}
		for _, c := range code {
			if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
				t.Fatalf("code %q has char %q outside alphabet", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 90 {
		t.Fatalf("suspiciously many collisions in 100 codes: %d unique", len(seen))
	}
}

func TestTryClaimIsExclusive(t *testing.T) {
	store, _ := newStoreForTest(t)
	ctx := context.Background()

	ok, err := store.TryClaim(ctx, "AAAAAA")
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = store.TryClaim(ctx, "AAAAAA")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if ok {
		t.Fatalf("claimed the same code twice")
	}
}

func TestOpenIndexPrunedByReaper(t *testing.T) {
	store, _ := newStoreForTest(t)
	ctx := context.Background()

	live := &Room{Code: "LIVE01", HostID: "u1", Status: StatusWaiting,
		Players: []Player{{UserID: "u1"}}, MoveHistory: []Move{}, CreatedAt: time.Now()}
	if err := store.Save(ctx, live); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, code := range []string{"LIVE01", "GONE01"} {
		if err := store.AddOpen(ctx, code); err != nil {
			t.Fatalf("AddOpen: %v", err)
		}
	}
	// GONE01 has no room document, as if its TTL expired.
	sweepOpenIndex(store)

	codes, err := store.OpenCodes(ctx)
	if err != nil {
		t.Fatalf("OpenCodes: %v", err)
	}
	if len(codes) != 1 || codes[0] != "LIVE01" {
		t.Fatalf("expected only LIVE01 to survive, got %v", codes)
	}
}
