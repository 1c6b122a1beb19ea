package inflight_test

import (
	"sync"
	"testing"

	"resound/internal/inflight"
)

func TestTryReserveWinsOnce(t *testing.T) {
	set := inflight.NewSet()
	if !set.TryReserve("a") {
		t.Fatal("first reservation should succeed")
	}
	if set.TryReserve("a") {
		t.Fatal("second reservation for same id should fail")
	}
	if !set.Contains("a") {
		t.Fatal("expected id to be a member")
	}
	if set.Len() != 1 {
		t.Fatalf("expected len 1, got %d", set.Len())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	set := inflight.NewSet()
	set.TryReserve("a")
	set.Release("a")
	set.Release("a")
	if set.Contains("a") {
		t.Fatal("expected id released")
	}
	if !set.TryReserve("a") {
		t.Fatal("released id should be reservable again")
	}
}

func TestEmptyIDRejected(t *testing.T) {
	set := inflight.NewSet()
	if set.TryReserve("") {
		t.Fatal("empty id must not be reservable")
	}
}

func TestClearRemovesAll(t *testing.T) {
	set := inflight.NewSet()
	set.TryReserve("a")
	set.TryReserve("b")
	set.Clear()
	if set.Len() != 0 {
		t.Fatalf("expected empty set after clear, got %d", set.Len())
	}
}

func TestConcurrentReservationIsExclusive(t *testing.T) {
	set := inflight.NewSet()
	const goroutines = 64
	var wg sync.WaitGroup
	wins := make(chan string, goroutines)

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if set.TryReserve("contended") {
				wins <- "won"
			}
		}()
	}
	wg.Wait()
	close(wins)

	total := 0
	for range wins {
		total++
	}
	if total != 1 {
		t.Fatalf("expected exactly one winner, got %d", total)
	}
}

func TestConcurrentReserveAndRelease(t *testing.T) {
	set := inflight.NewSet()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(2)
		id := string(rune('a' + i%8))
		go func() {
			defer wg.Done()
			set.TryReserve(id)
		}()
		go func() {
			defer wg.Done()
			set.Release(id)
		}()
	}
	wg.Wait()
	if got := set.Len(); got > 8 {
		t.Fatalf("set grew beyond distinct ids: %d", got)
	}
}
