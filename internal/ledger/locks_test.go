package ledger

import (
	"sync"
	"testing"
)

func TestLockAllDeduplicatesIDs(t *testing.T) {
	locks := newProductLocks()

	// a repeated ID must not deadlock against itself
	unlock := locks.lockAll([]uint{3, 1, 3, 2, 1})
	unlock()

	// and everything must be released afterwards
	for _, id := range []uint{1, 2, 3} {
		mu := locks.get(id)
		if !mu.TryLock() {
			t.Fatalf("lock %d still held after unlock", id)
		}
		mu.Unlock()
	}
}

func TestLockAllSerializesOverlappingSets(t *testing.T) {
	locks := newProductLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// overlapping and reversed ID sets hit the same ordering path
			ids := []uint{1, 2}
			if i%2 == 0 {
				ids = []uint{2, 1}
			}
			unlock := locks.lockAll(ids)
			defer unlock()
			counter++
		}(i)
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 serialized increments, got %d", counter)
	}
}

func TestGetReturnsStableMutex(t *testing.T) {
	locks := newProductLocks()
	if locks.get(7) != locks.get(7) {
		t.Fatalf("same product yielded different mutexes")
	}
	if locks.get(7) == locks.get(8) {
		t.Fatalf("different products share a mutex")
	}
}
