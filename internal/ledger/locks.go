package ledger

import (
	"sort"
	"sync"
)

// productLocks serializes stock mutations per product. Mutexes are
// created on first use and kept for the life of the process; the table
// is bounded by the number of distinct products.
type productLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newProductLocks() *productLocks {
	return &productLocks{locks: map[uint]*sync.Mutex{}}
}

func (p *productLocks) get(id uint) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.locks[id]
	if !ok {
		m = &sync.Mutex{}
		p.locks[id] = m
	}
	return m
}

// lockAll acquires the mutexes for every given product for the
// duration of one ledger operation. IDs are deduplicated and locked in
// ascending order so two operations touching overlapping product sets
// cannot deadlock. The returned func releases all of them.
func (p *productLocks) lockAll(ids []uint) func() {
	uniq := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	held := make([]*sync.Mutex, 0, len(uniq))
	for _, id := range uniq {
		m := p.get(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
