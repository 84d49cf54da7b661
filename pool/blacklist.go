package pool

import "sync"

// blacklist counts panics per task identifier and bans identifiers that
// reach the threshold. Banned identifiers are rejected at submission time.
type blacklist struct {
	mu        sync.Mutex
	threshold int
	counts    map[string]int
	banned    map[string]struct{}
}

func newBlacklist(threshold int) *blacklist {
	return &blacklist{
		threshold: threshold,
		counts:    make(map[string]int),
		banned:    make(map[string]struct{}),
	}
}

// recordPanic increments the panic count for a task identifier, banning it
// once the threshold is reached.
func (b *blacklist) recordPanic(taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.counts[taskID]++
	if b.counts[taskID] >= b.threshold {
		b.banned[taskID] = struct{}{}
	}
}

func (b *blacklist) isBanned(taskID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.banned[taskID]
	return ok
}

func (b *blacklist) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.banned)
}
