package pool

import (
	"sort"
	"sync"
	"time"
)

// workerRegistry tracks per-worker bookkeeping: activity, panic counts, and
// retirement. All mutation happens under the registry lock.
type workerRegistry struct {
	mu      sync.Mutex
	records map[int64]*WorkerRecord
	retired int
}

func newWorkerRegistry() *workerRegistry {
	return &workerRegistry{records: make(map[int64]*WorkerRecord)}
}

func (r *workerRegistry) add(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id] = &WorkerRecord{ID: id, Active: true}
}

// recordPanic increments a worker's panic count and returns the new count.
func (r *workerRegistry) recordPanic(id int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return 0
	}
	rec.Panics++
	rec.LastPanic = time.Now()
	return rec.Panics
}

// retire marks a worker inactive because it exceeded the panic threshold.
// Retired records are kept for inspection.
func (r *workerRegistry) retire(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[id]; ok && rec.Active {
		rec.Active = false
		r.retired++
	}
}

// remove deletes a worker record on normal pool shutdown.
func (r *workerRegistry) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
}

func (r *workerRegistry) active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, rec := range r.records {
		if rec.Active {
			n++
		}
	}
	return n
}

func (r *workerRegistry) retiredCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retired
}

// snapshot returns copies of all records, ordered by worker ID.
func (r *workerRegistry) snapshot() []WorkerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]WorkerRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
