package postgres

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cardiopredict/web/internal/domain"
)

// MemoryRepository implements domain.AuditRepository without a database.
// It keeps the newest capacity entries and forgets them on restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	entries  []domain.AssessmentLog
	next     int
	full     bool
	capacity int
}

// NewMemoryRepository creates a ring of the given capacity
func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryRepository{
		entries:  make([]domain.AssessmentLog, capacity),
		capacity: capacity,
	}
}

// SaveAssessmentLog stores the entry, overwriting the oldest when full
func (r *MemoryRepository) SaveAssessmentLog(ctx context.Context, entry domain.AssessmentLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = entry
	r.next = (r.next + 1) % r.capacity
	if r.next == 0 {
		r.full = true
	}
	return nil
}

// RecentAssessmentLogs returns stored entries newer than since, newest first
func (r *MemoryRepository) RecentAssessmentLogs(ctx context.Context, since time.Time, limit int) ([]domain.AssessmentLog, error) {
	r.mu.RLock()
	n := r.next
	if r.full {
		n = r.capacity
	}
	out := make([]domain.AssessmentLog, 0, n)
	for _, e := range r.entries[:n] {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored entries
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.full {
		return r.capacity
	}
	return r.next
}

// Health always returns nil in memory mode
func (r *MemoryRepository) Health(ctx context.Context) error {
	return nil
}
