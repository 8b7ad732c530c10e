// Package memory holds in-process repositories for tests, the CLI and
// single-node deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"payslipx/internal/domain"
	"payslipx/internal/port"
)

type usageRepo struct {
	mu      sync.RWMutex
	records []domain.UsageRecord
}

// NewUsageRepo creates an in-memory UsageRepository.
func NewUsageRepo() port.UsageRepository {
	return &usageRepo{}
}

func (r *usageRepo) Append(_ context.Context, rec *domain.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

func (r *usageRepo) Range(_ context.Context, from, to time.Time) ([]domain.UsageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.UsageRecord, 0)
	for i := range r.records {
		ts := r.records[i].Timestamp
		if !ts.Before(from) && ts.Before(to) {
			out = append(out, r.records[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
