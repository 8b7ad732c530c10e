package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"payslipx/internal/domain"
	"payslipx/internal/port"
)

type payslipRepo struct {
	mu      sync.RWMutex
	records map[uuid.UUID]domain.PayslipRecord
}

// NewPayslipRepo creates an in-memory PayslipRepository.
func NewPayslipRepo() port.PayslipRepository {
	return &payslipRepo{records: make(map[uuid.UUID]domain.PayslipRecord)}
}

func (r *payslipRepo) Save(_ context.Context, rec *domain.PayslipRecord) error {
	cp := *rec
	cp.Payslip = rec.Payslip.Clone()
	cp.FieldConfidence = maps.Clone(rec.FieldConfidence)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = cp
	return nil
}

func (r *payslipRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.PayslipRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec.Payslip = rec.Payslip.Clone()
	rec.FieldConfidence = maps.Clone(rec.FieldConfidence)
	return &rec, nil
}
