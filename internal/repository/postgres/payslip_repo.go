package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"payslipx/internal/domain"
	"payslipx/internal/port"
)

type payslipRepo struct {
	db *sqlx.DB
}

// NewPayslipRepo creates a new PostgreSQL-backed PayslipRepository.
func NewPayslipRepo(db *sqlx.DB) port.PayslipRepository {
	return &payslipRepo{db: db}
}

type payslipRow struct {
	ID              uuid.UUID       `db:"id"`
	SessionID       uuid.UUID       `db:"session_id"`
	DeviceID        string          `db:"device_id"`
	ContentHash     string          `db:"content_hash"`
	Payslip         json.RawMessage `db:"payslip"`
	Confidence      float64         `db:"confidence"`
	FieldConfidence json.RawMessage `db:"field_confidence"`
	Methodology     string          `db:"methodology"`
	CreatedAt       time.Time       `db:"created_at"`
}

func (r *payslipRepo) Save(ctx context.Context, rec *domain.PayslipRecord) error {
	payslipJSON, err := json.Marshal(rec.Payslip)
	if err != nil {
		return fmt.Errorf("payslipRepo.Save marshal payslip: %w", err)
	}
	fieldJSON, err := json.Marshal(rec.FieldConfidence)
	if err != nil {
		return fmt.Errorf("payslipRepo.Save marshal field confidence: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO payslip_records
		(id, session_id, device_id, content_hash, payslip, confidence, field_confidence, methodology, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.SessionID, rec.DeviceID, rec.ContentHash, payslipJSON,
		rec.Confidence, fieldJSON, rec.Methodology, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("payslipRepo.Save: %w", err)
	}
	return nil
}

func (r *payslipRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayslipRecord, error) {
	var row payslipRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, session_id, device_id, content_hash, payslip, confidence, field_confidence, methodology, created_at
		 FROM payslip_records WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("payslipRepo.GetByID: %w", err)
	}

	rec := &domain.PayslipRecord{
		ID:          row.ID,
		SessionID:   row.SessionID,
		DeviceID:    row.DeviceID,
		ContentHash: row.ContentHash,
		Confidence:  row.Confidence,
		Methodology: row.Methodology,
		CreatedAt:   row.CreatedAt,
	}
	if err := json.Unmarshal(row.Payslip, &rec.Payslip); err != nil {
		return nil, fmt.Errorf("payslipRepo.GetByID unmarshal payslip: %w", err)
	}
	if len(row.FieldConfidence) > 0 {
		if err := json.Unmarshal(row.FieldConfidence, &rec.FieldConfidence); err != nil {
			return nil, fmt.Errorf("payslipRepo.GetByID unmarshal field confidence: %w", err)
		}
	}
	return rec, nil
}
