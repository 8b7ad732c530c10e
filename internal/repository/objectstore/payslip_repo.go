// Package objectstore archives payslip records as JSON objects.
package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"payslipx/internal/domain"
	"payslipx/internal/port"
)

const contentType = "application/json"

// Object metadata keys written next to every archived record.
const (
	MetaDevice      = "device-id"
	MetaSession     = "session-id"
	MetaContentHash = "content-hash"
	MetaConfidence  = "confidence"
)

type payslipRepository struct {
	store  port.BlobStore
	prefix string
}

// NewPayslipRepo stores each record at {prefix}/{id}.json.
func NewPayslipRepo(store port.BlobStore, prefix string) port.PayslipRepository {
	return &payslipRepository{store: store, prefix: strings.Trim(prefix, "/")}
}

func (r *payslipRepository) key(id uuid.UUID) string {
	if r.prefix == "" {
		return id.String() + ".json"
	}
	return r.prefix + "/" + id.String() + ".json"
}

func (r *payslipRepository) Save(ctx context.Context, record *domain.PayslipRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("objectstore.PayslipRepo.Save: marshal: %w", err)
	}
	err = r.store.Put(ctx, port.BlobObject{
		Key:         r.key(record.ID),
		Body:        body,
		ContentType: contentType,
		Metadata: map[string]string{
			MetaDevice:      record.DeviceID,
			MetaSession:     record.SessionID.String(),
			MetaContentHash: record.ContentHash,
			MetaConfidence:  strconv.FormatFloat(record.Confidence, 'f', 4, 64),
		},
	})
	if err != nil {
		return fmt.Errorf("objectstore.PayslipRepo.Save: %w", err)
	}
	return nil
}

func (r *payslipRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayslipRecord, error) {
	obj, err := r.store.Get(ctx, r.key(id))
	if err != nil {
		return nil, fmt.Errorf("objectstore.PayslipRepo.GetByID: %w", err)
	}
	var record domain.PayslipRecord
	if err := json.Unmarshal(obj.Body, &record); err != nil {
		return nil, fmt.Errorf("objectstore.PayslipRepo.GetByID: decode %s: %w", id, err)
	}
	return &record, nil
}
