// internal/services/fingerprint_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agriqcert/agriqcert-backend/internal/models"
	"github.com/agriqcert/agriqcert-backend/internal/utils"
)

const fingerprintAlgorithm = "sha256"

// FingerprintService produces the display digest shown on the public verify
// page. Nothing is signed or anchored anywhere.
type FingerprintService struct {
	lifecycle *LifecycleService
	now       func() time.Time
}

type AuditRecord struct {
	BatchID     uuid.UUID           `json:"batchId"`
	Fingerprint string              `json:"fingerprint"`
	Algorithm   string              `json:"algorithm"`
	Batch       *models.Batch       `json:"batch"`
	Inspections []models.Inspection `json:"inspections"`
	ComputedAt  time.Time           `json:"computedAt"`
}

func NewFingerprintService(lifecycle *LifecycleService) *FingerprintService {
	return &FingerprintService{lifecycle: lifecycle, now: time.Now}
}

func (s *FingerprintService) Audit(ctx context.Context, batchID string) (*AuditRecord, error) {
	ctx, span := utils.StartSpan(ctx, "FingerprintService.Audit")
	defer span.End()

	batch, err := s.lifecycle.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	inspections, err := s.lifecycle.ListInspections(ctx, batchID)
	if err != nil {
		return nil, err
	}

	digest, err := Fingerprint(batch, inspections)
	if err != nil {
		return nil, err
	}

	return &AuditRecord{
		BatchID:     batch.ID,
		Fingerprint: digest,
		Algorithm:   fingerprintAlgorithm,
		Batch:       batch,
		Inspections: inspections,
		ComputedAt:  s.now().UTC(),
	}, nil
}

// Fingerprint hashes the certification-relevant fields of a batch. Order
// fields are excluded so the digest is stable once certification ends.
func Fingerprint(batch *models.Batch, inspections []models.Inspection) (string, error) {
	inspectionIDs := make([]string, 0, len(inspections))
	for _, in := range inspections {
		inspectionIDs = append(inspectionIDs, in.ID.String())
	}

	attachmentURLs := make([]string, 0, len(batch.Attachments))
	for _, a := range batch.Attachments {
		attachmentURLs = append(attachmentURLs, a.FileURL)
	}

	// encoding/json sorts map keys, which makes the rendering canonical
	recordData := map[string]interface{}{
		"id":                  batch.ID.String(),
		"exporter":            batch.ExporterID.String(),
		"productType":         batch.ProductType,
		"quantity":            batch.Quantity,
		"location":            batch.Location,
		"destination":         batch.Destination,
		"certificationStatus": string(batch.Status),
		"attachments":         attachmentURLs,
		"inspections":         inspectionIDs,
		"createdAt":           batch.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	payload, err := json.Marshal(recordData)
	if err != nil {
		return "", fmt.Errorf("failed to render batch: %w", err)
	}
	return utils.HashBytes(payload), nil
}
