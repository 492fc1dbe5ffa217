// internal/models/inspection.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Inspection is written once per verdict and never updated. BatchID carries
// no foreign key so the record outlives a deleted batch.
type Inspection struct {
	BaseModel
	BatchID       uuid.UUID        `json:"batch" gorm:"type:uuid;not null;index"`
	QAID          uuid.UUID        `json:"qaAgency" gorm:"column:qa_id;type:uuid;not null;index"`
	Moisture      string           `json:"moisture" gorm:"size:50"`
	Pesticide     string           `json:"pesticide" gorm:"size:50"`
	OrganicStatus string           `json:"organicStatus" gorm:"size:50"`
	ISOCode       string           `json:"isoCode" gorm:"column:iso_code;size:50"`
	Result        InspectionResult `json:"result" gorm:"type:varchar(10);not null"`
	InspectedAt   time.Time        `json:"inspectionDate" gorm:"not null"`
}
