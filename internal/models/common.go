// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns the id client side so callers can reference the row
// before the insert returns.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	b.EnsureID()
	return nil
}

func (b *BaseModel) EnsureID() {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
}

// Attachments is stored as a jsonb column on the batch row.
type Attachments []Attachment

func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Attachments) Scan(value interface{}) error {
	if value == nil {
		*a = Attachments{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("attachments: unsupported column type")
	}

	return json.Unmarshal(raw, a)
}

// Enums
type Role string

const (
	RoleExporter Role = "exporter"
	RoleQA       Role = "qa"
	RoleImporter Role = "importer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleExporter, RoleQA, RoleImporter, RoleAdmin:
		return true
	}
	return false
}

type CertificationStatus string

const (
	StatusSubmitted       CertificationStatus = "Submitted"
	StatusUnderInspection CertificationStatus = "Under Inspection"
	StatusCertified       CertificationStatus = "Certified"
	StatusRejected        CertificationStatus = "Rejected"
)

type OrderStatus string

const (
	OrderStatusNone     OrderStatus = "None"
	OrderStatusPending  OrderStatus = "Pending"
	OrderStatusShipped  OrderStatus = "Shipped"
	OrderStatusDeclined OrderStatus = "Declined"
)

type InspectionResult string

const (
	ResultPass InspectionResult = "Pass"
	ResultFail InspectionResult = "Fail"
)

// Outcome maps an inspection verdict onto the certification status it produces.
func (r InspectionResult) Outcome() CertificationStatus {
	if r == ResultPass {
		return StatusCertified
	}
	return StatusRejected
}
