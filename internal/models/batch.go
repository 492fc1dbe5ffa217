// internal/models/batch.go
package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

type Batch struct {
	BaseModel
	ExporterID  uuid.UUID           `json:"-" gorm:"type:uuid;not null;index"`
	ProductType string              `json:"productType" gorm:"size:255;not null"`
	Quantity    string              `json:"quantity" gorm:"size:100;not null"`
	Location    string              `json:"location" gorm:"size:255;not null"`
	Destination string              `json:"destination" gorm:"size:255;not null"`
	Status      CertificationStatus `json:"certificationStatus" gorm:"type:varchar(20);default:'Submitted';index"`
	OrderedBy   *uuid.UUID          `json:"orderedBy" gorm:"type:uuid;index"`
	OrderStatus OrderStatus         `json:"orderStatus" gorm:"type:varchar(20);default:'None';index"`
	Attachments Attachments         `json:"attachments" gorm:"type:jsonb;not null;default:'[]'"`

	// Relationships
	Exporter *User `json:"-" gorm:"foreignKey:ExporterID"`
}

type Attachment struct {
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType"`
	Key      string `json:"-"`
}

// ExporterRef is how a batch names its owner on the wire; Username is only
// set when the exporter relation was loaded.
type ExporterRef struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username,omitempty"`
}

func (b Batch) MarshalJSON() ([]byte, error) {
	type batchAlias Batch

	ref := ExporterRef{ID: b.ExporterID}
	if b.Exporter != nil {
		ref.Username = b.Exporter.Username
	}

	attachments := b.Attachments
	if attachments == nil {
		attachments = Attachments{}
	}

	return json.Marshal(struct {
		batchAlias
		Exporter    ExporterRef `json:"exporter"`
		Attachments Attachments `json:"attachments"`
	}{
		batchAlias:  batchAlias(b),
		Exporter:    ref,
		Attachments: attachments,
	})
}
