// internal/repository/repository.go
//
// Package repository declares the persistence contracts used by the services.
// The gorm implementation lives in internal/database; internal/repository/memory
// backs development runs and tests.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/agriqcert/agriqcert-backend/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// ExistsByUsernameOrEmail ignores an empty email.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
}

// SortOrder controls creation-time ordering of list results.
type SortOrder int

const (
	NewestFirst SortOrder = iota
	OldestFirst
)

// BatchFilter narrows a batch listing. Zero values are ignored.
type BatchFilter struct {
	ExporterID  *uuid.UUID
	OrderedBy   *uuid.UUID
	Status      models.CertificationStatus
	OrderStatus models.OrderStatus
	Order       SortOrder
	// WithExporter loads the exporter relation so the username is rendered.
	WithExporter bool
}

// OrderTransition is a compare-and-set on a batch's order status.
type OrderTransition struct {
	From          models.OrderStatus
	To            models.OrderStatus
	RequireStatus models.CertificationStatus // optional
	OrderedBy     *uuid.UUID                 // set when not nil
}

type BatchRepository interface {
	Create(ctx context.Context, batch *models.Batch) error
	GetByID(ctx context.Context, id uuid.UUID, withExporter bool) (*models.Batch, error)
	List(ctx context.Context, filter BatchFilter) ([]models.Batch, error)
	// UpdateStatus moves the certification status to `to` only while it is one
	// of `from`. Returns errs.ErrNotFound for a missing batch and
	// errs.ErrConflict when the current status did not match.
	UpdateStatus(ctx context.Context, id uuid.UUID, from []models.CertificationStatus, to models.CertificationStatus) error
	UpdateOrder(ctx context.Context, id uuid.UUID, t OrderTransition) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int64, error)
}

type InspectionRepository interface {
	Create(ctx context.Context, inspection *models.Inspection) error
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Inspection, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// Store groups the repositories and runs work inside a transaction.
type Store interface {
	Users() UserRepository
	Batches() BatchRepository
	Inspections() InspectionRepository
	// WithinTx runs fn against a transactional view of the store. Any error
	// returned by fn rolls the whole unit back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
