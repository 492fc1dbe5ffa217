// internal/database/store.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agriqcert/agriqcert-backend/internal/errs"
	"github.com/agriqcert/agriqcert-backend/internal/models"
	"github.com/agriqcert/agriqcert-backend/internal/repository"
)

// Store implements repository.Store on top of gorm.
type Store struct {
	db *gorm.DB
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() repository.UserRepository             { return &userRepo{db: s.db} }
func (s *Store) Batches() repository.BatchRepository          { return &batchRepo{db: s.db} }
func (s *Store) Inspections() repository.InspectionRepository { return &inspectionRepo{db: s.db} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translate maps gorm's translated driver errors onto the shared sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", errs.ErrConflict, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	default:
		return err
	}
}

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("lower(username) = lower(?)", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.User{})
	if email != "" {
		q = q.Where("lower(username) = lower(?) OR lower(email) = lower(?)", username, email)
	} else {
		q = q.Where("lower(username) = lower(?)", username)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

type batchRepo struct {
	db *gorm.DB
}

func (r *batchRepo) Create(ctx context.Context, batch *models.Batch) error {
	if batch.Attachments == nil {
		batch.Attachments = models.Attachments{}
	}
	return translate(r.db.WithContext(ctx).Omit("Exporter").Create(batch).Error)
}

func (r *batchRepo) GetByID(ctx context.Context, id uuid.UUID, withExporter bool) (*models.Batch, error) {
	q := r.db.WithContext(ctx)
	if withExporter {
		q = q.Preload("Exporter")
	}

	var batch models.Batch
	if err := q.First(&batch, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &batch, nil
}

func (r *batchRepo) List(ctx context.Context, f repository.BatchFilter) ([]models.Batch, error) {
	q := r.db.WithContext(ctx).Model(&models.Batch{})
	if f.WithExporter {
		q = q.Preload("Exporter")
	}
	if f.ExporterID != nil {
		q = q.Where("exporter_id = ?", *f.ExporterID)
	}
	if f.OrderedBy != nil {
		q = q.Where("ordered_by = ?", *f.OrderedBy)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OrderStatus != "" {
		q = q.Where("order_status = ?", f.OrderStatus)
	}
	if f.Order == repository.OldestFirst {
		q = q.Order("created_at ASC")
	} else {
		q = q.Order("created_at DESC")
	}

	batches := []models.Batch{}
	if err := q.Find(&batches).Error; err != nil {
		return nil, translate(err)
	}
	return batches, nil
}

func (r *batchRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from []models.CertificationStatus, to models.CertificationStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Batch{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *batchRepo) UpdateOrder(ctx context.Context, id uuid.UUID, t repository.OrderTransition) error {
	updates := map[string]interface{}{"order_status": t.To}
	if t.OrderedBy != nil {
		updates["ordered_by"] = *t.OrderedBy
	}

	q := r.db.WithContext(ctx).Model(&models.Batch{}).
		Where("id = ? AND order_status = ?", id, t.From)
	if t.RequireStatus != "" {
		q = q.Where("status = ?", t.RequireStatus)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

// missOrConflict explains a compare-and-set that matched no row.
func (r *batchRepo) missOrConflict(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Batch{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translate(err)
	}
	if count == 0 {
		return errs.ErrNotFound
	}
	return errs.ErrConflict
}

func (r *batchRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Batch{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *batchRepo) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Batch{})
	return res.RowsAffected, translate(res.Error)
}

type inspectionRepo struct {
	db *gorm.DB
}

func (r *inspectionRepo) Create(ctx context.Context, inspection *models.Inspection) error {
	return translate(r.db.WithContext(ctx).Create(inspection).Error)
}

func (r *inspectionRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Inspection, error) {
	inspections := []models.Inspection{}
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("inspected_at DESC").
		Find(&inspections).Error
	return inspections, translate(err)
}

func (r *inspectionRepo) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Inspection{})
	return res.RowsAffected, translate(res.Error)
}
