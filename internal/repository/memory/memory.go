// internal/repository/memory/memory.go

// Package memory is an in-process implementation of repository.Store. Writes
// inside WithinTx operate on a private copy that is swapped in on success.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agriqcert/agriqcert-backend/internal/errs"
	"github.com/agriqcert/agriqcert-backend/internal/models"
	"github.com/agriqcert/agriqcert-backend/internal/repository"
)

type data struct {
	users       map[uuid.UUID]models.User
	batches     map[uuid.UUID]models.Batch
	batchOrder  []uuid.UUID
	inspections []models.Inspection
}

func newData() *data {
	return &data{
		users:   make(map[uuid.UUID]models.User),
		batches: make(map[uuid.UUID]models.Batch),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.batches {
		c.batches[k] = v
	}
	c.batchOrder = append([]uuid.UUID(nil), d.batchOrder...)
	c.inspections = append([]models.Inspection(nil), d.inspections...)
	return c
}

type Store struct {
	mu   *sync.RWMutex
	data *data
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{mu: &sync.RWMutex{}, data: newData()}
}

func (s *Store) Users() repository.UserRepository             { return userRepo{s} }
func (s *Store) Batches() repository.BatchRepository          { return batchRepo{s} }
func (s *Store) Inspections() repository.InspectionRepository { return inspectionRepo{s} }

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, data: s.data.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	*s.data = *tx.data
	return nil
}

func (s *Store) read(fn func(d *data) error) error {
	if !s.inTx {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	return fn(s.data)
}

func (s *Store) write(fn func(d *data) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

func stamp(b *models.BaseModel) {
	b.EnsureID()
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// users

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	return r.s.write(func(d *data) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Username, user.Username) {
				return errs.ErrConflict
			}
			if user.Email != nil && u.Email != nil && strings.EqualFold(*u.Email, *user.Email) {
				return errs.ErrConflict
			}
		}
		stamp(&user.BaseModel)
		d.users[user.ID] = *user
		return nil
	})
}

func (r userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var out *models.User
	err := r.s.read(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return errs.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var out *models.User
	err := r.s.read(func(d *data) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Username, username) {
				u := u
				out = &u
				return nil
			}
		}
		return errs.ErrNotFound
	})
	return out, err
}

func (r userRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var found bool
	err := r.s.read(func(d *data) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Username, username) ||
				(email != "" && u.Email != nil && strings.EqualFold(*u.Email, email)) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

// batches

type batchRepo struct{ s *Store }

func (r batchRepo) Create(ctx context.Context, batch *models.Batch) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.users[batch.ExporterID]; !ok {
			return errs.ErrValidation
		}
		stamp(&batch.BaseModel)
		if batch.Status == "" {
			batch.Status = models.StatusSubmitted
		}
		if batch.OrderStatus == "" {
			batch.OrderStatus = models.OrderStatusNone
		}
		if batch.Attachments == nil {
			batch.Attachments = models.Attachments{}
		}

		stored := *batch
		stored.Exporter = nil
		stored.Attachments = append(models.Attachments(nil), batch.Attachments...)
		d.batches[batch.ID] = stored
		d.batchOrder = append(d.batchOrder, batch.ID)
		return nil
	})
}

func (r batchRepo) GetByID(ctx context.Context, id uuid.UUID, withExporter bool) (*models.Batch, error) {
	var out *models.Batch
	err := r.s.read(func(d *data) error {
		b, ok := d.batches[id]
		if !ok {
			return errs.ErrNotFound
		}
		if withExporter {
			attachExporter(d, &b)
		}
		out = &b
		return nil
	})
	return out, err
}

func (r batchRepo) List(ctx context.Context, f repository.BatchFilter) ([]models.Batch, error) {
	out := []models.Batch{}
	err := r.s.read(func(d *data) error {
		for _, id := range d.batchOrder {
			b, ok := d.batches[id]
			if !ok || !matches(b, f) {
				continue
			}
			if f.WithExporter {
				attachExporter(d, &b)
			}
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if f.Order == repository.NewestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func matches(b models.Batch, f repository.BatchFilter) bool {
	if f.ExporterID != nil && b.ExporterID != *f.ExporterID {
		return false
	}
	if f.OrderedBy != nil && (b.OrderedBy == nil || *b.OrderedBy != *f.OrderedBy) {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.OrderStatus != "" && b.OrderStatus != f.OrderStatus {
		return false
	}
	return true
}

func attachExporter(d *data, b *models.Batch) {
	if u, ok := d.users[b.ExporterID]; ok {
		b.Exporter = &u
	}
}

func (r batchRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from []models.CertificationStatus, to models.CertificationStatus) error {
	return r.s.write(func(d *data) error {
		b, ok := d.batches[id]
		if !ok {
			return errs.ErrNotFound
		}
		if !containsStatus(from, b.Status) {
			return errs.ErrConflict
		}
		b.Status = to
		b.UpdatedAt = time.Now().UTC()
		d.batches[id] = b
		return nil
	})
}

func (r batchRepo) UpdateOrder(ctx context.Context, id uuid.UUID, t repository.OrderTransition) error {
	return r.s.write(func(d *data) error {
		b, ok := d.batches[id]
		if !ok {
			return errs.ErrNotFound
		}
		if b.OrderStatus != t.From || (t.RequireStatus != "" && b.Status != t.RequireStatus) {
			return errs.ErrConflict
		}
		b.OrderStatus = t.To
		if t.OrderedBy != nil {
			buyer := *t.OrderedBy
			b.OrderedBy = &buyer
		}
		b.UpdatedAt = time.Now().UTC()
		d.batches[id] = b
		return nil
	})
}

func (r batchRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.batches[id]; !ok {
			return errs.ErrNotFound
		}
		delete(d.batches, id)
		for i, v := range d.batchOrder {
			if v == id {
				d.batchOrder = append(d.batchOrder[:i:i], d.batchOrder[i+1:]...)
				break
			}
		}
		return nil
	})
}

func (r batchRepo) DeleteAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.s.write(func(d *data) error {
		n = int64(len(d.batches))
		d.batches = make(map[uuid.UUID]models.Batch)
		d.batchOrder = nil
		return nil
	})
	return n, err
}

func containsStatus(set []models.CertificationStatus, s models.CertificationStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// inspections

type inspectionRepo struct{ s *Store }

func (r inspectionRepo) Create(ctx context.Context, inspection *models.Inspection) error {
	return r.s.write(func(d *data) error {
		stamp(&inspection.BaseModel)
		if inspection.InspectedAt.IsZero() {
			inspection.InspectedAt = inspection.CreatedAt
		}
		d.inspections = append(d.inspections, *inspection)
		return nil
	})
}

func (r inspectionRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Inspection, error) {
	out := []models.Inspection{}
	err := r.s.read(func(d *data) error {
		for i := len(d.inspections) - 1; i >= 0; i-- {
			if d.inspections[i].BatchID == batchID {
				out = append(out, d.inspections[i])
			}
		}
		return nil
	})
	return out, err
}

func (r inspectionRepo) DeleteAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.s.write(func(d *data) error {
		n = int64(len(d.inspections))
		d.inspections = nil
		return nil
	})
	return n, err
}
