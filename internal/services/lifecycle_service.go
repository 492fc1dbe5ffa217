// internal/services/lifecycle_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agriqcert/agriqcert-backend/internal/broker"
	"github.com/agriqcert/agriqcert-backend/internal/errs"
	"github.com/agriqcert/agriqcert-backend/internal/models"
	"github.com/agriqcert/agriqcert-backend/internal/repository"
	"github.com/agriqcert/agriqcert-backend/internal/utils"
)

// LifecycleService owns every batch transition from submission to shipment.
type LifecycleService struct {
	store      repository.Store
	files      AttachmentStore
	uploadOpts UploadOptions
	maxFiles   int
	publisher  broker.Publisher
	guard      Guard
	now        func() time.Time
}

type CreateBatchRequest struct {
	ExporterID  string `form:"exporterId" json:"exporterId"`
	ProductType string `form:"productType" json:"productType" validate:"required,max=255"`
	Quantity    string `form:"quantity" json:"quantity" validate:"required,max=100"`
	Location    string `form:"location" json:"location" validate:"required,max=255"`
	Destination string `form:"destination" json:"destination" validate:"required,max=255"`
}

type SubmitInspectionRequest struct {
	BatchID       string `json:"batchId" validate:"required"`
	QAID          string `json:"qaId"`
	Moisture      string `json:"moisture" validate:"max=50"`
	Pesticide     string `json:"pesticide" validate:"max=50"`
	OrganicStatus string `json:"organicStatus" validate:"max=50"`
	ISOCode       string `json:"isoCode" validate:"max=50"`
	Result        string `json:"result" validate:"required,inspection_result"`
}

type InspectionOutcome struct {
	Inspection *models.Inspection
	Status     models.CertificationStatus
}

func NewLifecycleService(store repository.Store, files AttachmentStore, uploadOpts UploadOptions, maxFiles int, publisher broker.Publisher) *LifecycleService {
	if publisher == nil {
		publisher = broker.NewLogPublisher()
	}
	return &LifecycleService{
		store:      store,
		files:      files,
		uploadOpts: uploadOpts,
		maxFiles:   maxFiles,
		publisher:  publisher,
		now:        time.Now,
	}
}

func (s *LifecycleService) CreateBatch(ctx context.Context, actor Actor, req CreateBatchRequest, files []*multipart.FileHeader) (*models.Batch, error) {
	ctx, span := utils.StartSpan(ctx, "LifecycleService.CreateBatch")
	defer span.End()

	if err := s.guard.Authorize(actor, ActionCreateBatch, nil); err != nil {
		return nil, err
	}

	req.ProductType = strings.TrimSpace(req.ProductType)
	req.Quantity = strings.TrimSpace(req.Quantity)
	req.Location = strings.TrimSpace(req.Location)
	req.Destination = strings.TrimSpace(req.Destination)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	exporter, err := s.resolveParty(ctx, actor, req.ExporterID, models.RoleExporter, "exporterId")
	if err != nil {
		return nil, err
	}

	if s.maxFiles > 0 && len(files) > s.maxFiles {
		return nil, fmt.Errorf("%w: at most %d attachments allowed", errs.ErrValidation, s.maxFiles)
	}

	attachments, err := s.storeAttachments(ctx, files)
	if err != nil {
		return nil, err
	}

	batch := &models.Batch{
		ExporterID:  exporter.ID,
		ProductType: req.ProductType,
		Quantity:    req.Quantity,
		Location:    req.Location,
		Destination: req.Destination,
		Status:      models.StatusSubmitted,
		OrderStatus: models.OrderStatusNone,
		Attachments: attachments,
	}

	if err := s.store.Batches().Create(ctx, batch); err != nil {
		s.removeAttachments(ctx, attachments)
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}
	batch.Exporter = exporter
	span.SetAttributes(attribute.String("batch.id", batch.ID.String()))

	utils.BatchesCreatedTotal.Inc()
	logrus.WithFields(logrus.Fields{
		"batch_id":    batch.ID,
		"exporter_id": batch.ExporterID,
		"attachments": len(attachments),
	}).Info("Batch submitted")

	s.publish(ctx, broker.EventBatchCreated, batch, actor)
	return batch, nil
}

func (s *LifecycleService) GetBatch(ctx context.Context, batchID string) (*models.Batch, error) {
	ctx, span := utils.StartSpan(ctx, "LifecycleService.GetBatch")
	defer span.End()

	id, err := parsePathID(batchID)
	if err != nil {
		return nil, err
	}
	return s.store.Batches().GetByID(ctx, id, true)
}

func (s *LifecycleService) ListBatchesForExporter(ctx context.Context, actor Actor, exporterID string) ([]models.Batch, error) {
	ctx, span := utils.StartSpan(ctx, "LifecycleService.ListBatchesForExporter")
	defer span.End()

	id, err := parsePathID(exporterID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AuthorizeSubject(actor, ActionListExporterBatches, id); err != nil {
		return nil, err
	}

	return s.store.Batches().List(ctx, repository.BatchFilter{
		ExporterID: &id,
		Order:      repository.NewestFirst,
	})
}

func (s *LifecycleService) ListPendingInspection(ctx context.Context, actor Actor) ([]models.Batch, error) {
	ctx, span := utils.StartSpan(ctx, "LifecycleService.ListPendingInspection")
	defer span.End()

	if err := s.guard.Authorize(actor, ActionListPending, nil); err != nil {
		return nil, err
	}

	return s.store.Batches().List(ctx, repository.BatchFilter{
		Status:       models.StatusSubmitted,
		Order:        repository.OldestFirst,
		WithExporter: true,
	})
}

// ListMarket returns every certified batch, including ones already ordered.
func (s *LifecycleService) ListMarket(ctx context.Context) ([]models.Batch, error) {
	ctx, span := utils.StartSpan(ctx, "LifecycleService.ListMarket")
	defer span.End()

	return s.store.Batches().List(ctx, repository.BatchFilter{
		Status:       models.StatusCertified,
		Order:        repository.NewestFirst,
		WithExporter: true,
	})
}

// SubmitInspection records the verdict and moves the batch to its terminal
// certification status in one transaction.
func (s *LifecycleService) SubmitInspection(ctx context.Context, actor Actor, req SubmitInspectionRequest) (*InspectionOutcome, error) {
	ctx, span := utils.StartSpan(ctx, "LifecycleService.SubmitInspection")
	defer span.End()

	if err := s.guard.Authorize(actor, ActionSubmitInspection, nil); err != nil {
		return nil, err
	}

	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	batchID, err := uuid.Parse(req.BatchID)
	if err != nil {
		return nil, fmt.Errorf("%w: batchId is not a valid id", errs.ErrValidation)
	}
	span.SetAttributes(attribute.String("batch.id", batchID.String()))

	qa, err := s.resolveParty(ctx, actor, req.QAID, models.RoleQA, "qaId")
	if err != nil {
		return nil, err
	}

	result := models.InspectionResult(req.Result)
	target := result.Outcome()

	var inspection *models.Inspection
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		batch, err := tx.Batches().GetByID(ctx, batchID, false)
		if err != nil {
			return err
		}
		if !CanCertify(batch.Status, target) {
			return fmt.Errorf("%w: batch is %s and cannot be inspected", errs.ErrConflict, batch.Status)
		}

		inspection = &models.Inspection{
			BatchID:       batchID,
			QAID:          qa.ID,
			Moisture:      strings.TrimSpace(req.Moisture),
			Pesticide:     strings.TrimSpace(req.Pesticide),
			OrganicStatus: strings.TrimSpace(req.OrganicStatus),
			ISOCode:       strings.TrimSpace(req.ISOCode),
			Result:        result,
			InspectedAt:   s.now().UTC(),
		}
		if err := tx.Inspections().Create(ctx, inspection); err != nil {
			return fmt.Errorf("failed to record inspection: %w", err)
		}

		return tx.Batches().UpdateStatus(ctx, batchID, certificationSources(target), target)
	})
	if err != nil {
		if errors.Is(err, errs.ErrConflict) {
			utils.TransitionConflictsTotal.WithLabelValues("submit_inspection").Inc()
		}
		return nil, err
	}

	utils.InspectionsTotal.WithLabelValues(string(result)).Inc()
	logrus.WithFields(logrus.Fields{
		"batch_id":      batchID,
		"inspection_id": inspection.ID,
		"qa_id":         qa.ID,
		"status":        target,
	}).Info("Inspection recorded")

	eventType := broker.EventBatchRejected
	if target == models.StatusCertified {
		eventType = broker.EventBatchCertified
	}
	s.publishRaw(ctx, broker.NewLifecycleEvent(eventType, batchID, actor.ID, string(target), ""))

	return &InspectionOutcome{Inspection: inspection, Status: target}, nil
}

func (s *LifecycleService) PlaceOrder(ctx context.Context, actor Actor, batchID, buyerID string) (*models.Batch, error) {
	ctx, span := utils.StartSpan(ctx, "LifecycleService.PlaceOrder")
	defer span.End()

	if err := s.guard.Authorize(actor, ActionPlaceOrder, nil); err != nil {
		return nil, err
	}

	id, err := parsePathID(batchID)
	if err != nil {
		return nil, err
	}

	buyer, err := s.resolveParty(ctx, actor, buyerID, models.RoleImporter, "buyerId")
	if err != nil {
		return nil, err
	}

	return s.moveOrder(ctx, actor, "place_order", id, repository.OrderTransition{
		To:            models.OrderStatusPending,
		RequireStatus: models.StatusCertified,
		OrderedBy:     &buyer.ID,
	}, broker.EventOrderPlaced)
}

func (s *LifecycleService) ApproveShipment(ctx context.Context, actor Actor, batchID string) (*models.Batch, error) {
	ctx, span := utils.StartSpan(ctx, "LifecycleService.ApproveShipment")
	defer span.End()

	batch, err := s.ownedBatch(ctx, actor, ActionApproveShipment, batchID)
	if err != nil {
		return nil, err
	}

	return s.moveOrder(ctx, actor, "approve_shipment", batch.ID, repository.OrderTransition{
		To: models.OrderStatusShipped,
	}, broker.EventOrderShipped)
}

func (s *LifecycleService) DeclineOrder(ctx context.Context, actor Actor, batchID string) (*models.Batch, error) {
	ctx, span := utils.StartSpan(ctx, "LifecycleService.DeclineOrder")
	defer span.End()

	batch, err := s.ownedBatch(ctx, actor, ActionDeclineOrder, batchID)
	if err != nil {
		return nil, err
	}

	return s.moveOrder(ctx, actor, "decline_order", batch.ID, repository.OrderTransition{
		To: models.OrderStatusDeclined,
	}, broker.EventOrderDeclined)
}

// DeleteBatch removes the batch row only. Inspection history and stored
// attachment files are left in place.
func (s *LifecycleService) DeleteBatch(ctx context.Context, actor Actor, batchID string) error {
	ctx, span := utils.StartSpan(ctx, "LifecycleService.DeleteBatch")
	defer span.End()

	batch, err := s.ownedBatch(ctx, actor, ActionDeleteBatch, batchID)
	if err != nil {
		return err
	}

	if err := s.store.Batches().Delete(ctx, batch.ID); err != nil {
		return err
	}

	utils.BatchesDeletedTotal.Inc()
	logrus.WithFields(logrus.Fields{
		"batch_id": batch.ID,
		"actor_id": actor.ID,
	}).Info("Batch removed")

	s.publish(ctx, broker.EventBatchDeleted, batch, actor)
	return nil
}

// ListIncomingOrders returns the exporter's batches waiting on a ship or
// decline decision.
func (s *LifecycleService) ListIncomingOrders(ctx context.Context, actor Actor, exporterID string) ([]models.Batch, error) {
	ctx, span := utils.StartSpan(ctx, "LifecycleService.ListIncomingOrders")
	defer span.End()

	id, err := parsePathID(exporterID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AuthorizeSubject(actor, ActionListIncomingOrders, id); err != nil {
		return nil, err
	}

	return s.store.Batches().List(ctx, repository.BatchFilter{
		ExporterID:  &id,
		OrderStatus: models.OrderStatusPending,
		Order:       repository.OldestFirst,
	})
}

func (s *LifecycleService) ListOrdersForImporter(ctx context.Context, actor Actor, importerID string) ([]models.Batch, error) {
	ctx, span := utils.StartSpan(ctx, "LifecycleService.ListOrdersForImporter")
	defer span.End()

	id, err := parsePathID(importerID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AuthorizeSubject(actor, ActionListOrdersForBuyer, id); err != nil {
		return nil, err
	}

	return s.store.Batches().List(ctx, repository.BatchFilter{
		OrderedBy:    &id,
		Order:        repository.NewestFirst,
		WithExporter: true,
	})
}

// ListInspections returns the inspection history of a batch, newest first.
// History outlives the batch, so a deleted batch id still resolves.
func (s *LifecycleService) ListInspections(ctx context.Context, batchID string) ([]models.Inspection, error) {
	ctx, span := utils.StartSpan(ctx, "LifecycleService.ListInspections")
	defer span.End()

	id, err := parsePathID(batchID)
	if err != nil {
		return nil, err
	}
	return s.store.Inspections().ListByBatch(ctx, id)
}

func (s *LifecycleService) ownedBatch(ctx context.Context, actor Actor, action Action, batchID string) (*models.Batch, error) {
	id, err := parsePathID(batchID)
	if err != nil {
		return nil, err
	}

	batch, err := s.store.Batches().GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}

	if err := s.guard.Authorize(actor, action, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *LifecycleService) moveOrder(ctx context.Context, actor Actor, op string, id uuid.UUID, t repository.OrderTransition, eventType broker.EventType) (*models.Batch, error) {
	from, ok := orderSource(t.To)
	if !ok {
		return nil, fmt.Errorf("%w: no transition into %s", errs.ErrConflict, t.To)
	}
	t.From = from

	if err := s.store.Batches().UpdateOrder(ctx, id, t); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			utils.TransitionConflictsTotal.WithLabelValues(op).Inc()
			return nil, fmt.Errorf("%w: order is not %s", err, from)
		}
		return nil, err
	}

	batch, err := s.store.Batches().GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}

	utils.OrderTransitionsTotal.WithLabelValues(string(t.To)).Inc()
	logrus.WithFields(logrus.Fields{
		"batch_id":     id,
		"actor_id":     actor.ID,
		"order_status": t.To,
	}).Info("Order status changed")

	s.publish(ctx, eventType, batch, actor)
	return batch, nil
}

// resolveParty picks the user an operation acts for. Non-admins always act
// for themselves; admins must name an existing user with the given role.
func (s *LifecycleService) resolveParty(ctx context.Context, actor Actor, rawID string, role models.Role, field string) (*models.User, error) {
	rawID = strings.TrimSpace(rawID)

	id := actor.ID
	if rawID != "" {
		parsed, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s is not a valid id", errs.ErrValidation, field)
		}
		id = parsed
	}

	if !actor.IsAdmin() && id != actor.ID {
		return nil, fmt.Errorf("%w: %s must be the caller", errs.ErrForbidden, field)
	}
	if actor.IsAdmin() && rawID == "" {
		return nil, fmt.Errorf("%w: %s is required", errs.ErrValidation, field)
	}

	user, err := s.store.Users().GetByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s does not reference a user", errs.ErrValidation, field)
	}
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, fmt.Errorf("%w: %s must reference a %s", errs.ErrValidation, field, role)
	}
	return user, nil
}

func (s *LifecycleService) storeAttachments(ctx context.Context, files []*multipart.FileHeader) (models.Attachments, error) {
	attachments := models.Attachments{}
	for _, fh := range files {
		res, err := s.files.UploadFile(ctx, fh, s.uploadOpts)
		if err != nil {
			s.removeAttachments(ctx, attachments)
			return nil, err
		}
		attachments = append(attachments, models.Attachment{
			FileURL:  res.URL,
			FileType: res.MimeType,
			Key:      res.Key,
		})
	}
	return attachments, nil
}

func (s *LifecycleService) removeAttachments(ctx context.Context, attachments models.Attachments) {
	for _, a := range attachments {
		if err := s.files.DeleteFile(ctx, a.Key); err != nil {
			logrus.WithError(err).WithField("key", a.Key).Warn("Failed to remove orphaned attachment")
		}
	}
}

func (s *LifecycleService) publish(ctx context.Context, eventType broker.EventType, batch *models.Batch, actor Actor) {
	s.publishRaw(ctx, broker.NewLifecycleEvent(eventType, batch.ID, actor.ID, string(batch.Status), string(batch.OrderStatus)))
}

// publishRaw never fails the caller; the transition is already committed.
func (s *LifecycleService) publishRaw(ctx context.Context, event broker.LifecycleEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		utils.EventPublishFailuresTotal.Inc()
		logrus.WithError(err).WithFields(logrus.Fields{
			"event_type": event.EventType,
			"batch_id":   event.BatchID,
		}).Error("Failed to publish lifecycle event")
	}
}

// parsePathID treats a malformed id as a reference to nothing.
func parsePathID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, errs.ErrNotFound
	}
	return id, nil
}

func validationError(err error) error {
	details := utils.GetValidationErrors(err)
	if len(details) == 0 {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}

	msgs := make([]string, 0, len(details))
	for _, d := range details {
		msgs = append(msgs, d.Message)
	}
	return fmt.Errorf("%w: %s", errs.ErrValidation, strings.Join(msgs, "; "))
}
