// internal/handlers/batch.go
package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agriqcert/agriqcert-backend/internal/i18n"
	"github.com/agriqcert/agriqcert-backend/internal/services"
	"github.com/agriqcert/agriqcert-backend/internal/utils"
)

// Fixed response messages the web client matches on.
const (
	msgOrderPlaced      = "Order Placed"
	msgShipmentApproved = "Shipment Approved"
	msgOrderDeclined    = "Order Declined"
	msgBatchRemoved     = "Batch removed"
)

type BatchHandler struct {
	lifecycle   *services.LifecycleService
	fingerprint *services.FingerprintService
}

func NewBatchHandler(lifecycle *services.LifecycleService, fingerprint *services.FingerprintService) *BatchHandler {
	return &BatchHandler{
		lifecycle:   lifecycle,
		fingerprint: fingerprint,
	}
}

type placeOrderRequest struct {
	BuyerID string `json:"buyerId"`
}

// POST /api/batches
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	lang := utils.GetLangFromContext(c)

	var req services.CreateBatchRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	var attachments []*multipart.FileHeader
	form, err := c.MultipartForm()
	switch {
	case err == nil:
		attachments = form.File["attachments"]
	case !errors.Is(err, http.ErrNotMultipart):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyBatchAttachmentError, err.Error()), nil)
		return
	}

	batch, err := h.lifecycle.CreateBatch(c.Request.Context(), caller, req, attachments)
	if err != nil {
		utils.ServiceErrorResponse(c, err, "batch")
		return
	}

	utils.CreatedResponse(c, batch)
}

// GET /api/batches/:userId
func (h *BatchHandler) ListExporterBatches(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	batches, err := h.lifecycle.ListBatchesForExporter(c.Request.Context(), caller, c.Param("userId"))
	if err != nil {
		utils.ServiceErrorResponse(c, err, "user")
		return
	}

	utils.SuccessResponse(c, batches)
}

// GET /api/batches/verify/:id
func (h *BatchHandler) VerifyBatch(c *gin.Context) {
	batch, err := h.lifecycle.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err, "batch")
		return
	}

	utils.SuccessResponse(c, batch)
}

// GET /api/batches/verify/:id/audit
func (h *BatchHandler) AuditBatch(c *gin.Context) {
	record, err := h.fingerprint.Audit(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err, "batch")
		return
	}

	utils.SuccessResponse(c, record)
}

// GET /api/batches/market/all
func (h *BatchHandler) Market(c *gin.Context) {
	batches, err := h.lifecycle.ListMarket(c.Request.Context())
	if err != nil {
		utils.ServiceErrorResponse(c, err, "batch")
		return
	}

	utils.SuccessResponse(c, batches)
}

// GET /api/batches/orders/incoming/:userId
func (h *BatchHandler) IncomingOrders(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	batches, err := h.lifecycle.ListIncomingOrders(c.Request.Context(), caller, c.Param("userId"))
	if err != nil {
		utils.ServiceErrorResponse(c, err, "user")
		return
	}

	utils.SuccessResponse(c, batches)
}

// GET /api/batches/orders/placed/:userId
func (h *BatchHandler) PlacedOrders(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	batches, err := h.lifecycle.ListOrdersForImporter(c.Request.Context(), caller, c.Param("userId"))
	if err != nil {
		utils.ServiceErrorResponse(c, err, "user")
		return
	}

	utils.SuccessResponse(c, batches)
}

// PUT /api/batches/order/:id
func (h *BatchHandler) PlaceOrder(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	var req placeOrderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "input"), err.Error())
			return
		}
	}

	if _, err := h.lifecycle.PlaceOrder(c.Request.Context(), caller, c.Param("id"), req.BuyerID); err != nil {
		utils.ServiceErrorResponse(c, err, "batch")
		return
	}

	utils.MessageResponse(c, msgOrderPlaced)
}

// PUT /api/batches/ship/:id
func (h *BatchHandler) ApproveShipment(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	if _, err := h.lifecycle.ApproveShipment(c.Request.Context(), caller, c.Param("id")); err != nil {
		utils.ServiceErrorResponse(c, err, "batch")
		return
	}

	utils.MessageResponse(c, msgShipmentApproved)
}

// PUT /api/batches/decline/:id
func (h *BatchHandler) DeclineOrder(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	if _, err := h.lifecycle.DeclineOrder(c.Request.Context(), caller, c.Param("id")); err != nil {
		utils.ServiceErrorResponse(c, err, "batch")
		return
	}

	utils.MessageResponse(c, msgOrderDeclined)
}

// DELETE /api/batches/:id
func (h *BatchHandler) DeleteBatch(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	if err := h.lifecycle.DeleteBatch(c.Request.Context(), caller, c.Param("id")); err != nil {
		utils.ServiceErrorResponse(c, err, "batch")
		return
	}

	utils.MessageResponse(c, msgBatchRemoved)
}
