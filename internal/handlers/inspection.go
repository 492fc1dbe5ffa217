// internal/handlers/inspection.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/agriqcert/agriqcert-backend/internal/i18n"
	"github.com/agriqcert/agriqcert-backend/internal/services"
	"github.com/agriqcert/agriqcert-backend/internal/utils"
)

const msgInspectionSubmitted = "Inspection Submitted"

type InspectionHandler struct {
	lifecycle *services.LifecycleService
}

func NewInspectionHandler(lifecycle *services.LifecycleService) *InspectionHandler {
	return &InspectionHandler{lifecycle: lifecycle}
}

// GET /api/inspections/pending
func (h *InspectionHandler) Pending(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	batches, err := h.lifecycle.ListPendingInspection(c.Request.Context(), caller)
	if err != nil {
		utils.ServiceErrorResponse(c, err, "batch")
		return
	}

	utils.SuccessResponse(c, batches)
}

// POST /api/inspections
func (h *InspectionHandler) Submit(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	var req services.SubmitInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	outcome, err := h.lifecycle.SubmitInspection(c.Request.Context(), caller, req)
	if err != nil {
		utils.ServiceErrorResponse(c, err, "batch")
		return
	}

	utils.SuccessResponse(c, utils.MessageBody{
		Msg:    msgInspectionSubmitted,
		Status: string(outcome.Status),
	})
}
