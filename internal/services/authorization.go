// internal/services/authorization.go
package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/agriqcert/agriqcert-backend/internal/errs"
	"github.com/agriqcert/agriqcert-backend/internal/models"
)

type Action string

const (
	ActionCreateBatch         Action = "batch.create"
	ActionListExporterBatches Action = "batch.list_exporter"
	ActionListPending         Action = "inspection.list_pending"
	ActionSubmitInspection    Action = "inspection.submit"
	ActionPlaceOrder          Action = "order.place"
	ActionApproveShipment     Action = "order.ship"
	ActionDeclineOrder        Action = "order.decline"
	ActionDeleteBatch         Action = "batch.delete"
	ActionListIncomingOrders  Action = "order.list_incoming"
	ActionListOrdersForBuyer  Action = "order.list_placed"
)

var actionRoles = map[Action][]models.Role{
	ActionCreateBatch:         {models.RoleExporter},
	ActionListExporterBatches: {models.RoleExporter},
	ActionListPending:         {models.RoleQA},
	ActionSubmitInspection:    {models.RoleQA},
	ActionPlaceOrder:          {models.RoleImporter},
	ActionApproveShipment:     {models.RoleExporter},
	ActionDeclineOrder:        {models.RoleExporter},
	ActionDeleteBatch:         {models.RoleExporter},
	ActionListIncomingOrders:  {models.RoleExporter},
	ActionListOrdersForBuyer:  {models.RoleImporter},
}

// ownerActions additionally require the actor to own the batch.
var ownerActions = map[Action]bool{
	ActionApproveShipment: true,
	ActionDeclineOrder:    true,
	ActionDeleteBatch:     true,
}

// Guard decides whether an actor may perform an action. Admins pass every
// check.
type Guard struct{}

// Authorize checks the role policy for action and, for owner-only actions,
// that batch belongs to the actor.
func (Guard) Authorize(actor Actor, action Action, batch *models.Batch) error {
	if actor.IsAdmin() {
		return nil
	}

	if !roleAllowed(actor.Role, action) {
		return fmt.Errorf("%w: role %s may not %s", errs.ErrForbidden, actor.Role, action)
	}

	if ownerActions[action] {
		if batch == nil || batch.ExporterID != actor.ID {
			return fmt.Errorf("%w: batch belongs to another exporter", errs.ErrForbidden)
		}
	}

	return nil
}

// AuthorizeSubject checks the role policy and that the actor is acting on
// their own account.
func (g Guard) AuthorizeSubject(actor Actor, action Action, subjectID uuid.UUID) error {
	if actor.IsAdmin() {
		return nil
	}
	if err := g.Authorize(actor, action, nil); err != nil {
		return err
	}
	if subjectID != actor.ID {
		return fmt.Errorf("%w: cannot act for another user", errs.ErrForbidden)
	}
	return nil
}

func roleAllowed(role models.Role, action Action) bool {
	for _, r := range actionRoles[action] {
		if r == role {
			return true
		}
	}
	return false
}
