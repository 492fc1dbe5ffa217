// internal/services/state_machine.go
package services

import (
	"github.com/agriqcert/agriqcert-backend/internal/models"
)

// Allowed certification moves. Certified and Rejected are terminal.
var certificationTransitions = map[models.CertificationStatus][]models.CertificationStatus{
	models.StatusSubmitted: {models.StatusCertified, models.StatusRejected},
}

// Allowed order moves. Shipped and Declined are terminal.
var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusNone:    {models.OrderStatusPending},
	models.OrderStatusPending: {models.OrderStatusShipped, models.OrderStatusDeclined},
}

func CanCertify(from, to models.CertificationStatus) bool {
	for _, next := range certificationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func CanMoveOrder(from, to models.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// certificationSources lists every status from which `to` is reachable.
func certificationSources(to models.CertificationStatus) []models.CertificationStatus {
	var out []models.CertificationStatus
	for from := range certificationTransitions {
		if CanCertify(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// orderSource returns the single status from which `to` is reachable.
func orderSource(to models.OrderStatus) (models.OrderStatus, bool) {
	for from := range orderTransitions {
		if CanMoveOrder(from, to) {
			return from, true
		}
	}
	return "", false
}
