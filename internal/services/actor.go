// internal/services/actor.go
package services

import (
	"github.com/google/uuid"

	"github.com/agriqcert/agriqcert-backend/internal/models"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID       uuid.UUID
	Username string
	Role     models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}
