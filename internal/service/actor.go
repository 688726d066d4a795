package service

import (
	"github.com/google/uuid"

	"go-rental-ws/internal/model"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

// SystemActor is used by background jobs and the admin CLI.
var SystemActor = Actor{Admin: true}

func (a Actor) CanAccess(o *model.Order) bool {
	return a.Admin || o.OwnedBy(a.UserID)
}
