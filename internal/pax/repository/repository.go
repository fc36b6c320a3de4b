package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合 — the narrow read/write boundary over the store. The
// workflow core never touches gorm directly.
type Repositories struct {
	Solicitud *SolicitudRepository
}

// NewRepositories wires the repository collection. capacityGateID selects the
// gate whose approvals count against the seat quota.
func NewRepositories(db *gorm.DB, capacityGateID string) *Repositories {
	return &Repositories{
		Solicitud: NewSolicitudRepository(db, capacityGateID),
	}
}
