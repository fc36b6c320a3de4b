package entity

import (
	"time"
)

// Estados de una etapa de aprobación
const (
	StageStatusPending  = "pendiente"
	StageStatusApproved = "aprobada"
	StageStatusRejected = "rechazada"
)

// Tipos de imputación de costos
const (
	CostTypeCapex = "CAPEX"
	CostTypeOpex  = "OPEX"
)

// Solicitud is one passenger transport-slot request. Submission fields are
// immutable after creation; only the stage rows change, and only through the
// workflow engine.
type Solicitud struct {
	ID           string `json:"id" gorm:"primaryKey;size:36"`
	TrackingCode string `json:"tracking_code" gorm:"size:30;uniqueIndex;not null"`
	Site         string `json:"site" gorm:"size:60;not null"`

	RequesterName  string `json:"requester_name" gorm:"size:100;not null"`
	RequesterEmail string `json:"requester_email" gorm:"size:100;not null"`

	PassengerName string    `json:"passenger_name" gorm:"size:100;not null"`
	DocumentID    string    `json:"document_id" gorm:"size:15;not null"` // DNI / CE
	BirthDate     time.Time `json:"birth_date" gorm:"type:date;not null"`
	Gender        string    `json:"gender" gorm:"size:20"`
	Nationality   string    `json:"nationality" gorm:"size:60"`
	OriginCity    string    `json:"origin_city" gorm:"size:60"`
	Position      string    `json:"position" gorm:"size:80"`
	Company       string    `json:"company" gorm:"size:100;not null"`

	EntryDate     time.Time `json:"entry_date" gorm:"type:date;not null;index:idx_solicitudes_site_entry,priority:2"`
	ExitDate      time.Time `json:"exit_date" gorm:"type:date;not null"`
	BoardingPoint string    `json:"boarding_point" gorm:"size:40"`
	StayDays      string    `json:"stay_days" gorm:"size:10"`
	Remarks       string    `json:"remarks" gorm:"size:200"`

	CostType string `json:"cost_type" gorm:"size:10"`
	CostCode string `json:"cost_code" gorm:"size:30"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Una fila por puerta de aprobación, en orden de secuencia
	Stages []StageApproval `json:"stages,omitempty" gorm:"foreignKey:SolicitudID"`
}

func (Solicitud) TableName() string {
	return "solicitudes"
}

// StageApproval is one gate's outcome for one solicitud. Decision metadata
// (approver, comment, decided_at) is empty exactly while Status is pending.
type StageApproval struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	SolicitudID string     `json:"solicitud_id" gorm:"size:36;not null;index"`
	GateID      string     `json:"gate_id" gorm:"size:30;not null"`
	GateName    string     `json:"gate_name" gorm:"size:60"`
	Sequence    int        `json:"sequence" gorm:"not null;default:0"`
	Status      string     `json:"status" gorm:"size:20;not null;default:'pendiente'"`
	Approver    string     `json:"approver" gorm:"size:100"`
	Comment     string     `json:"comment" gorm:"type:text"`
	DecidedAt   *time.Time `json:"decided_at"`
}

func (StageApproval) TableName() string {
	return "stage_approvals"
}

// StageFor returns the stage row for a gate, or nil if the solicitud carries
// no such gate.
func (s *Solicitud) StageFor(gateID string) *StageApproval {
	for i := range s.Stages {
		if s.Stages[i].GateID == gateID {
			return &s.Stages[i]
		}
	}
	return nil
}
