package workflow

import (
	"fmt"
	"sort"

	"github.com/fernandocuesta/ptp-pax/internal/pax/entity"
	"github.com/google/uuid"
)

// Gate is one approval step in the chain.
type Gate struct {
	ID   string
	Name string
}

// Chain is the ordered gate list for a deployment. Different generations of
// the workflow ran with 3 or 4 gates, so the chain is configuration, never a
// hardcoded structure.
type Chain struct {
	gates        []Gate
	capacityGate string
}

// NewChain builds a chain from an ordered gate list. capacityGateID selects
// the gate constrained by the seat quota; empty means the last gate.
func NewChain(gates []Gate, capacityGateID string) (*Chain, error) {
	if len(gates) == 0 {
		return nil, fmt.Errorf("la cadena de aprobación requiere al menos una etapa")
	}
	seen := make(map[string]bool, len(gates))
	for _, g := range gates {
		if g.ID == "" {
			return nil, fmt.Errorf("etapa sin identificador en la cadena de aprobación")
		}
		if seen[g.ID] {
			return nil, fmt.Errorf("etapa duplicada en la cadena de aprobación: %s", g.ID)
		}
		seen[g.ID] = true
	}
	if capacityGateID == "" {
		capacityGateID = gates[len(gates)-1].ID
	}
	if !seen[capacityGateID] {
		return nil, fmt.Errorf("la etapa con control de cupos no existe en la cadena: %s", capacityGateID)
	}
	return &Chain{gates: gates, capacityGate: capacityGateID}, nil
}

// Gates returns the ordered gate list.
func (c *Chain) Gates() []Gate {
	return c.gates
}

// CapacityGateID returns the gate gated by the seat quota.
func (c *Chain) CapacityGateID() string {
	return c.capacityGate
}

// Has reports whether the chain contains the gate.
func (c *Chain) Has(gateID string) bool {
	for _, g := range c.gates {
		if g.ID == gateID {
			return true
		}
	}
	return false
}

// NewStages builds the pending stage rows for a fresh solicitud, one per gate
// in chain order, with empty decision metadata.
func (c *Chain) NewStages(solicitudID string) []entity.StageApproval {
	stages := make([]entity.StageApproval, 0, len(c.gates))
	for i, g := range c.gates {
		stages = append(stages, entity.StageApproval{
			ID:          uuid.New().String(),
			SolicitudID: solicitudID,
			GateID:      g.ID,
			GateName:    g.Name,
			Sequence:    i,
			Status:      entity.StageStatusPending,
		})
	}
	return stages
}

// orderedStages returns the record's stages sorted by sequence without
// mutating the record.
func orderedStages(s *entity.Solicitud) []entity.StageApproval {
	stages := make([]entity.StageApproval, len(s.Stages))
	copy(stages, s.Stages)
	sort.Slice(stages, func(i, j int) bool { return stages[i].Sequence < stages[j].Sequence })
	return stages
}

// CurrentGate returns the gate that is actionable right now: the first
// pending stage whose predecessors are all approved. ok is false when the
// record is fully approved, rejected anywhere, or blocked upstream.
func CurrentGate(s *entity.Solicitud) (string, bool) {
	for _, st := range orderedStages(s) {
		switch st.Status {
		case entity.StageStatusApproved:
			continue
		case entity.StageStatusPending:
			return st.GateID, true
		default:
			// rechazada: nada aguas abajo vuelve a ser accionable
			return "", false
		}
	}
	return "", false
}

// IsRejected reports whether any stage is rejected. One rejection halts the
// pipeline permanently.
func IsRejected(s *entity.Solicitud) bool {
	for i := range s.Stages {
		if s.Stages[i].Status == entity.StageStatusRejected {
			return true
		}
	}
	return false
}

// IsApproved reports whether every stage is approved.
func IsApproved(s *entity.Solicitud) bool {
	if len(s.Stages) == 0 {
		return false
	}
	for i := range s.Stages {
		if s.Stages[i].Status != entity.StageStatusApproved {
			return false
		}
	}
	return true
}
