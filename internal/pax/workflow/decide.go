package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandocuesta/ptp-pax/internal/pax/entity"
)

// Decision is an approver's verdict on one stage.
type Decision string

const (
	DecisionApprove Decision = "aprobar"
	DecisionReject  Decision = "rechazar"
)

// Engine applies one approver decision to one record's actionable stage,
// enforcing gate sequencing and the seat quota on the capacity gate.
type Engine struct {
	chain       *Chain
	occupancy   OccupancyReader
	maxCapacity int
}

// NewEngine builds an engine. occupancy must read the freshest obtainable
// seat count; the caller decides whether that read happens inside a store
// transaction.
func NewEngine(chain *Chain, occupancy OccupancyReader, maxCapacity int) *Engine {
	return &Engine{chain: chain, occupancy: occupancy, maxCapacity: maxCapacity}
}

// Chain returns the gate chain the engine enforces.
func (e *Engine) Chain() *Chain {
	return e.chain
}

// Decide mutates the target stage of s on success and is the only mutation
// path for stage state. Preconditions are checked in a fixed order so that a
// stale decision never reaches the capacity check: sequencing first, approver
// next, seats last. On any error s is left untouched.
func (e *Engine) Decide(ctx context.Context, s *entity.Solicitud, gateID string, decision Decision, approver, comment string, now time.Time) error {
	if !e.chain.Has(gateID) {
		return fmt.Errorf("%w: %s", ErrUnknownGate, gateID)
	}
	if decision != DecisionApprove && decision != DecisionReject {
		return fmt.Errorf("%w: %s", ErrUnknownDecision, decision)
	}

	current, ok := CurrentGate(s)
	if !ok || current != gateID {
		return fmt.Errorf("%w (solicitud %s, etapa %s)", ErrStaleDecision, s.TrackingCode, gateID)
	}
	if approver == "" {
		return ErrMissingApprover
	}

	if decision == DecisionApprove && gateID == e.chain.CapacityGateID() {
		occupied, err := e.occupancy.Occupied(ctx, s.Site, s.EntryDate)
		if err != nil {
			return fmt.Errorf("consultar ocupación de cupos: %w", err)
		}
		if occupied >= e.maxCapacity {
			return &CapacityError{Site: s.Site, Date: s.EntryDate}
		}
	}

	stage := s.StageFor(gateID)
	if decision == DecisionApprove {
		stage.Status = entity.StageStatusApproved
	} else {
		stage.Status = entity.StageStatusRejected
	}
	stage.Approver = approver
	stage.Comment = comment
	stage.DecidedAt = &now
	return nil
}
