package service

import (
	"context"

	"github.com/fernandocuesta/ptp-pax/internal/clock"
	"github.com/fernandocuesta/ptp-pax/internal/pax/entity"
	"github.com/fernandocuesta/ptp-pax/internal/pax/repository"
	"github.com/fernandocuesta/ptp-pax/internal/pax/workflow"
	"go.uber.org/zap"
)

// DecisionService applies one approver decision inside a store transaction,
// so the capacity re-read and the stage update commit together. No retries:
// on error the approver re-fetches current state and resubmits.
type DecisionService struct {
	repo        *repository.SolicitudRepository
	chain       *workflow.Chain
	maxCapacity int
	clk         clock.Clock
	logger      *zap.Logger
}

func NewDecisionService(repo *repository.SolicitudRepository, chain *workflow.Chain, maxCapacity int, clk clock.Clock, logger *zap.Logger) *DecisionService {
	return &DecisionService{
		repo:        repo,
		chain:       chain,
		maxCapacity: maxCapacity,
		clk:         clk,
		logger:      logger,
	}
}

// DecisionReq 审批决定参数 — approver identity comes from the authenticated
// token, never from the request body.
type DecisionReq struct {
	TrackingCode string
	GateID       string
	Decision     workflow.Decision
	Approver     string
	Comment      string
}

// Decide runs the gate engine against the freshest obtainable state: the
// record row is locked, capacity-gated approvals additionally serialize on an
// advisory lock for the (site, entry date) pair, and occupancy is counted
// inside the same transaction.
func (s *DecisionService) Decide(ctx context.Context, req DecisionReq) (*entity.Solicitud, error) {
	var updated *entity.Solicitud

	err := s.repo.WithTx(ctx, func(txRepo *repository.SolicitudRepository) error {
		sol, err := txRepo.FindByTrackingCodeForUpdate(ctx, req.TrackingCode)
		if err != nil {
			return err
		}

		if req.Decision == workflow.DecisionApprove && req.GateID == s.chain.CapacityGateID() {
			if err := txRepo.LockCapacity(ctx, sol.Site, sol.EntryDate); err != nil {
				return err
			}
		}

		engine := workflow.NewEngine(s.chain, txRepo, s.maxCapacity)
		now := s.clk.Now()
		if err := engine.Decide(ctx, sol, req.GateID, req.Decision, req.Approver, req.Comment, now); err != nil {
			return err
		}

		stage := sol.StageFor(req.GateID)
		if err := txRepo.UpdateStageFields(ctx, sol.ID, req.GateID, stage.Status, stage.Approver, stage.Comment, now); err != nil {
			return err
		}

		updated = sol
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Decisión registrada",
		zap.String("tracking_code", updated.TrackingCode),
		zap.String("gate", req.GateID),
		zap.String("decision", string(req.Decision)),
		zap.String("approver", req.Approver),
	)
	return updated, nil
}

// ListActionable returns the records the gate can act on right now: pending
// at the gate with every upstream stage approved and no rejection anywhere.
func (s *DecisionService) ListActionable(ctx context.Context, gateID string) ([]entity.Solicitud, error) {
	if !s.chain.Has(gateID) {
		return nil, workflow.ErrUnknownGate
	}

	candidates, err := s.repo.ListPendingForGate(ctx, gateID)
	if err != nil {
		return nil, err
	}

	actionable := make([]entity.Solicitud, 0, len(candidates))
	for i := range candidates {
		if current, ok := workflow.CurrentGate(&candidates[i]); ok && current == gateID {
			actionable = append(actionable, candidates[i])
		}
	}
	return actionable, nil
}
