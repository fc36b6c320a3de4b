package service

import (
	"fmt"
	"time"

	"github.com/fernandocuesta/ptp-pax/internal/clock"
	"github.com/fernandocuesta/ptp-pax/internal/config"
	"github.com/fernandocuesta/ptp-pax/internal/pax/repository"
	"github.com/fernandocuesta/ptp-pax/internal/pax/workflow"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Solicitud *SolicitudService
	Decision  *DecisionService
	Auth      *AuthService
	Export    *ExportService
}

// NewServices builds the service collection from configuration. The gate
// chain and seat quota come from config so a three-gate deployment is a
// config change, not a code change.
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) (*Services, error) {
	gates := make([]workflow.Gate, 0, len(cfg.Workflow.Gates))
	for _, g := range cfg.Workflow.Gates {
		gates = append(gates, workflow.Gate{ID: g.ID, Name: g.Name})
	}
	chain, err := workflow.NewChain(gates, cfg.Workflow.CapacityGate)
	if err != nil {
		return nil, fmt.Errorf("cadena de aprobación inválida: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Workflow.Timezone)
	if err != nil {
		return nil, fmt.Errorf("zona horaria inválida %q: %w", cfg.Workflow.Timezone, err)
	}
	clk := clock.NewSite(loc)

	calc := workflow.NewCalculator(cfg.Workflow.MaxCapacity, chain.CapacityGateID())

	return &Services{
		Solicitud: NewSolicitudService(repos.Solicitud, chain, calc, clk, cfg.Workflow.Sites, cfg.Workflow.HorizonDays, logger),
		Decision:  NewDecisionService(repos.Solicitud, chain, cfg.Workflow.MaxCapacity, clk, logger),
		Auth:      NewAuthService(rdb, cfg),
		Export:    NewExportService(repos.Solicitud, chain),
	}, nil
}
