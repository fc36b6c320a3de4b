package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandocuesta/ptp-pax/internal/clock"
	"github.com/fernandocuesta/ptp-pax/internal/pax/entity"
	"github.com/fernandocuesta/ptp-pax/internal/pax/repository"
	"github.com/fernandocuesta/ptp-pax/internal/pax/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SolicitudService is the submission path: validation, advisory capacity
// check, tracking-code allocation and creation with every stage pending.
type SolicitudService struct {
	repo        *repository.SolicitudRepository
	chain       *workflow.Chain
	calc        *workflow.Calculator
	clk         clock.Clock
	sites       map[string]string
	horizonDays int
	logger      *zap.Logger
}

func NewSolicitudService(repo *repository.SolicitudRepository, chain *workflow.Chain, calc *workflow.Calculator, clk clock.Clock, sites map[string]string, horizonDays int, logger *zap.Logger) *SolicitudService {
	return &SolicitudService{
		repo:        repo,
		chain:       chain,
		calc:        calc,
		clk:         clk,
		sites:       sites,
		horizonDays: horizonDays,
		logger:      logger,
	}
}

// CreateSolicitudReq 创建请求参数 — the candidate record from the submission UI.
type CreateSolicitudReq struct {
	Site           string `json:"site" binding:"required"`
	RequesterName  string `json:"requester_name" binding:"required"`
	RequesterEmail string `json:"requester_email" binding:"required"`
	PassengerName  string `json:"passenger_name" binding:"required"`
	DocumentID     string `json:"document_id" binding:"required"`
	BirthDate      string `json:"birth_date" binding:"required"`
	Gender         string `json:"gender"`
	Nationality    string `json:"nationality"`
	OriginCity     string `json:"origin_city"`
	Position       string `json:"position"`
	Company        string `json:"company" binding:"required"`
	EntryDate      string `json:"entry_date" binding:"required"`
	ExitDate       string `json:"exit_date" binding:"required"`
	BoardingPoint  string `json:"boarding_point"`
	StayDays       string `json:"stay_days"`
	Remarks        string `json:"remarks"`
	CostType       string `json:"cost_type"`
	CostCode       string `json:"cost_code"`
}

func (s *SolicitudService) parseDate(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", value, s.clk.Now().Location())
	if err != nil {
		return time.Time{}, &workflow.ValidationError{Fields: []workflow.FieldError{
			{Field: field, Message: "fecha inválida, formato esperado AAAA-MM-DD: " + value},
		}}
	}
	return t, nil
}

// Submit validates and appends a new solicitud with all stages pending.
// Nothing is written when validation or the advisory capacity check fails.
func (s *SolicitudService) Submit(ctx context.Context, req CreateSolicitudReq) (*entity.Solicitud, error) {
	birthDate, err := s.parseDate("birth_date", req.BirthDate)
	if err != nil {
		return nil, err
	}
	entryDate, err := s.parseDate("entry_date", req.EntryDate)
	if err != nil {
		return nil, err
	}
	exitDate, err := s.parseDate("exit_date", req.ExitDate)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	sol := &entity.Solicitud{
		ID:             uuid.New().String(),
		Site:           req.Site,
		RequesterName:  req.RequesterName,
		RequesterEmail: req.RequesterEmail,
		PassengerName:  req.PassengerName,
		DocumentID:     req.DocumentID,
		BirthDate:      birthDate,
		Gender:         req.Gender,
		Nationality:    req.Nationality,
		OriginCity:     req.OriginCity,
		Position:       req.Position,
		Company:        req.Company,
		EntryDate:      entryDate,
		ExitDate:       exitDate,
		BoardingPoint:  req.BoardingPoint,
		StayDays:       req.StayDays,
		Remarks:        req.Remarks,
		CostType:       req.CostType,
		CostCode:       req.CostCode,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := workflow.ValidateSubmission(sol, now, s.sites); err != nil {
		return nil, err
	}

	// Chequeo consultivo de cupos: no bloquea la carrera con aprobaciones
	// concurrentes, esa se resuelve en la puerta con control de cupos.
	records, err := s.repo.ListBySiteEntryDate(ctx, sol.Site, sol.EntryDate)
	if err != nil {
		return nil, fmt.Errorf("consultar solicitudes existentes: %w", err)
	}
	if s.calc.Available(records, sol.Site, sol.EntryDate) == 0 {
		return nil, &workflow.CapacityError{Site: sol.Site, Date: sol.EntryDate}
	}

	sol.Stages = s.chain.NewStages(sol.ID)

	if err := s.repo.Create(ctx, sol, s.sites[sol.Site], now); err != nil {
		return nil, err
	}

	s.logger.Info("Solicitud registrada",
		zap.String("tracking_code", sol.TrackingCode),
		zap.String("site", sol.Site),
		zap.String("entry_date", sol.EntryDate.Format("2006-01-02")),
	)
	return sol, nil
}

// Track returns one solicitud by tracking code for seguimiento, with the
// currently actionable gate derived.
func (s *SolicitudService) Track(ctx context.Context, code string) (*entity.Solicitud, string, error) {
	sol, err := s.repo.FindByTrackingCode(ctx, code)
	if err != nil {
		return nil, "", err
	}
	current, _ := workflow.CurrentGate(sol)
	return sol, current, nil
}

// List returns solicitudes with optional site/date/company filters.
func (s *SolicitudService) List(ctx context.Context, filters map[string]interface{}) ([]entity.Solicitud, error) {
	return s.repo.List(ctx, filters)
}

// OpenDates lists the selectable entry dates with remaining seats over the
// configured horizon, ascending.
func (s *SolicitudService) OpenDates(ctx context.Context, site string) ([]workflow.OpenDate, error) {
	if _, ok := s.sites[site]; !ok {
		return nil, &workflow.ValidationError{Fields: []workflow.FieldError{
			{Field: "site", Message: "el lote de destino no está habilitado: " + site},
		}}
	}

	from := s.clk.Now()
	to := from.AddDate(0, 0, s.horizonDays)
	records, err := s.repo.ListBySiteEntryRange(ctx, site, from, to)
	if err != nil {
		return nil, fmt.Errorf("consultar solicitudes del horizonte: %w", err)
	}

	dates := make([]workflow.OpenDate, 0, s.horizonDays+1)
	for d := range s.calc.OpenDates(records, site, from, s.horizonDays) {
		dates = append(dates, d)
	}
	return dates, nil
}
