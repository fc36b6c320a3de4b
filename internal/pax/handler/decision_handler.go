package handler

import (
	"net/http"

	"github.com/fernandocuesta/ptp-pax/internal/pax/service"
	"github.com/fernandocuesta/ptp-pax/internal/pax/workflow"
	"github.com/gin-gonic/gin"
)

// DecisionHandler 审批面板处理器 — per-gate panels. Routes carry :gate and are
// protected by JWTAuth + RequireArea, so the approver identity and area come
// from the token.
type DecisionHandler struct {
	svc *service.DecisionService
}

func NewDecisionHandler(svc *service.DecisionService) *DecisionHandler {
	return &DecisionHandler{svc: svc}
}

// ListActionable GET /api/v1/panel/:gate/solicitudes
func (h *DecisionHandler) ListActionable(c *gin.Context) {
	list, err := h.svc.ListActionable(c.Request.Context(), c.Param("gate"))
	if err != nil {
		FailWith(c, err)
		return
	}
	Success(c, list)
}

type decideReq struct {
	TrackingCode string `json:"tracking_code" binding:"required"`
	Decision     string `json:"decision" binding:"required"`
	Comment      string `json:"comment"`
}

// Decide POST /api/v1/panel/:gate/decisiones
func (h *DecisionHandler) Decide(c *gin.Context) {
	var req decideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "decisión malformada: "+err.Error())
		return
	}

	sol, err := h.svc.Decide(c.Request.Context(), service.DecisionReq{
		TrackingCode: req.TrackingCode,
		GateID:       c.Param("gate"),
		Decision:     workflow.Decision(req.Decision),
		Approver:     c.GetString("approver_name"),
		Comment:      req.Comment,
	})
	if err != nil {
		FailWith(c, err)
		return
	}
	Success(c, sol)
}
