package handler

import (
	"net/http"
	"time"

	"github.com/fernandocuesta/ptp-pax/internal/pax/service"
	"github.com/gin-gonic/gin"
)

// SolicitudHandler 请求处理器 — submission, seguimiento and open-date listing.
type SolicitudHandler struct {
	svc *service.SolicitudService
}

func NewSolicitudHandler(svc *service.SolicitudService) *SolicitudHandler {
	return &SolicitudHandler{svc: svc}
}

// Create POST /api/v1/solicitudes
func (h *SolicitudHandler) Create(c *gin.Context) {
	var req service.CreateSolicitudReq
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "solicitud malformada: "+err.Error())
		return
	}

	sol, err := h.svc.Submit(c.Request.Context(), req)
	if err != nil {
		FailWith(c, err)
		return
	}
	Created(c, sol)
}

// List GET /api/v1/solicitudes?site=&entry_date=&company=
func (h *SolicitudHandler) List(c *gin.Context) {
	filters := map[string]interface{}{
		"site":    c.Query("site"),
		"company": c.Query("company"),
	}
	if d := c.Query("entry_date"); d != "" {
		date, err := time.Parse("2006-01-02", d)
		if err != nil {
			Error(c, http.StatusBadRequest, "entry_date inválida, formato AAAA-MM-DD")
			return
		}
		filters["entry_date"] = date
	}

	list, err := h.svc.List(c.Request.Context(), filters)
	if err != nil {
		FailWith(c, err)
		return
	}
	Success(c, list)
}

// Track GET /api/v1/solicitudes/:codigo
func (h *SolicitudHandler) Track(c *gin.Context) {
	sol, currentGate, err := h.svc.Track(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		FailWith(c, err)
		return
	}
	Success(c, gin.H{
		"solicitud":    sol,
		"current_gate": currentGate,
	})
}

// OpenDates GET /api/v1/cupos?site=
func (h *SolicitudHandler) OpenDates(c *gin.Context) {
	site := c.Query("site")
	if site == "" {
		Error(c, http.StatusBadRequest, "el parámetro site es obligatorio")
		return
	}

	dates, err := h.svc.OpenDates(c.Request.Context(), site)
	if err != nil {
		FailWith(c, err)
		return
	}
	Success(c, dates)
}
