package handler

import (
	"errors"
	"net/http"

	"github.com/fernandocuesta/ptp-pax/internal/pax/repository"
	"github.com/fernandocuesta/ptp-pax/internal/pax/service"
	"github.com/fernandocuesta/ptp-pax/internal/pax/workflow"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	Auth      *AuthHandler
	Solicitud *SolicitudHandler
	Decision  *DecisionHandler
	Export    *ExportHandler
}

func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Auth:      NewAuthHandler(svc.Auth),
		Solicitud: NewSolicitudHandler(svc.Solicitud),
		Decision:  NewDecisionHandler(svc.Decision),
		Export:    NewExportHandler(svc.Export),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Code:    status,
		Message: message,
	})
}

// FailWith maps workflow and repository errors onto distinct HTTP responses,
// one per failure mode, so the actor always sees which precondition failed.
func FailWith(c *gin.Context, err error) {
	var verr *workflow.ValidationError
	var cerr *workflow.CapacityError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, Response{
			Code:    http.StatusBadRequest,
			Message: verr.Error(),
			Data:    gin.H{"fields": verr.Fields},
		})
	case errors.As(err, &cerr):
		Error(c, http.StatusConflict, cerr.Error())
	case errors.Is(err, workflow.ErrStaleDecision):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, workflow.ErrMissingApprover),
		errors.Is(err, workflow.ErrUnknownGate),
		errors.Is(err, workflow.ErrUnknownDecision):
		Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefresh):
		Error(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		Error(c, http.StatusNotFound, "solicitud no encontrada")
	default:
		Error(c, http.StatusInternalServerError, "error interno, intente nuevamente")
	}
}
