package handler

import (
	"net/http"
	"time"

	"github.com/fernandocuesta/ptp-pax/internal/pax/service"
	"github.com/gin-gonic/gin"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	svc *service.ExportService
}

func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// Export GET /api/v1/solicitudes/export?site=&entry_date=
func (h *ExportHandler) Export(c *gin.Context) {
	filters := map[string]interface{}{
		"site": c.Query("site"),
	}
	if d := c.Query("entry_date"); d != "" {
		date, err := time.Parse("2006-01-02", d)
		if err != nil {
			Error(c, http.StatusBadRequest, "entry_date inválida, formato AAAA-MM-DD")
			return
		}
		filters["entry_date"] = date
	}

	f, filename, err := h.svc.Export(c.Request.Context(), filters)
	if err != nil {
		FailWith(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		Error(c, http.StatusInternalServerError, "write excel: "+err.Error())
	}
}
