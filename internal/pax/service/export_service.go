package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandocuesta/ptp-pax/internal/pax/entity"
	"github.com/fernandocuesta/ptp-pax/internal/pax/repository"
	"github.com/fernandocuesta/ptp-pax/internal/pax/workflow"
	"github.com/xuri/excelize/v2"
)

// ExportService renders the solicitudes table as a styled workbook, the
// report the logistics office downloads instead of the old shared sheet.
type ExportService struct {
	repo  *repository.SolicitudRepository
	chain *workflow.Chain
}

func NewExportService(repo *repository.SolicitudRepository, chain *workflow.Chain) *ExportService {
	return &ExportService{repo: repo, chain: chain}
}

var exportBaseHeaders = []string{
	"Código", "Lote", "Responsable", "Correo Responsable",
	"Pasajero", "DNI / CE", "Fecha Nacimiento", "Género", "Nacionalidad",
	"Procedencia", "Cargo", "Empresa", "Fecha Ingreso", "Fecha Salida",
	"Lugar Embarque", "Permanencia", "Observaciones", "Imputación", "Código Costo",
}

// Export writes every solicitud plus four columns per configured gate
// (estado, aprobador, comentario, fecha) and returns the workbook with a
// dated filename.
func (s *ExportService) Export(ctx context.Context, filters map[string]interface{}) (*excelize.File, string, error) {
	records, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, "", fmt.Errorf("listar solicitudes: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Solicitudes"
	f.SetSheetName("Sheet1", sheet)

	headers := make([]string, 0, len(exportBaseHeaders)+4*len(s.chain.Gates()))
	headers = append(headers, exportBaseHeaders...)
	for _, g := range s.chain.Gates() {
		headers = append(headers,
			"Estado "+g.Name,
			"Aprobador "+g.Name,
			"Comentario "+g.Name,
			"Fecha "+g.Name,
		)
	}

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx := range records {
		r := &records[rowIdx]
		row := rowIdx + 2
		values := []interface{}{
			r.TrackingCode, r.Site, r.RequesterName, r.RequesterEmail,
			r.PassengerName, r.DocumentID, r.BirthDate.Format("2006-01-02"), r.Gender, r.Nationality,
			r.OriginCity, r.Position, r.Company, r.EntryDate.Format("2006-01-02"), r.ExitDate.Format("2006-01-02"),
			r.BoardingPoint, r.StayDays, r.Remarks, r.CostType, r.CostCode,
		}
		for _, g := range s.chain.Gates() {
			st := r.StageFor(g.ID)
			if st == nil {
				values = append(values, "", "", "", "")
				continue
			}
			decided := ""
			if st.DecidedAt != nil {
				decided = st.DecidedAt.Format("2006-01-02 15:04:05")
			}
			values = append(values, st.Status, st.Approver, st.Comment, decided)
		}
		for i, v := range values {
			col, _ := excelize.ColumnNumberToName(i + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
	}

	filename := fmt.Sprintf("solicitudes_%s.xlsx", time.Now().Format("20060102"))
	return f, filename, nil
}
