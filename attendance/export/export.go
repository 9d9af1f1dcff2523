package export

import (
	"bytes"
	"fmt"

	"axiapac.com/backoffice/attendance/core"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Asistencia"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var Headers = []string{
	"Personal",
	"Tipo período",
	"Período",
	"Inicio",
	"Fin",
	"Días trabajados",
	"Días ausente",
	"Minutos trabajados",
	"Horas trabajadas",
	"Minutos extra",
	"Horas extra",
	"Minutos tarde",
	"Horas tarde",
}

func PeriodLabel(pt core.PeriodType) string {
	switch pt {
	case core.PeriodWeek:
		return "Semana"
	case core.PeriodMonth:
		return "Mes"
	}
	return "Día"
}

func FileName(pt core.PeriodType, start, end string) string {
	return fmt.Sprintf("asistencia_%s_%s_%s.xlsx", pt, start, end)
}

// Render writes one row per bucket under a header row, in bucket order.
func Render(buckets []core.PeriodBucket) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Headers))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return nil, err
	}

	for i, b := range buckets {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			b.UserName,
			PeriodLabel(b.PeriodType),
			b.PeriodKey,
			b.PeriodStart,
			b.PeriodEnd,
			b.DaysWorked,
			b.AbsentDays,
			b.TotalMinutes,
			b.TotalHours,
			b.OvertimeMinutes,
			b.OvertimeHours,
			b.LateMinutes,
			b.LateHours,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 28); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetName, "B", lastCol, 16); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}
