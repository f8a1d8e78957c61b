package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/rfidaccess/access-control-backend/internal/models"
)

const exportEventLimit = 5000

// ExportService renders reports as .xlsx workbooks. The workbook is returned
// in a buffer; the handler sets the download headers.
type ExportService struct {
	reports *ReportService
	logger  *logrus.Logger
}

// NewExportService creates a new ExportService
func NewExportService(reports *ReportService, logger *logrus.Logger) *ExportService {
	return &ExportService{reports: reports, logger: logger}
}

// ExportRoster writes the employee roster with team and position names
func (s *ExportService) ExportRoster(ctx context.Context) (*bytes.Buffer, string, error) {
	employees, err := s.reports.Roster(ctx)
	if err != nil {
		return nil, "", err
	}

	headers := []string{"RFID", "Last name", "First name", "Team", "Position", "Hire date", "Status", "Card expiry", "Email", "Phone"}
	widths := []float64{14, 18, 18, 20, 22, 12, 11, 12, 28, 16}
	rows := make([][]interface{}, 0, len(employees))
	for _, e := range employees {
		rows = append(rows, []interface{}{
			e.RFID, e.LastName, e.FirstName, textOr(e.TeamName, ""), textOr(e.PositionTitle, ""),
			dateText(e.HireDate), string(e.Status), dateText(e.CardExpiry), e.Email, e.Phone,
		})
	}

	buf, err := s.writeWorkbook("Roster", headers, widths, rows)
	if err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("roster_%s.xlsx", time.Now().Format("20060102")), nil
}

// ExportEvents writes the most recent events, newest first
func (s *ExportService) ExportEvents(ctx context.Context, limit int) (*bytes.Buffer, string, error) {
	if limit <= 0 || limit > exportEventLimit {
		limit = exportEventLimit
	}
	events, err := s.reports.RecentEvents(ctx, limit)
	if err != nil {
		return nil, "", err
	}

	headers := []string{"ID", "Timestamp", "Type", "Employee", "RFID", "Description", "Alert"}
	widths := []float64{8, 20, 16, 24, 14, 44, 8}
	rows := make([][]interface{}, 0, len(events))
	for _, e := range events {
		var alert interface{} = ""
		if e.AlertID != nil {
			alert = *e.AlertID
		}
		rows = append(rows, []interface{}{
			e.ID, e.EventTimestamp.Format("2006-01-02 15:04:05"), e.EventType, e.EmployeeName,
			textOr(e.RFID, ""), e.Description, alert,
		})
	}

	buf, err := s.writeWorkbook("Events", headers, widths, rows)
	if err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("events_%s.xlsx", time.Now().Format("20060102")), nil
}

// ExportAlerts writes alerts, optionally only those in status
func (s *ExportService) ExportAlerts(ctx context.Context, status *models.AlertStatus) (*bytes.Buffer, string, error) {
	alerts, err := s.reports.Alerts(ctx, status)
	if err != nil {
		return nil, "", err
	}

	headers := []string{"ID", "Timestamp", "Type", "Status", "Employee", "Description"}
	widths := []float64{8, 20, 14, 13, 24, 44}
	rows := make([][]interface{}, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, []interface{}{
			a.ID, a.AlertTimestamp.Format("2006-01-02 15:04:05"), a.AlertType, string(a.Status), a.EmployeeName, a.Description,
		})
	}

	buf, err := s.writeWorkbook("Alerts", headers, widths, rows)
	if err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("alerts_%s.xlsx", time.Now().Format("20060102")), nil
}

func (s *ExportService) writeWorkbook(sheet string, headers []string, widths []float64, rows [][]interface{}) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
		if i < len(widths) {
			col, _ := excelize.ColumnNumberToName(i + 1)
			f.SetColWidth(sheet, col, col, widths[i])
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheet, "A1", last, headerStyle)
	f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.WithError(err).Error("Failed to write workbook")
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func textOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}

func dateText(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.Format(models.DateLayout)
}
