package export

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/campuspulse/semla/internal/app"
	"github.com/campuspulse/semla/internal/models"
)

// GSheetExporter pushes faculty report rows into Google Sheets on a cron
// schedule. Sheets is just one of the external renderers the report layer
// feeds; the exporter owns no aggregation logic.
type GSheetExporter struct {
	service       *app.Service
	scheduler     *gocron.Scheduler
	sheetsService *sheets.Service
}

func NewGSheetExporter(service *app.Service) (*GSheetExporter, error) {
	ctx := context.Background()
	scheduler := gocron.NewScheduler(time.UTC)

	for reportName, configs := range service.Config.GSheet {
		for _, cfg := range configs {
			svc, err := sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath))
			if err != nil {
				return nil, fmt.Errorf("failed to create sheets service: %w", err)
			}

			exporter := &GSheetExporter{
				service:       service,
				scheduler:     scheduler,
				sheetsService: svc,
			}

			name, job := reportName, cfg
			_, err = scheduler.Cron(cfg.Schedule).Do(func() {
				if err := exporter.Export(name, &job); err != nil {
					logger.Error.Printf("Export %s failed: %v", name, err)
				}
			})
			if err != nil {
				return nil, fmt.Errorf("failed to schedule export: %w", err)
			}
		}
	}

	scheduler.StartAsync()
	return nil, nil
}

func (e *GSheetExporter) Export(reportName string, cfg *app.SheetExportConfig) error {
	report, err := e.service.FacultyReport(cfg.FacultyID, cfg.AcademicYear)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	values := [][]interface{}{
		{"subject", "semester", "section", "count", "cumulative", "min", "max", "status"},
	}
	for _, row := range report.Rows {
		values = append(values, []interface{}{
			row.Key[models.DimSubject],
			row.Key[models.DimSemester],
			row.Key[models.DimSection],
			row.Count,
			row.CumulativeMean,
			row.Min,
			row.Max,
			row.Status,
		})
	}

	updateRange := fmt.Sprintf("%s!%s", cfg.SheetName, cfg.StartCell)
	_, err = e.sheetsService.Spreadsheets.Values.Update(cfg.SheetID, updateRange,
		&sheets.ValueRange{Values: values}).ValueInputOption("RAW").Do()
	if err != nil {
		return fmt.Errorf("failed to write report rows: %w", err)
	}

	if cfg.TimestampCell != "" {
		timestamp := fmt.Sprintf("UPD: %s", time.Now().Format("2 January 15:04"))
		tsRange := fmt.Sprintf("%s!%s", cfg.SheetName, cfg.TimestampCell)
		_, err = e.sheetsService.Spreadsheets.Values.Update(cfg.SheetID, tsRange,
			&sheets.ValueRange{Values: [][]interface{}{{timestamp}}}).ValueInputOption("RAW").Do()
	}

	return err
}
