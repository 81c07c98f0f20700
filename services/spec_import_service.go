package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"transfer-appeal-api/config"
	"transfer-appeal-api/models"
	"transfer-appeal-api/utils"
	"transfer-appeal-api/workflow"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrImportInProgress is returned when another non-dry run has not finished.
var ErrImportInProgress = errors.New("another import is already running")

var requiredImportColumns = []string{"personnel_code", "national_id", "first_name", "last_name", "source_district_code"}

// ImportRowError explains why one spreadsheet row was not imported.
type ImportRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ImportSummary is the outcome of one import.
type ImportSummary struct {
	RunID        uint             `json:"run_id"`
	DryRun       bool             `json:"dry_run"`
	RowCount     int              `json:"row_count"`
	CreatedCount int              `json:"created_count"`
	SkippedCount int              `json:"skipped_count"`
	FailedCount  int              `json:"failed_count"`
	Errors       []ImportRowError `json:"errors,omitempty"`
}

// SpecImportService provisions records from spreadsheets and exports them.
type SpecImportService struct {
	specs  *TransferSpecService
	runs   *SpecImportRunService
	logger *zap.Logger
}

func NewSpecImportService(db *gorm.DB, specs *TransferSpecService) *SpecImportService {
	if db == nil {
		db = config.DB
	}
	if specs == nil {
		specs = NewTransferSpecService(db, nil, nil)
	}
	return &SpecImportService{
		specs:  specs,
		runs:   NewSpecImportRunService(db),
		logger: config.Logger.Named("spec_import"),
	}
}

// GetRun returns one import run.
func (s *SpecImportService) GetRun(ctx context.Context, id uint) (*models.SpecImportRun, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSpecImportRunNotFound) {
			return nil, err
		}
		return nil, persistenceError("get import run", err)
	}
	return run, nil
}

// ListRuns returns one page of import runs, newest first.
func (s *SpecImportService) ListRuns(ctx context.Context, limit, offset int) ([]models.SpecImportRun, int64, error) {
	runs, total, err := s.runs.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, persistenceError("list import runs", err)
	}
	return runs, total, nil
}

// Import reads the first sheet of an xlsx workbook. Each row becomes a record
// in user_no_action with no history. Rows whose personnel code exists are
// skipped; invalid rows are reported and do not stop the import.
func (s *SpecImportService) Import(ctx context.Context, r io.Reader, fileName, trigger string, dryRun bool) (*ImportSummary, error) {
	if !dryRun {
		running, err := s.runs.GetRunning(ctx)
		if err != nil {
			return nil, persistenceError("check running import", err)
		}
		if running != nil {
			return nil, ErrImportInProgress
		}
	}

	run, err := s.runs.Start(ctx, trigger, fileName, dryRun)
	if err != nil {
		return nil, persistenceError("start import run", err)
	}
	started := time.Now()
	summary := &ImportSummary{RunID: run.ID, DryRun: dryRun}

	if err := s.importRows(ctx, r, summary); err != nil {
		if markErr := s.runs.Finish(ctx, run.ID, summary, err, time.Since(started)); markErr != nil {
			s.logger.Warn("failed to mark import run failed", zap.Uint("run_id", run.ID), zap.Error(markErr))
		}
		return summary, err
	}
	if err := s.runs.Finish(ctx, run.ID, summary, nil, time.Since(started)); err != nil {
		s.logger.Warn("failed to mark import run finished", zap.Uint("run_id", run.ID), zap.Error(err))
	}

	s.logger.Info("spec import finished",
		zap.Uint("run_id", run.ID),
		zap.Bool("dry_run", dryRun),
		zap.Int("rows", summary.RowCount),
		zap.Int("created", summary.CreatedCount),
		zap.Int("skipped", summary.SkippedCount),
		zap.Int("failed", summary.FailedCount),
	)
	return summary, nil
}

func (s *SpecImportService) importRows(ctx context.Context, r io.Reader, summary *ImportSummary) error {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return newValidationError("file", "cannot read workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return newValidationError("file", "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return newValidationError("file", "cannot read sheet %s: %v", sheets[0], err)
	}
	if len(rows) < 2 {
		return newValidationError("file", "workbook has no data rows")
	}

	headers := normalizeHeaders(rows[0])
	for _, col := range requiredImportColumns {
		if _, ok := headers[col]; !ok {
			return newValidationError("file", "column %s is missing", col)
		}
	}

	record := func(outcome string) {
		if !summary.DryRun {
			importedSpecsTotal.WithLabelValues(outcome).Inc()
		}
	}
	// Codes accepted earlier in this workbook.
	seen := make(map[string]struct{})

	for idx := 1; idx < len(rows); idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rowNum := idx + 1
		values := readRow(headers, rows[idx])
		if strings.TrimSpace(values["personnel_code"]) == "" {
			continue
		}
		summary.RowCount++

		in, err := specInputFromRow(values)
		code := utils.NormalizeDigits(utils.SanitizeInput(in.PersonnelCode))
		if _, dup := seen[code]; err == nil && dup {
			err = &ValidationError{
				Field:   "personnel_code",
				Message: fmt.Sprintf("personnel code %s appears earlier in the workbook", code),
				Err:     ErrDuplicatePersonnelCode,
			}
		}
		if err == nil {
			if summary.DryRun {
				err = s.specs.CheckInput(ctx, in)
			} else {
				_, err = s.specs.Create(ctx, in)
			}
		}

		switch {
		case err == nil:
			seen[code] = struct{}{}
			summary.CreatedCount++
			record("created")
		case errors.Is(err, ErrDuplicatePersonnelCode):
			summary.SkippedCount++
			record("skipped")
		case IsValidation(err):
			var ve *ValidationError
			errors.As(err, &ve)
			summary.FailedCount++
			summary.Errors = append(summary.Errors, ImportRowError{Row: rowNum, Field: ve.Field, Message: ve.Message})
			record("failed")
		default:
			return fmt.Errorf("row %d: %w", rowNum, err)
		}
	}
	return nil
}

func normalizeHeaders(row []string) map[string]int {
	headers := make(map[string]int)
	for idx, h := range row {
		key := strings.TrimSpace(strings.ToLower(h))
		if key != "" {
			headers[key] = idx
		}
	}
	return headers
}

func readRow(headers map[string]int, row []string) map[string]string {
	values := make(map[string]string)
	for key, idx := range headers {
		if idx < len(row) {
			values[key] = strings.TrimSpace(row[idx])
		}
	}
	return values
}

func specInputFromRow(values map[string]string) (SpecInput, error) {
	in := SpecInput{
		PersonnelCode:      values["personnel_code"],
		NationalID:         values["national_id"],
		FirstName:          values["first_name"],
		LastName:           values["last_name"],
		FatherName:         values["father_name"],
		Gender:             values["gender"],
		Mobile:             values["mobile"],
		Email:              values["email"],
		EmploymentType:     values["employment_type"],
		FieldCode:          values["field_code"],
		FieldTitle:         values["field_title"],
		CurrentWorkplace:   values["current_workplace"],
		SourceDistrictCode: values["source_district_code"],
	}
	if raw := utils.NormalizeDigits(values["years_of_service"]); raw != "" {
		years, err := strconv.Atoi(raw)
		if err != nil {
			return in, newValidationError("years_of_service", "invalid number %q", raw)
		}
		in.YearsOfService = years
	}
	if raw := utils.NormalizeDigits(values["approved_score"]); raw != "" {
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return in, newValidationError("approved_score", "invalid number %q", raw)
		}
		in.ApprovedScore = score
	}
	for n := 1; n <= models.MaxDestinationPriorities; n++ {
		code := values[fmt.Sprintf("destination_%d_district", n)]
		if code == "" {
			continue
		}
		in.DestinationPriorities = append(in.DestinationPriorities, models.DestinationPriority{
			Priority:     n,
			DistrictCode: code,
			TransferType: values[fmt.Sprintf("destination_%d_type", n)],
		})
	}
	return in, nil
}

var specExportHeaders = []string{
	"personnel_code", "national_id", "first_name", "last_name", "employment_type",
	"field_code", "source_district_code", "current_workplace", "years_of_service",
	"approved_score", "current_request_status", "status_label", "updated_at",
}

// ExportSpecs writes every record matching filter to w as xlsx.
func (s *SpecImportService) ExportSpecs(ctx context.Context, w io.Writer, filter SpecFilter) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "specs"
	if err := prepareSheet(f, sheet); err != nil {
		return err
	}

	header := make([]interface{}, 0, len(specExportHeaders)+2*models.MaxDestinationPriorities)
	for _, h := range specExportHeaders {
		header = append(header, h)
	}
	for n := 1; n <= models.MaxDestinationPriorities; n++ {
		header = append(header, fmt.Sprintf("destination_%d_district", n), fmt.Sprintf("destination_%d_type", n))
	}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}

	filter.Limit = 200
	filter.Offset = 0
	rowNum := 2
	for {
		specs, total, err := s.specs.List(ctx, filter)
		if err != nil {
			return err
		}
		for _, spec := range specs {
			row := []interface{}{
				spec.PersonnelCode, spec.NationalID, spec.FirstName, spec.LastName, spec.EmploymentType,
				spec.FieldCode, spec.SourceDistrictCode, spec.CurrentWorkplace, spec.YearsOfService,
				spec.ApprovedScore, string(spec.CurrentRequestStatus), workflow.StatusLabel(spec.CurrentRequestStatus),
				utils.FormatJalaliNumeric(spec.UpdatedAt),
			}
			for _, p := range spec.DestinationPriorities {
				row = append(row, p.DistrictCode, p.TransferType)
			}
			if err := writeRow(f, sheet, rowNum, row); err != nil {
				return err
			}
			rowNum++
		}
		filter.Offset += len(specs)
		if len(specs) == 0 || int64(filter.Offset) >= total {
			break
		}
	}
	return f.Write(w)
}

// ExportStatistics writes a statistics report to w as xlsx.
func ExportStatistics(w io.Writer, stats *Statistics) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "statistics"
	if err := prepareSheet(f, sheet); err != nil {
		return err
	}

	header := []interface{}{"کد منطقه", "نام منطقه"}
	for _, col := range stats.Columns {
		header = append(header, col.Label)
	}
	header = append(header, "جمع")
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}

	rowNum := 2
	for _, d := range stats.Districts {
		row := []interface{}{d.DistrictCode, d.DistrictName}
		for _, col := range stats.Columns {
			row = append(row, d.Counts[col.Status])
		}
		row = append(row, d.Total)
		if err := writeRow(f, sheet, rowNum, row); err != nil {
			return err
		}
		rowNum++
	}

	totals := []interface{}{"", "جمع کل"}
	for _, col := range stats.Columns {
		totals = append(totals, stats.Totals[col.Status])
	}
	totals = append(totals, stats.GrandTotal)
	if err := writeRow(f, sheet, rowNum, totals); err != nil {
		return err
	}
	return f.Write(w)
}

func prepareSheet(f *excelize.File, name string) error {
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	rtl := true
	if err := f.SetSheetView(name, -1, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		return fmt.Errorf("set sheet view: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	return f.SetRowStyle(name, 1, 1, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
