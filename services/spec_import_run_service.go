package services

import (
	"context"
	"errors"
	"time"

	"transfer-appeal-api/config"
	"transfer-appeal-api/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

var ErrSpecImportRunNotFound = errors.New("spec import run not found")

const (
	maxRunErrorLength = 2000
	defaultRunPage    = 20
	maxRunPage        = 100
)

// Listing skips the timestamps gorm manages.
var importRunColumns = []string{
	"id", "trigger_source", "file_name", "dry_run", "status", "error_message",
	"started_at", "finished_at", "duration_seconds",
	"row_count", "created_count", "skipped_count", "failed_count",
}

// SpecImportRunService keeps the spec_import_runs bookkeeping table.
type SpecImportRunService struct {
	db *gorm.DB
}

func NewSpecImportRunService(db *gorm.DB) *SpecImportRunService {
	if db == nil {
		db = config.DB
	}
	return &SpecImportRunService{db: db}
}

// Start inserts a run in the running state.
func (s *SpecImportRunService) Start(ctx context.Context, trigger, fileName string, dryRun bool) (*models.SpecImportRun, error) {
	run := &models.SpecImportRun{
		TriggerSource: lo.Ternary(trigger == "", "unknown", trigger),
		FileName:      fileName,
		DryRun:        dryRun,
		Status:        models.SpecImportStatusRunning,
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// Finish closes a run. A nil cause marks it successful.
func (s *SpecImportRunService) Finish(ctx context.Context, runID uint, summary *ImportSummary, cause error, elapsed time.Duration) error {
	updates := map[string]any{
		"status":           models.SpecImportStatusSuccess,
		"finished_at":      time.Now(),
		"duration_seconds": elapsed.Seconds(),
	}
	if cause != nil {
		updates["status"] = models.SpecImportStatusFailed
		updates["error_message"] = lo.Ellipsis(cause.Error(), maxRunErrorLength)
	}
	if summary != nil {
		updates["row_count"] = summary.RowCount
		updates["created_count"] = summary.CreatedCount
		updates["skipped_count"] = summary.SkippedCount
		updates["failed_count"] = summary.FailedCount
	}

	res := s.db.WithContext(ctx).Model(&models.SpecImportRun{}).Where("id = ?", runID).Updates(updates)
	switch {
	case res.Error != nil:
		return res.Error
	case res.RowsAffected == 0:
		return ErrSpecImportRunNotFound
	}
	return nil
}

func (s *SpecImportRunService) GetByID(ctx context.Context, id uint) (*models.SpecImportRun, error) {
	var run models.SpecImportRun
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSpecImportRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRunning returns the newest run still in progress, or nil.
func (s *SpecImportRunService) GetRunning(ctx context.Context) (*models.SpecImportRun, error) {
	var runs []models.SpecImportRun
	err := s.db.WithContext(ctx).
		Select(importRunColumns).
		Where("status = ?", models.SpecImportStatusRunning).
		Order("started_at DESC").
		Limit(1).
		Find(&runs).Error
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// List pages through runs, newest first.
func (s *SpecImportRunService) List(ctx context.Context, limit, offset int) ([]models.SpecImportRun, int64, error) {
	if limit <= 0 {
		limit = defaultRunPage
	}
	limit = min(limit, maxRunPage)
	offset = max(offset, 0)

	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&models.SpecImportRun{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	runs := make([]models.SpecImportRun, 0, limit)
	err := db.Select(importRunColumns).
		Order("started_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}
