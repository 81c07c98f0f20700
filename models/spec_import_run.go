package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SpecImportStatusRunning = "running"
	SpecImportStatusSuccess = "success"
	SpecImportStatusFailed  = "failed"
)

// SpecImportRun records one bulk provisioning run of personnel records.
type SpecImportRun struct {
	ID            uint           `json:"run_id" gorm:"primaryKey;autoIncrement"`
	TriggerSource string         `json:"trigger_source" gorm:"type:varchar(64);not null"`
	FileName      string         `json:"file_name" gorm:"type:varchar(255)"`
	DryRun        bool           `json:"dry_run" gorm:"column:dry_run;not null;default:false"`
	Status        string         `json:"status" gorm:"type:enum('running','success','failed');not null;default:'running'"`
	ErrorMessage  *string        `json:"error_message,omitempty" gorm:"type:text"`
	StartedAt     time.Time      `json:"started_at" gorm:"column:started_at;autoCreateTime"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty" gorm:"column:finished_at"`
	Duration      *float64       `json:"duration_seconds,omitempty" gorm:"column:duration_seconds"`
	RowCount      uint           `json:"row_count" gorm:"column:row_count;not null;default:0"`
	CreatedCount  uint           `json:"created_count" gorm:"column:created_count;not null;default:0"`
	SkippedCount  uint           `json:"skipped_count" gorm:"column:skipped_count;not null;default:0"`
	FailedCount   uint           `json:"failed_count" gorm:"column:failed_count;not null;default:0"`
	CreatedAt     time.Time      `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"column:deleted_at;index"`
}

func (SpecImportRun) TableName() string { return "spec_import_runs" }
