package services

import (
	"context"

	"transfer-appeal-api/models"
	"transfer-appeal-api/workflow"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BackfillSummary reports what BackfillLegacyStatus did.
type BackfillSummary struct {
	Scanned    int      `json:"scanned"`
	Updated    int      `json:"updated"`
	Unresolved []string `json:"unresolved,omitempty"`
}

type legacyStatusRow struct {
	ID            uint
	RequestStatus string
}

const legacyStatusQuery = `SELECT id, request_status FROM transfer_applicant_specs
WHERE request_status IS NOT NULL AND request_status <> ''
AND current_request_status = ?
AND NOT EXISTS (SELECT 1 FROM workflow_history_entries h WHERE h.spec_id = transfer_applicant_specs.id)`

// BackfillLegacyStatus copies the deprecated request_status column into
// current_request_status for rows that never entered the workflow. Values
// that do not parse are reported and left alone.
func BackfillLegacyStatus(ctx context.Context, db *gorm.DB, logger *zap.Logger, dryRun bool) (*BackfillSummary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	summary := &BackfillSummary{}

	if !db.Migrator().HasColumn(&models.TransferApplicantSpec{}, "request_status") {
		logger.Info("legacy request_status column not present, nothing to backfill")
		return summary, nil
	}

	var rows []legacyStatusRow
	if err := db.WithContext(ctx).Raw(legacyStatusQuery, workflow.DefaultStatus).Scan(&rows).Error; err != nil {
		return nil, persistenceError("scan legacy statuses", err)
	}
	summary.Scanned = len(rows)

	for _, row := range rows {
		status, ok := workflow.ParseStatus(row.RequestStatus)
		if !ok {
			summary.Unresolved = append(summary.Unresolved, row.RequestStatus)
			logger.Warn("unrecognized legacy status", zap.Uint("spec_id", row.ID), zap.String("request_status", row.RequestStatus))
			continue
		}
		if status == workflow.DefaultStatus {
			continue
		}
		if dryRun {
			summary.Updated++
			continue
		}
		res := db.WithContext(ctx).Model(&models.TransferApplicantSpec{}).
			Where("id = ? AND current_request_status = ?", row.ID, workflow.DefaultStatus).
			UpdateColumn("current_request_status", status)
		if res.Error != nil {
			return summary, persistenceError("backfill legacy status", res.Error)
		}
		summary.Updated += int(res.RowsAffected)
	}

	return summary, nil
}
