package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"transfer-appeal-api/config"
	"transfer-appeal-api/models"
	"transfer-appeal-api/workflow"

	"gorm.io/gorm"
)

// RecordStore reads transfer applicant specs and writes status changes with a
// compare-and-set on the status the caller read.
type RecordStore interface {
	Get(ctx context.Context, id uint) (*models.TransferApplicantSpec, error)
	// CompareAndSet persists next and appends entry only if the stored record
	// is still in expected at expectedVersion. On success next.WorkflowVersion
	// is advanced. Nothing is written on failure.
	CompareAndSet(ctx context.Context, id uint, expected workflow.RequestStatus, expectedVersion uint, next *models.TransferApplicantSpec, entry *models.WorkflowHistoryEntry) error
}

// GormRecordStore is the MySQL-backed RecordStore.
type GormRecordStore struct {
	db *gorm.DB
}

// NewGormRecordStore returns a store on db, or on config.DB when db is nil.
func NewGormRecordStore(db *gorm.DB) *GormRecordStore {
	if db == nil {
		db = config.DB
	}
	return &GormRecordStore{db: db}
}

func (s *GormRecordStore) Get(ctx context.Context, id uint) (*models.TransferApplicantSpec, error) {
	var spec models.TransferApplicantSpec
	err := s.db.WithContext(ctx).
		Preload("RequestStatusWorkflow", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("changed_at ASC, sequence ASC")
		}).
		Where("id = ?", id).
		First(&spec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("transfer applicant spec %d: %w", id, ErrNotFound)
		}
		return nil, persistenceError("load transfer applicant spec", err)
	}
	return &spec, nil
}

func (s *GormRecordStore) CompareAndSet(ctx context.Context, id uint, expected workflow.RequestStatus, expectedVersion uint, next *models.TransferApplicantSpec, entry *models.WorkflowHistoryEntry) error {
	if next == nil || entry == nil {
		return newValidationError("spec", "snapshot and history entry are required")
	}
	if entry.Status != next.CurrentRequestStatus {
		return models.ErrHistoryOutOfSync
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TransferApplicantSpec{}).
			Where("id = ? AND current_request_status = ? AND workflow_version = ?", id, expected, expectedVersion).
			Updates(map[string]interface{}{
				"current_request_status": next.CurrentRequestStatus,
				"destination_priorities": next.DestinationPriorities,
				"workflow_version":       gorm.Expr("workflow_version + ?", 1),
				"updated_at":             time.Now(),
			})
		if res.Error != nil {
			return persistenceError("update request status", res.Error)
		}
		if res.RowsAffected == 0 {
			return &ConcurrentModificationError{SpecID: id, Expected: expected}
		}

		entry.SpecID = id
		if err := tx.Create(entry).Error; err != nil {
			return persistenceError("append workflow history", err)
		}
		return nil
	})
	if err != nil {
		if IsConcurrentModification(err) || IsValidation(err) {
			return err
		}
		return persistenceError("commit status transition", err)
	}

	next.WorkflowVersion = expectedVersion + 1
	return nil
}
