package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"transfer-appeal-api/models"
	"transfer-appeal-api/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var specColumns = []string{"id", "personnel_code", "national_id", "first_name", "last_name", "source_district_code", "destination_priorities", "current_request_status", "request_status", "workflow_version"}

var historyColumns = []string{"id", "spec_id", "sequence", "status", "previous_status", "changed_at", "reason", "metadata"}

func TestGormRecordStoreGetLoadsOrderedHistory(t *testing.T) {
	changed := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	db, state := newScriptedGormDB(t, []*queryStep{
		queryRows("SELECT \\* FROM `transfer_applicant_specs` WHERE id = \\?", specColumns,
			[]driver.Value{int64(7), "P-100", "0499370899", "Sara", "Karimi", "D1", []byte(`[{"priority":1,"district_code":"D2","transfer_type":"permanent"}]`), "source_review", nil, int64(3)},
		),
		queryRows("SELECT \\* FROM `workflow_history_entries` WHERE `workflow_history_entries`.`spec_id` = \\? ORDER BY changed_at ASC, sequence ASC", historyColumns,
			[]driver.Value{int64(1), int64(7), int64(1), "awaiting_user_approval", "user_no_action", changed, nil, []byte(`{"action_type":"start_appeal"}`)},
			[]driver.Value{int64(2), int64(7), int64(2), "user_approval", "awaiting_user_approval", changed.Add(time.Hour), nil, []byte(`{"action_type":"submit_final_appeal"}`)},
			[]driver.Value{int64(3), int64(7), int64(3), "source_review", "user_approval", changed.Add(2 * time.Hour), "opened", []byte(`{}`)},
		),
	})

	spec, err := NewGormRecordStore(db).Get(context.Background(), 7)
	require.NoError(t, err)
	require.NoError(t, state.verifyComplete())

	assert.Equal(t, workflow.StatusSourceReview, spec.CurrentRequestStatus)
	assert.Equal(t, uint(3), spec.WorkflowVersion)
	require.Len(t, spec.RequestStatusWorkflow, 3)
	assert.Equal(t, workflow.StatusSourceReview, spec.LastEntry().Status)
	assert.Equal(t, workflow.ActionSubmitFinalAppeal, spec.RequestStatusWorkflow[1].ActionType())
	assert.True(t, spec.HasDestination("D2"))
	assert.NoError(t, spec.CheckConsistency())
}

func TestGormRecordStoreGetResolvesLegacyStatus(t *testing.T) {
	db, _ := newScriptedGormDB(t, []*queryStep{
		queryRows("SELECT \\* FROM `transfer_applicant_specs`", specColumns,
			[]driver.Value{int64(8), "P-101", "0084575948", "Ali", "Rad", "D1", nil, "", "province-review", int64(0)},
		),
		queryRows("SELECT \\* FROM `workflow_history_entries`", historyColumns),
	})

	spec, err := NewGormRecordStore(db).Get(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusProvinceReview, spec.CurrentRequestStatus)
	assert.Empty(t, spec.RequestStatusWorkflow)
	assert.NoError(t, spec.CheckConsistency())
}

func TestGormRecordStoreGetNotFound(t *testing.T) {
	db, _ := newScriptedGormDB(t, []*queryStep{
		queryRows("SELECT \\* FROM `transfer_applicant_specs`", specColumns),
	})

	_, err := NewGormRecordStore(db).Get(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func casFixture() (*models.TransferApplicantSpec, *models.WorkflowHistoryEntry) {
	spec := &models.TransferApplicantSpec{
		ID:                   7,
		CurrentRequestStatus: workflow.StatusSourceReview,
		WorkflowVersion:      3,
	}
	engine := workflow.NewEngine(workflow.Options{IncludeDestinationReview: true})
	entry, err := spec.AppendTransition(engine, workflow.StatusSourceApproval, "ok", models.WorkflowMetadata{ActorID: "u1"}, time.Now(), false)
	if err != nil {
		panic(err)
	}
	spec.DestinationPriorities = datatypes.JSONSlice[models.DestinationPriority]{}
	return spec, entry
}

func TestGormRecordStoreCompareAndSetCommits(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		execStep("UPDATE `transfer_applicant_specs` SET .*workflow_version \\+ \\?.*id = \\? AND current_request_status = \\? AND workflow_version = \\?", 1),
		{
			kind:    kindExec,
			pattern: regexpMust("INSERT INTO `workflow_history_entries`"),
			result:  scriptedResult{lastInsertID: 42, rowsAffected: 1},
		},
	})

	spec, entry := casFixture()
	err := NewGormRecordStore(db).CompareAndSet(context.Background(), 7, workflow.StatusSourceReview, 3, spec, entry)
	require.NoError(t, err)
	require.NoError(t, state.verifyComplete())

	assert.Equal(t, uint(4), spec.WorkflowVersion)
	assert.Equal(t, uint(42), spec.LastEntry().ID)
	assert.Equal(t, uint(7), entry.SpecID)
	_, commits, rollbacks := state.txCounts()
	assert.Equal(t, 1, commits)
	assert.Equal(t, 0, rollbacks)
}

func TestGormRecordStoreCompareAndSetConflictRollsBack(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		execStep("UPDATE `transfer_applicant_specs`", 0),
	})

	spec, entry := casFixture()
	err := NewGormRecordStore(db).CompareAndSet(context.Background(), 7, workflow.StatusSourceReview, 3, spec, entry)

	var conflict *ConcurrentModificationError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, workflow.StatusSourceReview, conflict.Expected)
	assert.Equal(t, uint(3), spec.WorkflowVersion)
	require.NoError(t, state.verifyComplete())
	_, commits, rollbacks := state.txCounts()
	assert.Equal(t, 0, commits)
	assert.Equal(t, 1, rollbacks)
}

func TestGormRecordStoreCompareAndSetInsertFailureRollsBack(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		execStep("UPDATE `transfer_applicant_specs`", 1),
		{
			kind:    kindExec,
			pattern: regexpMust("INSERT INTO `workflow_history_entries`"),
			err:     errors.New("disk full"),
		},
	})

	spec, entry := casFixture()
	err := NewGormRecordStore(db).CompareAndSet(context.Background(), 7, workflow.StatusSourceReview, 3, spec, entry)

	var pe *PersistenceError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.False(t, IsConcurrentModification(err))
	_, commits, rollbacks := state.txCounts()
	assert.Equal(t, 0, commits)
	assert.Equal(t, 1, rollbacks)
}

func TestGormRecordStoreCompareAndSetRejectsMismatchedEntry(t *testing.T) {
	db, state := newScriptedGormDB(t, nil)

	spec, entry := casFixture()
	spec.CurrentRequestStatus = workflow.StatusSourceRejection
	err := NewGormRecordStore(db).CompareAndSet(context.Background(), 7, workflow.StatusSourceReview, 3, spec, entry)
	assert.ErrorIs(t, err, models.ErrHistoryOutOfSync)
	begins, _, _ := state.txCounts()
	assert.Equal(t, 0, begins)
}
