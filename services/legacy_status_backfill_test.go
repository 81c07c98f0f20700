package services

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legacyBackfillSteps(rows ...[]driver.Value) []*queryStep {
	return []*queryStep{
		queryRows(`SELECT DATABASE\(\)`, []string{"DATABASE()"}, []driver.Value{"transfer"}),
		queryRows(`(?i)INFORMATION_SCHEMA\.columns`, []string{"count(*)"}, []driver.Value{int64(1)}),
		queryRows(`SELECT id, request_status FROM transfer_applicant_specs`, []string{"id", "request_status"}, rows...),
	}
}

func TestBackfillLegacyStatus(t *testing.T) {
	steps := legacyBackfillSteps(
		[]driver.Value{int64(1), "district_review"},
		[]driver.Value{int64(2), "mystery"},
		[]driver.Value{int64(3), "new"},
	)
	steps = append(steps, execStep("UPDATE `transfer_applicant_specs` SET `current_request_status`", 1))
	db, state := newScriptedGormDB(t, steps)

	summary, err := BackfillLegacyStatus(context.Background(), db, nil, false)
	require.NoError(t, err)
	require.NoError(t, state.verifyComplete())
	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, []string{"mystery"}, summary.Unresolved)
}

func TestBackfillLegacyStatusDryRunWritesNothing(t *testing.T) {
	db, state := newScriptedGormDB(t, legacyBackfillSteps(
		[]driver.Value{int64(1), "province_approved"},
	))

	summary, err := BackfillLegacyStatus(context.Background(), db, nil, true)
	require.NoError(t, err)
	require.NoError(t, state.verifyComplete())
	assert.Equal(t, 1, summary.Updated)
}
