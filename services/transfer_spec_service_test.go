package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"strings"
	"testing"

	"transfer-appeal-api/models"
	"transfer-appeal-api/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSpecService(t *testing.T, steps []*queryStep) (*TransferSpecService, *scriptedDB) {
	t.Helper()
	db, state := newScriptedGormDB(t, steps)
	return NewTransferSpecService(db, testDistricts, workflow.NewEngine(workflow.Options{})), state
}

func validSpecInput() SpecInput {
	return SpecInput{
		PersonnelCode:      " P-۲۰۰ ",
		NationalID:         "0499370899",
		FirstName:          "Sara",
		LastName:           "Karimi",
		Mobile:             "09121234567",
		YearsOfService:     12,
		SourceDistrictCode: "D1",
		DestinationPriorities: []models.DestinationPriority{
			{Priority: 1, DistrictCode: "D2", TransferType: models.TransferTypePermanent},
		},
	}
}

func specRow(id int64, status string) []driver.Value {
	return []driver.Value{id, "P-200", "0499370899", "Sara", "Karimi", "D1", []byte(`[{"priority":1,"district_code":"D2","transfer_type":"permanent"}]`), status, nil, int64(4)}
}

// setColumns lists the columns assigned by an UPDATE statement.
func setColumns(statement string) []string {
	set := statement[strings.Index(statement, " SET ")+len(" SET "):]
	if i := strings.Index(set, " WHERE "); i >= 0 {
		set = set[:i]
	}
	var cols []string
	for _, m := range regexp.MustCompile("`(\\w+)`=\\?").FindAllStringSubmatch(set, -1) {
		cols = append(cols, m[1])
	}
	return cols
}

func TestCreateSpecStartsWithoutHistory(t *testing.T) {
	svc, state := newTestSpecService(t, []*queryStep{
		{kind: kindQuery, pattern: regexpMust("SELECT count\\(\\*\\) FROM `transfer_applicant_specs` WHERE personnel_code = \\?"),
			args: []driver.Value{"P-200"}, columns: []string{"count(*)"}, rows: [][]driver.Value{{int64(0)}}},
		{kind: kindExec, pattern: regexpMust("INSERT INTO `transfer_applicant_specs`"), result: scriptedResult{lastInsertID: 21, rowsAffected: 1}},
	})

	spec, err := svc.Create(context.Background(), validSpecInput())
	require.NoError(t, err)
	require.NoError(t, state.verifyComplete())

	assert.Equal(t, uint(21), spec.ID)
	assert.Equal(t, "P-200", spec.PersonnelCode)
	assert.Equal(t, workflow.DefaultStatus, spec.CurrentRequestStatus)
	assert.Zero(t, spec.WorkflowVersion)
	assert.Empty(t, spec.RequestStatusWorkflow)
	assert.True(t, spec.HasDestination("D2"))

	insert := state.seen[1]
	assert.Contains(t, insert, "`current_request_status`")
	assert.NotContains(t, insert, "`request_status`")
	for _, stmt := range state.seen {
		assert.NotContains(t, stmt, "workflow_history_entries")
	}
	begins, commits, rollbacks := state.txCounts()
	assert.Equal(t, []int{1, 1, 0}, []int{begins, commits, rollbacks})
}

func TestCreateSpecRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *SpecInput)
		steps  []*queryStep
		field  string
		dup    bool
	}{
		{name: "duplicate personnel code", mutate: func(*SpecInput) {}, steps: []*queryStep{countStep(1)}, field: "personnel_code", dup: true},
		{name: "missing personnel code", mutate: func(in *SpecInput) { in.PersonnelCode = "  " }, field: "personnel_code"},
		{name: "bad national id", mutate: func(in *SpecInput) { in.NationalID = "1111111111" }, field: "national_id"},
		{name: "unknown source district", mutate: func(in *SpecInput) { in.SourceDistrictCode = "D9" }, field: "source_district_code"},
		{name: "negative service years", mutate: func(in *SpecInput) { in.YearsOfService = -1 }, field: "years_of_service"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, state := newTestSpecService(t, tt.steps)
			in := validSpecInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.dup, errors.Is(err, ErrDuplicatePersonnelCode))
			require.NoError(t, state.verifyComplete())
		})
	}
}

func TestUpdateSpecWritesProvisioningColumnsOnly(t *testing.T) {
	svc, state := newTestSpecService(t, []*queryStep{
		queryRows("SELECT \\* FROM `transfer_applicant_specs` WHERE id = \\?", specColumns, specRow(5, "source_review")),
		queryRows("SELECT \\* FROM `workflow_history_entries`", historyColumns),
		execStep("UPDATE `transfer_applicant_specs` SET .* WHERE id = \\?", 1),
		queryRows("SELECT \\* FROM `transfer_applicant_specs` WHERE id = \\?", specColumns, specRow(5, "source_review")),
		queryRows("SELECT \\* FROM `workflow_history_entries`", historyColumns),
	})

	in := validSpecInput()
	in.PersonnelCode = "P-999"
	in.SourceDistrictCode = "D2"
	spec, err := svc.Update(context.Background(), 5, in)
	require.NoError(t, err)
	require.NoError(t, state.verifyComplete())
	assert.Equal(t, workflow.StatusSourceReview, spec.CurrentRequestStatus)

	update := state.seen[2]
	assert.ElementsMatch(t, provisioningColumns, setColumns(update))
	for _, col := range []string{"personnel_code", "current_request_status", "workflow_version", "destination_priorities", "deleted_at"} {
		assert.NotContains(t, update, "`"+col+"`=?")
	}
}

func TestUpdateSpecValidatesBeforeWriting(t *testing.T) {
	svc, state := newTestSpecService(t, []*queryStep{
		queryRows("SELECT \\* FROM `transfer_applicant_specs` WHERE id = \\?", specColumns, specRow(5, "user_no_action")),
		queryRows("SELECT \\* FROM `workflow_history_entries`", historyColumns),
	})

	in := validSpecInput()
	in.Email = "not-an-email"
	_, err := svc.Update(context.Background(), 5, in)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
	require.NoError(t, state.verifyComplete())
}

func reviewQueueSteps(scope string, args ...driver.Value) []*queryStep {
	return []*queryStep{
		{kind: kindQuery, pattern: regexpMust("SELECT count\\(\\*\\) FROM `transfer_applicant_specs` WHERE current_request_status IN \\(\\?\\) AND " + scope),
			args: args, columns: []string{"count(*)"}, rows: [][]driver.Value{{int64(1)}}},
		queryRows("SELECT \\* FROM `transfer_applicant_specs` WHERE current_request_status IN \\(\\?\\) AND "+scope+".* ORDER BY id DESC LIMIT 20",
			specColumns, specRow(5, "source_review")),
	}
}

func TestReviewQueueScopesByRole(t *testing.T) {
	statuses := []workflow.RequestStatus{workflow.StatusSourceReview}
	tests := []struct {
		name     string
		identity *Identity
		steps    []*queryStep
	}{
		{"district expert", districtExpert, reviewQueueSteps("source_district_code IN \\(\\?\\)", "source_review", "D1")},
		{"province expert", provinceExpert, reviewQueueSteps("source_district_code IN \\(\\?,\\?\\)", "source_review", "D1", "D2")},
		{"destination expert", destExpert, reviewQueueSteps("JSON_CONTAINS\\(destination_priorities, JSON_OBJECT\\('district_code', \\?\\)\\)", "source_review", "D2")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, state := newTestSpecService(t, tt.steps)
			specs, total, err := svc.ReviewQueue(context.Background(), tt.identity, statuses, 0, 0)
			require.NoError(t, err)
			require.NoError(t, state.verifyComplete())
			assert.Equal(t, int64(1), total)
			require.Len(t, specs, 1)
			assert.Equal(t, uint(5), specs[0].ID)
		})
	}
}

func TestReviewQueueAdminIsUnscoped(t *testing.T) {
	svc, state := newTestSpecService(t, []*queryStep{
		queryRows("SELECT count\\(\\*\\) FROM `transfer_applicant_specs`", []string{"count(*)"}, []driver.Value{int64(0)}),
		queryRows("SELECT \\* FROM `transfer_applicant_specs`", specColumns),
	})

	specs, total, err := svc.ReviewQueue(context.Background(), admin, nil, 500, 0)
	require.NoError(t, err)
	require.NoError(t, state.verifyComplete())
	assert.Zero(t, total)
	assert.Empty(t, specs)
	for _, stmt := range state.seen {
		assert.NotContains(t, stmt, "source_district_code")
		assert.NotContains(t, stmt, "JSON_CONTAINS")
	}
	assert.Contains(t, state.seen[1], "LIMIT 200")
}

func TestReviewQueueDefaultsToActionableStatuses(t *testing.T) {
	svc, _ := newTestSpecService(t, nil)
	actionable := svc.ActionableStatuses(RoleDistrictExpert)
	require.NotEmpty(t, actionable)

	args := make([]driver.Value, 0, len(actionable)+1)
	for _, status := range actionable {
		args = append(args, string(status))
	}
	args = append(args, "D1")
	placeholders := strings.TrimSuffix(strings.Repeat("\\?,", len(actionable)), ",")

	svc, state := newTestSpecService(t, []*queryStep{
		{kind: kindQuery, pattern: regexpMust("WHERE current_request_status IN \\(" + placeholders + "\\) AND source_district_code IN \\(\\?\\)"),
			args: args, columns: []string{"count(*)"}, rows: [][]driver.Value{{int64(0)}}},
		queryRows("SELECT \\* FROM `transfer_applicant_specs`", specColumns),
	})
	_, _, err := svc.ReviewQueue(context.Background(), districtExpert, nil, 10, 0)
	require.NoError(t, err)
	require.NoError(t, state.verifyComplete())
}

func TestReviewQueueWithoutScopeSkipsDatabase(t *testing.T) {
	svc, state := newTestSpecService(t, nil)
	ctx := context.Background()

	specs, total, err := svc.ReviewQueue(ctx, &Identity{UserID: "e-7", Role: RoleProvinceExpert, ProvinceCode: "P7"}, nil, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, specs)
	assert.Empty(t, specs)
	assert.Zero(t, total)

	_, _, err = svc.ReviewQueue(ctx, &Identity{UserID: "e-8", Role: RoleDistrictExpert}, nil, 0, 0)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, _, err = svc.ReviewQueue(ctx, &Identity{UserID: "e-9", Role: RoleProvinceExpert}, nil, 0, 0)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, _, err = svc.ReviewQueue(ctx, applicant, nil, 0, 0)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, state.verifyComplete())
	assert.Empty(t, state.seen)
}
