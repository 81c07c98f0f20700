package services

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"transfer-appeal-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var districtColumns = []string{"code", "name", "province_code", "province_name", "is_active"}

func districtsStep(rows ...[]driver.Value) *queryStep {
	return queryRows("SELECT \\* FROM `districts` ORDER BY code ASC", districtColumns, rows...)
}

func TestDistrictServiceServesFromCache(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		districtsStep(
			[]driver.Value{"D1", "منطقه یک", "P1", "استان یک", true},
			[]driver.Value{"D2", "منطقه دو", "P1", "استان یک", true},
		),
	})
	svc := NewDistrictService(db)
	ctx := context.Background()

	d, err := svc.FindByCode(ctx, " D1 ")
	require.NoError(t, err)
	assert.Equal(t, "منطقه یک", d.Name)

	_, err = svc.FindByCode(ctx, "D2")
	require.NoError(t, err)
	inProvince, err := svc.FindMany(ctx, DistrictFilter{ProvinceCode: "P1"})
	require.NoError(t, err)
	assert.Len(t, inProvince, 2)

	_, err = svc.FindByCode(ctx, "")
	assert.True(t, IsValidation(err), "got %v", err)
	require.NoError(t, state.verifyComplete())
}

func TestDistrictServiceMissReloadsAtMostOncePerWindow(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		districtsStep([]driver.Value{"D1", "منطقه یک", "P1", "استان یک", true}),
		districtsStep(
			[]driver.Value{"D1", "منطقه یک", "P1", "استان یک", true},
			[]driver.Value{"D9", "منطقه نه", "P4", "استان چهار", true},
		),
	})
	svc := NewDistrictService(db)
	ctx := context.Background()

	_, err := svc.FindByCode(ctx, "D1")
	require.NoError(t, err)

	// The cache was just filled, so unknown codes do not reach the database.
	for _, code := range []string{"D9", "D8", "D9"} {
		_, err = svc.FindByCode(ctx, code)
		assert.ErrorIs(t, err, ErrNotFound)
	}

	svc.cache.fetchedAt = time.Now().Add(-time.Minute)
	d, err := svc.FindByCode(ctx, "D9")
	require.NoError(t, err)
	assert.Equal(t, "P4", d.ProvinceCode)

	_, err = svc.FindByCode(ctx, "D8")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, state.verifyComplete())
}

func TestDistrictServiceUpsertClearsCache(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		districtsStep([]driver.Value{"D1", "منطقه یک", "P1", "استان یک", true}),
		execStep("INSERT INTO `districts` .* ON DUPLICATE KEY UPDATE `name`=", 2),
		districtsStep(
			[]driver.Value{"D1", "منطقه اول", "P1", "استان یک", true},
			[]driver.Value{"D5", "منطقه پنج", "P2", "استان دو", false},
		),
	})
	svc := NewDistrictService(db)
	ctx := context.Background()

	_, err := svc.FindMany(ctx, DistrictFilter{})
	require.NoError(t, err)

	err = svc.Upsert(ctx, []models.District{
		{Code: " D1 ", Name: "منطقه اول", ProvinceCode: "P1", IsActive: true},
		{Code: "D5", Name: "منطقه پنج", ProvinceCode: "P2"},
	})
	require.NoError(t, err)
	upsert := state.seen[1]
	for _, col := range []string{"`province_code`=", "`province_name`=", "`is_active`=", "`updated_at`="} {
		assert.Contains(t, upsert, col)
	}
	assert.NotContains(t, upsert, "`created_at`=")

	all, err := svc.FindMany(ctx, DistrictFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	active, err := svc.FindMany(ctx, DistrictFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "D1", active[0].Code)
	require.NoError(t, state.verifyComplete())
}

func TestDistrictServiceUpsertValidatesRows(t *testing.T) {
	db, state := newScriptedGormDB(t, nil)
	svc := NewDistrictService(db)

	tests := []struct {
		name  string
		rows  []models.District
		field string
	}{
		{"missing code", []models.District{{Name: "x", ProvinceCode: "P1"}}, "code"},
		{"missing name", []models.District{{Code: "D1", ProvinceCode: "P1"}}, "name"},
		{"missing province", []models.District{{Code: "D1", Name: "x"}}, "province_code"},
		{"duplicate code", []models.District{{Code: "D1", Name: "x", ProvinceCode: "P1"}, {Code: "D1 ", Name: "y", ProvinceCode: "P1"}}, "code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *ValidationError
			require.ErrorAs(t, svc.Upsert(context.Background(), tt.rows), &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	require.NoError(t, svc.Upsert(context.Background(), nil))
	require.NoError(t, state.verifyComplete())
}
