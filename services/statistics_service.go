package services

import (
	"context"
	"sort"

	"transfer-appeal-api/config"
	"transfer-appeal-api/models"
	"transfer-appeal-api/workflow"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// StatisticsFilter narrows the report. Statuses bounds the columns; empty means all.
type StatisticsFilter struct {
	ProvinceCode  string
	DistrictCodes []string
	Statuses      []workflow.RequestStatus
}

type statusCountRow struct {
	SourceDistrictCode string
	Status             workflow.RequestStatus
	Count              int64
}

// StatusColumn is one column of the report.
type StatusColumn struct {
	Status workflow.RequestStatus `json:"status"`
	Label  string                 `json:"label"`
}

// DistrictStatistics is one row of the report.
type DistrictStatistics struct {
	DistrictCode string                           `json:"district_code"`
	DistrictName string                           `json:"district_name"`
	ProvinceCode string                           `json:"province_code"`
	Counts       map[workflow.RequestStatus]int64 `json:"counts"`
	Total        int64                            `json:"total"`
}

// Statistics counts records per source district and status.
type Statistics struct {
	Columns    []StatusColumn                   `json:"columns"`
	Districts  []DistrictStatistics             `json:"districts"`
	Totals     map[workflow.RequestStatus]int64 `json:"totals"`
	GrandTotal int64                            `json:"grand_total"`
}

type StatisticsService struct {
	db        *gorm.DB
	districts DistrictLookup
}

func NewStatisticsService(db *gorm.DB, districts DistrictLookup) *StatisticsService {
	if db == nil {
		db = config.DB
	}
	if districts == nil {
		districts = NewDistrictService(db)
	}
	return &StatisticsService{db: db, districts: districts}
}

// scopeFilter pins the filter to the caller's district or province.
func scopeFilter(identity *Identity, filter StatisticsFilter) (StatisticsFilter, error) {
	switch identity.Role {
	case RoleAdmin:
	case RoleProvinceExpert:
		if identity.ProvinceCode == "" {
			return filter, ErrUnauthorized
		}
		filter.ProvinceCode = identity.ProvinceCode
	case RoleDistrictExpert:
		if identity.DistrictCode == "" {
			return filter, ErrUnauthorized
		}
		filter.ProvinceCode = ""
		filter.DistrictCodes = []string{identity.DistrictCode}
	default:
		return filter, ErrUnauthorized
	}
	return filter, nil
}

// Compute builds the report for districts within the caller's scope.
func (s *StatisticsService) Compute(ctx context.Context, identity *Identity, filter StatisticsFilter) (*Statistics, error) {
	if err := Authorize(identity, RoleAdmin, RoleProvinceExpert, RoleDistrictExpert); err != nil {
		return nil, err
	}
	filter, err := scopeFilter(identity, filter)
	if err != nil {
		return nil, err
	}

	statuses := lo.Filter(filter.Statuses, func(st workflow.RequestStatus, _ int) bool { return st.IsValid() })
	if len(statuses) == 0 {
		statuses = workflow.AllStatuses()
	}
	statuses = lo.Uniq(statuses)

	districts, err := s.districts.FindMany(ctx, DistrictFilter{ProvinceCode: filter.ProvinceCode, Codes: filter.DistrictCodes})
	if err != nil {
		return nil, err
	}

	report := &Statistics{
		Columns: lo.Map(statuses, func(st workflow.RequestStatus, _ int) StatusColumn {
			return StatusColumn{Status: st, Label: workflow.StatusLabel(st)}
		}),
		Districts: []DistrictStatistics{},
		Totals:    lo.SliceToMap(statuses, func(st workflow.RequestStatus) (workflow.RequestStatus, int64) { return st, 0 }),
	}
	if len(districts) == 0 {
		return report, nil
	}

	codes := lo.Map(districts, func(d models.District, _ int) string { return d.Code })
	var rows []statusCountRow
	err = s.db.WithContext(ctx).Model(&models.TransferApplicantSpec{}).
		Select("source_district_code, current_request_status AS status, COUNT(*) AS count").
		Where("current_request_status IN ? AND source_district_code IN ?", statuses, codes).
		Group("source_district_code, current_request_status").
		Scan(&rows).Error
	if err != nil {
		return nil, persistenceError("count records by status", err)
	}

	byDistrict := lo.GroupBy(rows, func(r statusCountRow) string { return r.SourceDistrictCode })
	for _, d := range districts {
		row := DistrictStatistics{
			DistrictCode: d.Code,
			DistrictName: d.Name,
			ProvinceCode: d.ProvinceCode,
			Counts:       lo.SliceToMap(statuses, func(st workflow.RequestStatus) (workflow.RequestStatus, int64) { return st, 0 }),
		}
		for _, r := range byDistrict[d.Code] {
			row.Counts[r.Status] += r.Count
			row.Total += r.Count
			report.Totals[r.Status] += r.Count
		}
		report.GrandTotal += row.Total
		report.Districts = append(report.Districts, row)
	}
	sort.SliceStable(report.Districts, func(i, j int) bool {
		return report.Districts[i].DistrictCode < report.Districts[j].DistrictCode
	})
	return report, nil
}
