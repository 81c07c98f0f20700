package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"transfer-appeal-api/config"
	"transfer-appeal-api/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DistrictFilter narrows FindMany. Zero values match everything.
type DistrictFilter struct {
	ProvinceCode string
	Codes        []string
	ActiveOnly   bool
}

// DistrictLookup resolves district codes.
type DistrictLookup interface {
	FindByCode(ctx context.Context, code string) (*models.District, error)
	FindMany(ctx context.Context, filter DistrictFilter) ([]models.District, error)
}

type districtCacheEntry struct {
	districts []models.District
	byCode    map[string]models.District
	fetchedAt time.Time
}

// DistrictService reads districts through a short-lived in-memory cache.
type DistrictService struct {
	db  *gorm.DB
	ttl time.Duration
	// missRefresh bounds how often an unknown code may force a reload.
	missRefresh time.Duration

	mu    sync.RWMutex
	cache *districtCacheEntry
}

func NewDistrictService(db *gorm.DB) *DistrictService {
	if db == nil {
		db = config.DB
	}
	return &DistrictService{db: db, ttl: 5 * time.Minute, missRefresh: 30 * time.Second}
}

// load returns the cached districts unless they are older than maxAge.
func (s *DistrictService) load(ctx context.Context, maxAge time.Duration) (*districtCacheEntry, error) {
	s.mu.RLock()
	cached := s.cache
	s.mu.RUnlock()

	if cached != nil && time.Since(cached.fetchedAt) < maxAge {
		return cached, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil && time.Since(s.cache.fetchedAt) < maxAge {
		return s.cache, nil
	}

	var rows []models.District
	if err := s.db.WithContext(ctx).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, persistenceError("load districts", err)
	}

	entry := &districtCacheEntry{
		districts: rows,
		byCode:    lo.KeyBy(rows, func(d models.District) string { return d.Code }),
		fetchedAt: time.Now(),
	}
	s.cache = entry
	return entry, nil
}

// ClearCache drops cached districts so the next read hits the database.
func (s *DistrictService) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
}

// FindByCode returns the district with code. A miss reloads the cache unless
// it was fetched within missRefresh.
func (s *DistrictService) FindByCode(ctx context.Context, code string) (*models.District, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, newValidationError("district_code", "district code is required")
	}

	entry, err := s.load(ctx, s.ttl)
	if err != nil {
		return nil, err
	}
	if d, ok := entry.byCode[trimmed]; ok {
		return &d, nil
	}

	entry, err = s.load(ctx, s.missRefresh)
	if err != nil {
		return nil, err
	}
	if d, ok := entry.byCode[trimmed]; ok {
		return &d, nil
	}
	return nil, fmt.Errorf("district %q: %w", trimmed, ErrNotFound)
}

func (s *DistrictService) FindMany(ctx context.Context, filter DistrictFilter) ([]models.District, error) {
	entry, err := s.load(ctx, s.ttl)
	if err != nil {
		return nil, err
	}
	return filterDistricts(entry.districts, filter), nil
}

func filterDistricts(all []models.District, filter DistrictFilter) []models.District {
	province := strings.TrimSpace(filter.ProvinceCode)
	codes := lo.SliceToMap(filter.Codes, func(c string) (string, struct{}) {
		return strings.TrimSpace(c), struct{}{}
	})
	return lo.Filter(all, func(d models.District, _ int) bool {
		if province != "" && d.ProvinceCode != province {
			return false
		}
		if len(codes) > 0 {
			if _, ok := codes[d.Code]; !ok {
				return false
			}
		}
		return !filter.ActiveOnly || d.IsActive
	})
}

// Upsert inserts or replaces districts by code.
func (s *DistrictService) Upsert(ctx context.Context, districts []models.District) error {
	if len(districts) == 0 {
		return nil
	}
	for i := range districts {
		districts[i].Code = strings.TrimSpace(districts[i].Code)
		districts[i].Name = strings.TrimSpace(districts[i].Name)
		if districts[i].Code == "" {
			return newValidationError("code", "row %d: district code is required", i+1)
		}
		if districts[i].Name == "" {
			return newValidationError("name", "row %d: district name is required", i+1)
		}
		if strings.TrimSpace(districts[i].ProvinceCode) == "" {
			return newValidationError("province_code", "row %d: province code is required", i+1)
		}
	}
	if dup := lo.FindDuplicatesBy(districts, func(d models.District) string { return d.Code }); len(dup) > 0 {
		return newValidationError("code", "duplicate district code %s", dup[0].Code)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "province_code", "province_name", "is_active", "updated_at"}),
	}).Create(&districts).Error
	if err != nil {
		return persistenceError("upsert districts", err)
	}
	s.ClearCache()
	return nil
}

// MissingDistricts returns the codes that do not resolve, sorted.
func MissingDistricts(ctx context.Context, lookup DistrictLookup, codes []string) ([]string, error) {
	wanted := lo.Uniq(lo.Compact(lo.Map(codes, func(c string, _ int) string { return strings.TrimSpace(c) })))
	if len(wanted) == 0 {
		return nil, nil
	}
	found, err := lookup.FindMany(ctx, DistrictFilter{Codes: wanted})
	if err != nil {
		return nil, err
	}
	known := lo.SliceToMap(found, func(d models.District) (string, struct{}) { return d.Code, struct{}{} })
	missing := lo.Filter(wanted, func(c string, _ int) bool {
		_, ok := known[c]
		return !ok
	})
	sort.Strings(missing)
	return missing, nil
}

// DistrictNames maps codes to display names for the given districts.
func DistrictNames(districts []models.District) map[string]string {
	return lo.SliceToMap(districts, func(d models.District) (string, string) { return d.Code, d.Name })
}
