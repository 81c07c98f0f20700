package services

import (
	"context"
	"fmt"
	"sync"

	"transfer-appeal-api/models"
	"transfer-appeal-api/workflow"
)

// memoryStore is an in-process RecordStore with the same compare-and-set
// contract as GormRecordStore.
type memoryStore struct {
	mu       sync.Mutex
	specs    map[uint]*models.TransferApplicantSpec
	nextID   uint
	afterGet func()
	failCAS  error
}

func newMemoryStore(specs ...*models.TransferApplicantSpec) *memoryStore {
	s := &memoryStore{specs: map[uint]*models.TransferApplicantSpec{}}
	for _, spec := range specs {
		s.specs[spec.ID] = spec.Clone()
	}
	return s
}

func (s *memoryStore) Get(_ context.Context, id uint) (*models.TransferApplicantSpec, error) {
	s.mu.Lock()
	spec, ok := s.specs[id]
	var out *models.TransferApplicantSpec
	if ok {
		out = spec.Clone()
	}
	hook := s.afterGet
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("transfer applicant spec %d: %w", id, ErrNotFound)
	}
	if hook != nil {
		hook()
	}
	return out, nil
}

func (s *memoryStore) CompareAndSet(_ context.Context, id uint, expected workflow.RequestStatus, expectedVersion uint, next *models.TransferApplicantSpec, entry *models.WorkflowHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCAS != nil {
		return persistenceError("update request status", s.failCAS)
	}
	stored, ok := s.specs[id]
	if !ok || stored.CurrentRequestStatus != expected || stored.WorkflowVersion != expectedVersion {
		actual := workflow.RequestStatus("")
		if ok {
			actual = stored.CurrentRequestStatus
		}
		return &ConcurrentModificationError{SpecID: id, Expected: expected, Actual: actual}
	}
	s.nextID++
	entry.ID = s.nextID
	entry.SpecID = id
	next.WorkflowVersion = expectedVersion + 1
	s.specs[id] = next.Clone()
	return nil
}

func (s *memoryStore) snapshot(id uint) *models.TransferApplicantSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.specs[id].Clone()
}

// staticDistricts is a fixed DistrictLookup.
type staticDistricts []models.District

func (d staticDistricts) FindByCode(_ context.Context, code string) (*models.District, error) {
	for _, district := range d {
		if district.Code == code {
			found := district
			return &found, nil
		}
	}
	return nil, fmt.Errorf("district %q: %w", code, ErrNotFound)
}

func (d staticDistricts) FindMany(_ context.Context, filter DistrictFilter) ([]models.District, error) {
	return filterDistricts(d, filter), nil
}

var testDistricts = staticDistricts{
	{Code: "D1", Name: "منطقه یک", ProvinceCode: "P1", IsActive: true},
	{Code: "D2", Name: "منطقه دو", ProvinceCode: "P1", IsActive: true},
	{Code: "D3", Name: "منطقه سه", ProvinceCode: "P2", IsActive: false},
}
