package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"transfer-appeal-api/config"
	"transfer-appeal-api/models"
	"transfer-appeal-api/utils"
	"transfer-appeal-api/workflow"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// ErrDuplicatePersonnelCode is wrapped by the ValidationError Create returns
// when the personnel code is taken.
var ErrDuplicatePersonnelCode = errors.New("personnel code already exists")

// SpecFilter narrows List. Zero values match everything.
type SpecFilter struct {
	Statuses                []workflow.RequestStatus
	SourceDistrictCodes     []string
	DestinationDistrictCode string
	Search                  string
	Limit                   int
	Offset                  int
}

// SpecInput carries the provisioning fields of a personnel record. Workflow
// columns are not part of it.
type SpecInput struct {
	PersonnelCode         string                       `json:"personnel_code"`
	NationalID            string                       `json:"national_id"`
	FirstName             string                       `json:"first_name"`
	LastName              string                       `json:"last_name"`
	FatherName            string                       `json:"father_name"`
	Gender                string                       `json:"gender"`
	Mobile                string                       `json:"mobile"`
	Email                 string                       `json:"email"`
	EmploymentType        string                       `json:"employment_type"`
	FieldCode             string                       `json:"field_code"`
	FieldTitle            string                       `json:"field_title"`
	YearsOfService        int                          `json:"years_of_service"`
	ApprovedScore         float64                      `json:"approved_score"`
	CurrentWorkplace      string                       `json:"current_workplace"`
	SourceDistrictCode    string                       `json:"source_district_code"`
	DestinationPriorities []models.DestinationPriority `json:"destination_priorities"`
}

// provisioningColumns are the columns Update may write.
var provisioningColumns = []string{
	"national_id", "first_name", "last_name", "father_name", "gender", "mobile", "email",
	"employment_type", "field_code", "field_title", "years_of_service", "approved_score",
	"current_workplace", "source_district_code", "updated_at",
}

// TransferSpecService provisions personnel records. It never writes
// current_request_status, workflow_version or history.
type TransferSpecService struct {
	db        *gorm.DB
	districts DistrictLookup
	engine    *workflow.Engine
}

func NewTransferSpecService(db *gorm.DB, districts DistrictLookup, engine *workflow.Engine) *TransferSpecService {
	if db == nil {
		db = config.DB
	}
	if districts == nil {
		districts = NewDistrictService(db)
	}
	if engine == nil {
		engine = workflow.NewEngine(workflow.Options{IncludeDestinationReview: config.App.IncludeDestinationReview})
	}
	return &TransferSpecService{db: db, districts: districts, engine: engine}
}

func (in *SpecInput) normalize() {
	in.PersonnelCode = utils.NormalizeDigits(utils.SanitizeInput(in.PersonnelCode))
	in.NationalID = utils.NormalizeDigits(utils.SanitizeInput(in.NationalID))
	in.FirstName = utils.SanitizeInput(in.FirstName)
	in.LastName = utils.SanitizeInput(in.LastName)
	in.FatherName = utils.SanitizeInput(in.FatherName)
	in.Gender = utils.SanitizeInput(in.Gender)
	in.Mobile = utils.NormalizeDigits(utils.SanitizeInput(in.Mobile))
	in.Email = utils.SanitizeInput(in.Email)
	in.EmploymentType = utils.SanitizeInput(in.EmploymentType)
	in.FieldCode = utils.SanitizeInput(in.FieldCode)
	in.FieldTitle = utils.SanitizeInput(in.FieldTitle)
	in.CurrentWorkplace = utils.SanitizeInput(in.CurrentWorkplace)
	in.SourceDistrictCode = utils.SanitizeInput(in.SourceDistrictCode)
}

func (s *TransferSpecService) validate(ctx context.Context, in *SpecInput) error {
	if in.PersonnelCode == "" {
		return newValidationError("personnel_code", "personnel code is required")
	}
	if !utils.ValidateNationalID(in.NationalID) {
		return newValidationError("national_id", "national id %q is invalid", in.NationalID)
	}
	if in.Mobile != "" && !utils.ValidateMobile(in.Mobile) {
		return newValidationError("mobile", "mobile number %q is invalid", in.Mobile)
	}
	if in.Email != "" && !utils.ValidateEmail(in.Email) {
		return newValidationError("email", "email %q is invalid", in.Email)
	}
	if in.YearsOfService < 0 {
		return newValidationError("years_of_service", "years of service cannot be negative")
	}
	if in.SourceDistrictCode == "" {
		return newValidationError("source_district_code", "source district is required")
	}
	if _, err := s.districts.FindByCode(ctx, in.SourceDistrictCode); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newValidationError("source_district_code", "unknown district %s", in.SourceDistrictCode)
		}
		return err
	}
	return nil
}

// CheckInput runs every check Create would without writing anything.
func (s *TransferSpecService) CheckInput(ctx context.Context, in SpecInput) error {
	in.normalize()
	if err := s.validate(ctx, &in); err != nil {
		return err
	}
	_, err := s.checkNew(ctx, &in)
	return err
}

func (s *TransferSpecService) checkNew(ctx context.Context, in *SpecInput) ([]models.DestinationPriority, error) {
	var priorities []models.DestinationPriority
	if len(in.DestinationPriorities) > 0 {
		normalized, err := NormalizePriorities(ctx, s.districts, in.DestinationPriorities)
		if err != nil {
			return nil, err
		}
		priorities = normalized
	}

	var existing int64
	if err := s.db.WithContext(ctx).Unscoped().Model(&models.TransferApplicantSpec{}).
		Where("personnel_code = ?", in.PersonnelCode).
		Count(&existing).Error; err != nil {
		return nil, persistenceError("check personnel code", err)
	}
	if existing > 0 {
		return nil, &ValidationError{
			Field:   "personnel_code",
			Message: fmt.Sprintf("personnel code %s already exists", in.PersonnelCode),
			Err:     ErrDuplicatePersonnelCode,
		}
	}
	return priorities, nil
}

// Create inserts a record in user_no_action with no history.
func (s *TransferSpecService) Create(ctx context.Context, in SpecInput) (*models.TransferApplicantSpec, error) {
	in.normalize()
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}

	priorities, err := s.checkNew(ctx, &in)
	if err != nil {
		return nil, err
	}

	spec := &models.TransferApplicantSpec{
		PersonnelCode:         in.PersonnelCode,
		NationalID:            in.NationalID,
		FirstName:             in.FirstName,
		LastName:              in.LastName,
		FatherName:            in.FatherName,
		Gender:                in.Gender,
		Mobile:                in.Mobile,
		Email:                 in.Email,
		EmploymentType:        in.EmploymentType,
		FieldCode:             in.FieldCode,
		FieldTitle:            in.FieldTitle,
		YearsOfService:        in.YearsOfService,
		ApprovedScore:         in.ApprovedScore,
		CurrentWorkplace:      in.CurrentWorkplace,
		SourceDistrictCode:    in.SourceDistrictCode,
		DestinationPriorities: priorities,
		CurrentRequestStatus:  workflow.DefaultStatus,
	}
	if err := s.db.WithContext(ctx).Omit("RequestStatusWorkflow").Create(spec).Error; err != nil {
		return nil, persistenceError("create transfer applicant spec", err)
	}
	return spec, nil
}

// Get returns a record with its ordered history.
func (s *TransferSpecService) Get(ctx context.Context, id uint) (*models.TransferApplicantSpec, error) {
	return NewGormRecordStore(s.db).Get(ctx, id)
}

// GetByPersonnelCode returns the applicant's record with its ordered history.
func (s *TransferSpecService) GetByPersonnelCode(ctx context.Context, code string) (*models.TransferApplicantSpec, error) {
	code = utils.NormalizeDigits(strings.TrimSpace(code))
	if code == "" {
		return nil, newValidationError("personnel_code", "personnel code is required")
	}
	var spec models.TransferApplicantSpec
	err := s.db.WithContext(ctx).
		Preload("RequestStatusWorkflow", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("changed_at ASC, sequence ASC")
		}).
		Where("personnel_code = ?", code).
		First(&spec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("personnel code %s: %w", code, ErrNotFound)
		}
		return nil, persistenceError("load transfer applicant spec", err)
	}
	return &spec, nil
}

// List returns one page of records without history, newest first.
func (s *TransferSpecService) List(ctx context.Context, filter SpecFilter) ([]models.TransferApplicantSpec, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	query := s.db.WithContext(ctx).Model(&models.TransferApplicantSpec{})
	if len(filter.Statuses) > 0 {
		query = query.Where("current_request_status IN ?", filter.Statuses)
	}
	if len(filter.SourceDistrictCodes) > 0 {
		query = query.Where("source_district_code IN ?", filter.SourceDistrictCodes)
	}
	if code := strings.TrimSpace(filter.DestinationDistrictCode); code != "" {
		query = query.Where("JSON_CONTAINS(destination_priorities, JSON_OBJECT('district_code', ?))", code)
	}
	if search := utils.NormalizeDigits(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("personnel_code LIKE ? OR national_id LIKE ? OR CONCAT(first_name, ' ', last_name) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistenceError("count transfer applicant specs", err)
	}

	var specs []models.TransferApplicantSpec
	if err := query.Order("id DESC").Offset(filter.Offset).Limit(filter.Limit).Find(&specs).Error; err != nil {
		return nil, 0, persistenceError("list transfer applicant specs", err)
	}
	return specs, total, nil
}

// ReviewQueue lists records in the caller's scope. With no statuses given it
// returns the records the caller's role can act on next.
func (s *TransferSpecService) ReviewQueue(ctx context.Context, identity *Identity, statuses []workflow.RequestStatus, limit, offset int) ([]models.TransferApplicantSpec, int64, error) {
	if err := Authorize(identity, RoleDistrictExpert, RoleProvinceExpert, RoleDestinationExpert, RoleAdmin); err != nil {
		return nil, 0, err
	}

	filter := SpecFilter{Statuses: statuses, Limit: limit, Offset: offset}
	if len(filter.Statuses) == 0 {
		filter.Statuses = s.ActionableStatuses(identity.Role)
	}

	switch identity.Role {
	case RoleDistrictExpert:
		if identity.DistrictCode == "" {
			return nil, 0, ErrUnauthorized
		}
		filter.SourceDistrictCodes = []string{identity.DistrictCode}
	case RoleProvinceExpert:
		if identity.ProvinceCode == "" {
			return nil, 0, ErrUnauthorized
		}
		districts, err := s.districts.FindMany(ctx, DistrictFilter{ProvinceCode: identity.ProvinceCode})
		if err != nil {
			return nil, 0, err
		}
		if len(districts) == 0 {
			return []models.TransferApplicantSpec{}, 0, nil
		}
		filter.SourceDistrictCodes = lo.Map(districts, func(d models.District, _ int) string { return d.Code })
	case RoleDestinationExpert:
		if identity.DistrictCode == "" {
			return nil, 0, ErrUnauthorized
		}
		filter.DestinationDistrictCode = identity.DistrictCode
	}
	return s.List(ctx, filter)
}

// ActionableStatuses returns the statuses from which role has a permitted
// next move, in workflow order.
func (s *TransferSpecService) ActionableStatuses(role Role) []workflow.RequestStatus {
	targets := reviewTargets[role]
	return lo.Filter(workflow.AllStatuses(), func(from workflow.RequestStatus, _ int) bool {
		return lo.SomeBy(s.engine.Successors(from), func(to workflow.RequestStatus) bool {
			return lo.Contains(targets, to)
		})
	})
}

// Update writes the provisioning fields of a record.
func (s *TransferSpecService) Update(ctx context.Context, id uint, in SpecInput) (*models.TransferApplicantSpec, error) {
	in.normalize()
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.PersonnelCode = current.PersonnelCode
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}

	changes := &models.TransferApplicantSpec{
		NationalID:         in.NationalID,
		FirstName:          in.FirstName,
		LastName:           in.LastName,
		FatherName:         in.FatherName,
		Gender:             in.Gender,
		Mobile:             in.Mobile,
		Email:              in.Email,
		EmploymentType:     in.EmploymentType,
		FieldCode:          in.FieldCode,
		FieldTitle:         in.FieldTitle,
		YearsOfService:     in.YearsOfService,
		ApprovedScore:      in.ApprovedScore,
		CurrentWorkplace:   in.CurrentWorkplace,
		SourceDistrictCode: in.SourceDistrictCode,
	}
	res := s.db.WithContext(ctx).Model(&models.TransferApplicantSpec{}).
		Where("id = ?", id).
		Select(provisioningColumns).
		Updates(changes)
	if res.Error != nil {
		return nil, persistenceError("update transfer applicant spec", res.Error)
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes a record. History rows are kept.
func (s *TransferSpecService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.TransferApplicantSpec{})
	if res.Error != nil {
		return persistenceError("delete transfer applicant spec", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transfer applicant spec %d: %w", id, ErrNotFound)
	}
	return nil
}
