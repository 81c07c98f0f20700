package models

import (
	"errors"
	"strings"
	"time"

	"transfer-appeal-api/workflow"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxDestinationPriorities is the number of ranked destinations an applicant may list.
const MaxDestinationPriorities = 7

// Transfer type preferences attached to a destination priority.
const (
	TransferTypePermanent = "permanent"
	TransferTypeTemporary = "temporary"
	TransferTypeEither    = "either"
)

// DestinationPriority is one ranked relocation target.
type DestinationPriority struct {
	Priority     int    `json:"priority"`
	DistrictCode string `json:"district_code"`
	TransferType string `json:"transfer_type"`
}

// TransferApplicantSpec is a personnel record and its transfer-appeal workflow state.
type TransferApplicantSpec struct {
	ID             uint    `gorm:"primaryKey;column:id" json:"id"`
	PersonnelCode  string  `gorm:"column:personnel_code;type:varchar(32);uniqueIndex;not null" json:"personnel_code"`
	NationalID     string  `gorm:"column:national_id;type:varchar(16);index;not null" json:"national_id"`
	FirstName      string  `gorm:"column:first_name;type:varchar(128)" json:"first_name"`
	LastName       string  `gorm:"column:last_name;type:varchar(128)" json:"last_name"`
	FatherName     string  `gorm:"column:father_name;type:varchar(128)" json:"father_name,omitempty"`
	Gender         string  `gorm:"column:gender;type:varchar(16)" json:"gender,omitempty"`
	Mobile         string  `gorm:"column:mobile;type:varchar(16)" json:"mobile,omitempty"`
	Email          string  `gorm:"column:email;type:varchar(191)" json:"email,omitempty"`
	EmploymentType string  `gorm:"column:employment_type;type:varchar(64)" json:"employment_type"`
	FieldCode      string  `gorm:"column:field_code;type:varchar(32)" json:"field_code"`
	FieldTitle     string  `gorm:"column:field_title;type:varchar(191)" json:"field_title,omitempty"`
	YearsOfService int     `gorm:"column:years_of_service" json:"years_of_service"`
	ApprovedScore  float64 `gorm:"column:approved_score" json:"approved_score"`

	CurrentWorkplace   string `gorm:"column:current_workplace;type:varchar(191)" json:"current_workplace"`
	SourceDistrictCode string `gorm:"column:source_district_code;type:varchar(32);index" json:"source_district_code"`

	DestinationPriorities datatypes.JSONSlice[DestinationPriority] `gorm:"column:destination_priorities" json:"destination_priorities"`

	CurrentRequestStatus workflow.RequestStatus `gorm:"column:current_request_status;type:varchar(64);index;not null;default:user_no_action" json:"current_request_status"`
	// LegacyRequestStatus is the deprecated request_status column. It is only
	// read, and only to fill CurrentRequestStatus on older rows.
	LegacyRequestStatus *string `gorm:"column:request_status;->" json:"-"`
	WorkflowVersion     uint    `gorm:"column:workflow_version;not null;default:0" json:"workflow_version"`

	RequestStatusWorkflow []WorkflowHistoryEntry `gorm:"foreignKey:SpecID" json:"request_status_workflow"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

// TableName overrides the table name.
func (TransferApplicantSpec) TableName() string {
	return "transfer_applicant_specs"
}

// AfterFind resolves the legacy status column when the canonical one is empty.
func (s *TransferApplicantSpec) AfterFind(tx *gorm.DB) error {
	s.ResolveLegacyStatus()
	return nil
}

// ResolveLegacyStatus fills CurrentRequestStatus from the deprecated column.
func (s *TransferApplicantSpec) ResolveLegacyStatus() {
	if s.CurrentRequestStatus != "" {
		return
	}
	if s.LegacyRequestStatus != nil {
		if status, ok := workflow.ParseStatus(*s.LegacyRequestStatus); ok {
			s.CurrentRequestStatus = status
			return
		}
	}
	s.CurrentRequestStatus = workflow.DefaultStatus
}

// FullName returns first and last name joined by a space.
func (s *TransferApplicantSpec) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// HistoryStatuses returns the status of every history entry in order.
func (s *TransferApplicantSpec) HistoryStatuses() []workflow.RequestStatus {
	out := make([]workflow.RequestStatus, 0, len(s.RequestStatusWorkflow))
	for _, entry := range s.RequestStatusWorkflow {
		out = append(out, entry.Status)
	}
	return out
}

// LastEntry returns the most recently appended history entry, if any.
func (s *TransferApplicantSpec) LastEntry() *WorkflowHistoryEntry {
	if len(s.RequestStatusWorkflow) == 0 {
		return nil
	}
	return &s.RequestStatusWorkflow[len(s.RequestStatusWorkflow)-1]
}

// HasDestination reports whether code is one of the ranked destinations.
func (s *TransferApplicantSpec) HasDestination(code string) bool {
	for _, p := range s.DestinationPriorities {
		if p.DistrictCode == code {
			return true
		}
	}
	return false
}

// Clone returns a copy whose history and priorities can be appended to
// without touching the original.
func (s *TransferApplicantSpec) Clone() *TransferApplicantSpec {
	c := *s
	c.RequestStatusWorkflow = append([]WorkflowHistoryEntry(nil), s.RequestStatusWorkflow...)
	c.DestinationPriorities = append(datatypes.JSONSlice[DestinationPriority](nil), s.DestinationPriorities...)
	return &c
}

// ErrHistoryOutOfSync is returned when the current status disagrees with the
// last history entry.
var ErrHistoryOutOfSync = errors.New("current request status does not match workflow history")

// CheckConsistency verifies that CurrentRequestStatus agrees with the history.
func (s *TransferApplicantSpec) CheckConsistency() error {
	last := s.LastEntry()
	if last == nil {
		// rows carried over from the legacy column have no history
		if s.CurrentRequestStatus == workflow.DefaultStatus || s.LegacyRequestStatus != nil {
			return nil
		}
		return ErrHistoryOutOfSync
	}
	if last.Status != s.CurrentRequestStatus {
		return ErrHistoryOutOfSync
	}
	return nil
}

// AppendTransition records a move to newStatus on this in-memory snapshot and
// returns the new entry. The caller persists it; nothing is written here.
func (s *TransferApplicantSpec) AppendTransition(engine *workflow.Engine, newStatus workflow.RequestStatus, reason string, meta WorkflowMetadata, now time.Time, force bool) (*WorkflowHistoryEntry, error) {
	previous := s.CurrentRequestStatus
	if previous == "" {
		previous = workflow.DefaultStatus
	}
	if err := engine.ValidateTransition(previous, newStatus, force); err != nil {
		return nil, err
	}
	if meta.ActionType == "" {
		meta.ActionType = workflow.DefaultAction(newStatus)
	}

	prev := previous
	entry := WorkflowHistoryEntry{
		SpecID:         s.ID,
		Sequence:       len(s.RequestStatusWorkflow) + 1,
		Status:         newStatus,
		PreviousStatus: &prev,
		ChangedAt:      now,
		Metadata:       datatypes.NewJSONType(meta),
	}
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		entry.Reason = &trimmed
	}

	s.RequestStatusWorkflow = append(s.RequestStatusWorkflow, entry)
	s.CurrentRequestStatus = newStatus
	return &s.RequestStatusWorkflow[len(s.RequestStatusWorkflow)-1], nil
}
