package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DraftStateDraft     = "draft"
	DraftStateSubmitted = "submitted"
	DraftStateDiscarded = "discarded"
)

// Notices an applicant must accept before the final submission.
const (
	NoticeRegulations   = "regulations"
	NoticeAccuracy      = "accuracy"
	NoticeFinalDecision = "final_decision"
)

// RequiredNotices lists every notice the wizard asks the applicant to accept.
var RequiredNotices = []string{NoticeRegulations, NoticeAccuracy, NoticeFinalDecision}

// AppealPayload holds the wizard form values collected so far.
type AppealPayload struct {
	DestinationPriorities []DestinationPriority `json:"destination_priorities,omitempty"`
	AppealReason          string                `json:"appeal_reason,omitempty"`
	Mobile                string                `json:"mobile,omitempty"`
	Email                 string                `json:"email,omitempty"`
	AttachmentHandles     []string              `json:"attachment_handles,omitempty"`
}

// AppealDraft is the session-scoped state of the appeal wizard. It is created
// when the wizard starts and either discarded or promoted on final submission.
type AppealDraft struct {
	ID              string                            `gorm:"primaryKey;column:id;type:char(36)" json:"id"`
	SpecID          uint                              `gorm:"column:spec_id;not null;index" json:"spec_id"`
	OwnerID         string                            `gorm:"column:owner_id;type:varchar(64);not null" json:"owner_id"`
	CurrentStep     int                               `gorm:"column:current_step;not null;default:1" json:"current_step"`
	AcceptedNotices datatypes.JSONSlice[string]       `gorm:"column:accepted_notices" json:"accepted_notices"`
	Payload         datatypes.JSONType[AppealPayload] `gorm:"column:payload" json:"payload"`
	State           string                            `gorm:"column:state;type:varchar(16);not null;default:draft;index" json:"state"`
	SubmittedAt     *time.Time                        `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt       time.Time                         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time                         `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name.
func (AppealDraft) TableName() string {
	return "appeal_drafts"
}

// IsOpen reports whether the draft can still be edited.
func (d *AppealDraft) IsOpen() bool {
	return d.State == DraftStateDraft
}
