package models

import (
	"time"

	"transfer-appeal-api/workflow"

	"gorm.io/datatypes"
)

// WorkflowMetadata is free-form context recorded with a transition.
type WorkflowMetadata struct {
	ActionType workflow.ActionType `json:"action_type,omitempty"`
	ActorID    string              `json:"actor_id,omitempty"`
	ActorRole  string              `json:"actor_role,omitempty"`
	Extra      map[string]any      `json:"extra,omitempty"`
}

// WorkflowHistoryEntry is one append-only status change of a transfer applicant spec.
type WorkflowHistoryEntry struct {
	ID             uint                                 `gorm:"primaryKey;column:id" json:"id"`
	SpecID         uint                                 `gorm:"column:spec_id;not null;uniqueIndex:idx_spec_sequence,priority:1" json:"spec_id"`
	Sequence       int                                  `gorm:"column:sequence;not null;uniqueIndex:idx_spec_sequence,priority:2" json:"sequence"`
	Status         workflow.RequestStatus               `gorm:"column:status;type:varchar(64);not null" json:"status"`
	PreviousStatus *workflow.RequestStatus              `gorm:"column:previous_status;type:varchar(64)" json:"previous_status"`
	ChangedAt      time.Time                            `gorm:"column:changed_at;not null;index" json:"changed_at"`
	Reason         *string                              `gorm:"column:reason;type:text" json:"reason"`
	Metadata       datatypes.JSONType[WorkflowMetadata] `gorm:"column:metadata" json:"metadata"`
}

// TableName overrides the table name.
func (WorkflowHistoryEntry) TableName() string {
	return "workflow_history_entries"
}

// ActionType returns the action recorded in the entry metadata.
func (e WorkflowHistoryEntry) ActionType() workflow.ActionType {
	return e.Metadata.Data().ActionType
}
