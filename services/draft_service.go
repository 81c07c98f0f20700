package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"transfer-appeal-api/config"
	"transfer-appeal-api/models"
	"transfer-appeal-api/utils"
	"transfer-appeal-api/workflow"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WizardSteps is the number of pages in the appeal wizard.
const WizardSteps = 4

// DraftUpdate carries the wizard fields a save may change. Nil fields are kept.
type DraftUpdate struct {
	CurrentStep     *int                  `json:"current_step"`
	AcceptedNotices []string              `json:"accepted_notices"`
	Payload         *models.AppealPayload `json:"payload"`
}

// SubmitResult is the outcome of a final submission.
type SubmitResult struct {
	Draft *models.AppealDraft           `json:"draft"`
	Spec  *models.TransferApplicantSpec `json:"spec"`
}

// fileAttacher links uploaded files to a record after submission.
type fileAttacher interface {
	AttachToSpec(ctx context.Context, ownerID string, specID uint, handles []string) error
}

// DraftService owns the appeal wizard state between page loads.
type DraftService struct {
	db        *gorm.DB
	workflow  *WorkflowService
	specs     *TransferSpecService
	districts DistrictLookup
	files     fileAttacher
	logger    *zap.Logger
	now       func() time.Time
}

func NewDraftService(db *gorm.DB, workflowSvc *WorkflowService, specs *TransferSpecService, districts DistrictLookup, files fileAttacher) *DraftService {
	if db == nil {
		db = config.DB
	}
	if districts == nil {
		districts = NewDistrictService(db)
	}
	if workflowSvc == nil {
		workflowSvc = NewWorkflowService(WorkflowServiceOptions{Store: NewGormRecordStore(db), Districts: districts})
	}
	if specs == nil {
		specs = NewTransferSpecService(db, districts, workflowSvc.Engine())
	}
	return &DraftService{
		db:        db,
		workflow:  workflowSvc,
		specs:     specs,
		districts: districts,
		files:     files,
		logger:    config.Logger.Named("draft"),
		now:       time.Now,
	}
}

// Start opens the wizard for the caller's record, moving it to
// awaiting_user_approval. An open draft is returned as is.
func (s *DraftService) Start(ctx context.Context, identity *Identity) (*models.AppealDraft, error) {
	if err := Authorize(identity, RoleApplicant); err != nil {
		return nil, err
	}
	spec, err := s.specs.GetByPersonnelCode(ctx, identity.PersonnelCode)
	if err != nil {
		return nil, err
	}

	if open, err := s.findOpen(ctx, spec.ID); err == nil {
		return open, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	switch spec.CurrentRequestStatus {
	case workflow.StatusUserNoAction, workflow.StatusAwaitingUserApproval:
	default:
		return nil, newValidationError("status", "appeal already submitted (%s)", workflow.StatusLabel(spec.CurrentRequestStatus))
	}

	if _, err := s.workflow.StartAppeal(ctx, identity, spec.ID); err != nil {
		return nil, err
	}

	draft := &models.AppealDraft{
		ID:              uuid.NewString(),
		SpecID:          spec.ID,
		OwnerID:         identity.UserID,
		CurrentStep:     1,
		AcceptedNotices: datatypes.JSONSlice[string]{},
		Payload: datatypes.NewJSONType(models.AppealPayload{
			DestinationPriorities: spec.DestinationPriorities,
			Mobile:                spec.Mobile,
			Email:                 spec.Email,
		}),
		State: models.DraftStateDraft,
	}
	if err := s.db.WithContext(ctx).Create(draft).Error; err != nil {
		return nil, persistenceError("create appeal draft", err)
	}
	return draft, nil
}

// Get returns the caller's open draft.
func (s *DraftService) Get(ctx context.Context, identity *Identity) (*models.AppealDraft, error) {
	if err := Authorize(identity, RoleApplicant); err != nil {
		return nil, err
	}
	spec, err := s.specs.GetByPersonnelCode(ctx, identity.PersonnelCode)
	if err != nil {
		return nil, err
	}
	return s.findOpen(ctx, spec.ID)
}

func (s *DraftService) findOpen(ctx context.Context, specID uint) (*models.AppealDraft, error) {
	var draft models.AppealDraft
	err := s.db.WithContext(ctx).
		Where("spec_id = ? AND state = ?", specID, models.DraftStateDraft).
		Order("created_at DESC").
		First(&draft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("open appeal draft: %w", ErrNotFound)
		}
		return nil, persistenceError("load appeal draft", err)
	}
	return &draft, nil
}

func (s *DraftService) loadOwned(ctx context.Context, identity *Identity, id string) (*models.AppealDraft, error) {
	if err := Authorize(identity, RoleApplicant); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, newValidationError("id", "invalid draft id")
	}
	var draft models.AppealDraft
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&draft).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("appeal draft %s: %w", id, ErrNotFound)
		}
		return nil, persistenceError("load appeal draft", err)
	}
	if draft.OwnerID != identity.UserID {
		return nil, ErrUnauthorized
	}
	if !draft.IsOpen() {
		return nil, newValidationError("state", "draft is %s", draft.State)
	}
	return &draft, nil
}

// Save stores wizard progress without validating completeness.
func (s *DraftService) Save(ctx context.Context, identity *Identity, id string, update DraftUpdate) (*models.AppealDraft, error) {
	draft, err := s.loadOwned(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	if update.CurrentStep != nil {
		if *update.CurrentStep < 1 || *update.CurrentStep > WizardSteps {
			return nil, newValidationError("current_step", "step must be between 1 and %d", WizardSteps)
		}
		draft.CurrentStep = *update.CurrentStep
	}
	if update.AcceptedNotices != nil {
		notices := lo.Uniq(lo.Map(update.AcceptedNotices, func(n string, _ int) string { return strings.TrimSpace(n) }))
		if unknown, _ := lo.Difference(notices, models.RequiredNotices); len(unknown) > 0 {
			return nil, newValidationError("accepted_notices", "unknown notice %s", unknown[0])
		}
		draft.AcceptedNotices = notices
	}
	if update.Payload != nil {
		payload := *update.Payload
		if len(payload.DestinationPriorities) > models.MaxDestinationPriorities {
			return nil, newValidationError("destination_priorities", "at most %d destinations are allowed", models.MaxDestinationPriorities)
		}
		payload.AppealReason = utils.SanitizeInput(payload.AppealReason)
		payload.Mobile = utils.NormalizeDigits(utils.SanitizeInput(payload.Mobile))
		payload.Email = utils.SanitizeInput(payload.Email)
		draft.Payload = datatypes.NewJSONType(payload)
	}

	res := s.db.WithContext(ctx).Model(draft).
		Where("state = ?", models.DraftStateDraft).
		Select("current_step", "accepted_notices", "payload", "updated_at").
		Updates(draft)
	if res.Error != nil {
		return nil, persistenceError("save appeal draft", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, newValidationError("state", "draft is no longer open")
	}
	return draft, nil
}

// Discard closes the draft and returns the record to user_no_action.
func (s *DraftService) Discard(ctx context.Context, identity *Identity, id string) error {
	draft, err := s.loadOwned(ctx, identity, id)
	if err != nil {
		return err
	}
	if _, err := s.workflow.WithdrawAppeal(ctx, identity, draft.SpecID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Model(&models.AppealDraft{}).
		Where("id = ? AND state = ?", draft.ID, models.DraftStateDraft).
		Update("state", models.DraftStateDiscarded)
	if res.Error != nil {
		return persistenceError("discard appeal draft", res.Error)
	}
	return nil
}

// ValidateForSubmit checks that the draft holds a complete appeal.
func ValidateForSubmit(draft *models.AppealDraft) error {
	missing, _ := lo.Difference(models.RequiredNotices, []string(draft.AcceptedNotices))
	if len(missing) > 0 {
		return newValidationError("accepted_notices", "notice %s has not been accepted", missing[0])
	}
	payload := draft.Payload.Data()
	if len(payload.DestinationPriorities) == 0 {
		return newValidationError("destination_priorities", "at least one destination is required")
	}
	if payload.Mobile != "" && !utils.ValidateMobile(payload.Mobile) {
		return newValidationError("mobile", "mobile number %q is invalid", payload.Mobile)
	}
	if payload.Email != "" && !utils.ValidateEmail(payload.Email) {
		return newValidationError("email", "email %q is invalid", payload.Email)
	}
	return nil
}

// Submit validates the draft, performs the final submission and closes it.
func (s *DraftService) Submit(ctx context.Context, identity *Identity, id string) (*SubmitResult, error) {
	draft, err := s.loadOwned(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateForSubmit(draft); err != nil {
		return nil, err
	}

	payload := draft.Payload.Data()
	spec, err := s.workflow.SubmitFinalAppeal(ctx, identity, draft.SpecID, payload.DestinationPriorities, payload.AppealReason)
	if err != nil {
		return nil, err
	}

	now := s.now()
	draft.State = models.DraftStateSubmitted
	draft.SubmittedAt = &now
	draft.CurrentStep = WizardSteps
	if err := s.db.WithContext(ctx).Model(draft).Updates(map[string]interface{}{
		"state":        draft.State,
		"submitted_at": now,
		"current_step": draft.CurrentStep,
	}).Error; err != nil {
		// the appeal itself is committed; only the wizard row is stale
		s.logger.Error("failed to close submitted draft", zap.String("draft_id", draft.ID), zap.Error(err))
	}

	if s.files != nil && len(payload.AttachmentHandles) > 0 {
		if err := s.files.AttachToSpec(ctx, identity.UserID, spec.ID, payload.AttachmentHandles); err != nil {
			s.logger.Warn("failed to attach files to spec", zap.Uint("spec_id", spec.ID), zap.Error(err))
		}
	}
	return &SubmitResult{Draft: draft, Spec: spec}, nil
}
