package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"transfer-appeal-api/config"
	"transfer-appeal-api/models"
	"transfer-appeal-api/workflow"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// reviewTargets lists the statuses each reviewer role may move a record into.
var reviewTargets = map[Role][]workflow.RequestStatus{
	RoleDistrictExpert: {
		workflow.StatusSourceReview,
		workflow.StatusExceptionEligibilityApproval,
		workflow.StatusExceptionEligibilityRejection,
		workflow.StatusSourceApproval,
		workflow.StatusSourceRejection,
		workflow.StatusProvinceReview,
	},
	RoleProvinceExpert: {
		workflow.StatusProvinceReview,
		workflow.StatusProvinceApproval,
		workflow.StatusProvinceRejection,
		workflow.StatusDestinationReview,
		workflow.StatusApproved,
	},
	RoleDestinationExpert: {
		workflow.StatusDestinationReview,
		workflow.StatusDestinationApproval,
		workflow.StatusDestinationRejection,
	},
	RoleAdmin: workflow.AllStatuses(),
}

// ReviewTargets returns the statuses role may set through ReviewTransition.
func ReviewTargets(role Role) []workflow.RequestStatus {
	return slices.Clone(reviewTargets[role])
}

// TransitionRequest describes one status change.
type TransitionRequest struct {
	NewStatus workflow.RequestStatus
	Reason    string
	Metadata  models.WorkflowMetadata
	// ExpectedStatus, when set, must equal the stored status at read time.
	ExpectedStatus *workflow.RequestStatus
	// Force skips the transition table. Only admin corrections set it.
	Force bool
	// Authorize runs against the loaded record before anything else.
	Authorize func(spec *models.TransferApplicantSpec) error
	// Mutate edits the snapshot before the write, e.g. to attach priorities.
	Mutate func(spec *models.TransferApplicantSpec) error
}

// TimelineEntry is one history row ready for display.
type TimelineEntry struct {
	Sequence            int                     `json:"sequence"`
	Status              workflow.RequestStatus  `json:"status"`
	StatusLabel         string                  `json:"status_label"`
	PreviousStatus      *workflow.RequestStatus `json:"previous_status,omitempty"`
	PreviousStatusLabel string                  `json:"previous_status_label,omitempty"`
	ChangedAt           time.Time               `json:"changed_at"`
	Reason              *string                 `json:"reason,omitempty"`
	ActionType          workflow.ActionType     `json:"action_type,omitempty"`
	ActionLabel         string                  `json:"action_label,omitempty"`
	ActorRole           string                  `json:"actor_role,omitempty"`
}

// Timeline is the applicant-facing view of a record's workflow.
type Timeline struct {
	SpecID             uint                      `json:"spec_id"`
	CurrentStatus      workflow.RequestStatus    `json:"current_status"`
	CurrentStatusLabel string                    `json:"current_status_label"`
	Progress           int                       `json:"progress"`
	Steps              []workflow.ClassifiedStep `json:"steps"`
	History            []TimelineEntry           `json:"history"`
	NextStatuses       []workflow.RequestStatus  `json:"next_statuses"`
	WorkflowVersion    uint                      `json:"workflow_version"`
}

// WorkflowServiceOptions configures NewWorkflowService. Nil fields use defaults.
type WorkflowServiceOptions struct {
	Store     RecordStore
	Engine    *workflow.Engine
	Notifier  Notifier
	Districts DistrictLookup
	Logger    *zap.Logger
	Now       func() time.Time
}

// WorkflowService is the only writer of request status and history.
type WorkflowService struct {
	store     RecordStore
	engine    *workflow.Engine
	notifier  Notifier
	districts DistrictLookup
	logger    *zap.Logger
	now       func() time.Time
}

func NewWorkflowService(opts WorkflowServiceOptions) *WorkflowService {
	s := &WorkflowService{
		store:     opts.Store,
		engine:    opts.Engine,
		notifier:  opts.Notifier,
		districts: opts.Districts,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if s.store == nil {
		s.store = NewGormRecordStore(nil)
	}
	if s.engine == nil {
		s.engine = workflow.NewEngine(workflow.Options{IncludeDestinationReview: config.App.IncludeDestinationReview})
	}
	if s.logger == nil {
		s.logger = config.Logger
	}
	s.logger = s.logger.Named("workflow")
	if s.notifier == nil {
		if config.App.NotifyOnTransition {
			s.notifier = NewMailNotifier(s.logger)
		} else {
			s.notifier = NopNotifier{}
		}
	}
	if s.districts == nil {
		s.districts = NewDistrictService(nil)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Engine returns the step and transition rules the service enforces.
func (s *WorkflowService) Engine() *workflow.Engine { return s.engine }

// AppendTransition reads the record, applies req on a snapshot and writes it
// back with a compare-and-set on the status that was read. On any error the
// stored record is unchanged.
func (s *WorkflowService) AppendTransition(ctx context.Context, specID uint, req TransitionRequest) (*models.TransferApplicantSpec, error) {
	if !req.NewStatus.IsValid() {
		return nil, newValidationError("status", "unknown request status %q", req.NewStatus)
	}

	spec, err := s.store.Get(ctx, specID)
	if err != nil {
		return nil, err
	}
	if req.Authorize != nil {
		if err := req.Authorize(spec); err != nil {
			return nil, err
		}
	}

	current := spec.CurrentRequestStatus
	if req.ExpectedStatus != nil && *req.ExpectedStatus != current {
		transitionConflictsTotal.Inc()
		return nil, &ConcurrentModificationError{SpecID: specID, Expected: *req.ExpectedStatus, Actual: current}
	}

	snapshot := spec.Clone()
	if req.Mutate != nil {
		if err := req.Mutate(snapshot); err != nil {
			return nil, err
		}
	}

	now := s.now()
	if last := snapshot.LastEntry(); last != nil && now.Before(last.ChangedAt) {
		now = last.ChangedAt
	}
	entry, err := snapshot.AppendTransition(s.engine, req.NewStatus, req.Reason, req.Metadata, now, req.Force)
	if err != nil {
		var terr *workflow.TransitionError
		if errors.As(err, &terr) {
			return nil, &ValidationError{Field: "status", Message: err.Error(), Err: err}
		}
		return nil, err
	}

	if err := s.store.CompareAndSet(ctx, specID, current, spec.WorkflowVersion, snapshot, entry); err != nil {
		if IsConcurrentModification(err) {
			transitionConflictsTotal.Inc()
			s.logger.Info("status transition lost a concurrent update",
				zap.Uint("spec_id", specID),
				zap.String("expected", string(current)),
				zap.String("target", string(req.NewStatus)),
			)
		}
		return nil, err
	}

	action := entry.ActionType()
	transitionsTotal.WithLabelValues(string(entry.Status), string(action)).Inc()
	s.logger.Info("request status changed",
		zap.Uint("spec_id", specID),
		zap.String("from", string(current)),
		zap.String("to", string(entry.Status)),
		zap.String("action", string(action)),
		zap.String("actor_id", req.Metadata.ActorID),
		zap.Bool("forced", req.Force),
	)

	s.notify(ctx, snapshot, entry)
	return snapshot, nil
}

func (s *WorkflowService) notify(ctx context.Context, spec *models.TransferApplicantSpec, entry *models.WorkflowHistoryEntry) {
	if _, ok := s.notifier.(NopNotifier); ok {
		return
	}
	bg := persistentContext(ctx)
	spec = spec.Clone()
	sent := *entry
	go func() {
		if err := s.notifier.StatusChanged(bg, spec, &sent); err != nil {
			s.logger.Warn("notification failed", zap.Uint("spec_id", spec.ID), zap.Error(err))
		}
	}()
}

// SubmitFinalAppeal moves the applicant's own record from
// awaiting_user_approval to user_approval, storing the chosen priorities.
func (s *WorkflowService) SubmitFinalAppeal(ctx context.Context, identity *Identity, specID uint, priorities []models.DestinationPriority, reason string) (*models.TransferApplicantSpec, error) {
	if err := Authorize(identity, RoleApplicant); err != nil {
		return nil, err
	}
	normalized, err := NormalizePriorities(ctx, s.districts, priorities)
	if err != nil {
		return nil, err
	}

	expected := workflow.StatusAwaitingUserApproval
	return s.AppendTransition(ctx, specID, TransitionRequest{
		NewStatus:      workflow.StatusUserApproval,
		Reason:         reason,
		ExpectedStatus: &expected,
		Metadata:       actorMetadata(identity, workflow.ActionSubmitFinalAppeal),
		Authorize:      ownerCheck(identity),
		Mutate: func(spec *models.TransferApplicantSpec) error {
			spec.DestinationPriorities = normalized
			return nil
		},
	})
}

// StartAppeal moves the applicant's record from user_no_action to
// awaiting_user_approval. A record already awaiting approval is returned as is.
func (s *WorkflowService) StartAppeal(ctx context.Context, identity *Identity, specID uint) (*models.TransferApplicantSpec, error) {
	if err := Authorize(identity, RoleApplicant); err != nil {
		return nil, err
	}
	spec, err := s.store.Get(ctx, specID)
	if err != nil {
		return nil, err
	}
	if err := ownerCheck(identity)(spec); err != nil {
		return nil, err
	}
	if spec.CurrentRequestStatus == workflow.StatusAwaitingUserApproval {
		return spec, nil
	}

	expected := workflow.StatusUserNoAction
	return s.AppendTransition(ctx, specID, TransitionRequest{
		NewStatus:      workflow.StatusAwaitingUserApproval,
		ExpectedStatus: &expected,
		Metadata:       actorMetadata(identity, workflow.ActionStartAppeal),
		Authorize:      ownerCheck(identity),
	})
}

// WithdrawAppeal returns an unsubmitted appeal to user_no_action.
func (s *WorkflowService) WithdrawAppeal(ctx context.Context, identity *Identity, specID uint) (*models.TransferApplicantSpec, error) {
	if err := Authorize(identity, RoleApplicant); err != nil {
		return nil, err
	}
	expected := workflow.StatusAwaitingUserApproval
	return s.AppendTransition(ctx, specID, TransitionRequest{
		NewStatus:      workflow.StatusUserNoAction,
		ExpectedStatus: &expected,
		Metadata:       actorMetadata(identity, workflow.ActionWithdrawAppeal),
		Authorize:      ownerCheck(identity),
	})
}

// ReviewDecision is a reviewer's requested status change.
type ReviewDecision struct {
	Status         workflow.RequestStatus
	Reason         string
	ExpectedStatus *workflow.RequestStatus
	// Force applies an admin correction outside the transition table.
	Force bool
}

// ReviewTransition applies a reviewer decision after checking the caller's
// role may set the target status and the record is within their scope.
func (s *WorkflowService) ReviewTransition(ctx context.Context, identity *Identity, specID uint, decision ReviewDecision) (*models.TransferApplicantSpec, error) {
	if err := Authorize(identity, RoleDistrictExpert, RoleProvinceExpert, RoleDestinationExpert, RoleAdmin); err != nil {
		return nil, err
	}
	if !decision.Status.IsValid() {
		return nil, newValidationError("status", "unknown request status %q", decision.Status)
	}
	if !slices.Contains(reviewTargets[identity.Role], decision.Status) {
		return nil, ErrUnauthorized
	}
	if decision.Force && !identity.IsAdmin() {
		return nil, ErrUnauthorized
	}
	reason := strings.TrimSpace(decision.Reason)
	if decision.Status.IsRejection() && reason == "" {
		return nil, newValidationError("reason", "a reason is required when rejecting")
	}
	if decision.Force && reason == "" {
		return nil, newValidationError("reason", "a reason is required for a correction")
	}

	action := workflow.DefaultAction(decision.Status)
	if decision.Force {
		action = workflow.ActionAdminCorrection
	}

	return s.AppendTransition(ctx, specID, TransitionRequest{
		NewStatus:      decision.Status,
		Reason:         reason,
		ExpectedStatus: decision.ExpectedStatus,
		Force:          decision.Force,
		Metadata:       actorMetadata(identity, action),
		Authorize: func(spec *models.TransferApplicantSpec) error {
			return s.checkReviewScope(ctx, identity, spec)
		},
	})
}

// GetTimeline returns the workflow view of a record the caller may see.
func (s *WorkflowService) GetTimeline(ctx context.Context, identity *Identity, specID uint) (*Timeline, error) {
	if err := Authorize(identity); err != nil {
		return nil, err
	}
	spec, err := s.store.Get(ctx, specID)
	if err != nil {
		return nil, err
	}
	if identity.Role == RoleApplicant {
		if err := ownerCheck(identity)(spec); err != nil {
			return nil, err
		}
	} else if err := s.checkReviewScope(ctx, identity, spec); err != nil {
		return nil, err
	}
	return s.BuildTimeline(spec), nil
}

// BuildTimeline computes the display view of spec without any access checks.
func (s *WorkflowService) BuildTimeline(spec *models.TransferApplicantSpec) *Timeline {
	history := slices.Clone(spec.RequestStatusWorkflow)
	slices.SortStableFunc(history, func(a, b models.WorkflowHistoryEntry) int {
		if c := a.ChangedAt.Compare(b.ChangedAt); c != 0 {
			return c
		}
		return a.Sequence - b.Sequence
	})

	statuses := lo.Map(history, func(e models.WorkflowHistoryEntry, _ int) workflow.RequestStatus { return e.Status })
	current := spec.CurrentRequestStatus
	sequence := s.engine.DeriveStepSequence(current, statuses...)

	return &Timeline{
		SpecID:             spec.ID,
		CurrentStatus:      current,
		CurrentStatusLabel: workflow.LabelFor(string(current)),
		Progress:           workflow.ComputeProgress(current, sequence),
		Steps:              s.engine.ClassifyAll(current, statuses),
		History:            lo.Map(history, func(e models.WorkflowHistoryEntry, _ int) TimelineEntry { return toTimelineEntry(e) }),
		NextStatuses:       s.engine.Successors(current),
		WorkflowVersion:    spec.WorkflowVersion,
	}
}

func toTimelineEntry(e models.WorkflowHistoryEntry) TimelineEntry {
	meta := e.Metadata.Data()
	out := TimelineEntry{
		Sequence:       e.Sequence,
		Status:         e.Status,
		StatusLabel:    workflow.LabelFor(string(e.Status)),
		PreviousStatus: e.PreviousStatus,
		ChangedAt:      e.ChangedAt,
		Reason:         e.Reason,
		ActionType:     meta.ActionType,
		ActorRole:      meta.ActorRole,
	}
	if e.PreviousStatus != nil {
		out.PreviousStatusLabel = workflow.LabelFor(string(*e.PreviousStatus))
	}
	if meta.ActionType != "" {
		out.ActionLabel = workflow.LabelFor(string(meta.ActionType))
	}
	return out
}

func (s *WorkflowService) checkReviewScope(ctx context.Context, identity *Identity, spec *models.TransferApplicantSpec) error {
	switch identity.Role {
	case RoleAdmin:
		return nil
	case RoleDistrictExpert:
		if identity.DistrictCode != "" && identity.DistrictCode == spec.SourceDistrictCode {
			return nil
		}
	case RoleProvinceExpert:
		if identity.ProvinceCode == "" || spec.SourceDistrictCode == "" {
			return ErrUnauthorized
		}
		district, err := s.districts.FindByCode(ctx, spec.SourceDistrictCode)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrUnauthorized
			}
			return err
		}
		if district.ProvinceCode == identity.ProvinceCode {
			return nil
		}
	case RoleDestinationExpert:
		if identity.DistrictCode != "" && spec.HasDestination(identity.DistrictCode) {
			return nil
		}
	}
	return ErrUnauthorized
}

func ownerCheck(identity *Identity) func(*models.TransferApplicantSpec) error {
	return func(spec *models.TransferApplicantSpec) error {
		if identity == nil || identity.PersonnelCode == "" || spec.PersonnelCode != identity.PersonnelCode {
			return ErrUnauthorized
		}
		return nil
	}
}

func actorMetadata(identity *Identity, action workflow.ActionType) models.WorkflowMetadata {
	meta := models.WorkflowMetadata{ActionType: action}
	if identity != nil {
		meta.ActorID = identity.UserID
		meta.ActorRole = string(identity.Role)
	}
	return meta
}

// NormalizePriorities validates ranked destinations and renumbers them 1..n
// in the given order. Every district must exist and appear once.
func NormalizePriorities(ctx context.Context, districts DistrictLookup, priorities []models.DestinationPriority) ([]models.DestinationPriority, error) {
	if len(priorities) == 0 {
		return nil, newValidationError("destination_priorities", "at least one destination is required")
	}
	if len(priorities) > models.MaxDestinationPriorities {
		return nil, newValidationError("destination_priorities", "at most %d destinations are allowed", models.MaxDestinationPriorities)
	}

	ranked := lo.Filter(priorities, func(p models.DestinationPriority, _ int) bool { return p.Priority > 0 })
	if dup := lo.FindDuplicatesBy(ranked, func(p models.DestinationPriority) int { return p.Priority }); len(dup) > 0 {
		return nil, newValidationError("destination_priorities", "priority %d is used more than once", dup[0].Priority)
	}

	sorted := slices.Clone(priorities)
	slices.SortStableFunc(sorted, func(a, b models.DestinationPriority) int { return a.Priority - b.Priority })

	out := make([]models.DestinationPriority, 0, len(sorted))
	for i, p := range sorted {
		code := strings.TrimSpace(p.DistrictCode)
		if code == "" {
			return nil, newValidationError("destination_priorities", "destination %d has no district", i+1)
		}
		kind := strings.TrimSpace(p.TransferType)
		if kind == "" {
			kind = models.TransferTypePermanent
		}
		if !slices.Contains([]string{models.TransferTypePermanent, models.TransferTypeTemporary, models.TransferTypeEither}, kind) {
			return nil, newValidationError("destination_priorities", "destination %d has unknown transfer type %q", i+1, kind)
		}
		out = append(out, models.DestinationPriority{Priority: i + 1, DistrictCode: code, TransferType: kind})
	}

	if dup := lo.FindDuplicatesBy(out, func(p models.DestinationPriority) string { return p.DistrictCode }); len(dup) > 0 {
		return nil, newValidationError("destination_priorities", "district %s is listed more than once", dup[0].DistrictCode)
	}
	if districts != nil {
		missing, err := MissingDistricts(ctx, districts, lo.Map(out, func(p models.DestinationPriority, _ int) string { return p.DistrictCode }))
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			return nil, newValidationError("destination_priorities", "unknown district %s", strings.Join(missing, ", "))
		}
	}
	return out, nil
}
