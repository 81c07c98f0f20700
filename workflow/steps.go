package workflow

import (
	"math"

	"github.com/samber/lo"
)

// StepDefinition is a statically defined step shown on timelines.
type StepDefinition struct {
	Status      RequestStatus `json:"status"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
}

// StepState classifies a step relative to the record's current status.
type StepState string

const (
	StepCompleted StepState = "completed"
	StepCurrent   StepState = "current"
	StepPending   StepState = "pending"
)

// ClassifiedStep pairs a step with its state.
type ClassifiedStep struct {
	StepDefinition
	State StepState `json:"state"`
}

var stepDefinitions = map[RequestStatus]StepDefinition{
	StatusUserNoAction: {
		Title:       "ثبت اطلاعات پرسنلی",
		Description: "اطلاعات پرسنلی متقاضی در سامانه ثبت شده است",
	},
	StatusAwaitingUserApproval: {
		Title:       "تکمیل فرم اعتراض",
		Description: "متقاضی در حال تکمیل و تایید فرم اعتراض است",
	},
	StatusUserApproval: {
		Title:       "ارسال اعتراض",
		Description: "اعتراض توسط متقاضی تایید و ارسال شد",
	},
	StatusSourceReview: {
		Title:       "بررسی منطقه مبدا",
		Description: "کارشناس منطقه مبدا در حال بررسی درخواست است",
	},
	StatusExceptionEligibilityApproval: {
		Title:       "تایید شمول استثنا",
		Description: "شمول متقاضی در بندهای استثنا تایید شد",
	},
	StatusExceptionEligibilityRejection: {
		Title:       "رد شمول استثنا",
		Description: "شمول متقاضی در بندهای استثنا رد شد",
	},
	StatusSourceApproval: {
		Title:       "تایید منطقه مبدا",
		Description: "درخواست توسط منطقه مبدا تایید شد",
	},
	StatusSourceRejection: {
		Title:       "رد منطقه مبدا",
		Description: "درخواست توسط منطقه مبدا رد شد",
	},
	StatusProvinceReview: {
		Title:       "بررسی استان",
		Description: "کارشناس استان در حال بررسی درخواست است",
	},
	StatusProvinceApproval: {
		Title:       "تایید استان",
		Description: "درخواست توسط استان تایید شد",
	},
	StatusProvinceRejection: {
		Title:       "رد استان",
		Description: "درخواست توسط استان رد شد",
	},
	StatusDestinationReview: {
		Title:       "بررسی منطقه مقصد",
		Description: "کارشناس منطقه مقصد در حال بررسی درخواست است",
	},
	StatusDestinationApproval: {
		Title:       "تایید منطقه مقصد",
		Description: "درخواست توسط منطقه مقصد تایید شد",
	},
	StatusDestinationRejection: {
		Title:       "رد منطقه مقصد",
		Description: "درخواست توسط منطقه مقصد رد شد",
	},
	StatusApproved: {
		Title:       "تایید نهایی",
		Description: "درخواست انتقال به صورت نهایی تایید شد",
	},
	StatusCompleted: {
		Title:       "پایان فرایند",
		Description: "فرایند رسیدگی به اعتراض به پایان رسید",
	},
}

// Step returns the static definition for a status. Unknown statuses get their
// raw value as title.
func Step(s RequestStatus) StepDefinition {
	def, ok := stepDefinitions[s]
	if !ok {
		return StepDefinition{Status: s, Title: string(s)}
	}
	def.Status = s
	return def
}

var fixedPrefix = []RequestStatus{
	StatusUserNoAction,
	StatusAwaitingUserApproval,
	StatusUserApproval,
	StatusSourceReview,
}

// Statuses that have passed the exception-eligibility gate.
var pastExceptionGate = []RequestStatus{
	StatusExceptionEligibilityApproval,
	StatusSourceApproval,
	StatusProvinceReview,
	StatusProvinceApproval,
	StatusProvinceRejection,
	StatusDestinationReview,
	StatusDestinationApproval,
	StatusDestinationRejection,
}

var destinationBranch = []RequestStatus{
	StatusDestinationReview,
	StatusDestinationApproval,
	StatusDestinationRejection,
}

// Options configures an Engine.
type Options struct {
	// IncludeDestinationReview enables the destination district gate
	// between province approval and final approval.
	IncludeDestinationReview bool
}

// Engine derives step sequences and validates transitions. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	opts        Options
	transitions map[RequestStatus][]RequestStatus
}

// NewEngine builds an engine for the given deployment options.
func NewEngine(opts Options) *Engine {
	return &Engine{
		opts:        opts,
		transitions: buildTransitions(opts),
	}
}

// Options returns the configuration the engine was built with.
func (e *Engine) Options() Options { return e.opts }

// DeriveStepSequence returns the ordered statuses relevant to the trajectory
// of a record currently in s. The optional gates (exception eligibility and
// destination approval) appear only when s is that gate or the history shows
// the record passed through it. It never fails: unknown values fall through
// to the non-rejection path.
func (e *Engine) DeriveStepSequence(s RequestStatus, history ...RequestStatus) []RequestStatus {
	seq := make([]RequestStatus, 0, 12)
	seq = append(seq, fixedPrefix...)

	switch s {
	case StatusExceptionEligibilityRejection, StatusSourceRejection:
		return append(seq, s)
	}
	if s == StatusExceptionEligibilityApproval ||
		(lo.Contains(pastExceptionGate, s) && lo.Contains(history, StatusExceptionEligibilityApproval)) {
		seq = append(seq, StatusExceptionEligibilityApproval)
	}
	seq = append(seq, StatusSourceApproval, StatusProvinceReview)

	if s == StatusProvinceRejection {
		return append(seq, s)
	}
	seq = append(seq, StatusProvinceApproval)

	onDestinationBranch := lo.Contains(destinationBranch, s) ||
		lo.ContainsBy(history, func(h RequestStatus) bool { return lo.Contains(destinationBranch, h) })
	if e.opts.IncludeDestinationReview || onDestinationBranch {
		seq = append(seq, StatusDestinationReview)
	}
	switch s {
	case StatusDestinationRejection:
		return append(seq, s)
	case StatusDestinationApproval:
		seq = append(seq, s)
	case StatusApproved, StatusCompleted:
		if lo.Contains(history, StatusDestinationApproval) {
			seq = append(seq, StatusDestinationApproval)
		}
	}
	return append(seq, StatusApproved, StatusCompleted)
}

// DeriveSteps is DeriveStepSequence resolved to step definitions.
func (e *Engine) DeriveSteps(s RequestStatus, history ...RequestStatus) []StepDefinition {
	return lo.Map(e.DeriveStepSequence(s, history...), func(status RequestStatus, _ int) StepDefinition {
		return Step(status)
	})
}

// ClassifyStep reports whether step is completed, current or pending.
// A step seen in history counts as completed regardless of its position.
func ClassifyStep(step, current RequestStatus, history []RequestStatus, sequence []RequestStatus) StepState {
	if lo.Contains(history, step) {
		return StepCompleted
	}
	stepIdx := lo.IndexOf(sequence, step)
	currentIdx := lo.IndexOf(sequence, current)
	if stepIdx >= 0 && currentIdx >= 0 && stepIdx < currentIdx {
		return StepCompleted
	}
	if step == current {
		return StepCurrent
	}
	return StepPending
}

// ClassifyAll derives the sequence for current and classifies every step.
func (e *Engine) ClassifyAll(current RequestStatus, history []RequestStatus) []ClassifiedStep {
	sequence := e.DeriveStepSequence(current, history...)
	return lo.Map(sequence, func(status RequestStatus, _ int) ClassifiedStep {
		return ClassifiedStep{
			StepDefinition: Step(status),
			State:          ClassifyStep(status, current, history, sequence),
		}
	})
}

// ComputeProgress returns the share of the sequence reached by current, in
// percent. A status missing from the sequence yields 0.
func ComputeProgress(current RequestStatus, sequence []RequestStatus) int {
	idx := lo.IndexOf(sequence, current)
	if idx < 0 || len(sequence) == 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(idx+1) / float64(len(sequence))))
	return max(0, min(100, pct))
}

// Progress derives the sequence for current and computes its progress.
func (e *Engine) Progress(current RequestStatus, history ...RequestStatus) int {
	return ComputeProgress(current, e.DeriveStepSequence(current, history...))
}
