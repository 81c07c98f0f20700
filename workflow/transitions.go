package workflow

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// ErrIllegalTransition is returned when a status change is not in the transition table.
var ErrIllegalTransition = errors.New("illegal status transition")

// TransitionError describes a rejected status change.
type TransitionError struct {
	From RequestStatus
	To   RequestStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrIllegalTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

func buildTransitions(opts Options) map[RequestStatus][]RequestStatus {
	table := map[RequestStatus][]RequestStatus{
		StatusUserNoAction:         {StatusAwaitingUserApproval},
		StatusAwaitingUserApproval: {StatusUserApproval, StatusUserNoAction},
		StatusUserApproval:         {StatusSourceReview},
		StatusSourceReview: {
			StatusExceptionEligibilityApproval,
			StatusExceptionEligibilityRejection,
			StatusSourceApproval,
			StatusSourceRejection,
		},
		StatusExceptionEligibilityApproval: {StatusSourceApproval, StatusSourceRejection},
		StatusSourceApproval:               {StatusProvinceReview},
		StatusProvinceReview:               {StatusProvinceApproval, StatusProvinceRejection},
		StatusDestinationReview:            {StatusDestinationApproval, StatusDestinationRejection},
		StatusDestinationApproval:          {StatusApproved},
		StatusApproved:                     {StatusCompleted},
	}
	if opts.IncludeDestinationReview {
		table[StatusProvinceApproval] = []RequestStatus{StatusDestinationReview}
	} else {
		table[StatusProvinceApproval] = []RequestStatus{StatusApproved}
	}
	return table
}

// Successors returns the statuses reachable from s in one ordinary step.
func (e *Engine) Successors(s RequestStatus) []RequestStatus {
	next := e.transitions[s]
	out := make([]RequestStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether moving from one status to another is allowed.
func (e *Engine) CanTransition(from, to RequestStatus) bool {
	return lo.Contains(e.transitions[from], to)
}

// ValidateTransition returns a *TransitionError when the move is not allowed.
// Forced moves skip the table but must still target a recognized status.
func (e *Engine) ValidateTransition(from, to RequestStatus, force bool) error {
	if !to.IsValid() {
		return &TransitionError{From: from, To: to}
	}
	if force || e.CanTransition(from, to) {
		return nil
	}
	return &TransitionError{From: from, To: to}
}
