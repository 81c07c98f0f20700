package workflow

import (
	"strings"
)

// RequestStatus is the closed set of states a transfer appeal moves through.
type RequestStatus string

const (
	StatusUserNoAction                  RequestStatus = "user_no_action"
	StatusAwaitingUserApproval          RequestStatus = "awaiting_user_approval"
	StatusUserApproval                  RequestStatus = "user_approval"
	StatusSourceReview                  RequestStatus = "source_review"
	StatusExceptionEligibilityApproval  RequestStatus = "exception_eligibility_approval"
	StatusExceptionEligibilityRejection RequestStatus = "exception_eligibility_rejection"
	StatusSourceApproval                RequestStatus = "source_approval"
	StatusSourceRejection               RequestStatus = "source_rejection"
	StatusProvinceReview                RequestStatus = "province_review"
	StatusProvinceApproval              RequestStatus = "province_approval"
	StatusProvinceRejection             RequestStatus = "province_rejection"
	StatusDestinationReview             RequestStatus = "destination_review"
	StatusDestinationApproval           RequestStatus = "destination_approval"
	StatusDestinationRejection          RequestStatus = "destination_rejection"
	StatusApproved                      RequestStatus = "approved"
	StatusCompleted                     RequestStatus = "completed"
)

// DefaultStatus is the status of a freshly provisioned record with no history.
const DefaultStatus = StatusUserNoAction

var allStatuses = []RequestStatus{
	StatusUserNoAction,
	StatusAwaitingUserApproval,
	StatusUserApproval,
	StatusSourceReview,
	StatusExceptionEligibilityApproval,
	StatusExceptionEligibilityRejection,
	StatusSourceApproval,
	StatusSourceRejection,
	StatusProvinceReview,
	StatusProvinceApproval,
	StatusProvinceRejection,
	StatusDestinationReview,
	StatusDestinationApproval,
	StatusDestinationRejection,
	StatusApproved,
	StatusCompleted,
}

// AllStatuses returns every recognized status in workflow order.
func AllStatuses() []RequestStatus {
	out := make([]RequestStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// IsValid reports whether s is one of the recognized statuses.
func (s RequestStatus) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// IsRejection reports whether s ends the workflow with a rejection.
func (s RequestStatus) IsRejection() bool {
	switch s {
	case StatusExceptionEligibilityRejection, StatusSourceRejection,
		StatusProvinceRejection, StatusDestinationRejection:
		return true
	}
	return false
}

// IsTerminal reports whether no ordinary transition leaves s.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s.IsRejection()
}

func (s RequestStatus) String() string { return string(s) }

// Legacy spellings found in imported data and in the old request_status column.
var statusSynonyms = map[RequestStatus][]string{
	StatusUserNoAction:                  {"no_action", "none", "new", "initial"},
	StatusAwaitingUserApproval:          {"awaiting_approval", "pending_user", "draft"},
	StatusUserApproval:                  {"user_approved", "submitted", "final_submit"},
	StatusSourceReview:                  {"district_review", "source_pending"},
	StatusExceptionEligibilityApproval:  {"exception_approved", "exception_approval"},
	StatusExceptionEligibilityRejection: {"exception_rejected", "exception_rejection"},
	StatusSourceApproval:                {"district_approval", "source_approved"},
	StatusSourceRejection:               {"district_rejection", "source_rejected"},
	StatusProvinceReview:                {"province_pending"},
	StatusProvinceApproval:              {"province_approved"},
	StatusProvinceRejection:             {"province_rejected"},
	StatusDestinationReview:             {"destination_pending"},
	StatusDestinationApproval:           {"destination_approved"},
	StatusDestinationRejection:          {"destination_rejected"},
	StatusApproved:                      {"final_approval", "final_approved"},
	StatusCompleted:                     {"done", "closed", "finished"},
}

var statusAliasToCanonical = buildStatusAliasMap()

func buildStatusAliasMap() map[string]RequestStatus {
	aliasMap := make(map[string]RequestStatus)
	for _, status := range allStatuses {
		aliasMap[normalizeStatusKey(string(status))] = status
		if label, ok := statusLabels[status]; ok {
			aliasMap[normalizeStatusKey(label)] = status
		}
		for _, alias := range statusSynonyms[status] {
			if key := normalizeStatusKey(alias); key != "" {
				aliasMap[key] = status
			}
		}
	}
	return aliasMap
}

func normalizeStatusKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	return strings.ReplaceAll(key, " ", "_")
}

// ParseStatus resolves canonical values, legacy aliases and Persian labels.
func ParseStatus(raw string) (RequestStatus, bool) {
	status, ok := statusAliasToCanonical[normalizeStatusKey(raw)]
	return status, ok
}
