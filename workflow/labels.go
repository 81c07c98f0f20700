package workflow

// ActionType names what caused a transition. It is stored in history metadata.
type ActionType string

const (
	ActionStartAppeal            ActionType = "start_appeal"
	ActionSaveDraft              ActionType = "save_draft"
	ActionSubmitFinalAppeal      ActionType = "submit_final_appeal"
	ActionWithdrawAppeal         ActionType = "withdraw_appeal"
	ActionStartSourceReview      ActionType = "start_source_review"
	ActionExceptionApprove       ActionType = "exception_approve"
	ActionExceptionReject        ActionType = "exception_reject"
	ActionSourceApprove          ActionType = "source_approve"
	ActionSourceReject           ActionType = "source_reject"
	ActionStartProvinceReview    ActionType = "start_province_review"
	ActionProvinceApprove        ActionType = "province_approve"
	ActionProvinceReject         ActionType = "province_reject"
	ActionStartDestinationReview ActionType = "start_destination_review"
	ActionDestinationApprove     ActionType = "destination_approve"
	ActionDestinationReject      ActionType = "destination_reject"
	ActionFinalApprove           ActionType = "final_approve"
	ActionComplete               ActionType = "complete"
	ActionAdminCorrection        ActionType = "admin_correction"
	ActionBulkImport             ActionType = "bulk_import"
)

var statusLabels = map[RequestStatus]string{
	StatusUserNoAction:                  "بدون اقدام متقاضی",
	StatusAwaitingUserApproval:          "در انتظار تایید متقاضی",
	StatusUserApproval:                  "تایید و ارسال توسط متقاضی",
	StatusSourceReview:                  "در حال بررسی توسط منطقه مبدا",
	StatusExceptionEligibilityApproval:  "تایید شمول بند استثنا",
	StatusExceptionEligibilityRejection: "رد شمول بند استثنا",
	StatusSourceApproval:                "تایید منطقه مبدا",
	StatusSourceRejection:               "رد منطقه مبدا",
	StatusProvinceReview:                "در حال بررسی توسط استان",
	StatusProvinceApproval:              "تایید استان",
	StatusProvinceRejection:             "رد استان",
	StatusDestinationReview:             "در حال بررسی توسط منطقه مقصد",
	StatusDestinationApproval:           "تایید منطقه مقصد",
	StatusDestinationRejection:          "رد منطقه مقصد",
	StatusApproved:                      "تایید نهایی",
	StatusCompleted:                     "تکمیل شده",
}

var actionLabels = map[ActionType]string{
	ActionStartAppeal:            "شروع ثبت اعتراض",
	ActionSaveDraft:              "ذخیره پیش‌نویس",
	ActionSubmitFinalAppeal:      "ارسال نهایی اعتراض",
	ActionWithdrawAppeal:         "انصراف از اعتراض",
	ActionStartSourceReview:      "شروع بررسی منطقه مبدا",
	ActionExceptionApprove:       "تایید شمول استثنا",
	ActionExceptionReject:        "رد شمول استثنا",
	ActionSourceApprove:          "تایید کارشناس منطقه مبدا",
	ActionSourceReject:           "رد کارشناس منطقه مبدا",
	ActionStartProvinceReview:    "ارجاع به استان",
	ActionProvinceApprove:        "تایید کارشناس استان",
	ActionProvinceReject:         "رد کارشناس استان",
	ActionStartDestinationReview: "ارجاع به منطقه مقصد",
	ActionDestinationApprove:     "تایید کارشناس منطقه مقصد",
	ActionDestinationReject:      "رد کارشناس منطقه مقصد",
	ActionFinalApprove:           "تایید نهایی",
	ActionComplete:               "اتمام فرایند",
	ActionAdminCorrection:        "اصلاح توسط مدیر سامانه",
	ActionBulkImport:             "ورود گروهی اطلاعات",
}

// defaultActions maps a target status to the action that normally produces it.
var defaultActions = map[RequestStatus]ActionType{
	StatusAwaitingUserApproval:          ActionStartAppeal,
	StatusUserApproval:                  ActionSubmitFinalAppeal,
	StatusSourceReview:                  ActionStartSourceReview,
	StatusExceptionEligibilityApproval:  ActionExceptionApprove,
	StatusExceptionEligibilityRejection: ActionExceptionReject,
	StatusSourceApproval:                ActionSourceApprove,
	StatusSourceRejection:               ActionSourceReject,
	StatusProvinceReview:                ActionStartProvinceReview,
	StatusProvinceApproval:              ActionProvinceApprove,
	StatusProvinceRejection:             ActionProvinceReject,
	StatusDestinationReview:             ActionStartDestinationReview,
	StatusDestinationApproval:           ActionDestinationApprove,
	StatusDestinationRejection:          ActionDestinationReject,
	StatusApproved:                      ActionFinalApprove,
	StatusCompleted:                     ActionComplete,
}

// StatusLabel returns the display label of a status, or the raw value if unknown.
func StatusLabel(s RequestStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ActionLabel returns the display label of an action type, or the raw value if unknown.
func ActionLabel(a ActionType) string {
	if label, ok := actionLabels[a]; ok {
		return label
	}
	return string(a)
}

// LabelFor looks a key up in the status table first, then the action table.
// Unknown keys come back unchanged.
func LabelFor(key string) string {
	if label, ok := statusLabels[RequestStatus(key)]; ok {
		return label
	}
	if label, ok := actionLabels[ActionType(key)]; ok {
		return label
	}
	return key
}

// DefaultAction returns the action normally recorded when moving into s.
func DefaultAction(s RequestStatus) ActionType {
	if action, ok := defaultActions[s]; ok {
		return action
	}
	return ""
}

// StatusLabels returns a copy of the status label table keyed by raw value.
func StatusLabels() map[string]string {
	out := make(map[string]string, len(statusLabels))
	for k, v := range statusLabels {
		out[string(k)] = v
	}
	return out
}

// ActionLabels returns a copy of the action label table keyed by raw value.
func ActionLabels() map[string]string {
	out := make(map[string]string, len(actionLabels))
	for k, v := range actionLabels {
		out[string(k)] = v
	}
	return out
}
