package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"transfer-appeal-api/config"
	"transfer-appeal-api/models"
	"transfer-appeal-api/workflow"

	"go.uber.org/zap"
)

// Notifier is told about committed status changes. Implementations must not
// block the caller for long; failures are logged and never undo a transition.
type Notifier interface {
	StatusChanged(ctx context.Context, spec *models.TransferApplicantSpec, entry *models.WorkflowHistoryEntry) error
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) StatusChanged(context.Context, *models.TransferApplicantSpec, *models.WorkflowHistoryEntry) error {
	return nil
}

// MailNotifier emails the applicant when a reviewer decides on the appeal.
type MailNotifier struct {
	send   func(to []string, subject, html string) error
	logger *zap.Logger
}

// NewMailNotifier sends through config.SendMail.
func NewMailNotifier(logger *zap.Logger) *MailNotifier {
	if logger == nil {
		logger = config.Logger
	}
	return &MailNotifier{send: config.SendMail, logger: logger.Named("notifier")}
}

// notifiedStatuses are the outcomes an applicant hears about by mail.
var notifiedStatuses = map[workflow.RequestStatus]bool{
	workflow.StatusExceptionEligibilityRejection: true,
	workflow.StatusSourceRejection:               true,
	workflow.StatusProvinceRejection:             true,
	workflow.StatusDestinationRejection:          true,
	workflow.StatusApproved:                      true,
	workflow.StatusCompleted:                     true,
}

func (n *MailNotifier) StatusChanged(ctx context.Context, spec *models.TransferApplicantSpec, entry *models.WorkflowHistoryEntry) error {
	if spec == nil || entry == nil || !notifiedStatuses[entry.Status] {
		return nil
	}
	email := strings.TrimSpace(spec.Email)
	if email == "" {
		n.logger.Debug("applicant has no email, skipping notification", zap.Uint("spec_id", spec.ID))
		return nil
	}

	subject := fmt.Sprintf("نتیجه درخواست تجدیدنظر انتقال: %s", workflow.StatusLabel(entry.Status))
	body := buildStatusEmail(spec, entry)
	if err := n.send([]string{email}, subject, body); err != nil {
		n.logger.Warn("status notification failed",
			zap.Uint("spec_id", spec.ID),
			zap.String("status", string(entry.Status)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func buildStatusEmail(spec *models.TransferApplicantSpec, entry *models.WorkflowHistoryEntry) string {
	var rows strings.Builder
	writeRow := func(label, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		rows.WriteString(fmt.Sprintf(`<tr><td style="padding:10px 14px;color:#6b7280;width:38%%;">%s</td><td style="padding:10px 14px;color:#111827;font-weight:600;">%s</td></tr>`,
			template.HTMLEscapeString(label), template.HTMLEscapeString(value)))
	}
	writeRow("کد پرسنلی", spec.PersonnelCode)
	writeRow("وضعیت", workflow.StatusLabel(entry.Status))
	writeRow("تاریخ", entry.ChangedAt.Format("2006-01-02 15:04"))
	if entry.Reason != nil {
		writeRow("توضیحات", *entry.Reason)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="fa" dir="rtl">
<head><meta charset="UTF-8"></head>
<body style="font-family:Tahoma,sans-serif;background-color:#f3f4f6;padding:24px;">
<div style="max-width:560px;margin:0 auto;background:#ffffff;border-radius:12px;padding:24px;">
<p style="margin:0 0 18px 0;line-height:1.7;">%s گرامی،</p>
<p style="margin:0 0 18px 0;line-height:1.7;">وضعیت درخواست تجدیدنظر انتقال شما تغییر کرد.</p>
<table role="presentation" cellpadding="0" cellspacing="0" width="100%%" style="border:1px solid #e5e7eb;border-radius:12px;background-color:#f9fafb;"><tbody>%s</tbody></table>
</div>
</body>
</html>`, template.HTMLEscapeString(spec.FullName()), rows.String())
}
