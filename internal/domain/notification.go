package domain

import "context"

// Severity of a user-facing notification
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Notification is a message surfaced to the user
type Notification struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Notifier is the notification channel used to surface fallbacks and validation errors
type Notifier interface {
	Notify(ctx context.Context, message string, severity Severity)
}
