package domain

// Command types emitted by the rendering surface.
const (
	CommandToggleTask          = "toggle-task"
	CommandUpdateReminder      = "update-reminder"
	CommandResetDay            = "reset-day"
	CommandEnableNotifications = "enable-notifications"
)

// Command is a user intent. TaskID and Time are only read by the command
// types that need them. A command carrying an IdempotencyKey already seen is
// not applied again.
type Command struct {
	Type           string `json:"type"`
	TaskID         string `json:"taskId,omitempty"`
	Time           string `json:"time,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}
