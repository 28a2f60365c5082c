package types

const (
	NotifyTypeSessionStarted  = "session_started"
	NotifyTypeTransferUpdate  = "transfer_update"
	NotifyTypeSessionFinished = "session_finished"
	NotifyTypeTextReceived    = "text_received"
)

// Notification represents a notification message structure
type Notification struct {
	Type       string         `json:"type,omitempty"`       // Notification type, e.g. "transfer_update"
	Title      string         `json:"title,omitempty"`      // Notification title
	Message    string         `json:"message,omitempty"`    // Notification message/content
	Data       map[string]any `json:"data,omitempty"`       // Additional data fields
	IsTextOnly bool           `json:"isTextOnly,omitempty"` // Indicates if this is plain text content
}
