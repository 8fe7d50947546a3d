package permission

import "time"

// Status represents the state of the notification permission.
type Status string

const (
	StatusPending Status = "pending"
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
)

// Prompt is the first-launch permission request shown to the user.
type Prompt struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Message   string     `json:"message"`
	Status    Status     `json:"status"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}
