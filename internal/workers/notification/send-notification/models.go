// internal/workers/notification/send-notification/models.go
package sendnotification

import "welfare-workers/internal/models"

type Input struct {
	UserID    string       `json:"userId"`
	Title     string       `json:"title"`
	Message   string       `json:"message"`
	Type      string       `json:"type"`
	Broadcast bool         `json:"broadcast"`
	Actor     models.Actor `json:"actor"`
}

// Output reports Duplicate=true with an empty NotificationID when the
// dedup window suppressed the send.
type Output struct {
	NotificationID string `json:"notificationId"`
	Target         string `json:"target"`
	Duplicate      bool   `json:"duplicate"`
}
