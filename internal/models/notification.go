// internal/models/notification.go
package models

import "time"

type NotificationType string

const (
	NotificationApproval     NotificationType = "approval"
	NotificationRejection    NotificationType = "rejection"
	NotificationSystem       NotificationType = "system"
	NotificationAnnouncement NotificationType = "announcement"
	NotificationScheme       NotificationType = "scheme"
)

// TargetAll addresses a notification to every user.
const TargetAll = "all"

// Notification is visible to Target, which is TargetAll or a user id.
// Read is the only mutable field.
type Notification struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Target      string           `json:"target"`
	SentAt      time.Time        `json:"sentAt"`
	Type        NotificationType `json:"type"`
	Read        bool             `json:"read"`
}

func (n *Notification) VisibleTo(userID string) bool {
	return n.Target == TargetAll || n.Target == userID
}
