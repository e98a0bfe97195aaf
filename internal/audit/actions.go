package audit

// ActionType strings are filtered on by external consumers. Append new
// values; never rename or reorder existing ones.
type ActionType string

const (
	SchemeCreated         ActionType = "SCHEME_CREATED"
	SchemeUpdated         ActionType = "SCHEME_UPDATED"
	SchemeDeleted         ActionType = "SCHEME_DELETED"
	SchemeToggled         ActionType = "SCHEME_TOGGLED"
	ApplicationReviewed   ActionType = "APPLICATION_REVIEWED"
	ApplicationApproved   ActionType = "APPLICATION_APPROVED"
	ApplicationRejected   ActionType = "APPLICATION_REJECTED"
	UserBlocked           ActionType = "USER_BLOCKED"
	UserUnblocked         ActionType = "USER_UNBLOCKED"
	RoleUpdated           ActionType = "ROLE_UPDATED"
	NotificationBroadcast ActionType = "NOTIFICATION_BROADCAST"
	PasswordChanged       ActionType = "PASSWORD_CHANGED"
	MaintenanceToggled    ActionType = "MAINTENANCE_TOGGLED"
)

var actionTypes = []ActionType{
	SchemeCreated, SchemeUpdated, SchemeDeleted, SchemeToggled,
	ApplicationReviewed, ApplicationApproved, ApplicationRejected,
	UserBlocked, UserUnblocked, RoleUpdated,
	NotificationBroadcast, PasswordChanged, MaintenanceToggled,
}

// AllActionTypes returns every known action type in declaration order.
func AllActionTypes() []ActionType {
	return append([]ActionType(nil), actionTypes...)
}

func (a ActionType) Valid() bool {
	for _, known := range actionTypes {
		if a == known {
			return true
		}
	}
	return false
}

// Target types used by callers.
const (
	TargetScheme       = "scheme"
	TargetApplication  = "application"
	TargetUser         = "user"
	TargetNotification = "notification"
	TargetSystem       = "system"
)
