// Package rbac is the single permission matrix consulted by every
// administrative operation.
package rbac

import (
	apperrors "welfare-workers/internal/common/errors"
)

type Role string

const (
	SuperAdmin   Role = "SUPER_ADMIN"
	ContentAdmin Role = "CONTENT_ADMIN"
	ReviewAdmin  Role = "REVIEW_ADMIN"
	User         Role = "USER"
)

type Action string

const (
	AddScheme          Action = "ADD_SCHEME"
	EditScheme         Action = "EDIT_SCHEME"
	DeleteScheme       Action = "DELETE_SCHEME"
	ApproveApplication Action = "APPROVE_APPLICATION"
	RejectApplication  Action = "REJECT_APPLICATION"
	ReviewApplication  Action = "REVIEW_APPLICATION"
	ViewUsers          Action = "VIEW_USERS"
	ViewAuditLogs      Action = "VIEW_AUDIT_LOGS"
	ManageRoles        Action = "MANAGE_ROLES"
	SendNotifications  Action = "SEND_NOTIFICATIONS"
	ViewAnalytics      Action = "VIEW_ANALYTICS"
)

// AllActions in declaration order.
var AllActions = []Action{
	AddScheme, EditScheme, DeleteScheme,
	ApproveApplication, RejectApplication, ReviewApplication,
	ViewUsers, ViewAuditLogs, ManageRoles,
	SendNotifications, ViewAnalytics,
}

var matrix = map[Role][]Action{
	SuperAdmin:   AllActions,
	ContentAdmin: {AddScheme, EditScheme, SendNotifications},
	ReviewAdmin:  {ApproveApplication, RejectApplication, ReviewApplication, ViewAnalytics},
	User:         {},
}

func HasPermission(role Role, action Action) bool {
	for _, a := range matrix[role] {
		if a == action {
			return true
		}
	}
	return false
}

// IsAdminRole reports whether role may open the admin console at all.
func IsAdminRole(role Role) bool {
	switch role {
	case SuperAdmin, ContentAdmin, ReviewAdmin:
		return true
	}
	return false
}

// Permissions returns a copy of role's actions; unknown roles get none.
func Permissions(role Role) []Action {
	return append([]Action{}, matrix[role]...)
}

// Require returns a PERMISSION_DENIED error when role lacks action.
func Require(role Role, action Action) error {
	if HasPermission(role, action) {
		return nil
	}
	return apperrors.NewPermissionDeniedError(string(role), string(action))
}
