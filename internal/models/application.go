// internal/models/application.go
package models

import "time"

type ApplicationStatus string

const (
	StatusPending     ApplicationStatus = "pending"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
)

// SystemActor marks entries written by the service itself.
const SystemActor = "system"

type StatusHistoryEntry struct {
	Status    ApplicationStatus `json:"status"`
	UpdatedBy string            `json:"updatedBy"`
	Remark    string            `json:"remark"`
	Date      time.Time         `json:"date"`
}

// Application is a citizen's request for one scheme. Only the lifecycle
// manager mutates it; Version guards concurrent writers.
type Application struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"userId"`
	SchemeID      string                 `json:"schemeId"`
	SchemeName    string                 `json:"schemeName"`
	Category      string                 `json:"category"`
	Status        ApplicationStatus      `json:"status"`
	FormData      map[string]interface{} `json:"formData"`
	Remarks       string                 `json:"remarks"`
	StatusHistory []StatusHistoryEntry   `json:"statusHistory"`
	DateApplied   time.Time              `json:"dateApplied"`
	LastUpdated   time.Time              `json:"lastUpdated"`
	Version       int64                  `json:"version"`
}

// Clone returns a copy that shares no slices or maps with a.
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	out := *a
	out.StatusHistory = append([]StatusHistoryEntry(nil), a.StatusHistory...)
	if a.FormData != nil {
		out.FormData = make(map[string]interface{}, len(a.FormData))
		for k, v := range a.FormData {
			out.FormData[k] = v
		}
	}
	return &out
}

// ApplicationFilter narrows List queries. Empty fields match everything.
type ApplicationFilter struct {
	UserID   string
	SchemeID string
	Status   ApplicationStatus
}

func (f ApplicationFilter) Matches(a *Application) bool {
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	if f.SchemeID != "" && a.SchemeID != f.SchemeID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}
