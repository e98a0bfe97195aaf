// internal/workers/application/update-application-status/models.go
package updateapplicationstatus

import "welfare-workers/internal/models"

type Input struct {
	ApplicationID string       `json:"applicationId"`
	Status        string       `json:"status"`
	Remarks       string       `json:"remarks"`
	Actor         models.Actor `json:"actor"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
	Remarks       string `json:"remarks"`
}
