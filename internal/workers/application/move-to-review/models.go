// internal/workers/application/move-to-review/models.go
package movetoreview

import "welfare-workers/internal/models"

type Input struct {
	ApplicationID string       `json:"applicationId"`
	Actor         models.Actor `json:"actor"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
}
