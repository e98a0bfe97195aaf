// internal/workers/eligibility/rank-schemes/models.go
package rankschemes

import "welfare-workers/internal/eligibility"

type Input struct {
	Profile eligibility.Profile `json:"profile"`
}

type Output struct {
	Count           int                  `json:"count"`
	Recommendations []eligibility.Result `json:"recommendations"`
}
