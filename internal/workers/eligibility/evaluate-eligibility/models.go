// internal/workers/eligibility/evaluate-eligibility/models.go
package evaluateeligibility

import "welfare-workers/internal/eligibility"

type Input struct {
	SchemeID string              `json:"schemeId"`
	Profile  eligibility.Profile `json:"profile"`
}

type Output struct {
	Eligibility eligibility.Result `json:"eligibility"`
}
