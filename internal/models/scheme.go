// internal/models/scheme.go
package models

import (
	"time"

	"welfare-workers/internal/eligibility"
)

type SchemeStatus string

const (
	SchemeActive   SchemeStatus = "active"
	SchemeInactive SchemeStatus = "inactive"
)

// StateCentral is the state value of centrally run schemes.
const StateCentral = "central"

type Scheme struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Description         string               `json:"description"`
	Category            string               `json:"category"`
	State               string               `json:"state"`
	GovernmentLevel     string               `json:"governmentLevel,omitempty"`
	TargetBeneficiaries string               `json:"targetBeneficiaries,omitempty"`
	BenefitAmount       float64              `json:"benefitAmount,omitempty"`
	Documents           []string             `json:"documents,omitempty"`
	Rules               *eligibility.RuleSet `json:"rules,omitempty"`
	Status              SchemeStatus         `json:"status"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// EligibilityInput projects the scheme onto what the evaluator needs.
func (s *Scheme) EligibilityInput() eligibility.Scheme {
	return eligibility.Scheme{ID: s.ID, Name: s.Name, Rules: s.Rules}
}

// SchemeFilter mirrors the catalogue filter bar. A scheme in the central
// state matches every State filter.
type SchemeFilter struct {
	Category string
	State    string
	Status   SchemeStatus
}

func (f SchemeFilter) Matches(s *Scheme) bool {
	if f.Category != "" && s.Category != f.Category {
		return false
	}
	if f.State != "" && s.State != f.State && s.State != StateCentral {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return true
}
