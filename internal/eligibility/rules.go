package eligibility

import "strings"

// RuleSet is the declarative eligibility rule attached to a scheme. A nil
// pointer or empty list leaves that axis unconstrained; zero values are
// real constraints.
type RuleSet struct {
	MinAge             *int     `json:"minAge,omitempty"`
	MaxAge             *int     `json:"maxAge,omitempty"`
	MaxIncome          *float64 `json:"maxIncome,omitempty"`
	RequiredCategory   []string `json:"requiredCategory,omitempty"`
	OccupationRequired []string `json:"occupationRequired,omitempty"`
	StateSpecific      []string `json:"stateSpecific,omitempty"`

	// Stored with the scheme but not evaluated.
	DisabilityRequired    *bool `json:"disabilityRequired,omitempty"`
	StudentStatusRequired *bool `json:"studentStatusRequired,omitempty"`
}

// Profile is a citizen's self-declared attributes. Nil means "not provided".
type Profile struct {
	Age        *float64 `json:"age,omitempty"`
	Income     *float64 `json:"income,omitempty"`
	Category   *string  `json:"category,omitempty"`
	Occupation *string  `json:"occupation,omitempty"`
	State      *string  `json:"state,omitempty"`
}

// Scheme is the evaluation input: identifiers plus the rule set.
type Scheme struct {
	ID    string
	Name  string
	Rules *RuleSet
}

// Axis names one independently evaluated criterion.
type Axis string

const (
	AxisState      Axis = "state"
	AxisAge        Axis = "age"
	AxisIncome     Axis = "income"
	AxisCategory   Axis = "category"
	AxisOccupation Axis = "occupation"
)

// Axes lists every axis in evaluation order.
var Axes = []Axis{AxisState, AxisAge, AxisIncome, AxisCategory, AxisOccupation}

// CentralState in StateSpecific admits every state.
const CentralState = "Central"

func (r *RuleSet) constrains(a Axis) bool {
	if r == nil {
		return false
	}
	switch a {
	case AxisState:
		return len(r.StateSpecific) > 0
	case AxisAge:
		return r.MinAge != nil || r.MaxAge != nil
	case AxisIncome:
		return r.MaxIncome != nil
	case AxisCategory:
		return len(r.RequiredCategory) > 0
	case AxisOccupation:
		return len(r.OccupationRequired) > 0
	}
	return false
}

// Unconstrained reports whether no axis is constrained at all.
func (r *RuleSet) Unconstrained() bool {
	for _, a := range Axes {
		if r.constrains(a) {
			return false
		}
	}
	return true
}

// Int, Float and String build optional values for rule sets and profiles.
func Int(v int) *int           { return &v }
func Float(v float64) *float64 { return &v }
func String(v string) *string  { return &v }
func Bool(v bool) *bool        { return &v }

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
