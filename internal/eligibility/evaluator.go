package eligibility

// Status classifies an evaluation.
type Status string

const (
	NotEligible       Status = "NotEligible"
	PartiallyEligible Status = "PartiallyEligible"
	FullyEligible     Status = "FullyEligible"
)

const (
	ScoreNotEligible       = 0
	ScorePartiallyEligible = 50
	ScoreFullyEligible     = 100
)

const noRulesExplanation = "No specific rules defined for this scheme."

// Result is the outcome of evaluating one profile against one scheme.
// Every axis appears in at most one of Matched, Failed and Missing.
type Result struct {
	SchemeID    string `json:"schemeId"`
	SchemeName  string `json:"schemeName"`
	Score       int    `json:"score"`
	Status      Status `json:"status"`
	Matched     []Axis `json:"matched"`
	Failed      []Axis `json:"failed"`
	Missing     []Axis `json:"missing"`
	Explanation string `json:"explanation,omitempty"`
}

type outcome int

const (
	skipped outcome = iota
	matched
	failed
	missing
)

// Evaluate scores profile against the scheme's rules. It is pure and never
// fails: missing profile data is an outcome, not an error.
func Evaluate(profile Profile, scheme Scheme) Result {
	res := Result{
		SchemeID:   scheme.ID,
		SchemeName: scheme.Name,
		Matched:    []Axis{},
		Failed:     []Axis{},
		Missing:    []Axis{},
	}

	rules := scheme.Rules
	if rules.Unconstrained() {
		res.Status = FullyEligible
		res.Score = ScoreFullyEligible
		res.Explanation = noRulesExplanation
		return res
	}

	for _, axis := range Axes {
		switch checkAxis(axis, rules, profile) {
		case matched:
			res.Matched = append(res.Matched, axis)
		case failed:
			res.Failed = append(res.Failed, axis)
		case missing:
			res.Missing = append(res.Missing, axis)
		}
	}

	switch {
	case len(res.Failed) > 0:
		res.Status, res.Score = NotEligible, ScoreNotEligible
	case len(res.Missing) > 0:
		res.Status, res.Score = PartiallyEligible, ScorePartiallyEligible
	default:
		res.Status, res.Score = FullyEligible, ScoreFullyEligible
	}
	return res
}

func checkAxis(axis Axis, r *RuleSet, p Profile) outcome {
	if !r.constrains(axis) {
		return skipped
	}

	var ok bool
	switch axis {
	case AxisState:
		if !present(p.State) {
			return missing
		}
		ok = contains(r.StateSpecific, *p.State) || contains(r.StateSpecific, CentralState)
	case AxisAge:
		if p.Age == nil {
			return missing
		}
		age := *p.Age
		ok = (r.MinAge == nil || age >= float64(*r.MinAge)) && (r.MaxAge == nil || age <= float64(*r.MaxAge))
	case AxisIncome:
		if p.Income == nil {
			return missing
		}
		ok = *p.Income <= *r.MaxIncome
	case AxisCategory:
		if !present(p.Category) {
			return missing
		}
		ok = contains(r.RequiredCategory, *p.Category)
	case AxisOccupation:
		if !present(p.Occupation) {
			return missing
		}
		ok = contains(r.OccupationRequired, *p.Occupation)
	}

	if ok {
		return matched
	}
	return failed
}
