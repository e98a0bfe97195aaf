package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func farmerRules() *RuleSet {
	return &RuleSet{
		MinAge:             Int(18),
		MaxIncome:          Float(300000),
		OccupationRequired: []string{"Farmer"},
		StateSpecific:      []string{"Maharashtra", "Gujarat"},
	}
}

func farmerProfile() Profile {
	return Profile{
		Age:        Float(30),
		Income:     Float(150000),
		Occupation: String("Farmer"),
		State:      String("Maharashtra"),
	}
}

func TestEvaluate_Scenarios(t *testing.T) {
	scheme := Scheme{ID: "pm-kisan", Name: "PM Kisan", Rules: farmerRules()}

	tests := []struct {
		name        string
		mutate      func(p *Profile)
		wantStatus  Status
		wantScore   int
		wantMatched []Axis
		wantFailed  []Axis
		wantMissing []Axis
	}{
		{
			name:        "fully eligible",
			mutate:      func(p *Profile) {},
			wantStatus:  FullyEligible,
			wantScore:   100,
			wantMatched: []Axis{AxisState, AxisAge, AxisIncome, AxisOccupation},
			wantFailed:  []Axis{},
			wantMissing: []Axis{},
		},
		{
			name:        "under age",
			mutate:      func(p *Profile) { p.Age = Float(16) },
			wantStatus:  NotEligible,
			wantScore:   0,
			wantMatched: []Axis{AxisState, AxisIncome, AxisOccupation},
			wantFailed:  []Axis{AxisAge},
			wantMissing: []Axis{},
		},
		{
			name:        "income missing",
			mutate:      func(p *Profile) { p.Income = nil },
			wantStatus:  PartiallyEligible,
			wantScore:   50,
			wantMatched: []Axis{AxisState, AxisAge, AxisOccupation},
			wantFailed:  []Axis{},
			wantMissing: []Axis{AxisIncome},
		},
		{
			name: "failure beats missing",
			mutate: func(p *Profile) {
				p.Income = nil
				p.State = String("Kerala")
			},
			wantStatus:  NotEligible,
			wantScore:   0,
			wantMatched: []Axis{AxisAge, AxisOccupation},
			wantFailed:  []Axis{AxisState},
			wantMissing: []Axis{AxisIncome},
		},
		{
			name:        "blank occupation counts as missing",
			mutate:      func(p *Profile) { p.Occupation = String("  ") },
			wantStatus:  PartiallyEligible,
			wantScore:   50,
			wantMatched: []Axis{AxisState, AxisAge, AxisIncome},
			wantFailed:  []Axis{},
			wantMissing: []Axis{AxisOccupation},
		},
		{
			name:        "zero income is present and passes",
			mutate:      func(p *Profile) { p.Income = Float(0) },
			wantStatus:  FullyEligible,
			wantScore:   100,
			wantMatched: []Axis{AxisState, AxisAge, AxisIncome, AxisOccupation},
			wantFailed:  []Axis{},
			wantMissing: []Axis{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := farmerProfile()
			tt.mutate(&p)

			res := Evaluate(p, scheme)
			assert.Equal(t, "pm-kisan", res.SchemeID)
			assert.Equal(t, "PM Kisan", res.SchemeName)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantScore, res.Score)
			assert.Equal(t, tt.wantMatched, res.Matched)
			assert.Equal(t, tt.wantFailed, res.Failed)
			assert.Equal(t, tt.wantMissing, res.Missing)
			assert.Empty(t, res.Explanation)
		})
	}
}

func TestEvaluate_NoRules(t *testing.T) {
	for _, rules := range []*RuleSet{nil, {}, {DisabilityRequired: Bool(true)}} {
		res := Evaluate(Profile{}, Scheme{ID: "s", Name: "Open", Rules: rules})
		assert.Equal(t, FullyEligible, res.Status)
		assert.Equal(t, 100, res.Score)
		assert.Equal(t, "No specific rules defined for this scheme.", res.Explanation)
		assert.Empty(t, res.Matched)
		assert.Empty(t, res.Failed)
		assert.Empty(t, res.Missing)
	}
}

func TestEvaluate_CentralPassesAnyState(t *testing.T) {
	rules := &RuleSet{StateSpecific: []string{"Central"}}

	res := Evaluate(Profile{State: String("Assam")}, Scheme{Rules: rules})
	assert.Equal(t, []Axis{AxisState}, res.Matched)

	res = Evaluate(Profile{}, Scheme{Rules: rules})
	assert.Equal(t, []Axis{AxisState}, res.Missing)
}

func TestEvaluate_ZeroValueConstraints(t *testing.T) {
	t.Run("max income zero", func(t *testing.T) {
		rules := &RuleSet{MaxIncome: Float(0)}
		assert.Equal(t, FullyEligible, Evaluate(Profile{Income: Float(0)}, Scheme{Rules: rules}).Status)
		assert.Equal(t, NotEligible, Evaluate(Profile{Income: Float(1)}, Scheme{Rules: rules}).Status)
		assert.Equal(t, PartiallyEligible, Evaluate(Profile{}, Scheme{Rules: rules}).Status)
	})

	t.Run("min age zero", func(t *testing.T) {
		rules := &RuleSet{MinAge: Int(0)}
		res := Evaluate(Profile{Age: Float(0)}, Scheme{Rules: rules})
		assert.Equal(t, []Axis{AxisAge}, res.Matched)
	})

	t.Run("age bounds inclusive and independent", func(t *testing.T) {
		rules := &RuleSet{MaxAge: Int(60)}
		assert.Equal(t, FullyEligible, Evaluate(Profile{Age: Float(60)}, Scheme{Rules: rules}).Status)
		assert.Equal(t, NotEligible, Evaluate(Profile{Age: Float(61)}, Scheme{Rules: rules}).Status)
		assert.Equal(t, NotEligible, Evaluate(Profile{Age: Float(60.5)}, Scheme{Rules: rules}).Status)
		assert.Equal(t, FullyEligible, Evaluate(Profile{Age: Float(59.9)}, Scheme{Rules: rules}).Status)
	})
}

func TestEvaluate_CategoryAllowList(t *testing.T) {
	rules := &RuleSet{RequiredCategory: []string{"SC", "ST"}}

	assert.Equal(t, []Axis{AxisCategory}, Evaluate(Profile{Category: String("ST")}, Scheme{Rules: rules}).Matched)
	assert.Equal(t, []Axis{AxisCategory}, Evaluate(Profile{Category: String("General")}, Scheme{Rules: rules}).Failed)
}

// Exhaustive over a small grid of profiles and rule sets.
func TestEvaluate_Laws(t *testing.T) {
	profiles := []Profile{
		{},
		farmerProfile(),
		{Age: Float(16), State: String("Kerala")},
		{Income: Float(0), Category: String("OBC")},
		{Occupation: String("Student"), State: String("Gujarat")},
	}
	ruleSets := []*RuleSet{
		nil,
		farmerRules(),
		{MinAge: Int(18), MaxAge: Int(40)},
		{RequiredCategory: []string{"OBC"}, MaxIncome: Float(100000)},
		{StateSpecific: []string{"Central"}, OccupationRequired: []string{"Student"}},
	}

	for _, p := range profiles {
		for _, r := range ruleSets {
			res := Evaluate(p, Scheme{ID: "x", Rules: r})

			assert.Equal(t, res, Evaluate(p, Scheme{ID: "x", Rules: r}), "deterministic")
			assert.Equal(t, len(res.Failed) > 0, res.Status == NotEligible)
			assert.Equal(t, len(res.Failed) == 0 && len(res.Missing) == 0, res.Status == FullyEligible)

			seen := map[Axis]int{}
			for _, list := range [][]Axis{res.Matched, res.Failed, res.Missing} {
				for _, a := range list {
					seen[a]++
				}
			}
			for a, n := range seen {
				assert.Equal(t, 1, n, "axis %s listed more than once", a)
			}
		}
	}
}

func TestEvaluate_AddingUnconstrainedAxisChangesNothing(t *testing.T) {
	base := &RuleSet{MinAge: Int(18)}
	p := Profile{Age: Float(20), Income: Float(5)}

	withFlag := *base
	withFlag.StudentStatusRequired = Bool(true)

	assert.Equal(t, Evaluate(p, Scheme{Rules: base}), Evaluate(p, Scheme{Rules: &withFlag}))
}
