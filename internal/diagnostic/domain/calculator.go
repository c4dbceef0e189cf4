package domain

import "math"

// Multipliers records the factors a result was computed with.
type Multipliers struct {
	Area     float64 `json:"area"`
	Control  float64 `json:"control"`
	Fixation float64 `json:"fixation"`
	// Total is rounded to two decimals for display.
	Total float64 `json:"total"`
}

// LossResult is the estimate for one completed questionnaire. Amounts are
// whole rubles and always multiples of 1000.
type LossResult struct {
	Min           int64       `json:"min"`
	Avg           int64       `json:"avg"`
	Max           int64       `json:"max"`
	StageName     string      `json:"stageName"`
	Examples      []Example   `json:"examples"`
	EmotionalHook string      `json:"emotionalHook"`
	Checkpoint    string      `json:"checkpoint"`
	Multipliers   Multipliers `json:"multipliers"`
}

// Calculator turns four answer codes into a LossResult.
type Calculator struct {
	policies *PolicyTable
}

// NewCalculator creates a calculator over policies.
func NewCalculator(policies *PolicyTable) *Calculator {
	return &Calculator{policies: policies}
}

// Compute is pure: identical inputs give identical results. A missing policy
// or multiplier row is a configuration error, never a default.
func (c *Calculator) Compute(stage Stage, area Area, control Control, fixation Fixation) (LossResult, error) {
	policy, err := c.policies.Lookup(stage)
	if err != nil {
		return LossResult{}, err
	}
	areaMult, err := c.policies.AreaMultiplier(area)
	if err != nil {
		return LossResult{}, err
	}
	controlMult, err := c.policies.ControlMultiplier(control)
	if err != nil {
		return LossResult{}, err
	}
	fixationMult, err := c.policies.FixationMultiplier(fixation)
	if err != nil {
		return LossResult{}, err
	}

	total := areaMult * controlMult * fixationMult

	baseMin := float64(policy.BaseLossRange.Min)
	baseMax := float64(policy.BaseLossRange.Max)
	baseAvg := (baseMin + baseMax) / 2

	return LossResult{
		Min:           thousands(baseMin * total),
		Avg:           thousands(baseAvg * total),
		Max:           thousands(baseMax * total),
		StageName:     policy.Name,
		Examples:      c.selectExamples(stage, control, policy.Examples),
		EmotionalHook: policy.EmotionalHook,
		Checkpoint:    policy.Checkpoint,
		Multipliers: Multipliers{
			Area:     areaMult,
			Control:  controlMult,
			Fixation: fixationMult,
			Total:    math.RoundToEven(total*100) / 100,
		},
	}, nil
}

// thousands rounds a value in thousands half-to-even and scales to rubles.
func thousands(v float64) int64 {
	return int64(math.RoundToEven(v)) * 1000
}

func (c *Calculator) selectExamples(stage Stage, control Control, canned []Example) []Example {
	if stage == StageNotStarted && control == ControlSelf {
		out := c.policies.SelfControlExamples()[:2]
		if len(canned) > 0 {
			out = append(out, canned[0])
		}
		return out
	}
	return append([]Example(nil), canned...)
}
