package agent

import (
	"context"

	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/platform/logger"
)

// Input is what a personalizer knows about a finished diagnostic.
type Input struct {
	Stage    domain.Stage
	Area     domain.Area
	Control  domain.Control
	Fixation domain.Fixation
	AvgLoss  int64
	// Examples are the calculator's examples for the answer combination.
	Examples []domain.Example
}

// Personalization is the text layered on top of a loss result.
type Personalization struct {
	Recommendation     string           `json:"recommendation"`
	Emotional          string           `json:"emotional"`
	Examples           []domain.Example `json:"examples"`
	EngagementQuestion string           `json:"engagementQuestion,omitempty"`
}

// Personalizer turns a diagnostic into recommendation text.
type Personalizer interface {
	Personalize(ctx context.Context, in Input) (Personalization, error)
}

// StaticPersonalizer builds the personalization from the policy table only.
type StaticPersonalizer struct {
	policies *domain.PolicyTable
}

func NewStaticPersonalizer(policies *domain.PolicyTable) *StaticPersonalizer {
	return &StaticPersonalizer{policies: policies}
}

func (p *StaticPersonalizer) Personalize(_ context.Context, in Input) (Personalization, error) {
	policy, err := p.policies.Lookup(in.Stage)
	if err != nil {
		return Personalization{}, err
	}
	return Personalization{
		Recommendation:     policy.Recommendation,
		Emotional:          p.policies.EmotionalFraming(in.AvgLoss),
		Examples:           append([]domain.Example(nil), in.Examples...),
		EngagementQuestion: policy.EngagementQuestion,
	}, nil
}

// Fallback tries primary and answers from secondary when primary fails.
type Fallback struct {
	primary   Personalizer
	secondary Personalizer
	log       *logger.Logger
}

func NewFallback(primary, secondary Personalizer, log *logger.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, log: log}
}

func (f *Fallback) Personalize(ctx context.Context, in Input) (Personalization, error) {
	out, err := f.primary.Personalize(ctx, in)
	if err == nil {
		return out, nil
	}
	f.log.WithContext(ctx).Warn("personalization failed, using static text", "stage", in.Stage, "error", err)
	return f.secondary.Personalize(ctx, in)
}
