package service

import (
	"context"
	"fmt"

	"repair_audit_backend/internal/diagnostic/agent"
	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/platform/apperr"
)

// EstimateInput is a stateless calculator request in answer codes. Control
// and Fixation may be omitted for stages that skip them.
type EstimateInput struct {
	Stage    domain.Stage
	Area     domain.Area
	Control  domain.Control
	Fixation domain.Fixation
}

// EstimateResult is a loss result with its personalization.
type EstimateResult struct {
	Loss            domain.LossResult     `json:"loss"`
	Personalization agent.Personalization `json:"personalization"`
}

// StageView describes one stage for clients that render their own forms.
type StageView struct {
	Code           domain.Stage        `json:"code"`
	Label          string              `json:"label"`
	Name           string              `json:"name"`
	BaseLossRange  domain.LossRange    `json:"baseLossRange"`
	SkipControl    bool                `json:"skipControl"`
	SkipFixation   bool                `json:"skipFixation"`
	RiskFactors    []domain.RiskFactor `json:"riskFactors"`
	Checkpoint     string              `json:"checkpoint"`
	ControlLabels  []string            `json:"controlLabels"`
	FixationLabels []string            `json:"fixationLabels"`
}

// Estimate runs the calculator without a session. Codes the stage skips are
// forced to skip; codes it asks for are required.
func (s *Service) Estimate(ctx context.Context, in EstimateInput) (EstimateResult, error) {
	if _, ok := domain.ParseStage(string(in.Stage)); !ok {
		return EstimateResult{}, apperr.Validation(fmt.Sprintf("unknown stage %q", in.Stage))
	}
	if _, ok := domain.ParseArea(string(in.Area)); !ok {
		return EstimateResult{}, apperr.Validation(fmt.Sprintf("unknown area %q", in.Area))
	}
	if _, ok := domain.ParseControl(string(in.Control)); in.Control != "" && !ok {
		return EstimateResult{}, apperr.Validation(fmt.Sprintf("unknown control %q", in.Control))
	}
	if _, ok := domain.ParseFixation(string(in.Fixation)); in.Fixation != "" && !ok {
		return EstimateResult{}, apperr.Validation(fmt.Sprintf("unknown fixation %q", in.Fixation))
	}

	policies := s.machine.Policies()
	if policies.SkipsControl(in.Stage) {
		in.Control = domain.ControlSkip
	} else if in.Control == "" || in.Control == domain.ControlSkip {
		return EstimateResult{}, apperr.Validation(fmt.Sprintf("control is required for stage %q", in.Stage))
	} else if !offered(domain.ControlOptions(in.Stage), in.Control) {
		return EstimateResult{}, apperr.Validation(fmt.Sprintf("control %q is not offered for stage %q", in.Control, in.Stage))
	}
	if policies.SkipsFixation(in.Stage) {
		in.Fixation = domain.FixationSkip
	} else if in.Fixation == "" || in.Fixation == domain.FixationSkip {
		return EstimateResult{}, apperr.Validation(fmt.Sprintf("fixation is required for stage %q", in.Stage))
	} else if !offered(domain.FixationOptions(in.Stage), in.Fixation) {
		return EstimateResult{}, apperr.Validation(fmt.Sprintf("fixation %q is not offered for stage %q", in.Fixation, in.Stage))
	}

	loss, err := s.machine.Calculator().Compute(in.Stage, in.Area, in.Control, in.Fixation)
	if err != nil {
		if domain.IsConfigurationError(err) {
			s.log.WithContext(ctx).ConfigurationError("diagnostic.estimate", err)
		}
		return EstimateResult{}, err
	}

	p, err := s.personalizer.Personalize(ctx, agent.Input{
		Stage:    in.Stage,
		Area:     in.Area,
		Control:  in.Control,
		Fixation: in.Fixation,
		AvgLoss:  loss.Avg,
		Examples: loss.Examples,
	})
	if err != nil {
		s.log.WithContext(ctx).Warn("personalization unavailable", "error", err)
		p = agent.Personalization{Emotional: loss.EmotionalHook, Examples: loss.Examples}
	}
	return EstimateResult{Loss: loss, Personalization: p}, nil
}

func offered[C domain.Code](options []domain.Option[C], code C) bool {
	_, ok := domain.LabelFor(options, code)
	return ok
}

// Stages lists every stage policy in questionnaire order.
func (s *Service) Stages() ([]StageView, error) {
	policies := s.machine.Policies()
	out := make([]StageView, 0, len(domain.AllStages))
	for _, opt := range domain.StageOptions() {
		p, err := policies.Lookup(opt.Code)
		if err != nil {
			return nil, err
		}
		out = append(out, StageView{
			Code:           opt.Code,
			Label:          opt.Label,
			Name:           p.Name,
			BaseLossRange:  p.BaseLossRange,
			SkipControl:    p.SkipControl,
			SkipFixation:   p.SkipFixation,
			RiskFactors:    p.RiskFactors,
			Checkpoint:     p.Checkpoint,
			ControlLabels:  domain.OptionLabels(domain.DimensionControl, opt.Code),
			FixationLabels: domain.OptionLabels(domain.DimensionFixation, opt.Code),
		})
	}
	return out, nil
}
