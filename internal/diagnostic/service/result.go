package service

import (
	"context"
	"fmt"
	"strings"

	"repair_audit_backend/internal/diagnostic/agent"
	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/internal/events"
)

const maxShownExamples = 2

// renderCompletion appends the calculating sequence, the result and the
// reflection messages, then offers the solution button.
func (s *Service) renderCompletion(ctx context.Context, session *domain.Session, result domain.LossResult, r *Reply) {
	for _, line := range calculatingSteps {
		r.say(line, calculatingDelayMs)
	}

	view := s.buildResultView(ctx, session, result)
	r.Result = &view
	r.say(renderResult(view), resultDelayMs)

	if q := view.Personalization.EngagementQuestion; q != "" {
		r.say("💭 *Вопрос для размышления:*\n\n"+q, reflectionDelayMs)
	}
	r.say(resultsPauseText, reflectionDelayMs)
	r.say(wantSolutionText, 0)
	r.Options = []string{domain.ShowSolutionLabel}

	s.eventBus.Publish(ctx, events.DiagnosticCompleted{
		BaseEvent:       events.NewBaseEvent(),
		SessionID:       session.ID,
		Channel:         session.Channel,
		Stage:           string(session.Stage.Code),
		Area:            string(session.Area.Code),
		Control:         string(session.Control.Code),
		Fixation:        string(session.Fixation.Code),
		LossMin:         result.Min,
		LossAvg:         result.Avg,
		LossMax:         result.Max,
		TotalMultiplier: result.Multipliers.Total,
	})
}

func (s *Service) buildResultView(ctx context.Context, session *domain.Session, result domain.LossResult) ResultView {
	labels := EchoedLabels{
		Stage: session.Stage.Label,
		Area:  session.Area.Label,
	}
	if session.Control.Code != domain.ControlSkip {
		labels.Control = session.Control.Label
	}
	if session.Fixation.Code != domain.FixationSkip {
		labels.Fixation = session.Fixation.Label
	}

	in := agent.Input{
		Stage:    session.Stage.Code,
		Area:     session.Area.Code,
		Control:  session.Control.Code,
		Fixation: session.Fixation.Code,
		AvgLoss:  result.Avg,
		Examples: result.Examples,
	}
	p, err := s.personalizer.Personalize(ctx, in)
	if err != nil {
		// the result is still shown with the calculator's own texts
		s.log.WithContext(ctx).Warn("personalization unavailable", "error", err)
		p = agent.Personalization{
			Emotional: result.EmotionalHook,
			Examples:  result.Examples,
		}
	}
	return ResultView{Loss: result, Labels: labels, Personalization: p}
}

func renderResult(v ResultView) string {
	var b strings.Builder
	b.WriteString("🎯 *ТВОЙ ПЕРСОНАЛИЗИРОВАННЫЙ ДИАГНОЗ:*\n\n")
	fmt.Fprintf(&b, "🔹 *Стадия:* %s\n", v.Labels.Stage)
	fmt.Fprintf(&b, "🔹 *Площадь:* %s\n", v.Labels.Area)
	if v.Labels.Control != "" {
		fmt.Fprintf(&b, "🔹 *Контроль:* %s\n", v.Labels.Control)
	}
	if v.Labels.Fixation != "" {
		fmt.Fprintf(&b, "🔹 *Фиксация:* %s\n", v.Labels.Fixation)
	}

	if rec := v.Personalization.Recommendation; rec != "" {
		b.WriteString("\n" + rec + "\n")
	}

	b.WriteString("\n💸 *ТВОИ ПОТЕНЦИАЛЬНЫЕ ПОТЕРИ:*\n\n")
	fmt.Fprintf(&b, "• Минимально: *%s*\n", domain.FormatMoney(v.Loss.Min))
	fmt.Fprintf(&b, "• Скорее всего: *%s*\n", domain.FormatMoney(v.Loss.Avg))
	fmt.Fprintf(&b, "• Максимально: *%s*\n", domain.FormatMoney(v.Loss.Max))

	if v.Loss.EmotionalHook != "" {
		b.WriteString("\n" + v.Loss.EmotionalHook + "\n")
	}

	examples := v.Personalization.Examples
	if len(examples) > maxShownExamples {
		examples = examples[:maxShownExamples]
	}
	if len(examples) > 0 {
		b.WriteString("\n⚡ *КОНКРЕТНЫЕ РИСКИ ДЛЯ ТВОЕГО СЦЕНАРИЯ:*\n")
		for i, ex := range examples {
			fmt.Fprintf(&b, "\n%d. *%s*\n   💸 Потеря: *%s*\n   📖 %s\n", i+1, ex.Title, ex.LossRange, ex.Scenario)
		}
	}

	fmt.Fprintf(&b, "\n📌 *Ключевая точка контроля:* %s\n", v.Loss.Checkpoint)
	if emo := v.Personalization.Emotional; emo != "" {
		b.WriteString("\n" + emo + "\n")
	}
	fmt.Fprintf(&b, "\n💰 *ТВОЙ СРЕДНИЙ РИСК:* %s", domain.FormatMoney(v.Loss.Avg))
	return b.String()
}
