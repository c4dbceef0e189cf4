package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/platform/ai/moonshot"
)

const (
	aiAppName        = "diagnostic-personalizer"
	maxAIExamples    = 2
	personalizeLimit = 20 * time.Second
)

// AIPersonalizer asks a language model to rewrite the recommendation for the
// user's combination of answers. Fields the model leaves empty are filled
// from the static personalization.
type AIPersonalizer struct {
	base           *StaticPersonalizer
	runner         *runner.Runner
	sessionService session.Service
	runMu          sync.Mutex
}

// NewMoonshotPersonalizer wires the personalizer to the Kimi chat API in JSON mode.
func NewMoonshotPersonalizer(apiKey, modelName string, base *StaticPersonalizer) (*AIPersonalizer, error) {
	kimi := moonshot.NewModel(moonshot.Config{
		APIKey:          apiKey,
		Model:           modelName,
		JSONMode:        true,
		DisableThinking: true,
		Timeout:         personalizeLimit,
	})
	return NewAIPersonalizer(kimi, base)
}

// NewAIPersonalizer builds the agent over any model.LLM.
func NewAIPersonalizer(llm model.LLM, base *StaticPersonalizer) (*AIPersonalizer, error) {
	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "DiagnosticPersonalizer",
		Model:       llm,
		Description: "Writes a short personalized renovation risk recommendation.",
		Instruction: personalizerSystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create personalizer agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        aiAppName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create personalizer runner: %w", err)
	}

	return &AIPersonalizer{base: base, runner: r, sessionService: sessionService}, nil
}

func (p *AIPersonalizer) Personalize(ctx context.Context, in Input) (Personalization, error) {
	fallback, err := p.base.Personalize(ctx, in)
	if err != nil {
		return Personalization{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, personalizeLimit)
	defer cancel()

	output, err := p.run(ctx, buildPersonalizerPrompt(in, fallback))
	if err != nil {
		return Personalization{}, err
	}
	generated, err := parsePersonalization(output)
	if err != nil {
		return Personalization{}, err
	}
	return mergePersonalization(generated, fallback), nil
}

func (p *AIPersonalizer) run(ctx context.Context, prompt string) (string, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	userID := "diagnostic"
	sessionID := uuid.New().String()
	if _, err := p.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   aiAppName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return "", fmt.Errorf("personalizer: create session: %w", err)
	}
	defer func() {
		_ = p.sessionService.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   aiAppName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	msg := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}

	var out strings.Builder
	for event, err := range p.runner.Run(ctx, userID, sessionID, msg, agent.RunConfig{StreamingMode: agent.StreamingModeNone}) {
		if err != nil {
			return "", fmt.Errorf("personalizer: run failed: %w", err)
		}
		if event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			out.WriteString(part.Text)
		}
	}
	return out.String(), nil
}

func parsePersonalization(output string) (Personalization, error) {
	raw := strings.TrimSpace(output)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return Personalization{}, fmt.Errorf("personalizer: no JSON object in model output")
	}

	var out Personalization
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return Personalization{}, fmt.Errorf("personalizer: decode output: %w", err)
	}
	return out, nil
}

func mergePersonalization(generated, fallback Personalization) Personalization {
	out := fallback
	if s := strings.TrimSpace(generated.Recommendation); s != "" {
		out.Recommendation = s
	}
	if s := strings.TrimSpace(generated.Emotional); s != "" {
		out.Emotional = s
	}
	if s := strings.TrimSpace(generated.EngagementQuestion); s != "" {
		out.EngagementQuestion = s
	}

	examples := make([]domain.Example, 0, maxAIExamples)
	for _, ex := range generated.Examples {
		if strings.TrimSpace(ex.Title) == "" || strings.TrimSpace(ex.Scenario) == "" {
			continue
		}
		examples = append(examples, ex)
		if len(examples) == maxAIExamples {
			break
		}
	}
	if len(examples) > 0 {
		out.Examples = examples
	}
	return out
}

func buildPersonalizerPrompt(in Input, fallback Personalization) string {
	examples := make([]string, 0, len(in.Examples))
	for _, ex := range in.Examples {
		examples = append(examples, fmt.Sprintf("- %s (%s): %s", ex.Title, ex.LossRange, ex.Scenario))
	}

	return fmt.Sprintf(`Context:
- Stage: %s
- Area: %s
- Who accepts the work: %s
- Hidden works documentation: %s
- Average potential loss: %s

Known example risks:
%s

Baseline recommendation:
%s

Task:
Personalize the recommendation for this homeowner.
Rules:
- Answer in Russian, informal "ты".
- Return only a JSON object with keys "recommendation", "emotional", "examples", "engagementQuestion".
- "examples" holds at most 2 objects with keys "title", "lossRange", "scenario".
- Keep loss amounts consistent with the average potential loss; do not invent prices for products.
- No markdown headings, at most 3 sentences per text field.
`, in.Stage, in.Area, in.Control, in.Fixation, domain.FormatMoney(in.AvgLoss),
		strings.Join(examples, "\n"), fallback.Recommendation)
}

const personalizerSystemPrompt = "You are a renovation quality-control expert writing short, concrete, friendly advice for homeowners. You always answer with a single JSON object."
