package domain

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"repair_audit_backend/platform/apperr"
)

//go:embed policies.yaml
var defaultPolicyYAML []byte

// LossRange is a base loss range in thousands of rubles.
type LossRange struct {
	Min int64 `yaml:"min" json:"min"`
	Max int64 `yaml:"max" json:"max"`
}

// RiskFactor is a named stage risk with its weight.
type RiskFactor struct {
	Key         string  `yaml:"key" json:"key"`
	Multiplier  float64 `yaml:"multiplier" json:"multiplier"`
	Description string  `yaml:"description" json:"description"`
}

// Example is a canned loss narrative.
type Example struct {
	Title     string `yaml:"title" json:"title"`
	LossRange string `yaml:"loss_range" json:"lossRange"`
	Scenario  string `yaml:"scenario" json:"scenario"`
}

// StagePolicy is the static configuration of one stage.
type StagePolicy struct {
	Name               string       `yaml:"name"`
	BaseLossRange      LossRange    `yaml:"base_loss_range"`
	RiskFactors        []RiskFactor `yaml:"risk_factors"`
	SkipControl        bool         `yaml:"skip_control"`
	SkipFixation       bool         `yaml:"skip_fixation"`
	Examples           []Example    `yaml:"examples"`
	EmotionalHook      string       `yaml:"emotional_hook"`
	Checkpoint         string       `yaml:"checkpoint"`
	Comment            string       `yaml:"comment"`
	Recommendation     string       `yaml:"recommendation"`
	EngagementQuestion string       `yaml:"engagement_question"`
}

// EmotionalBand frames an average loss of at least Min rubles.
type EmotionalBand struct {
	Min  int64  `yaml:"min"`
	Text string `yaml:"text"`
}

// Comments are the acknowledgements sent after accepted answers.
type Comments struct {
	AreaKnown   string              `yaml:"area_known"`
	AreaUnknown string              `yaml:"area_unknown"`
	Control     map[Control]string  `yaml:"control"`
	Fixation    map[Fixation]string `yaml:"fixation"`
}

// QuestionTexts holds prompt wording per question variant.
type QuestionTexts struct {
	Stage              string `yaml:"stage"`
	Area               string `yaml:"area"`
	Control            string `yaml:"control"`
	ControlLiving      string `yaml:"control_living"`
	Fixation           string `yaml:"fixation"`
	FixationNotStarted string `yaml:"fixation_not_started"`
	FixationLiving     string `yaml:"fixation_living"`
}

type multiplierTables struct {
	Area     map[Area]float64     `yaml:"area"`
	Control  map[Control]float64  `yaml:"control"`
	Fixation map[Fixation]float64 `yaml:"fixation"`
}

type policyDocument struct {
	Multipliers         multiplierTables      `yaml:"multipliers"`
	SelfControlExamples []Example             `yaml:"self_control_examples"`
	Stages              map[Stage]StagePolicy `yaml:"stages"`
	EmotionalBands      []EmotionalBand       `yaml:"emotional_bands"`
	Comments            Comments              `yaml:"comments"`
	Questions           QuestionTexts         `yaml:"questions"`
}

// PolicyTable is the read-only stage policy and multiplier configuration.
// It is safe for concurrent use once loaded.
type PolicyTable struct {
	stages              map[Stage]StagePolicy
	area                map[Area]float64
	control             map[Control]float64
	fixation            map[Fixation]float64
	selfControlExamples []Example
	emotionalBands      []EmotionalBand
	comments            Comments
	questions           QuestionTexts
}

// DefaultPolicyTable parses the embedded policy document.
func DefaultPolicyTable() (*PolicyTable, error) {
	return ParsePolicyTable(defaultPolicyYAML)
}

// LoadPolicyTable reads path when set and falls back to the embedded table.
func LoadPolicyTable(path string) (*PolicyTable, error) {
	if path == "" {
		return DefaultPolicyTable()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, "read policy file", err).WithOp(path)
	}
	return ParsePolicyTable(data)
}

// ParsePolicyTable decodes and validates a policy document.
func ParsePolicyTable(data []byte) (*PolicyTable, error) {
	var doc policyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, "decode policy document", err)
	}

	bands := append([]EmotionalBand(nil), doc.EmotionalBands...)
	sort.SliceStable(bands, func(i, j int) bool { return bands[i].Min > bands[j].Min })

	table := &PolicyTable{
		stages:              doc.Stages,
		area:                doc.Multipliers.Area,
		control:             doc.Multipliers.Control,
		fixation:            doc.Multipliers.Fixation,
		selfControlExamples: doc.SelfControlExamples,
		emotionalBands:      bands,
		comments:            doc.Comments,
		questions:           doc.Questions,
	}
	if err := table.validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func configurationError(format string, args ...any) error {
	return apperr.Configuration(fmt.Sprintf(format, args...))
}

// IsConfigurationError reports whether err marks a gap in the policy table.
func IsConfigurationError(err error) bool {
	return apperr.Is(err, apperr.KindConfiguration)
}

func (t *PolicyTable) validate() error {
	for _, stage := range AllStages {
		p, ok := t.stages[stage]
		if !ok {
			return configurationError("no policy for stage %q", stage)
		}
		if p.BaseLossRange.Min < 0 || p.BaseLossRange.Min > p.BaseLossRange.Max {
			return configurationError("stage %q has invalid base range %d-%d", stage, p.BaseLossRange.Min, p.BaseLossRange.Max)
		}
		if len(p.Examples) == 0 {
			return configurationError("stage %q has no examples", stage)
		}
		if p.Checkpoint == "" {
			return configurationError("stage %q has no checkpoint", stage)
		}
	}
	if len(t.stages) != len(AllStages) {
		return configurationError("policy declares %d stages, want %d", len(t.stages), len(AllStages))
	}
	if err := validateMultipliers("area", AllAreas, t.area); err != nil {
		return err
	}
	if err := validateMultipliers("control", AllControls, t.control); err != nil {
		return err
	}
	if err := validateMultipliers("fixation", AllFixations, t.fixation); err != nil {
		return err
	}
	if len(t.selfControlExamples) < 2 {
		return configurationError("policy needs two self-control examples, got %d", len(t.selfControlExamples))
	}
	return nil
}

func validateMultipliers[C Code](name string, codes []C, table map[C]float64) error {
	for _, code := range codes {
		m, ok := table[code]
		if !ok {
			return configurationError("%s multiplier missing for %q", name, code)
		}
		if m <= 0 {
			return configurationError("%s multiplier for %q must be positive, got %v", name, code, m)
		}
	}
	return nil
}

// Lookup returns the policy of stage.
func (t *PolicyTable) Lookup(stage Stage) (StagePolicy, error) {
	p, ok := t.stages[stage]
	if !ok {
		return StagePolicy{}, configurationError("no policy for stage %q", stage)
	}
	return p, nil
}

// SkipsControl reports whether the control question is elided for stage.
func (t *PolicyTable) SkipsControl(stage Stage) bool {
	return t.stages[stage].SkipControl
}

// SkipsFixation reports whether the fixation question is elided for stage.
func (t *PolicyTable) SkipsFixation(stage Stage) bool {
	return t.stages[stage].SkipFixation
}

// AreaMultiplier returns the area row.
func (t *PolicyTable) AreaMultiplier(area Area) (float64, error) {
	m, ok := t.area[area]
	if !ok {
		return 0, configurationError("area multiplier missing for %q", area)
	}
	return m, nil
}

// ControlMultiplier returns the control row; skip has its own row.
func (t *PolicyTable) ControlMultiplier(control Control) (float64, error) {
	m, ok := t.control[control]
	if !ok {
		return 0, configurationError("control multiplier missing for %q", control)
	}
	return m, nil
}

// FixationMultiplier returns the fixation row; skip has its own row.
func (t *PolicyTable) FixationMultiplier(fixation Fixation) (float64, error) {
	m, ok := t.fixation[fixation]
	if !ok {
		return 0, configurationError("fixation multiplier missing for %q", fixation)
	}
	return m, nil
}

// SelfControlExamples returns a copy of the self-control example pair.
func (t *PolicyTable) SelfControlExamples() []Example {
	return append([]Example(nil), t.selfControlExamples...)
}

// EmotionalFraming returns the band text for an average loss in rubles.
func (t *PolicyTable) EmotionalFraming(avgLoss int64) string {
	for _, band := range t.emotionalBands {
		if avgLoss >= band.Min {
			return band.Text
		}
	}
	return ""
}

// Comments returns the acknowledgement texts.
func (t *PolicyTable) Comments() Comments { return t.comments }

// Questions returns the prompt wording.
func (t *PolicyTable) Questions() QuestionTexts { return t.questions }
