// Package domain holds the renovation diagnostic core: answer codes, the
// stage policy table, the loss calculator and the questionnaire state
// machine. Nothing in this package performs I/O.
package domain

// Dimension identifies one of the four questionnaire axes.
type Dimension string

const (
	DimensionStage    Dimension = "stage"
	DimensionArea     Dimension = "area"
	DimensionControl  Dimension = "control"
	DimensionFixation Dimension = "fixation"
)

// Stage is the renovation lifecycle phase.
type Stage string

const (
	StageNotStarted Stage = "not_started"
	StageDemolition Stage = "demolition"
	StageRough      Stage = "rough"
	StageFinishing  Stage = "finishing"
	StageLiving     Stage = "living"
)

// AllStages lists stage codes in questionnaire order.
var AllStages = []Stage{StageNotStarted, StageDemolition, StageRough, StageFinishing, StageLiving}

// Area is the renovation size band.
type Area string

const (
	AreaSmall   Area = "small"
	AreaMedium  Area = "medium"
	AreaLarge   Area = "large"
	AreaXLarge  Area = "xlarge"
	AreaUnknown Area = "unknown"
)

// AllAreas lists area codes in option order.
var AllAreas = []Area{AreaSmall, AreaMedium, AreaLarge, AreaXLarge, AreaUnknown}

// Control describes who accepts contractor work.
type Control string

const (
	ControlSelf    Control = "self"
	ControlForeman Control = "foreman"
	ControlNobody  Control = "nobody"
	ControlUnknown Control = "unknown"
	ControlSkip    Control = "skip"
)

// AllControls lists every control code including skip.
var AllControls = []Control{ControlSelf, ControlForeman, ControlNobody, ControlUnknown, ControlSkip}

// Fixation describes how hidden works are documented.
type Fixation string

const (
	FixationFull        Fixation = "full"
	FixationPartial     Fixation = "partial"
	FixationNone        Fixation = "none"
	FixationPlannedFull Fixation = "planned_full"
	FixationPlannedNone Fixation = "planned_none"
	FixationSkip        Fixation = "skip"
)

// AllFixations lists every fixation code including skip.
var AllFixations = []Fixation{FixationFull, FixationPartial, FixationNone, FixationPlannedFull, FixationPlannedNone, FixationSkip}

// Code is satisfied by every typed answer code.
type Code interface {
	~string
}

func contains[C Code](set []C, code C) bool {
	for _, c := range set {
		if c == code {
			return true
		}
	}
	return false
}

// ParseStage validates a raw stage code.
func ParseStage(raw string) (Stage, bool) {
	s := Stage(raw)
	return s, contains(AllStages, s)
}

// ParseArea validates a raw area code.
func ParseArea(raw string) (Area, bool) {
	a := Area(raw)
	return a, contains(AllAreas, a)
}

// ParseControl validates a raw control code.
func ParseControl(raw string) (Control, bool) {
	c := Control(raw)
	return c, contains(AllControls, c)
}

// ParseFixation validates a raw fixation code.
func ParseFixation(raw string) (Fixation, bool) {
	f := Fixation(raw)
	return f, contains(AllFixations, f)
}
