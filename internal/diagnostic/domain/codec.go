package domain

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// ErrInvalidAnswer is returned when a label does not belong to the option
// set of the question being answered. Callers re-prompt; nothing is guessed.
var ErrInvalidAnswer = errors.New("answer does not match any option")

// TooLateLabel is the living-stage control option meaning the work is done.
const TooLateLabel = "Уже поздно (ремонт закончен)"

const tooLatePhrase = "уже поздно"

// Option pairs a button label with the code it resolves to.
type Option[C Code] struct {
	Label string
	Code  C
}

var stageOptions = []Option[Stage]{
	{"Ещё не начали (только планирую)", StageNotStarted},
	{"Демонтаж (ломаем, убираем старое)", StageDemolition},
	{"Черновые работы (штукатурка, электрика)", StageRough},
	{"Чистовая отделка (плитка, обои, покраска)", StageFinishing},
	{"Уже живём после ремонта", StageLiving},
}

var areaOptions = []Option[Area]{
	{"До 50 м² (студия/1-комнатная)", AreaSmall},
	{"50-80 м² (2-комнатная)", AreaMedium},
	{"80-120 м² (3-комнатная)", AreaLarge},
	{"120+ м² (4+ комнат/дом)", AreaXLarge},
	{"Не знаю точно", AreaUnknown},
}

var controlOptions = []Option[Control]{
	{"Я сам/сама (но не специалист)", ControlSelf},
	{"Прораб/подрядчик (он отвечает за всё)", ControlForeman},
	{"Никто толком не контролирует", ControlNobody},
	{"Не думал(а) об этом", ControlUnknown},
}

// Living replaces the "never thought about it" option with "too late".
var controlOptionsLiving = []Option[Control]{
	{"Я сам/сама (но не специалист)", ControlSelf},
	{"Прораб/подрядчик (он отвечает за всё)", ControlForeman},
	{"Никто толком не контролирует", ControlNobody},
	{TooLateLabel, ControlSkip},
}

var fixationOptionsNotStarted = []Option[Fixation]{
	{"Планирую фиксировать всё фото/видео", FixationPlannedFull},
	{"Ещё не думал(а) об этом", FixationPlannedNone},
}

var fixationOptionsLiving = []Option[Fixation]{
	{"Были зафиксированы фото/видео", FixationFull},
	{"Фотографировали частично", FixationPartial},
	{"Ничего не фиксировали", FixationNone},
	{"Не помню/не знаю", FixationPlannedNone},
}

var fixationOptionsOther = []Option[Fixation]{
	{"Зафиксированы фото/видео полностью", FixationFull},
	{"Фотографировал(а) частично", FixationPartial},
	{"Никак не фиксировались, надеюсь на мастеров", FixationNone},
}

var folder = cases.Fold()

func lookup[C Code](options []Option[C], raw string) (C, bool) {
	label := strings.TrimSpace(raw)
	for _, o := range options {
		if o.Label == label {
			return o.Code, true
		}
	}
	var zero C
	return zero, false
}

func labels[C Code](options []Option[C]) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.Label
	}
	return out
}

// LabelFor returns the option label of code within options.
func LabelFor[C Code](options []Option[C], code C) (string, bool) {
	for _, o := range options {
		if o.Code == code {
			return o.Label, true
		}
	}
	return "", false
}

// ResolveStage maps a stage label to its code.
func ResolveStage(raw string) (Stage, error) {
	if code, ok := lookup(stageOptions, raw); ok {
		return code, nil
	}
	return "", ErrInvalidAnswer
}

// ResolveArea maps an area label to its code.
func ResolveArea(raw string) (Area, error) {
	if code, ok := lookup(areaOptions, raw); ok {
		return code, nil
	}
	return "", ErrInvalidAnswer
}

// ResolveControl maps a control label to its code using the label set of the
// given stage. Under the living stage any label containing "уже поздно"
// (case folded) resolves to skip.
func ResolveControl(raw string, stage Stage) (Control, error) {
	if stage == StageLiving && strings.Contains(folder.String(raw), folder.String(tooLatePhrase)) {
		return ControlSkip, nil
	}
	if code, ok := lookup(ControlOptions(stage), raw); ok {
		return code, nil
	}
	return "", ErrInvalidAnswer
}

// ResolveFixation maps a fixation label to its code using the label set of
// the given stage.
func ResolveFixation(raw string, stage Stage) (Fixation, error) {
	if code, ok := lookup(FixationOptions(stage), raw); ok {
		return code, nil
	}
	return "", ErrInvalidAnswer
}

// Resolve is the dimension-generic entry point. stage is only consulted for
// control and fixation.
func Resolve(dim Dimension, raw string, stage Stage) (string, error) {
	switch dim {
	case DimensionStage:
		code, err := ResolveStage(raw)
		return string(code), err
	case DimensionArea:
		code, err := ResolveArea(raw)
		return string(code), err
	case DimensionControl:
		code, err := ResolveControl(raw, stage)
		return string(code), err
	case DimensionFixation:
		code, err := ResolveFixation(raw, stage)
		return string(code), err
	default:
		return "", fmt.Errorf("unknown dimension %q", dim)
	}
}

// StageOptions returns the stage option set.
func StageOptions() []Option[Stage] { return stageOptions }

// AreaOptions returns the area option set.
func AreaOptions() []Option[Area] { return areaOptions }

// ControlOptions returns the control option set for stage.
func ControlOptions(stage Stage) []Option[Control] {
	if stage == StageLiving {
		return controlOptionsLiving
	}
	return controlOptions
}

// FixationOptions returns the fixation option set for stage.
func FixationOptions(stage Stage) []Option[Fixation] {
	switch stage {
	case StageNotStarted:
		return fixationOptionsNotStarted
	case StageLiving:
		return fixationOptionsLiving
	default:
		return fixationOptionsOther
	}
}

// OptionLabels returns the exact labels valid for dim under stage.
func OptionLabels(dim Dimension, stage Stage) []string {
	switch dim {
	case DimensionStage:
		return labels(stageOptions)
	case DimensionArea:
		return labels(areaOptions)
	case DimensionControl:
		return labels(ControlOptions(stage))
	case DimensionFixation:
		return labels(FixationOptions(stage))
	default:
		return nil
	}
}
