package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repair_audit_backend/internal/diagnostic/agent"
	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/internal/diagnostic/repository"
	"repair_audit_backend/internal/events"
	"repair_audit_backend/platform/apperr"
	"repair_audit_backend/platform/logger"
)

var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

type funnelStub struct{}

func (funnelStub) GetExpertPhone() string    { return "+79615223190" }
func (funnelStub) GetExpertTelegram() string { return "@systemkontrolrem" }
func (funnelStub) GetPriceNormal() int       { return 9900 }
func (funnelStub) GetPriceDiscount() int     { return 4900 }
func (funnelStub) GetPriceVIP() int          { return 29900 }
func (funnelStub) GetPaymentURL() string     { return "https://t.me/systemkontrolrem" }
func (funnelStub) GetEstimateBot() string    { return "@repair_estimate_bot" }
func (funnelStub) GetAIBot() string          { return "@repair_ai_bot" }

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) named(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.published {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type brokenPersonalizer struct{}

func (brokenPersonalizer) Personalize(context.Context, agent.Input) (agent.Personalization, error) {
	return agent.Personalization{}, errors.New("offline")
}

type fixture struct {
	svc   *Service
	store *repository.MemoryStore
	bus   *recordingBus
}

func newFixture(t *testing.T, personalizer agent.Personalizer) *fixture {
	t.Helper()
	table, err := domain.DefaultPolicyTable()
	require.NoError(t, err)
	if personalizer == nil {
		personalizer = agent.NewStaticPersonalizer(table)
	}
	clock := func() time.Time { return fixedNow }
	store := repository.NewMemoryStore()
	bus := &recordingBus{}
	svc := New(domain.NewMachine(table, domain.WithClock(clock)), store, personalizer, bus, funnelStub{}, logger.Discard(), WithClock(clock))
	return &fixture{svc: svc, store: store, bus: bus}
}

func (f *fixture) send(t *testing.T, ev InboundEvent) Reply {
	t.Helper()
	reply, err := f.svc.Handle(context.Background(), "s-1", ev)
	require.NoError(t, err)
	return reply
}

func (f *fixture) answer(t *testing.T, text string) Reply {
	t.Helper()
	return f.send(t, InboundEvent{Type: EventAnswer, Text: text})
}

func stageLabel(t *testing.T, code domain.Stage) string {
	t.Helper()
	l, ok := domain.LabelFor(domain.StageOptions(), code)
	require.True(t, ok)
	return l
}

func areaLabel(t *testing.T, code domain.Area) string {
	t.Helper()
	l, ok := domain.LabelFor(domain.AreaOptions(), code)
	require.True(t, ok)
	return l
}

func controlLabel(t *testing.T, stage domain.Stage, code domain.Control) string {
	t.Helper()
	l, ok := domain.LabelFor(domain.ControlOptions(stage), code)
	require.True(t, ok)
	return l
}

func texts(r Reply) string {
	parts := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "\n---\n")
}

// completeNotStarted runs not_started / medium / self to the results.
func completeNotStarted(t *testing.T, f *fixture) Reply {
	t.Helper()
	f.send(t, InboundEvent{Type: EventStart, Channel: "web"})
	f.answer(t, stageLabel(t, domain.StageNotStarted))
	f.answer(t, areaLabel(t, domain.AreaMedium))
	return f.answer(t, controlLabel(t, domain.StageNotStarted, domain.ControlSelf))
}

func TestStartAsksFirstQuestion(t *testing.T) {
	f := newFixture(t, nil)

	reply := f.send(t, InboundEvent{Type: EventStart, Channel: "web"})

	assert.Equal(t, "s-1", reply.SessionID)
	assert.Equal(t, domain.StateAwaitingStage, reply.State)
	require.NotNil(t, reply.Prompt)
	assert.Equal(t, domain.DimensionStage, reply.Prompt.QuestionID)
	assert.NotContains(t, reply.Options, domain.BackLabel)
	assert.Len(t, f.bus.named("diagnostic.started"), 1)
}

func TestCompletionRendersResultAndPublishes(t *testing.T) {
	f := newFixture(t, nil)

	reply := completeNotStarted(t, f)

	assert.Equal(t, domain.StateShowingResults, reply.State)
	assert.Equal(t, []string{domain.ShowSolutionLabel}, reply.Options)
	first := -1
	for i, m := range reply.Messages {
		if m.Text == calculatingSteps[0] {
			first = i
			break
		}
	}
	require.GreaterOrEqual(t, first, 0)
	for i, line := range calculatingSteps {
		assert.Equal(t, line, reply.Messages[first+i].Text)
		assert.Equal(t, calculatingDelayMs, reply.Messages[first+i].DelayMs)
	}

	// not_started base 50..300 thousand, medium 1.0, self 1.4, skip 1.0.
	require.NotNil(t, reply.Result)
	assert.Equal(t, 1.4, reply.Result.Loss.Multipliers.Total)
	assert.Equal(t, int64(70000), reply.Result.Loss.Min)
	assert.Equal(t, int64(245000), reply.Result.Loss.Avg)
	assert.Equal(t, int64(420000), reply.Result.Loss.Max)
	assert.Empty(t, reply.Result.Labels.Fixation)
	assert.NotEmpty(t, reply.Result.Labels.Control)

	all := texts(reply)
	assert.Contains(t, all, "*Стадия:* "+stageLabel(t, domain.StageNotStarted))
	assert.Contains(t, all, "*Контроль:*")
	assert.NotContains(t, all, "*Фиксация:*")
	assert.Contains(t, all, "245 тыс ₽")

	completed := f.bus.named("diagnostic.completed")
	require.Len(t, completed, 1)
	ev := completed[0].(events.DiagnosticCompleted)
	assert.Equal(t, "skip", ev.Fixation)
	assert.Equal(t, reply.Result.Loss.Avg, ev.LossAvg)
	assert.Equal(t, int64(245000), ev.LossAvg)
}

func TestLivingResultOmitsControlLine(t *testing.T) {
	f := newFixture(t, nil)
	f.send(t, InboundEvent{Type: EventStart})
	f.answer(t, stageLabel(t, domain.StageLiving))
	reply := f.answer(t, areaLabel(t, domain.AreaSmall))
	require.Equal(t, domain.StateAwaitingFixation, reply.State)

	reply = f.answer(t, "Ничего не фиксировали")

	require.NotNil(t, reply.Result)
	assert.Empty(t, reply.Result.Labels.Control)
	assert.NotContains(t, texts(reply), "*Контроль:*")
	assert.Contains(t, texts(reply), "*Фиксация:* Ничего не фиксировали")
}

func TestInvalidAnswerRepromptsWithBackButton(t *testing.T) {
	f := newFixture(t, nil)
	f.send(t, InboundEvent{Type: EventStart})
	f.answer(t, stageLabel(t, domain.StageRough))

	reply := f.answer(t, "сто квадратов")

	assert.Equal(t, domain.StateAwaitingArea, reply.State)
	assert.Equal(t, domain.NoticeInvalidAnswer, reply.Messages[0].Text)
	assert.Contains(t, reply.Options, domain.BackLabel)
	assert.Equal(t, domain.DimensionArea, reply.Prompt.QuestionID)
}

func TestBackEventReturnsToPreviousQuestion(t *testing.T) {
	f := newFixture(t, nil)
	f.send(t, InboundEvent{Type: EventStart})
	f.answer(t, stageLabel(t, domain.StageRough))

	reply := f.send(t, InboundEvent{Type: EventBack})

	assert.Equal(t, domain.StateAwaitingStage, reply.State)
	assert.Equal(t, domain.NoticeBackToStage, reply.Messages[0].Text)

	reply = f.send(t, InboundEvent{Type: EventBack})
	assert.Equal(t, domain.NoticeFirstQuestion, reply.Messages[0].Text)
}

func TestOfferFunnelAndPhoneCapture(t *testing.T) {
	f := newFixture(t, nil)
	completeNotStarted(t, f)

	reply := f.answer(t, "что дальше?")
	assert.Equal(t, pickAboveText, reply.Messages[0].Text)

	reply = f.answer(t, domain.ShowSolutionLabel)
	assert.Equal(t, domain.StateChoosingOffer, reply.State)
	assert.Equal(t, domain.OfferMenu, reply.Options)
	assert.Contains(t, texts(reply), priceText.Sprintf("%d ₽", 4900))

	reply = f.answer(t, domain.BuyLabel)
	require.Len(t, reply.Messages, 1)
	require.Len(t, reply.Messages[0].Links, 4)
	assert.Equal(t, "https://t.me/systemkontrolrem", reply.Messages[0].Links[0].URL)

	reply = f.answer(t, domain.LeavePhoneLabel)
	assert.Equal(t, domain.StateAwaitingPhone, reply.State)
	assert.Equal(t, domain.PhoneMenu, reply.Options)

	reply = f.answer(t, "позвоните мне")
	assert.Equal(t, invalidPhoneText, reply.Messages[0].Text)
	assert.Equal(t, domain.StateAwaitingPhone, reply.State)

	reply = f.answer(t, "8 (961) 522-31-90")
	assert.Equal(t, domain.StateChoosingOffer, reply.State)
	assert.Contains(t, reply.Messages[0].Text, "+79615223190")

	session, err := f.svc.Snapshot(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "+79615223190", session.Phone)

	captured := f.bus.named("leads.phone.captured")
	require.Len(t, captured, 1)
	ev := captured[0].(events.PhoneCaptured)
	assert.Equal(t, "not_started", ev.Stage)
	assert.Equal(t, int64(245000), ev.LossAvg)

	offers := f.bus.named("diagnostic.offer.selected")
	assert.Len(t, offers, 2)
}

func TestSharedContactIsAccepted(t *testing.T) {
	f := newFixture(t, nil)
	completeNotStarted(t, f)
	f.answer(t, domain.ShowSolutionLabel)
	f.answer(t, domain.LeavePhoneLabel)

	reply := f.send(t, InboundEvent{Type: EventContact, Phone: "+7 961 522-31-90"})

	assert.Equal(t, domain.StateChoosingOffer, reply.State)
	assert.Len(t, f.bus.named("leads.phone.captured"), 1)
}

func TestBackToOffersFromPhone(t *testing.T) {
	f := newFixture(t, nil)
	completeNotStarted(t, f)
	f.answer(t, domain.ShowSolutionLabel)
	f.answer(t, domain.LeavePhoneLabel)

	reply := f.answer(t, domain.ManualPhoneLabel)
	assert.Equal(t, manualPhoneText, reply.Messages[0].Text)

	reply = f.answer(t, domain.BackToOffersLabel)
	assert.Equal(t, domain.StateChoosingOffer, reply.State)
	assert.Empty(t, f.bus.named("leads.phone.captured"))
}

func TestExpertQuestionCapture(t *testing.T) {
	f := newFixture(t, nil)
	completeNotStarted(t, f)

	reply := f.send(t, InboundEvent{Type: EventCallback, Data: domain.CallbackAskQuestion})
	assert.Equal(t, domain.StateAwaitingQuestion, reply.State)

	reply = f.answer(t, "Как принять стяжку?")

	assert.Equal(t, domain.StateChoosingOffer, reply.State)
	assert.Contains(t, reply.Messages[0].Text, "Как принять стяжку?")
	asked := f.bus.named("leads.expert_question.asked")
	require.Len(t, asked, 1)
	assert.Equal(t, "Как принять стяжку?", asked[0].(events.ExpertQuestionAsked).Question)
}

func TestExpertQuestionIsCleanedBeforeForwarding(t *testing.T) {
	f := newFixture(t, nil)
	completeNotStarted(t, f)
	f.send(t, InboundEvent{Type: EventCallback, Data: domain.CallbackAskQuestion})

	reply := f.answer(t, "<p></p>")
	assert.Equal(t, domain.StateAwaitingQuestion, reply.State)
	assert.Empty(t, f.bus.named("leads.expert_question.asked"))

	f.answer(t, "<b>Сколько</b>   сохнет стяжка?")
	asked := f.bus.named("leads.expert_question.asked")
	require.Len(t, asked, 1)
	assert.Equal(t, "Сколько сохнет стяжка?", asked[0].(events.ExpertQuestionAsked).Question)
}

func TestContactExpertWorksFromAnyStateWithoutMovingIt(t *testing.T) {
	f := newFixture(t, nil)
	f.send(t, InboundEvent{Type: EventStart})
	f.answer(t, stageLabel(t, domain.StageFinishing))

	reply := f.answer(t, domain.NeedConsultLabel)

	assert.Equal(t, domain.StateAwaitingArea, reply.State)
	require.Len(t, reply.Messages, 1)
	assert.Contains(t, reply.Messages[0].Text, "+79615223190")
	assert.Equal(t, "https://t.me/systemkontrolrem", reply.Messages[0].Links[1].URL)
	assert.Contains(t, reply.Options, domain.BackLabel)
}

func TestCommands(t *testing.T) {
	f := newFixture(t, nil)

	reply := f.answer(t, "привет")
	assert.Equal(t, startPromptText, reply.Messages[0].Text)
	assert.Equal(t, domain.StateIdle, reply.State)

	reply = f.send(t, InboundEvent{Type: EventCommand, Text: "/help"})
	assert.Contains(t, reply.Messages[0].Text, "@systemkontrolrem")

	f.answer(t, domain.StartLabel)
	f.answer(t, stageLabel(t, domain.StageRough))
	reply = f.answer(t, "/cancel")
	assert.Equal(t, domain.StateIdle, reply.State)
	assert.Equal(t, cancelledText, reply.Messages[0].Text)

	session, err := f.svc.Snapshot(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Nil(t, session.Stage)
	assert.Empty(t, session.History)

	reply = f.answer(t, "/start")
	assert.Equal(t, greetingText, reply.Messages[0].Text)
	assert.Equal(t, []string{domain.StartLabel}, reply.Options)
}

func TestPersonalizerFailureFallsBackToCalculatorTexts(t *testing.T) {
	f := newFixture(t, brokenPersonalizer{})

	reply := completeNotStarted(t, f)

	require.NotNil(t, reply.Result)
	assert.Equal(t, reply.Result.Loss.EmotionalHook, reply.Result.Personalization.Emotional)
	assert.Equal(t, reply.Result.Loss.Examples, reply.Result.Personalization.Examples)
}

func TestHandleRejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Handle(context.Background(), " ", InboundEvent{Type: EventStart})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Handle(context.Background(), "s-1", InboundEvent{Type: "wave"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Snapshot(context.Background(), "nope")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestConcurrentEventsForOneSessionAreSerialized(t *testing.T) {
	f := newFixture(t, nil)
	f.send(t, InboundEvent{Type: EventStart})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Handle(context.Background(), "s-1", InboundEvent{Type: EventAnswer, Text: "?"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	session, err := f.svc.Snapshot(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateAwaitingStage, session.State)
	assert.Equal(t, 0, f.svc.locks.Len())
}

func TestEstimate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.svc.Estimate(ctx, EstimateInput{Stage: domain.StageLiving, Area: domain.AreaMedium, Fixation: domain.FixationNone})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Loss.Multipliers.Control)
	assert.NotEmpty(t, res.Personalization.Recommendation)

	res, err = f.svc.Estimate(ctx, EstimateInput{Stage: domain.StageRough, Area: domain.AreaXLarge, Control: domain.ControlNobody, Fixation: domain.FixationNone})
	require.NoError(t, err)
	assert.Equal(t, 3.98, res.Loss.Multipliers.Total)

	_, err = f.svc.Estimate(ctx, EstimateInput{Stage: domain.StageRough, Area: domain.AreaXLarge, Control: domain.ControlNobody})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Estimate(ctx, EstimateInput{Stage: "moon", Area: domain.AreaXLarge})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestEstimateRejectsCodesNotOfferedForStage(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Estimate(ctx, EstimateInput{Stage: domain.StageRough, Area: domain.AreaMedium, Control: domain.ControlSelf, Fixation: domain.FixationPlannedFull})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Estimate(ctx, EstimateInput{Stage: domain.StageRough, Area: domain.AreaMedium, Control: domain.ControlSelf, Fixation: domain.FixationPlannedNone})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	res, err := f.svc.Estimate(ctx, EstimateInput{Stage: domain.StageLiving, Area: domain.AreaMedium, Fixation: domain.FixationPlannedNone})
	require.NoError(t, err)
	assert.Positive(t, res.Loss.Avg)
}

func TestStagesListing(t *testing.T) {
	f := newFixture(t, nil)

	stages, err := f.svc.Stages()

	require.NoError(t, err)
	require.Len(t, stages, 5)
	assert.Equal(t, domain.StageNotStarted, stages[0].Code)
	assert.True(t, stages[0].SkipFixation)
	assert.Equal(t, domain.StageLiving, stages[4].Code)
	assert.True(t, stages[4].SkipControl)
	assert.Contains(t, stages[4].ControlLabels, domain.TooLateLabel)
}

func TestOptionsFollowSessionState(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	opts, err := f.svc.Options(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, []string{domain.StartLabel}, opts)

	f.send(t, InboundEvent{Type: EventStart})
	f.answer(t, stageLabel(t, domain.StageRough))

	opts, err = f.svc.Options(ctx, "s-1")
	require.NoError(t, err)
	assert.Contains(t, opts, areaLabel(t, domain.AreaMedium))
	assert.Equal(t, domain.BackLabel, opts[len(opts)-1])
}
