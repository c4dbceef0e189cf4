package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/internal/events"
	"repair_audit_backend/platform/phone"
	"repair_audit_backend/platform/sanitize"
)

const maxQuestionLength = 2000

func (s *Service) afterResults(session *domain.Session, text string) Reply {
	if text != domain.ShowSolutionLabel {
		return s.unknownInput(session)
	}

	r := Reply{}
	r.say(solutionIntroText, solutionDelayMs)
	r.say(systemDetailsText, solutionDelayMs)
	r.say(priceText.Sprintf(priceInfoFormat,
		s.funnel.GetPriceNormal(), s.funnel.GetPriceDiscount(), s.funnel.GetPriceVIP(), s.funnel.GetPriceDiscount()), solutionDelayMs)
	r.say(chooseNextText, 0)
	r.Options = domain.OfferMenu
	session.State = domain.StateChoosingOffer
	return r
}

func (s *Service) chooseOffer(ctx context.Context, session *domain.Session, text string) Reply {
	choice := domain.ResolveOfferChoice(text)
	if choice == domain.OfferNone {
		r := Reply{Options: domain.OfferMenu}
		r.say(domain.NoticeInvalidAnswer, 0)
		return r
	}

	s.eventBus.Publish(ctx, events.OfferSelected{
		BaseEvent: events.NewBaseEvent(),
		SessionID: session.ID,
		Channel:   session.Channel,
		Offer:     string(choice),
	})

	switch choice {
	case domain.OfferBuy:
		r := Reply{Options: domain.OfferMenu}
		r.sayWithLinks(priceText.Sprintf(buyOptionsFormat, s.funnel.GetPriceDiscount(), s.funnel.GetPriceVIP()), s.paymentLinks())
		return r
	case domain.OfferContactExpert:
		return s.contactExpert(session)
	case domain.OfferLeavePhone:
		session.State = domain.StateAwaitingPhone
		r := Reply{Options: domain.PhoneMenu}
		r.say(leavePhoneText, 0)
		return r
	case domain.OfferEstimate:
		r := Reply{Options: domain.OfferMenu}
		r.say(fmt.Sprintf(estimateBotFormat, s.funnel.GetEstimateBot()), 0)
		return r
	default:
		r := Reply{Options: domain.OfferMenu}
		r.say(fmt.Sprintf(aiBotFormat, s.funnel.GetAIBot()), 0)
		return r
	}
}

func (s *Service) paymentLinks() []Link {
	url := s.funnel.GetPaymentURL()
	return []Link{
		{Label: priceText.Sprintf("💳 Купить систему за %d ₽", s.funnel.GetPriceDiscount()), URL: url},
		{Label: priceText.Sprintf("👑 VIP за %d ₽", s.funnel.GetPriceVIP()), URL: url},
		{Label: "💬 Задать вопрос в боте", Callback: domain.CallbackAskQuestion},
		{Label: "📞 Позвонить эксперту", Callback: domain.CallbackCallExpert},
	}
}

// contactExpert works from any state and does not move the session.
func (s *Service) contactExpert(session *domain.Session) Reply {
	r := Reply{Options: s.currentOptions(session)}
	r.sayWithLinks(fmt.Sprintf(contactExpertFormat, s.funnel.GetExpertPhone(), s.funnel.GetExpertTelegram()), []Link{
		{Label: "📞 Позвонить сейчас", URL: "tel:" + s.funnel.GetExpertPhone()},
		{Label: "✉️ Написать в Telegram", URL: TelegramURL(s.funnel.GetExpertTelegram())},
		{Label: "💬 Задать вопрос в боте", Callback: domain.CallbackAskInBot},
	})
	return r
}

// TelegramURL turns "@handle" into a t.me link.
func TelegramURL(handle string) string {
	return "https://t.me/" + strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

func (s *Service) currentOptions(session *domain.Session) []string {
	switch session.State {
	case domain.StateIdle:
		return []string{domain.StartLabel}
	case domain.StateShowingResults:
		return []string{domain.ShowSolutionLabel}
	case domain.StateChoosingOffer:
		return domain.OfferMenu
	case domain.StateAwaitingPhone:
		return domain.PhoneMenu
	}
	if p := s.machine.CurrentPrompt(session); p != nil {
		return promptOptions(p)
	}
	return nil
}

func (s *Service) handleCallback(session *domain.Session, data string) Reply {
	switch data {
	case domain.CallbackAskQuestion, domain.CallbackAskInBot:
		session.State = domain.StateAwaitingQuestion
		r := Reply{}
		r.say(askQuestionText, 0)
		return r
	case domain.CallbackCallExpert:
		r := Reply{Options: s.currentOptions(session)}
		r.say(fmt.Sprintf(callExpertFormat, s.funnel.GetExpertPhone()), 0)
		return r
	default:
		return s.unknownInput(session)
	}
}

func (s *Service) phoneInput(ctx context.Context, session *domain.Session, text string) Reply {
	switch text {
	case domain.BackToOffersLabel:
		session.State = domain.StateChoosingOffer
		r := Reply{Options: domain.OfferMenu}
		r.say(backToOffersText, 0)
		return r
	case domain.ManualPhoneLabel:
		r := Reply{Options: domain.PhoneMenu}
		r.say(manualPhoneText, 0)
		return r
	}
	if !strings.ContainsFunc(text, unicode.IsDigit) {
		r := Reply{Options: domain.PhoneMenu}
		r.say(invalidPhoneText, 0)
		return r
	}
	return s.capturePhone(ctx, session, text)
}

// capturePhone normalizes raw to E.164 and records it on the session.
func (s *Service) capturePhone(ctx context.Context, session *domain.Session, raw string) Reply {
	normalized, err := phone.Normalize(raw)
	if err != nil {
		if !errors.Is(err, phone.ErrInvalidNumber) {
			s.log.WithContext(ctx).Warn("phone normalization failed", "error", err)
		}
		r := Reply{Options: domain.PhoneMenu}
		r.say(invalidPhoneText, 0)
		return r
	}

	session.Phone = normalized
	session.State = domain.StateChoosingOffer

	ev := events.PhoneCaptured{
		BaseEvent: events.NewBaseEvent(),
		SessionID: session.ID,
		Channel:   session.Channel,
		Phone:     normalized,
	}
	if session.Stage != nil {
		ev.Stage = string(session.Stage.Code)
	}
	if session.Result != nil {
		ev.LossAvg = session.Result.Avg
	}
	s.eventBus.Publish(ctx, ev)

	r := Reply{Options: domain.OfferMenu}
	r.say(fmt.Sprintf(phoneConfirmedFormat, normalized, s.funnel.GetExpertTelegram()), 0)
	r.say(nextStepText, 0)
	return r
}

func (s *Service) expertQuestion(ctx context.Context, session *domain.Session, text string) Reply {
	text = sanitize.Truncate(sanitize.Text(text), maxQuestionLength)
	if text == "" {
		r := Reply{}
		r.say(emptyQuestionText, 0)
		return r
	}

	session.ExpertQuestion = text
	session.State = domain.StateChoosingOffer

	s.eventBus.Publish(ctx, events.ExpertQuestionAsked{
		BaseEvent: events.NewBaseEvent(),
		SessionID: session.ID,
		Channel:   session.Channel,
		Question:  text,
		Phone:     session.Phone,
	})

	r := Reply{Options: domain.OfferMenu}
	r.say(fmt.Sprintf(questionSentFormat, text, s.funnel.GetExpertTelegram()), 0)
	return r
}
