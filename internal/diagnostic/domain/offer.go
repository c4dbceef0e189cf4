package domain

import "strings"

// Buttons of the post-results funnel.
const (
	StartLabel          = "👉 НАЧАТЬ ДИАГНОСТИКУ"
	ShowSolutionLabel   = "👉 ПОКАЖИ РЕШЕНИЕ"
	BuyLabel            = "💳 Купить систему"
	LeavePhoneLabel     = "📱 Оставить номер для связи"
	EstimateLabel       = "🧮 Рассчитать точную смету"
	AIConsultLabel      = "🤖 Получить AI-консультацию"
	SendContactLabel    = "📞 Отправить мой номер"
	ManualPhoneLabel    = "✏️ Ввести номер вручную"
	BackToOffersLabel   = "⏪ Назад к выбору"
	NeedConsultLabel    = "🤔 НУЖНА КОНСУЛЬТАЦИЯ"
	ContactExpertLabel  = "📞 Связаться с экспертом"
	CallbackAskQuestion = "ask_question"
	CallbackAskInBot    = "ask_question_bot"
	CallbackCallExpert  = "call_expert"
)

// OfferMenu is the option set shown while choosing the next step.
var OfferMenu = []string{BuyLabel, LeavePhoneLabel, EstimateLabel, AIConsultLabel}

// PhoneMenu is the option set shown while waiting for a phone number.
var PhoneMenu = []string{SendContactLabel, ManualPhoneLabel, BackToOffersLabel}

// OfferChoice is a resolved selection from the offer menu.
type OfferChoice string

const (
	OfferNone          OfferChoice = ""
	OfferBuy           OfferChoice = "buy"
	OfferContactExpert OfferChoice = "contact_expert"
	OfferLeavePhone    OfferChoice = "leave_phone"
	OfferEstimate      OfferChoice = "estimate"
	OfferAIConsult     OfferChoice = "ai_consult"
)

// ResolveOfferChoice matches free text against the offer menu by keyword,
// so typed variants of the buttons are accepted too. Checks run in menu
// priority order.
func ResolveOfferChoice(text string) OfferChoice {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "Купить"):
		return OfferBuy
	case strings.Contains(text, "Связаться") || strings.Contains(lower, "экспертом"):
		return OfferContactExpert
	case strings.Contains(text, "Оставить номер") || strings.Contains(lower, "номер"):
		return OfferLeavePhone
	case strings.Contains(text, "Рассчитать") || strings.Contains(lower, "смету"):
		return OfferEstimate
	case strings.Contains(strings.ToUpper(text), "AI") || strings.Contains(lower, "консультацию"):
		return OfferAIConsult
	default:
		return OfferNone
	}
}

// IsContactExpertButton reports whether text is one of the global
// "talk to a human" buttons that work from any state.
func IsContactExpertButton(text string) bool {
	return text == NeedConsultLabel || text == ContactExpertLabel
}
