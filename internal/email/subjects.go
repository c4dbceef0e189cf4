package email

const (
	subjectExpertQuestion    = "Новый вопрос эксперту"
	subjectExpertQuestionFmt = "Новый вопрос эксперту (%s)"
)
