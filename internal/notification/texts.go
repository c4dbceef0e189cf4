package notification

const phoneCapturedAlertFormat = `📱 *Новая заявка на звонок*

Телефон: %s
Канал: %s
Стадия: %s
Средние потери: %s`

const expertQuestionAlertFormat = `💬 *Вопрос эксперту*

%s

Телефон: %s
Канал: %s`

const callbackReminderFormat = `⏰ *Напоминание*

Клиент %s ждёт звонка с %s.`

const unknownValue = "—"

const reminderTimeLayout = "02.01 15:04"
