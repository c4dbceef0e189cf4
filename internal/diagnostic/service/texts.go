package service

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	greetingText = `🏠 *ПРИВЕТ!*

Это быстрая диагностика твоей ситуации в ремонте.

Ответь на несколько вопросов — и узнаешь:
• На каком этапе уже теряешь деньги
• Конкретно сколько можешь потерять
• Как это предотвратить

*Готов пройти диагностику за 2 минуты?*`

	startPromptText   = "Начни диагностику с команды /start"
	cancelledText     = "Диагностика отменена. Начни заново с /start"
	useButtonsText    = "Пожалуйста, используй кнопки для ответа. Или отправь /cancel для отмены."
	pickAboveText     = "Выбери вариант выше 👆"
	pickFromListText  = "Выбери вариант из списка 👆"
	calculationFailed = "Не получилось рассчитать результат. Попробуй ещё раз чуть позже или отправь /cancel."
	wantSolutionText  = "👉 *Хочешь узнать, как сохранить эти деньги?*"
	chooseNextText    = "*Теперь выбор за тобой.*\n\nВыбери следующий шаг:"
	nextStepText      = "Выбери следующий шаг:"
	backToOffersText  = "Возвращаю к выбору вариантов..."
	manualPhoneText   = "Напиши свой номер телефона в формате:\n+7 XXX XXX XX XX\nили\n8 XXX XXX XX XX"
	invalidPhoneText  = "Пожалуйста, введи номер телефона или используй кнопку 'Отправить мой номер'"
	emptyQuestionText = "Напиши вопрос текстом, и я передам его эксперту."
)

var calculatingSteps = []string{
	"⏳ *Анализирую твои ответы...*",
	"📊 *Сравниваю с сотнями похожих кейсов...*",
	"🔍 *Ищу слабые места в твоей ситуации...*",
	"💰 *Рассчитываю потенциальные потери...*",
	"✅ *Готово! Смотри результаты.*",
}

const resultsPauseText = `💭 *Пауза.*

Ты сейчас представил эти деньги?
Это не абстрактные цифры.

Это конкретно:
• *Новая кухня*
• *Диван в гостиную*
• *Отпуск с семьёй*
• *Обучение детей*

Эти деньги могут *УЙТИ* на переделки.
Или *ОСТАТЬСЯ* у тебя.

*Вопрос:* что выбираешь?`

const solutionIntroText = `🎯 *ПРОБЛЕМА НЕ В МАСТЕРАХ.*
*Проблема — в ОТСУТСТВИИ СИСТЕМЫ КОНТРОЛЯ.*

Контроль — это *не конфликт*.
Контроль — это *понимание:* ЧТО, КОГДА и КАК проверять.

Я создал *«СИСТЕМУ КОНТРОЛЯ РЕМОНТА»* — это готовое решение для таких ситуаций, как твоя.`

const systemDetailsText = `📦 *ЧТО ВНУТРИ СИСТЕМЫ:*

1. 📋 *47 КОНТРОЛЬНЫХ ТОЧЕК*
   От демонтажа до уборки. Точно знаешь, что проверять.

2. 🎬 *ВИДЕО-ИНСТРУКЦИИ*
   Показ: "Вот так проверяй углы, вот так — уровни"

3. 📝 *ГОТОВЫЕ ДОКУМЕНТЫ*
   Акт скрытых работ, дефектная ведомость — бери и заполняй

4. 💬 *СКРИПТЫ РАЗГОВОРОВ*
   Как сказать прорабу о проблеме без скандала

🎯 *РЕЗУЛЬТАТ ДЛЯ ТЕБЯ:*

✔ Экономия *20-40% бюджета* (твои деньги остаются у тебя)
✔ Сокращение сроков на *15-30%* (не 6 месяцев, а 4)
✔ *0 спорных ситуаций* с подрядчиком (всё по документам)
✔ *Нервы и время* остаются при тебе`

const priceInfoFormat = `💰 *СТОИМОСТЬ:*

• *Обычная цена:* %d ₽
• *СЕГОДНЯ со скидкой:* %d ₽
• *VIP пакет:* %d ₽ (с личной консультацией)

📊 *ТВОЯ ВЫГОДА:*
Система: %d ₽
Экономия: от 200 000 ₽
ROI: *4 000%%* (в 40 раз больше)

⏰ *ОКУПАЕМОСТЬ:* 2-3 недели
(первая же предотвращённая ошибка окупает систему)`

const buyOptionsFormat = `🎯 *Отличный выбор!* Это решение сэкономит тебе сотни тысяч рублей.

*Доступны 2 варианта:*

1. *СТАНДАРТ* — %d ₽ (скидка 50%%)
   • Полный доступ к системе контроля
   • Закрытый Telegram-канал
   • База знаний по этапам ремонта
   • 30 мин консультация

2. *VIP* — %d ₽
   • Всё из стандарта +
   • Личная консультация по твоему объекту
   • Индивидуальный подход
   • Помощь в приёмке работ
   • Проверка договора

💎 *ГАРАНТИЯ:* 14 дней на возврат.
Если система не подойдёт — верну деньги без вопросов.

*Выбери вариант:*`

const contactExpertFormat = `📞 *Связь с экспертом:*

*Доступные способы связи:*

1. *Телефон:* %s
   • Пн-Пт: 10:00-19:00
   • Консультация 15 минут бесплатно
   • Можно обсудить срочные вопросы

2. *Telegram:* %s
   • Ответ в течение 30 минут
   • Можно отправлять фото/видео
   • Консультации по этапам ремонта

3. *В этом боте*
   • Задай вопрос прямо здесь
   • Получи ответ от эксперта
   • Сохрани всю переписку

*Рекомендую:* напиши в Telegram с пометкой "Из диагностики" — отвечу быстрее!`

const estimateBotFormat = `🧮 *Расчёт точной сметы*

Для точного расчёта сметы ремонта у меня есть *отдельный бот-калькулятор*.

*Что он умеет:*
• Рассчитать стоимость по квадратным метрам
• Учесть все виды работ (черновые, чистовая, сантехника, электрика)
• Сформировать детализированную смету
• Учесть твой бюджет и пожелания

*Переходи в бота-калькулятора:*
👉 %s

*P.S.* Это отдельный бот, поэтому нужно будет начать с команды /start`

const aiBotFormat = `🤖 *AI-консультант по ремонту*

У меня есть *умный AI-консультант*, который поможет:

• Ответить на вопросы по ремонту 24/7
• Проанализировать фото проблем
• Подсказать решения на основе базы знаний
• Помочь с выбором материалов

*Переходи к AI-консультанту:*
👉 %s

*P.S.* Это отдельный бот, начни с команды /start`

const leavePhoneText = `📱 *Оставить номер для связи*

Отлично! Эксперт перезвонит тебе в удобное время.

*Как это работает:*
1. Ты оставляешь номер
2. Эксперт связывается в течение 24 часов
3. Бесплатная 15-минутная консультация
4. Ответы на твои вопросы по ремонту

*Выбери способ:*`

const phoneConfirmedFormat = `✅ *Номер получен!*

Эксперт свяжется с тобой по номеру:
%s

*Что будет дальше:*
1. В течение 24 часов тебе перезвонят
2. 15-минутная бесплатная консультация
3. Ответы на вопросы по твоему ремонту
4. Рекомендации по следующим шагам

Если есть срочный вопрос — напиши прямо сейчас в Telegram: %s`

const askQuestionText = `💬 *Задай свой вопрос эксперту:*

Напиши его здесь, и я передам напрямую эксперту.

*Что можно спросить:*
• Консультацию по твоему этапу ремонта
• Помощь с выбором материалов
• Проверку сметы или договора
• Рекомендации по подрядчикам

Эксперт ответит в течение 24 часов.
Для срочных вопросов лучше написать в Telegram напрямую.`

const questionSentFormat = `✅ *Вопрос отправлен эксперту!*

Твой вопрос:
"%s"

Эксперт ответит в течение 24 часов.
Если вопрос срочный — напиши напрямую в Telegram: %s

*Тем временем можешь:*
• Ознакомиться с системой контроля
• Рассчитать точную смету`

const callExpertFormat = `📞 *Позвонить эксперту:*

*Номер телефона:* %s

*Часы работы:*
• Пн-Пт: 10:00-19:00
• Сб: 11:00-16:00
• Вс: выходной

*Скажи, что ты из диагностики* — получишь приоритетный ответ.`

const helpFormat = `*Помощь по ремонт-боту:*

🤖 *Это бот для диагностики рисков в ремонте.*
Он поможет определить, где ты теряешь деньги.

*Основные команды:*
/start - Начать диагностику
/help - Эта справка
/cancel - Отменить диагностику

*Контакты эксперта:*
📞 Телефон: %s
✉️ Telegram: %s

*Как работает бот:*
1. 4 вопроса о твоём ремонте (с ветвлениями)
2. Анализ рисков и потерь
3. Реальные цифры из опыта
4. Решения для экономии`

// priceText formats prices with Russian digit grouping.
var priceText = message.NewPrinter(language.Russian)
