package constants

import "time"

// Статусы тикета. Все переходы между ними проверяются в пакете lifecycle,
// нигде больше статус напрямую не меняется.
// Ticket statuses. All transitions are validated in the lifecycle package,
// nowhere else is the status changed directly.
const (
	TICKET_STATUS_OPEN         = "open"
	TICKET_STATUS_IN_PROGRESS  = "in_progress"
	TICKET_STATUS_WAITING_USER = "waiting_user"
	TICKET_STATUS_CLOSED       = "closed"
)

// Состояния диалога пользователя (менеджер сессий).
// User dialog states (session manager).
const (
	STATE_IDLE           = "idle"
	STATE_TICKET_SUBJECT = "ticket_subject"
	STATE_TICKET_MESSAGE = "ticket_message"
	STATE_TICKET_CHAT    = "ticket_chat"
)

// Ключи настроек в таблице bot_settings.
// Setting keys in the bot_settings table.
const (
	SETTING_ROUTING_MODE         = "routing_mode"
	SETTING_CLOSED_TICKET_POLICY = "closed_ticket_policy"
	SETTING_GREETING_TEXT        = "greeting_text"
)

// Значения настройки routing_mode: отдельный топик на тикет или общий чат.
const (
	ROUTING_MODE_TOPICS = "topics"
	ROUTING_MODE_SHARED = "shared"
)

// Значения настройки closed_ticket_policy: что делать, когда пользователь
// пишет в закрытый тикет.
const (
	CLOSED_POLICY_REOPEN     = "reopen"
	CLOSED_POLICY_NEW_TICKET = "new_ticket"
)

// Лимиты и значения по умолчанию.
// Limits and default values.
const (
	TICKET_CODE_ATTEMPTS = 5 // попыток генерации уникального кода тикета

	DEFAULT_RATE_LIMIT_MESSAGES = 5
	DEFAULT_RATE_LIMIT_WINDOW   = 60 * time.Second

	DEFAULT_MAX_SUBJECT_LENGTH     = 255
	DEFAULT_MAX_OPEN_TICKETS       = 3
	DEFAULT_SEND_RETRIES           = 3
	DEFAULT_SEND_TIMEOUT           = 30 * time.Second
	DEFAULT_HISTORY_LIMIT          = 10
	DEFAULT_OPERATOR_HISTORY_LIMIT = 20
)

// Тексты, которые видит пользователь. Собраны здесь, чтобы handlers не
// дублировали строки.
// User-facing texts. Collected here so handlers do not duplicate strings.
const (
	MSG_GREETING            = "👋 Привет!\nЧем можем помочь?"
	MSG_SUBJECT_PROMPT      = "✏️ Коротко опишите проблему\n(1–2 предложения)"
	MSG_FIRST_MSG_PROMPT    = "📝 Опишите проблему подробнее\nМожно прислать текст, фото, видео или файл"
	MSG_MESSAGE_SENT        = "✉️ Сообщение отправлено"
	MSG_TICKET_CLOSED_USER  = "❌ Тикет закрыт.\nЕсли проблема появится снова — создайте новый тикет."
	MSG_UNSUPPORTED_CONTENT = "❌ Неподдерживаемый тип сообщения.\nОтправьте текст, фото, видео, голосовое или файл."
	MSG_NO_ACTIVE_TICKETS   = "❌ У вас нет активных обращений"
	MSG_BANNED              = "⛔ Доступ к поддержке ограничен."
	MSG_DELIVERY_FAILED     = "⚠️ Не удалось доставить сообщение. Попробуйте ещё раз позже."
	MSG_INTERNAL_ERROR      = "❌ Произошла ошибка. Попробуйте ещё раз."
	MSG_TOO_MANY_TICKETS    = "❌ У вас слишком много открытых обращений.\nЗакройте одно из них, прежде чем создавать новое."

	MSG_THROTTLED_FMT      = "⏳ Слишком много сообщений. Подождите %d сек."
	MSG_TICKET_CREATED_FMT = "🎫 Обращение %s создано.\nОтветы поддержки придут в этот чат."
	MSG_TICKET_CLOSED_FMT  = "✅ Обращение %s закрыто."
)

// Подписи кнопок. / Button labels.
const (
	BTN_CREATE_TICKET = "🆕 Создать обращение"
	BTN_MY_TICKETS    = "📋 Мои обращения"
	BTN_WRITE         = "💬 Написать"
	BTN_CLOSE         = "❌ Закрыть"
	BTN_BACK          = "⬅️ Назад"
)

// Данные коллбэков. Значения с параметром — префиксы, код тикета идёт
// после двоеточия. / Callback data. Parameterized values are prefixes.
const (
	CB_CREATE_TICKET = "create_ticket"
	CB_MY_TICKETS    = "my_tickets"
	CB_BACK_TO_MENU  = "back_to_menu"
	CB_VIEW_TICKET   = "view_ticket:"
	CB_CHAT_TICKET   = "chat_ticket:"
	CB_CLOSE_TICKET  = "close_ticket:"
)
