package bridge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"supportbot/internal/constants"
	"supportbot/internal/lifecycle"
	"supportbot/internal/models"
	"supportbot/internal/ratelimit"
	"supportbot/internal/utils"
)

// Config — параметры маршрутизации моста.
type Config struct {
	SupportChatID    int64
	MaxOpenTickets   int
	MaxSubjectLength int
	SendRetries      int // повторов сверх первой попытки
	HistoryLimit     int
}

// Deps — зависимости моста. Все обязательны.
type Deps struct {
	Users     UserStore
	Tickets   TicketStore
	Messages  MessageStore
	Links     LinkStore
	Settings  SettingsStore
	Lifecycle *lifecycle.Controller
	Transport Transport
	Limiter   *ratelimit.Limiter
}

// Router — мост между личными чатами пользователей и чатом поддержки:
// принимает события обеих сторон, сопоставляет их тикетам, доставляет
// контент через транспорт и ведёт связи сообщений для маршрутизации ответов.
type Router struct {
	deps  Deps
	cfg   Config
	locks ticketLocks

	// sleep подменяется в тестах, чтобы повторы не ждали по-настоящему.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRouter(deps Deps, cfg Config) *Router {
	if deps.Users == nil || deps.Tickets == nil || deps.Messages == nil ||
		deps.Links == nil || deps.Settings == nil || deps.Lifecycle == nil ||
		deps.Transport == nil || deps.Limiter == nil {
		panic("bridge.NewRouter: все зависимости обязательны")
	}
	if cfg.MaxOpenTickets <= 0 {
		cfg.MaxOpenTickets = constants.DEFAULT_MAX_OPEN_TICKETS
	}
	if cfg.MaxSubjectLength <= 0 {
		cfg.MaxSubjectLength = constants.DEFAULT_MAX_SUBJECT_LENGTH
	}
	if cfg.SendRetries < 0 {
		cfg.SendRetries = constants.DEFAULT_SEND_RETRIES
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = constants.DEFAULT_HISTORY_LIMIT
	}
	return &Router{deps: deps, cfg: cfg, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// HandleUserEvent обрабатывает сообщение пользователя: антиспам, бан,
// подбор или создание тикета, доставка в чат поддержки, запись сообщения
// и связей. Связи записываются только после успеха всех отправок — при
// любом сбое доставки тикет остаётся без новых связей.
func (r *Router) HandleUserEvent(ctx context.Context, ev UserEvent) (Outcome, error) {
	if ev.EventID == "" {
		ev.EventID = utils.GenerateEventID()
	}

	if !ev.Content.Kind.Valid() {
		return Outcome{Status: OutcomeInvalidContent, Reason: "неподдерживаемый тип контента"}, nil
	}
	if ev.Content.Kind == models.ContentText && strings.TrimSpace(ev.Content.Text) == "" {
		return Outcome{Status: OutcomeInvalidContent, Reason: "пустой текст"}, nil
	}

	if ok, retryAfter := r.deps.Limiter.Check(ev.TelegramID); !ok {
		log.Printf("bridge[%s]: пользователь %d превысил лимит сообщений, повтор через %s",
			ev.EventID, ev.TelegramID, retryAfter)
		return Outcome{Status: OutcomeThrottled, RetryAfter: retryAfter}, nil
	}

	user, err := r.deps.Users.ResolveOrCreateUser(ev.TelegramID, ev.Username, ev.FullName)
	if err != nil {
		return Outcome{}, fmt.Errorf("HandleUserEvent[%s]: пользователь %d: %w", ev.EventID, ev.TelegramID, err)
	}
	if user.IsBanned {
		return Outcome{Status: OutcomeBanned}, nil
	}

	ticket, created, refusal, err := r.resolveUserTicket(user, ev)
	if err != nil {
		return Outcome{}, err
	}
	if refusal != nil {
		return *refusal, nil
	}

	unlock := r.locks.lock(ticket.ID)
	defer unlock()

	// Перечитываем под блокировкой: статус мог поменяться, пока мы подбирали тикет.
	if fresh, err := r.deps.Tickets.GetTicketByID(ticket.ID); err != nil {
		return Outcome{}, fmt.Errorf("HandleUserEvent[%s]: тикет %d: %w", ev.EventID, ticket.ID, err)
	} else if fresh != nil {
		ticket = *fresh
	}

	if ticket.Status == constants.TICKET_STATUS_CLOSED {
		policy := r.deps.Settings.GetSetting(constants.SETTING_CLOSED_TICKET_POLICY, constants.CLOSED_POLICY_REOPEN)
		if policy != constants.CLOSED_POLICY_REOPEN {
			return Outcome{Status: OutcomeTicketClosed, Ticket: &ticket}, nil
		}
		reopened, err := r.deps.Lifecycle.Transition(ctx, ticket, constants.TICKET_STATUS_IN_PROGRESS, nil)
		if err != nil {
			return Outcome{}, fmt.Errorf("HandleUserEvent[%s]: переоткрытие %s: %w", ev.EventID, ticket.TicketCode, err)
		}
		log.Printf("bridge[%s]: тикет %s переоткрыт сообщением пользователя %d",
			ev.EventID, ticket.TicketCode, user.TelegramID)
		ticket = reopened
	}

	mode := r.deps.Settings.GetSetting(constants.SETTING_ROUTING_MODE, constants.ROUTING_MODE_TOPICS)
	degraded := false
	if mode == constants.ROUTING_MODE_TOPICS && !ticket.TopicID.Valid {
		topicID, err := r.deps.Transport.CreateThread(ctx, r.cfg.SupportChatID, utils.FormatTopicName(ticket, user))
		if err != nil {
			log.Printf("bridge[%s]: не удалось создать топик для %s, сообщение уйдёт в общий чат: %v",
				ev.EventID, ticket.TicketCode, err)
			degraded = true
		} else if err := r.deps.Tickets.SetTicketTopic(ticket.ID, topicID); err != nil {
			return Outcome{}, fmt.Errorf("HandleUserEvent[%s]: привязка топика %d к тикету %s: %w",
				ev.EventID, topicID, ticket.TicketCode, err)
		} else {
			ticket.TopicID = sql.NullInt64{Int64: topicID, Valid: true}
		}
	}

	sends := buildSupportSends(ticket, user, ev.Content, mode, created)
	refs := make([]int64, 0, len(sends))
	for _, content := range sends {
		req := SendRequest{ChatID: r.cfg.SupportChatID, Content: content}
		if ticket.TopicID.Valid {
			req.ThreadID = ticket.TopicID.Int64
		}
		ref, err := r.sendWithRetry(ctx, req)
		if err != nil {
			var throttled *ThrottledError
			if errors.As(err, &throttled) {
				return Outcome{Status: OutcomeThrottled, Ticket: &ticket, RetryAfter: throttled.RetryAfter}, nil
			}
			log.Printf("bridge[%s]: доставка в чат поддержки по тикету %s не удалась: %v",
				ev.EventID, ticket.TicketCode, err)
			return Outcome{Status: OutcomeDeliveryFailed, Ticket: &ticket}, nil
		}
		refs = append(refs, ref)
	}

	msg := models.Message{
		TicketID:    ticket.ID,
		SenderID:    user.ID,
		ContentType: ev.Content.Kind,
		Text:        nullString(ev.Content.Text),
		FileID:      nullString(ev.Content.FileID),
		FileName:    nullString(ev.Content.FileName),
	}
	if _, err := r.deps.Messages.AddMessage(msg); err != nil {
		return Outcome{}, fmt.Errorf("HandleUserEvent[%s]: запись сообщения по тикету %s: %w",
			ev.EventID, ticket.TicketCode, err)
	}

	links := make([]models.MessageLink, 0, len(refs))
	for _, ref := range refs {
		saved, err := r.deps.Links.AddMessageLink(models.MessageLink{
			TicketID:         ticket.ID,
			UserID:           user.ID,
			UserMessageID:    ev.MessageID,
			SupportMessageID: ref,
			TopicID:          ticket.TopicID,
		})
		if err != nil {
			return Outcome{}, fmt.Errorf("HandleUserEvent[%s]: запись связи %d по тикету %s: %w",
				ev.EventID, ref, ticket.TicketCode, err)
		}
		links = append(links, saved)
	}

	// Ответ пользователя снимает тикет с ожидания. Сбой здесь не отменяет
	// уже состоявшуюся доставку.
	if ticket.Status == constants.TICKET_STATUS_WAITING_USER {
		updated, err := r.deps.Lifecycle.Transition(ctx, ticket, constants.TICKET_STATUS_IN_PROGRESS, nil)
		if err != nil {
			log.Printf("bridge[%s]: не удалось снять тикет %s с ожидания: %v", ev.EventID, ticket.TicketCode, err)
		} else {
			ticket = updated
		}
	}

	return Outcome{Status: OutcomeOK, Ticket: &ticket, Links: links, TransportDegraded: degraded}, nil
}

// resolveUserTicket подбирает тикет для сообщения пользователя: выбранный
// явно по коду, активный, последний закрытый (при политике переоткрытия)
// или новый.
func (r *Router) resolveUserTicket(user models.User, ev UserEvent) (models.Ticket, bool, *Outcome, error) {
	if !ev.ForceNew && ev.TicketCode != "" {
		chosen, err := r.deps.Tickets.FindTicketByCode(ev.TicketCode)
		if err != nil {
			return models.Ticket{}, false, nil, fmt.Errorf("resolveUserTicket[%s]: тикет %s: %w", ev.EventID, ev.TicketCode, err)
		}
		// Чужой или исчезнувший код игнорируем и подбираем тикет как обычно.
		if chosen != nil && chosen.UserID == user.ID {
			return *chosen, false, nil, nil
		}
		log.Printf("bridge[%s]: код %s не принадлежит пользователю %d, подбор по умолчанию",
			ev.EventID, ev.TicketCode, user.TelegramID)
	}

	if !ev.ForceNew {
		open, err := r.deps.Tickets.FindOpenTicketForUser(user.ID)
		if err != nil {
			return models.Ticket{}, false, nil, fmt.Errorf("resolveUserTicket[%s]: поиск активного тикета: %w", ev.EventID, err)
		}
		if open != nil {
			return *open, false, nil, nil
		}

		policy := r.deps.Settings.GetSetting(constants.SETTING_CLOSED_TICKET_POLICY, constants.CLOSED_POLICY_REOPEN)
		if policy == constants.CLOSED_POLICY_REOPEN {
			last, err := r.deps.Tickets.FindLastTicketForUser(user.ID)
			if err != nil {
				return models.Ticket{}, false, nil, fmt.Errorf("resolveUserTicket[%s]: поиск последнего тикета: %w", ev.EventID, err)
			}
			if last != nil && last.Status == constants.TICKET_STATUS_CLOSED {
				return *last, false, nil, nil
			}
		}
	}

	count, err := r.deps.Tickets.CountOpenTicketsForUser(user.ID)
	if err != nil {
		return models.Ticket{}, false, nil, fmt.Errorf("resolveUserTicket[%s]: подсчёт открытых тикетов: %w", ev.EventID, err)
	}
	if count >= r.cfg.MaxOpenTickets {
		return models.Ticket{}, false, &Outcome{Status: OutcomeOpenCapExceeded}, nil
	}

	subject := strings.TrimSpace(ev.Subject)
	if subject == "" {
		// Тема не задана явно — берём начало первого сообщения.
		subject = utils.TruncateText(strings.TrimSpace(ev.Content.Text), 64)
	}
	if subject == "" {
		subject = "Без темы"
	}
	subject = utils.TruncateText(subject, r.cfg.MaxSubjectLength)

	ticket, err := r.deps.Tickets.CreateTicket(user.ID, subject)
	if err != nil {
		return models.Ticket{}, false, nil, fmt.Errorf("resolveUserTicket[%s]: создание тикета: %w", ev.EventID, err)
	}
	log.Printf("bridge[%s]: создан тикет %s для пользователя %d", ev.EventID, ticket.TicketCode, user.TelegramID)
	return ticket, true, nil, nil
}

// HandleStaffEvent обрабатывает сообщение из чата поддержки: сопоставляет
// его тикету по связи ответа или по топику и доставляет пользователю.
func (r *Router) HandleStaffEvent(ctx context.Context, ev StaffEvent) (Outcome, error) {
	if ev.EventID == "" {
		ev.EventID = utils.GenerateEventID()
	}

	if !ev.Content.Kind.Valid() {
		return Outcome{Status: OutcomeInvalidContent, Reason: "неподдерживаемый тип контента"}, nil
	}

	ticket, via, err := r.matchStaffTicket(ev)
	if err != nil {
		return Outcome{}, err
	}
	if ticket == nil {
		// Сообщение в группе поддержки вне тикетов — не наша забота.
		return Outcome{Status: OutcomeNoMatchingTicket}, nil
	}

	operator, err := r.deps.Users.ResolveOrCreateUser(ev.OperatorTelegramID, ev.Username, ev.FullName)
	if err != nil {
		return Outcome{}, fmt.Errorf("HandleStaffEvent[%s]: оператор %d: %w", ev.EventID, ev.OperatorTelegramID, err)
	}

	unlock := r.locks.lock(ticket.ID)
	defer unlock()

	if fresh, err := r.deps.Tickets.GetTicketByID(ticket.ID); err != nil {
		return Outcome{}, fmt.Errorf("HandleStaffEvent[%s]: тикет %d: %w", ev.EventID, ticket.ID, err)
	} else if fresh != nil {
		ticket = fresh
	}

	if ticket.Status == constants.TICKET_STATUS_CLOSED {
		return Outcome{Status: OutcomeTicketClosed, Ticket: ticket}, nil
	}

	user, err := r.deps.Users.GetUserByID(ticket.UserID)
	if err != nil {
		return Outcome{}, fmt.Errorf("HandleStaffEvent[%s]: автор тикета %s: %w", ev.EventID, ticket.TicketCode, err)
	}

	// Если оператор ответил на конкретное сообщение, цитируем его исходник
	// в личном чате пользователя.
	var replyTo int64
	if via != nil {
		replyTo = via.UserMessageID
	}

	req := SendRequest{ChatID: user.TelegramID, ReplyTo: replyTo, Content: ev.Content}
	deliveredRef, err := r.sendWithRetry(ctx, req)
	if err != nil {
		var throttled *ThrottledError
		if errors.As(err, &throttled) {
			return Outcome{Status: OutcomeThrottled, Ticket: ticket, RetryAfter: throttled.RetryAfter}, nil
		}
		log.Printf("bridge[%s]: доставка ответа оператора пользователю %d по тикету %s не удалась: %v",
			ev.EventID, user.TelegramID, ticket.TicketCode, err)
		return Outcome{Status: OutcomeDeliveryFailed, Ticket: ticket}, nil
	}

	msg := models.Message{
		TicketID:       ticket.ID,
		SenderID:       operator.ID,
		ContentType:    ev.Content.Kind,
		Text:           nullString(ev.Content.Text),
		FileID:         nullString(ev.Content.FileID),
		FileName:       nullString(ev.Content.FileName),
		IsFromOperator: true,
	}
	if _, err := r.deps.Messages.AddMessage(msg); err != nil {
		return Outcome{}, fmt.Errorf("HandleStaffEvent[%s]: запись сообщения по тикету %s: %w",
			ev.EventID, ticket.TicketCode, err)
	}

	// Связь записывается и на операторское сообщение: в режиме общего чата
	// следующий оператор может ответить именно на него, и этот ответ обязан
	// найти тикет по support_message_id.
	link, err := r.deps.Links.AddMessageLink(models.MessageLink{
		TicketID:         ticket.ID,
		UserID:           user.ID,
		UserMessageID:    deliveredRef,
		SupportMessageID: ev.MessageID,
		TopicID:          ticket.TopicID,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("HandleStaffEvent[%s]: запись связи %d по тикету %s: %w",
			ev.EventID, ev.MessageID, ticket.TicketCode, err)
	}

	// Первый ответ оператора берёт тикет в работу.
	if ticket.Status == constants.TICKET_STATUS_OPEN {
		updated, err := r.deps.Lifecycle.Transition(ctx, *ticket, constants.TICKET_STATUS_IN_PROGRESS, &operator)
		if err != nil {
			log.Printf("bridge[%s]: не удалось перевести тикет %s в работу: %v", ev.EventID, ticket.TicketCode, err)
		} else {
			ticket = &updated
		}
	}

	return Outcome{Status: OutcomeOK, Ticket: ticket, Links: []models.MessageLink{link}}, nil
}

// matchStaffTicket находит тикет для события из чата поддержки.
// Приоритет у связи ответа: она точнее топика. Вторым возвращается связь,
// если тикет найден через неё.
func (r *Router) matchStaffTicket(ev StaffEvent) (*models.Ticket, *models.MessageLink, error) {
	if ev.ReplyToMessageID != 0 {
		link, err := r.deps.Links.GetLinkBySupportMessage(ev.ReplyToMessageID)
		if err != nil {
			return nil, nil, fmt.Errorf("matchStaffTicket[%s]: связь %d: %w", ev.EventID, ev.ReplyToMessageID, err)
		}
		if link != nil {
			ticket, err := r.deps.Tickets.GetTicketByID(link.TicketID)
			if err != nil {
				return nil, nil, fmt.Errorf("matchStaffTicket[%s]: тикет %d: %w", ev.EventID, link.TicketID, err)
			}
			return ticket, link, nil
		}
	}

	if ev.TopicID != 0 {
		ticket, err := r.deps.Tickets.FindTicketByTopic(ev.TopicID)
		if err != nil {
			return nil, nil, fmt.Errorf("matchStaffTicket[%s]: тикет по топику %d: %w", ev.EventID, ev.TopicID, err)
		}
		return ticket, nil, nil
	}

	return nil, nil, nil
}

// SetTicketStatus переводит тикет в новый статус под блокировкой тикета.
// actor — оператор, инициировавший переход, nil для системных переходов.
func (r *Router) SetTicketStatus(ctx context.Context, ticketID int64, newStatus string, actor *models.User) (models.Ticket, error) {
	unlock := r.locks.lock(ticketID)
	defer unlock()

	ticket, err := r.deps.Tickets.GetTicketByID(ticketID)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("SetTicketStatus: тикет %d: %w", ticketID, err)
	}
	if ticket == nil {
		return models.Ticket{}, fmt.Errorf("SetTicketStatus: тикет %d не найден", ticketID)
	}
	return r.deps.Lifecycle.Transition(ctx, *ticket, newStatus, actor)
}

// TicketView — тикет с автором и последними сообщениями переписки.
type TicketView struct {
	Ticket   models.Ticket
	User     models.User
	Messages []models.Message
}

// GetTicketView возвращает тикет по коду вместе с историей, nil — если
// тикета с таким кодом нет.
func (r *Router) GetTicketView(code string, limit int) (*TicketView, error) {
	ticket, err := r.deps.Tickets.FindTicketByCode(code)
	if err != nil {
		return nil, fmt.Errorf("GetTicketView: тикет %s: %w", code, err)
	}
	if ticket == nil {
		return nil, nil
	}

	user, err := r.deps.Users.GetUserByID(ticket.UserID)
	if err != nil {
		return nil, fmt.Errorf("GetTicketView: автор тикета %s: %w", code, err)
	}

	if limit <= 0 {
		limit = r.cfg.HistoryLimit
	}
	messages, err := r.deps.Messages.GetTicketMessages(ticket.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("GetTicketView: история тикета %s: %w", code, err)
	}

	return &TicketView{Ticket: *ticket, User: user, Messages: messages}, nil
}

// sendWithRetry выполняет отправку с повторами: при троттлинге ждёт
// задержку, которую назвал провайдер, при прочих ошибках — секунду.
// Последняя ошибка возвращается обёрнутой, троттлинг различим через errors.As.
func (r *Router) sendWithRetry(ctx context.Context, req SendRequest) (int64, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.SendRetries; attempt++ {
		ref, err := r.deps.Transport.Send(ctx, req)
		if err == nil {
			return ref, nil
		}
		lastErr = err

		if attempt < r.cfg.SendRetries {
			delay := time.Second
			var throttled *ThrottledError
			if errors.As(err, &throttled) && throttled.RetryAfter > 0 {
				delay = throttled.RetryAfter
			}
			log.Printf("bridge: отправка в чат %d не удалась (попытка %d из %d), повтор через %s: %v",
				req.ChatID, attempt+1, r.cfg.SendRetries+1, delay, err)
			if err := r.sleep(ctx, delay); err != nil {
				return 0, err
			}
		}
	}
	return 0, fmt.Errorf("после %d попыток: %w", r.cfg.SendRetries+1, lastErr)
}

// buildSupportSends раскладывает контент пользователя на исходящие вызовы в
// чат поддержки. Медиа без подписи (кружок, стикер) уходит двумя
// сообщениями: заголовок с автором и кодом тикета, затем сам файл — связь
// записывается на каждое. В режиме общего чата заголовок добавляется всегда,
// в топиках тикет виден по самому топику.
func buildSupportSends(ticket models.Ticket, user models.User, content models.Content, mode string, created bool) []models.Content {
	header := "👤 " + utils.GetUserDisplayName(user) + " | 🎫 " + ticket.TicketCode
	if created {
		header = "🆕 Новый тикет " + ticket.TicketCode +
			"\n👤 " + utils.GetUserDisplayName(user) +
			"\n📋 " + ticket.Subject
	}
	withHeader := created || mode == constants.ROUTING_MODE_SHARED

	switch {
	case content.Kind == models.ContentText:
		text := content.Text
		if withHeader {
			text = header + "\n\n" + text
		}
		return []models.Content{{Kind: models.ContentText, Text: text}}
	case content.Kind.SupportsCaption():
		c := content
		if withHeader {
			if c.Text != "" {
				c.Text = header + "\n\n" + c.Text
			} else {
				c.Text = header
			}
		}
		return []models.Content{c}
	default:
		return []models.Content{{Kind: models.ContentText, Text: header}, content}
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
