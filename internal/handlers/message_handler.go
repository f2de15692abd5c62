package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"supportbot/internal/bridge"
	"supportbot/internal/constants"
	"supportbot/internal/models"
	"supportbot/internal/session"
	"supportbot/internal/utils"
)

// Предельное время обработки одного обновления, включая повторы отправок.
const updateTimeout = 2 * time.Minute

// HandleUpdate — точка входа для каждого обновления из канала getUpdates.
// Вызывается в отдельной горутине на обновление.
func (bh *BotHandler) HandleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("HandleUpdate: паника при обработке обновления %d: %v", update.UpdateID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
	defer cancel()

	switch {
	case update.CallbackQuery != nil:
		bh.HandleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		bh.HandleMessage(ctx, update.Message)
	}
}

// HandleMessage разводит сообщения по стороне: чат поддержки или личный чат.
func (bh *BotHandler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	if msg.Chat.ID == bh.Deps.Config.SupportChatID {
		bh.handleSupportChatMessage(ctx, msg)
		return
	}
	if msg.Chat.IsPrivate() {
		bh.handlePrivateMessage(ctx, msg)
	}
}

// --- Чат поддержки / Support chat ---

func (bh *BotHandler) handleSupportChatMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Служебные сообщения форума (создание/закрытие топиков) не пересылаем.
	if msg.ForumTopicCreated != nil || msg.ForumTopicClosed != nil ||
		msg.ForumTopicReopened != nil || msg.ForumTopicEdited != nil {
		return
	}

	if msg.IsCommand() {
		bh.handleSupportCommand(ctx, msg)
		return
	}

	content, ok := extractContent(msg)
	if !ok {
		bh.replyInThread(msg, constants.MSG_UNSUPPORTED_CONTENT)
		return
	}

	ev := bridge.StaffEvent{
		OperatorTelegramID: msg.From.ID,
		Username:           msg.From.UserName,
		FullName:           senderFullName(msg.From),
		MessageID:          int64(msg.MessageID),
		TopicID:            int64(msg.MessageThreadID),
		Content:            content,
	}
	if msg.ReplyToMessage != nil {
		ev.ReplyToMessageID = int64(msg.ReplyToMessage.MessageID)
	}

	out, err := bh.Deps.Router.HandleStaffEvent(ctx, ev)
	if err != nil {
		log.Printf("handleSupportChatMessage: ошибка обработки сообщения оператора %d: %v", msg.From.ID, err)
		bh.replyInThread(msg, constants.MSG_INTERNAL_ERROR)
		return
	}

	switch out.Status {
	case bridge.OutcomeOK, bridge.OutcomeNoMatchingTicket:
		// Доставлено либо обычная болтовня в группе — молчим.
	case bridge.OutcomeTicketClosed:
		bh.replyInThread(msg, fmt.Sprintf("❌ Обращение %s закрыто, ответ не доставлен.", out.Ticket.TicketCode))
	case bridge.OutcomeThrottled:
		bh.replyInThread(msg, fmt.Sprintf(constants.MSG_THROTTLED_FMT, int(out.RetryAfter.Seconds())))
	default:
		bh.replyInThread(msg, constants.MSG_DELIVERY_FAILED)
	}
}

// handleSupportCommand обрабатывает операторские команды внутри топика:
// /close, /wait и /reopen меняют статус тикета, /ban и /unban блокируют
// его автора.
func (bh *BotHandler) handleSupportCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	if cmd == "ban" || cmd == "unban" {
		bh.toggleTicketUserBan(msg, cmd == "ban")
		return
	}

	newStatus, ok := supportCommandStatus(cmd)
	if !ok {
		return
	}

	ticket := bh.topicTicket(msg)
	if ticket == nil {
		return
	}

	operator, err := bh.Deps.Store.ResolveOrCreateUser(msg.From.ID, msg.From.UserName, senderFullName(msg.From))
	if err != nil {
		log.Printf("handleSupportCommand: оператор %d: %v", msg.From.ID, err)
		bh.replyInThread(msg, constants.MSG_INTERNAL_ERROR)
		return
	}

	// Команда /wait допустима только из статуса «в работе»: берём тикет в
	// работу тем же оператором, если он ещё открыт.
	if newStatus == constants.TICKET_STATUS_WAITING_USER && ticket.Status == constants.TICKET_STATUS_OPEN {
		if _, err := bh.Deps.Router.SetTicketStatus(ctx, ticket.ID, constants.TICKET_STATUS_IN_PROGRESS, &operator); err != nil {
			log.Printf("handleSupportCommand: тикет %s в работу: %v", ticket.TicketCode, err)
		}
	}

	updated, err := bh.Deps.Router.SetTicketStatus(ctx, ticket.ID, newStatus, &operator)
	if err != nil {
		log.Printf("handleSupportCommand: перевод тикета %s в '%s': %v", ticket.TicketCode, newStatus, err)
		bh.replyInThread(msg, fmt.Sprintf("❌ Не удалось перевести обращение в статус %s.", utils.StatusDisplay(newStatus)))
		return
	}
	bh.replyInThread(msg, fmt.Sprintf("Обращение %s: %s", updated.TicketCode, utils.StatusDisplay(updated.Status)))
}

// supportCommandStatus сопоставляет операторскую команду целевому статусу тикета.
func supportCommandStatus(cmd string) (string, bool) {
	switch cmd {
	case "close":
		return constants.TICKET_STATUS_CLOSED, true
	case "wait":
		return constants.TICKET_STATUS_WAITING_USER, true
	case "reopen":
		return constants.TICKET_STATUS_IN_PROGRESS, true
	}
	return "", false
}

// topicTicket находит тикет топика, из которого пришла команда, и сам
// отвечает оператору, если топика или тикета нет.
func (bh *BotHandler) topicTicket(msg *tgbotapi.Message) *models.Ticket {
	if msg.MessageThreadID == 0 {
		bh.replyInThread(msg, "Команда работает внутри топика тикета.")
		return nil
	}
	ticket, err := bh.Deps.Store.FindTicketByTopic(int64(msg.MessageThreadID))
	if err != nil {
		log.Printf("topicTicket: поиск тикета по топику %d: %v", msg.MessageThreadID, err)
		bh.replyInThread(msg, constants.MSG_INTERNAL_ERROR)
		return nil
	}
	if ticket == nil {
		bh.replyInThread(msg, "Этот топик не привязан к тикету.")
		return nil
	}
	return ticket
}

// toggleTicketUserBan блокирует или разблокирует автора тикета из топика
// командой /ban или /unban.
func (bh *BotHandler) toggleTicketUserBan(msg *tgbotapi.Message, banned bool) {
	ticket := bh.topicTicket(msg)
	if ticket == nil {
		return
	}
	user, err := bh.Deps.Store.SetUserBanned(ticket.UserID, banned)
	if err != nil {
		log.Printf("toggleTicketUserBan: пользователь %d: %v", ticket.UserID, err)
		bh.replyInThread(msg, constants.MSG_INTERNAL_ERROR)
		return
	}
	if banned {
		bh.replyInThread(msg, fmt.Sprintf("⛔ Пользователь %s заблокирован.", utils.GetUserDisplayName(user)))
	} else {
		bh.replyInThread(msg, fmt.Sprintf("✅ Пользователь %s разблокирован.", utils.GetUserDisplayName(user)))
	}
}

// --- Личный чат / Private chat ---

func (bh *BotHandler) handlePrivateMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		bh.handlePrivateCommand(ctx, msg)
		return
	}

	chatID := msg.Chat.ID
	state := bh.Deps.SessionManager.GetState(chatID)

	// Пользователь вводит тему будущего тикета.
	if state == constants.STATE_TICKET_SUBJECT {
		subject, err := utils.ValidateSubject(msg.Text, bh.Deps.Config.MaxSubjectLength)
		if err != nil {
			bh.sendText(chatID, "❌ "+err.Error()+"\n"+constants.MSG_SUBJECT_PROMPT)
			return
		}
		draft := bh.Deps.SessionManager.GetDraft(chatID)
		draft.Subject = subject
		bh.Deps.SessionManager.SetDraft(chatID, draft)
		bh.Deps.SessionManager.SetState(chatID, constants.STATE_TICKET_MESSAGE)
		bh.sendText(chatID, constants.MSG_FIRST_MSG_PROMPT)
		return
	}

	content, ok := extractContent(msg)
	if !ok {
		bh.sendText(chatID, constants.MSG_UNSUPPORTED_CONTENT)
		return
	}

	draft := bh.Deps.SessionManager.GetDraft(chatID)
	ev := bridge.UserEvent{
		TelegramID: msg.From.ID,
		Username:   msg.From.UserName,
		FullName:   senderFullName(msg.From),
		MessageID:  int64(msg.MessageID),
		Subject:    draft.Subject,
		ForceNew:   draft.ForceNew && state == constants.STATE_TICKET_MESSAGE,
		Content:    content,
	}
	// В режиме переписки пользователь уже выбрал конкретное обращение.
	if state == constants.STATE_TICKET_CHAT {
		ev.TicketCode = draft.TicketCode
	}

	out, err := bh.Deps.Router.HandleUserEvent(ctx, ev)
	if err != nil {
		log.Printf("handlePrivateMessage: ошибка обработки сообщения пользователя %d: %v", msg.From.ID, err)
		bh.sendText(chatID, constants.MSG_INTERNAL_ERROR)
		return
	}

	switch out.Status {
	case bridge.OutcomeOK:
		if state == constants.STATE_TICKET_MESSAGE {
			// Черновик израсходован: тикет создан, дальше переписка по нему.
			bh.Deps.SessionManager.SetDraft(chatID, session.TicketDraft{TicketCode: out.Ticket.TicketCode})
			bh.Deps.SessionManager.SetState(chatID, constants.STATE_TICKET_CHAT)
			bh.sendText(chatID, fmt.Sprintf(constants.MSG_TICKET_CREATED_FMT, out.Ticket.TicketCode))
		} else {
			bh.sendText(chatID, constants.MSG_MESSAGE_SENT)
		}
	case bridge.OutcomeThrottled:
		bh.sendText(chatID, fmt.Sprintf(constants.MSG_THROTTLED_FMT, int(out.RetryAfter.Seconds())))
	case bridge.OutcomeBanned:
		bh.sendText(chatID, constants.MSG_BANNED)
	case bridge.OutcomeInvalidContent:
		bh.sendText(chatID, constants.MSG_UNSUPPORTED_CONTENT)
	case bridge.OutcomeOpenCapExceeded:
		bh.Deps.SessionManager.ClearAll(chatID)
		bh.sendText(chatID, constants.MSG_TOO_MANY_TICKETS)
	case bridge.OutcomeTicketClosed:
		bh.sendText(chatID, constants.MSG_TICKET_CLOSED_USER)
	default:
		bh.sendText(chatID, constants.MSG_DELIVERY_FAILED)
	}
}

func (bh *BotHandler) handlePrivateCommand(ctx context.Context, msg *tgbotapi.Message) {
	if bh.handleAdminCommand(msg) {
		return
	}
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		bh.Deps.SessionManager.ClearAll(chatID)
		if args := msg.CommandArguments(); strings.HasPrefix(args, "ticket_") {
			// Диплинк из QR-кода или ссылки на тикет.
			bh.showTicketCard(chatID, msg.From.ID, strings.TrimPrefix(args, "ticket_"))
			return
		}
		greeting := bh.Deps.Store.GetSetting(constants.SETTING_GREETING_TEXT, constants.MSG_GREETING)
		bh.sendWithKeyboard(chatID, greeting, mainMenuKeyboard())
	case "new":
		bh.startTicketDraft(chatID)
	case "tickets":
		bh.showTicketList(chatID, msg.From.ID)
	case "close":
		bh.closeActiveTicket(ctx, msg)
	default:
		bh.sendWithKeyboard(chatID, constants.MSG_GREETING, mainMenuKeyboard())
	}
}

// closeActiveTicket закрывает активный тикет пользователя по команде /close.
func (bh *BotHandler) closeActiveTicket(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	user, err := bh.Deps.Store.GetUserByTelegramID(msg.From.ID)
	if err != nil {
		bh.sendText(chatID, constants.MSG_NO_ACTIVE_TICKETS)
		return
	}
	ticket, err := bh.Deps.Store.FindOpenTicketForUser(user.ID)
	if err != nil {
		log.Printf("closeActiveTicket: поиск тикета пользователя %d: %v", user.ID, err)
		bh.sendText(chatID, constants.MSG_INTERNAL_ERROR)
		return
	}
	if ticket == nil {
		bh.sendText(chatID, constants.MSG_NO_ACTIVE_TICKETS)
		return
	}
	if _, err := bh.Deps.Router.SetTicketStatus(ctx, ticket.ID, constants.TICKET_STATUS_CLOSED, nil); err != nil {
		log.Printf("closeActiveTicket: закрытие тикета %s: %v", ticket.TicketCode, err)
		bh.sendText(chatID, constants.MSG_INTERNAL_ERROR)
		return
	}
	bh.Deps.SessionManager.ClearAll(chatID)
	bh.sendText(chatID, fmt.Sprintf(constants.MSG_TICKET_CLOSED_FMT, ticket.TicketCode))
}

// extractContent переводит входящее сообщение Telegram в контент моста.
// Анимация проверяется раньше документа: API дублирует её и в Document.
func extractContent(msg *tgbotapi.Message) (models.Content, bool) {
	switch {
	case msg.Text != "":
		return models.Content{Kind: models.ContentText, Text: msg.Text}, true
	case len(msg.Photo) > 0:
		// Берём самый крупный вариант фото.
		best := msg.Photo[len(msg.Photo)-1]
		return models.Content{Kind: models.ContentPhoto, FileID: best.FileID, Text: msg.Caption}, true
	case msg.Animation != nil:
		return models.Content{Kind: models.ContentAnimation, FileID: msg.Animation.FileID, FileName: msg.Animation.FileName, Text: msg.Caption}, true
	case msg.Document != nil:
		return models.Content{Kind: models.ContentDocument, FileID: msg.Document.FileID, FileName: msg.Document.FileName, Text: msg.Caption}, true
	case msg.Video != nil:
		return models.Content{Kind: models.ContentVideo, FileID: msg.Video.FileID, Text: msg.Caption}, true
	case msg.Voice != nil:
		return models.Content{Kind: models.ContentVoice, FileID: msg.Voice.FileID, Text: msg.Caption}, true
	case msg.VideoNote != nil:
		return models.Content{Kind: models.ContentVideoNote, FileID: msg.VideoNote.FileID}, true
	case msg.Sticker != nil:
		return models.Content{Kind: models.ContentSticker, FileID: msg.Sticker.FileID}, true
	}
	return models.Content{}, false
}

func senderFullName(from *tgbotapi.User) string {
	return strings.TrimSpace(strings.TrimSpace(from.FirstName) + " " + strings.TrimSpace(from.LastName))
}
