package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"supportbot/internal/constants"
	"supportbot/internal/models"
	"supportbot/internal/session"
	"supportbot/internal/utils"
)

// HandleCallbackQuery обрабатывает нажатия инлайн-кнопок в личном чате.
func (bh *BotHandler) HandleCallbackQuery(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Снимаем «часики» с кнопки независимо от результата.
	if _, err := bh.Deps.BotClient.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("HandleCallbackQuery: ошибка ответа на коллбэк %s: %v", cb.ID, err)
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case data == constants.CB_CREATE_TICKET:
		bh.startTicketDraft(chatID)
	case data == constants.CB_MY_TICKETS:
		bh.showTicketList(chatID, cb.From.ID)
	case data == constants.CB_BACK_TO_MENU:
		bh.Deps.SessionManager.ClearAll(chatID)
		greeting := bh.Deps.Store.GetSetting(constants.SETTING_GREETING_TEXT, constants.MSG_GREETING)
		bh.sendWithKeyboard(chatID, greeting, mainMenuKeyboard())
	case strings.HasPrefix(data, constants.CB_VIEW_TICKET):
		bh.showTicketCard(chatID, cb.From.ID, strings.TrimPrefix(data, constants.CB_VIEW_TICKET))
	case strings.HasPrefix(data, constants.CB_CHAT_TICKET):
		bh.startTicketChat(chatID, cb.From.ID, strings.TrimPrefix(data, constants.CB_CHAT_TICKET))
	case strings.HasPrefix(data, constants.CB_CLOSE_TICKET):
		bh.closeTicketByCode(ctx, chatID, cb.From.ID, strings.TrimPrefix(data, constants.CB_CLOSE_TICKET))
	default:
		log.Printf("HandleCallbackQuery: неизвестный коллбэк '%s' от пользователя %d", data, cb.From.ID)
	}
}

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(constants.BTN_CREATE_TICKET, constants.CB_CREATE_TICKET),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(constants.BTN_MY_TICKETS, constants.CB_MY_TICKETS),
		),
	)
}

// startTicketDraft запускает диалог создания тикета: сначала тема.
func (bh *BotHandler) startTicketDraft(chatID int64) {
	bh.Deps.SessionManager.SetDraft(chatID, session.TicketDraft{ForceNew: true})
	bh.Deps.SessionManager.SetState(chatID, constants.STATE_TICKET_SUBJECT)
	bh.sendText(chatID, constants.MSG_SUBJECT_PROMPT)
}

// showTicketList показывает тикеты пользователя с кнопками просмотра.
func (bh *BotHandler) showTicketList(chatID, telegramID int64) {
	user, err := bh.Deps.Store.GetUserByTelegramID(telegramID)
	if err != nil {
		bh.sendWithKeyboard(chatID, constants.MSG_NO_ACTIVE_TICKETS, mainMenuKeyboard())
		return
	}
	tickets, err := bh.Deps.Store.GetUserTickets(user.ID, constants.DEFAULT_HISTORY_LIMIT)
	if err != nil {
		log.Printf("showTicketList: тикеты пользователя %d: %v", user.ID, err)
		bh.sendText(chatID, constants.MSG_INTERNAL_ERROR)
		return
	}
	if len(tickets) == 0 {
		bh.sendWithKeyboard(chatID, constants.MSG_NO_ACTIVE_TICKETS, mainMenuKeyboard())
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tickets)+1)
	for _, t := range tickets {
		label := fmt.Sprintf("%s %s — %s", t.TicketCode, utils.StatusDisplay(t.Status), utils.TruncateText(t.Subject, 24))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, constants.CB_VIEW_TICKET+t.TicketCode),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(constants.BTN_BACK, constants.CB_BACK_TO_MENU),
	))
	bh.sendWithKeyboard(chatID, "📋 Ваши обращения:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// showTicketCard показывает карточку тикета с действиями.
func (bh *BotHandler) showTicketCard(chatID, telegramID int64, code string) {
	ticket, owned := bh.ownedTicket(telegramID, code)
	if !owned {
		bh.sendWithKeyboard(chatID, constants.MSG_NO_ACTIVE_TICKETS, mainMenuKeyboard())
		return
	}

	text := fmt.Sprintf("🎫 %s\n%s\n\n📋 %s\n📅 %s",
		ticket.TicketCode,
		utils.StatusDisplay(ticket.Status),
		ticket.Subject,
		ticket.CreatedAt.Format("02.01.2006 15:04"))

	var rows [][]tgbotapi.InlineKeyboardButton
	if ticket.Status != constants.TICKET_STATUS_CLOSED {
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(constants.BTN_WRITE, constants.CB_CHAT_TICKET+ticket.TicketCode),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(constants.BTN_CLOSE, constants.CB_CLOSE_TICKET+ticket.TicketCode),
			))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(constants.BTN_BACK, constants.CB_MY_TICKETS),
	))
	bh.sendWithKeyboard(chatID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// startTicketChat переводит диалог в режим переписки по тикету.
func (bh *BotHandler) startTicketChat(chatID, telegramID int64, code string) {
	ticket, owned := bh.ownedTicket(telegramID, code)
	if !owned {
		bh.sendWithKeyboard(chatID, constants.MSG_NO_ACTIVE_TICKETS, mainMenuKeyboard())
		return
	}
	draft := bh.Deps.SessionManager.GetDraft(chatID)
	draft.TicketCode = ticket.TicketCode
	bh.Deps.SessionManager.SetDraft(chatID, draft)
	bh.Deps.SessionManager.SetState(chatID, constants.STATE_TICKET_CHAT)
	bh.sendText(chatID, fmt.Sprintf("💬 Пишите — сообщения попадут в обращение %s.", ticket.TicketCode))
}

// closeTicketByCode закрывает тикет пользователя по кнопке в карточке.
func (bh *BotHandler) closeTicketByCode(ctx context.Context, chatID, telegramID int64, code string) {
	ticket, owned := bh.ownedTicket(telegramID, code)
	if !owned {
		bh.sendWithKeyboard(chatID, constants.MSG_NO_ACTIVE_TICKETS, mainMenuKeyboard())
		return
	}
	if ticket.Status == constants.TICKET_STATUS_CLOSED {
		bh.showTicketCard(chatID, telegramID, code)
		return
	}
	if _, err := bh.Deps.Router.SetTicketStatus(ctx, ticket.ID, constants.TICKET_STATUS_CLOSED, nil); err != nil {
		log.Printf("closeTicketByCode: закрытие тикета %s: %v", ticket.TicketCode, err)
		bh.sendText(chatID, constants.MSG_INTERNAL_ERROR)
		return
	}
	bh.Deps.SessionManager.ClearAll(chatID)
	bh.sendWithKeyboard(chatID, fmt.Sprintf(constants.MSG_TICKET_CLOSED_FMT, ticket.TicketCode), mainMenuKeyboard())
}

// ownedTicket возвращает тикет по коду, если он принадлежит пользователю.
// Чужие и несуществующие коды неразличимы для вызывающего.
func (bh *BotHandler) ownedTicket(telegramID int64, code string) (*models.Ticket, bool) {
	t, err := bh.Deps.Store.FindTicketByCode(code)
	if err != nil || t == nil {
		return nil, false
	}
	user, err := bh.Deps.Store.GetUserByTelegramID(telegramID)
	if err != nil || t.UserID != user.ID {
		return nil, false
	}
	return t, true
}
