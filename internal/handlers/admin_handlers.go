package handlers

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"supportbot/internal/constants"
)

// handleAdminCommand обрабатывает команды администраторов в личном чате.
// Возвращает true, если команда распознана и обработана; false — если это
// не админская команда и её нужно обработать как обычную.
func (bh *BotHandler) handleAdminCommand(msg *tgbotapi.Message) bool {
	if !bh.Deps.Config.IsAdmin(msg.From.ID) {
		return false
	}
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "ban", "unban":
		targetID, err := strconv.ParseInt(args, 10, 64)
		if err != nil {
			bh.sendText(chatID, fmt.Sprintf("Использование: /%s <telegram_id>", msg.Command()))
			return true
		}
		target, err := bh.Deps.Store.GetUserByTelegramID(targetID)
		if err != nil {
			bh.sendText(chatID, "Пользователь не найден.")
			return true
		}
		banned := msg.Command() == "ban"
		if _, err := bh.Deps.Store.SetUserBanned(target.ID, banned); err != nil {
			log.Printf("handleAdminCommand: бан пользователя %d: %v", targetID, err)
			bh.sendText(chatID, constants.MSG_INTERNAL_ERROR)
			return true
		}
		if banned {
			bh.sendText(chatID, fmt.Sprintf("⛔ Пользователь %d заблокирован.", targetID))
		} else {
			bh.sendText(chatID, fmt.Sprintf("✅ Пользователь %d разблокирован.", targetID))
		}

	case "mode":
		if args != constants.ROUTING_MODE_TOPICS && args != constants.ROUTING_MODE_SHARED {
			bh.sendText(chatID, fmt.Sprintf("Использование: /mode %s|%s",
				constants.ROUTING_MODE_TOPICS, constants.ROUTING_MODE_SHARED))
			return true
		}
		bh.saveSetting(chatID, constants.SETTING_ROUTING_MODE, args)

	case "policy":
		if args != constants.CLOSED_POLICY_REOPEN && args != constants.CLOSED_POLICY_NEW_TICKET {
			bh.sendText(chatID, fmt.Sprintf("Использование: /policy %s|%s",
				constants.CLOSED_POLICY_REOPEN, constants.CLOSED_POLICY_NEW_TICKET))
			return true
		}
		bh.saveSetting(chatID, constants.SETTING_CLOSED_TICKET_POLICY, args)

	case "greeting":
		if args == "" {
			bh.sendText(chatID, "Использование: /greeting <текст приветствия>")
			return true
		}
		bh.saveSetting(chatID, constants.SETTING_GREETING_TEXT, args)

	default:
		return false
	}
	return true
}

func (bh *BotHandler) saveSetting(chatID int64, key, value string) {
	if err := bh.Deps.Store.SetSetting(key, value); err != nil {
		log.Printf("saveSetting: запись настройки %s: %v", key, err)
		bh.sendText(chatID, constants.MSG_INTERNAL_ERROR)
		return
	}
	bh.sendText(chatID, fmt.Sprintf("⚙️ %s = %s", key, value))
}
