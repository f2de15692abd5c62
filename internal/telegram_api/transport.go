package telegram_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"supportbot/internal/bridge"
	"supportbot/internal/models"
)

// Transport доставляет контент моста через Telegram Bot API и выполняет
// побочные эффекты переходов статуса. Реализует bridge.Transport и
// lifecycle.SideEffects. Единственное место, где типы контента
// разворачиваются в конкретные вызовы API.
type Transport struct {
	client        *BotClient
	supportChatID int64
}

func NewTransport(client *BotClient, supportChatID int64) *Transport {
	return &Transport{client: client, supportChatID: supportChatID}
}

// Send отправляет контент и возвращает ID сообщения в чате назначения.
func (t *Transport) Send(ctx context.Context, req bridge.SendRequest) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cfg, err := chattableFor(req)
	if err != nil {
		return 0, err
	}
	msg, err := t.client.Send(cfg)
	if err != nil {
		return 0, wrapTelegramError(err)
	}
	return int64(msg.MessageID), nil
}

// CreateThread создаёт топик форума под тикет и возвращает его ID.
// Обёртки в tgbotapi для топиков нет, поэтому зовём API напрямую.
func (t *Transport) CreateThread(ctx context.Context, chatID int64, label string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params["name"] = label

	resp, err := t.client.MakeRequest("createForumTopic", params)
	if err != nil {
		return 0, wrapTelegramError(err)
	}
	var topic struct {
		MessageThreadID int64 `json:"message_thread_id"`
	}
	if err := json.Unmarshal(resp.Result, &topic); err != nil {
		return 0, fmt.Errorf("createForumTopic: разбор ответа: %w", err)
	}
	return topic.MessageThreadID, nil
}

// RelabelTopic меняет название топика тикета (эмодзи статуса в названии).
func (t *Transport) RelabelTopic(ctx context.Context, topicID int64, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", t.supportChatID)
	params.AddNonZero64("message_thread_id", topicID)
	params["name"] = label

	if _, err := t.client.MakeRequest("editForumTopic", params); err != nil {
		return wrapTelegramError(err)
	}
	return nil
}

// NotifyUser шлёт пользователю служебный текст в личный чат.
func (t *Transport) NotifyUser(ctx context.Context, userTelegramID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.client.Send(tgbotapi.NewMessage(userTelegramID, text)); err != nil {
		return wrapTelegramError(err)
	}
	return nil
}

// chattableFor разворачивает контент в конкретный вызов Bot API.
// Switch исчерпывающий: новый тип контента обязан получить ветку здесь,
// иначе отправка вернёт ошибку.
func chattableFor(req bridge.SendRequest) (tgbotapi.Chattable, error) {
	c := req.Content
	switch c.Kind {
	case models.ContentText:
		cfg := tgbotapi.NewMessage(req.ChatID, c.Text)
		applyRouting(&cfg.BaseChat, req)
		return cfg, nil
	case models.ContentPhoto:
		cfg := tgbotapi.NewPhoto(req.ChatID, tgbotapi.FileID(c.FileID))
		cfg.Caption = c.Text
		applyRouting(&cfg.BaseChat, req)
		return cfg, nil
	case models.ContentDocument:
		cfg := tgbotapi.NewDocument(req.ChatID, tgbotapi.FileID(c.FileID))
		cfg.Caption = c.Text
		applyRouting(&cfg.BaseChat, req)
		return cfg, nil
	case models.ContentVideo:
		cfg := tgbotapi.NewVideo(req.ChatID, tgbotapi.FileID(c.FileID))
		cfg.Caption = c.Text
		applyRouting(&cfg.BaseChat, req)
		return cfg, nil
	case models.ContentVoice:
		cfg := tgbotapi.NewVoice(req.ChatID, tgbotapi.FileID(c.FileID))
		cfg.Caption = c.Text
		applyRouting(&cfg.BaseChat, req)
		return cfg, nil
	case models.ContentAnimation:
		cfg := tgbotapi.NewAnimation(req.ChatID, tgbotapi.FileID(c.FileID))
		cfg.Caption = c.Text
		applyRouting(&cfg.BaseChat, req)
		return cfg, nil
	case models.ContentVideoNote:
		cfg := tgbotapi.NewVideoNote(req.ChatID, 0, tgbotapi.FileID(c.FileID))
		applyRouting(&cfg.BaseChat, req)
		return cfg, nil
	case models.ContentSticker:
		cfg := tgbotapi.NewSticker(req.ChatID, tgbotapi.FileID(c.FileID))
		applyRouting(&cfg.BaseChat, req)
		return cfg, nil
	default:
		return nil, fmt.Errorf("неподдерживаемый тип контента: %s", c.Kind)
	}
}

// applyRouting проставляет топик и цитирование на исходящем сообщении.
func applyRouting(base *tgbotapi.BaseChat, req bridge.SendRequest) {
	if req.ThreadID != 0 {
		base.MessageThreadID = int(req.ThreadID)
	}
	if req.ReplyTo != 0 {
		base.ReplyParameters = tgbotapi.ReplyParameters{
			MessageID:                int(req.ReplyTo),
			AllowSendingWithoutReply: true,
		}
	}
}

// wrapTelegramError переводит троттлинг Bot API в bridge.ThrottledError,
// чтобы мост знал задержку повтора. Остальные ошибки проходят как есть.
func wrapTelegramError(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return &bridge.ThrottledError{RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second}
	}
	return err
}
