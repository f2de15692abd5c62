package bridge

import (
	"context"
	"fmt"
	"time"

	"supportbot/internal/models"
)

// SendRequest описывает один исходящий вызов транспорта.
type SendRequest struct {
	ChatID   int64          // чат назначения (чат поддержки или личный чат пользователя)
	ThreadID int64          // топик в группе поддержки, 0 — общий чат
	ReplyTo  int64          // ID сообщения, на которое отвечаем, 0 — без ответа
	Content  models.Content
}

// Transport — внешний коллаборатор: платформа обмена сообщениями.
// Все вызовы могут завершиться троттлингом (*ThrottledError с задержкой от
// провайдера) или обычной ошибкой. Идемпотентность не гарантируется:
// повтор после частичного успеха может породить дубликат исходящего
// сообщения — это допустимая, логируемая деградация.
// Реализуется telegram_api.Transport.
type Transport interface {
	// Send отправляет контент и возвращает ID сообщения в чате назначения.
	Send(ctx context.Context, req SendRequest) (int64, error)
	// CreateThread создаёт топик для тикета и возвращает его ID.
	CreateThread(ctx context.Context, chatID int64, label string) (int64, error)
}

// ThrottledError — сигнал троттлинга от транспорта с задержкой,
// которую просит выдержать провайдер.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("транспорт троттлит, повтор через %s", e.RetryAfter)
}
