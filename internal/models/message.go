package models

import (
	"database/sql"
	"time"
)

// ContentKind — закрытый набор типов контента, которые бот умеет пересылать.
// Исчерпывающий разбор по типам делается только на границе с Telegram
// (internal/telegram_api); остальной код смотрит лишь на SupportsCaption.
// ContentKind is the closed set of content types the bot can relay.
// The exhaustive per-kind dispatch happens only at the Telegram boundary
// (internal/telegram_api); the rest of the code only asks SupportsCaption.
type ContentKind string

const (
	ContentText      ContentKind = "text"
	ContentPhoto     ContentKind = "photo"
	ContentDocument  ContentKind = "document"
	ContentVideo     ContentKind = "video"
	ContentVoice     ContentKind = "voice"
	ContentVideoNote ContentKind = "video_note"
	ContentSticker   ContentKind = "sticker"
	ContentAnimation ContentKind = "animation"
)

// Valid сообщает, поддерживается ли тип контента.
func (k ContentKind) Valid() bool {
	switch k {
	case ContentText, ContentPhoto, ContentDocument, ContentVideo,
		ContentVoice, ContentVideoNote, ContentSticker, ContentAnimation:
		return true
	}
	return false
}

// SupportsCaption сообщает, может ли исходящее сообщение этого типа нести
// текст/подпись. Для типов без подписи (кружок, стикер) мост отправляет
// отдельное текстовое сообщение-заголовок, то есть два исходящих вызова
// и две записи MessageLink.
func (k ContentKind) SupportsCaption() bool {
	switch k {
	case ContentVideoNote, ContentSticker:
		return false
	}
	return true
}

// Content описывает содержимое одного сообщения: тип, текст или подпись
// и непрозрачная ссылка на файл в Telegram (file_id).
type Content struct {
	Kind     ContentKind
	Text     string // текст сообщения или подпись к медиа
	FileID   string // file_id в Telegram, пустой для текста
	FileName string // имя файла для документов, если известно
}

// Message — одно сообщение в тикете. Записи только добавляются,
// история упорядочена по времени создания.
type Message struct {
	ID             int64
	TicketID       int64
	SenderID       int64
	ContentType    ContentKind
	Text           sql.NullString
	FileID         sql.NullString
	FileName       sql.NullString
	IsFromOperator bool
	CreatedAt      time.Time
}
