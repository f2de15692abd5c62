package handlers

import (
	"testing"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"supportbot/internal/constants"
	"supportbot/internal/models"
)

func TestSupportCommandStatus(t *testing.T) {
	cases := []struct {
		cmd    string
		status string
		ok     bool
	}{
		{"close", constants.TICKET_STATUS_CLOSED, true},
		{"wait", constants.TICKET_STATUS_WAITING_USER, true},
		{"reopen", constants.TICKET_STATUS_IN_PROGRESS, true},
		{"ban", "", false},
		{"start", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		status, ok := supportCommandStatus(c.cmd)
		if ok != c.ok || status != c.status {
			t.Errorf("supportCommandStatus(%q) = (%q, %v), ожидалось (%q, %v)", c.cmd, status, ok, c.status, c.ok)
		}
	}
}

func TestExtractContent(t *testing.T) {
	cases := []struct {
		name string
		msg  tgbotapi.Message
		want models.Content
		ok   bool
	}{
		{
			name: "текст",
			msg:  tgbotapi.Message{Text: "привет"},
			want: models.Content{Kind: models.ContentText, Text: "привет"},
			ok:   true,
		},
		{
			name: "фото берётся самое крупное",
			msg: tgbotapi.Message{
				Photo:   []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "big"}},
				Caption: "скрин",
			},
			want: models.Content{Kind: models.ContentPhoto, FileID: "big", Text: "скрин"},
			ok:   true,
		},
		{
			// Telegram дублирует гифку и в Document — побеждает анимация.
			name: "анимация раньше документа",
			msg: tgbotapi.Message{
				Animation: &tgbotapi.Animation{FileID: "anim", FileName: "cat.gif"},
				Document:  &tgbotapi.Document{FileID: "doc", FileName: "cat.gif"},
			},
			want: models.Content{Kind: models.ContentAnimation, FileID: "anim", FileName: "cat.gif"},
			ok:   true,
		},
		{
			name: "документ",
			msg:  tgbotapi.Message{Document: &tgbotapi.Document{FileID: "doc", FileName: "счёт.pdf"}},
			want: models.Content{Kind: models.ContentDocument, FileID: "doc", FileName: "счёт.pdf"},
			ok:   true,
		},
		{
			name: "кружок",
			msg:  tgbotapi.Message{VideoNote: &tgbotapi.VideoNote{FileID: "note"}},
			want: models.Content{Kind: models.ContentVideoNote, FileID: "note"},
			ok:   true,
		},
		{
			name: "пустое сообщение не поддерживается",
			msg:  tgbotapi.Message{},
			ok:   false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := extractContent(&c.msg)
			if ok != c.ok {
				t.Fatalf("ok = %v, ожидалось %v", ok, c.ok)
			}
			if ok && got != c.want {
				t.Errorf("контент %+v, ожидался %+v", got, c.want)
			}
		})
	}
}
