package utils

import (
	"database/sql"
	"strings"
	"testing"

	"supportbot/internal/constants"
	"supportbot/internal/models"
)

func TestGetUserDisplayName(t *testing.T) {
	u := models.User{TelegramID: 42, FullName: "Иван Петров"}
	if got := GetUserDisplayName(u); got != "Иван Петров" {
		t.Errorf("GetUserDisplayName = %q, want full name", got)
	}
	u.Username = sql.NullString{String: "ivan", Valid: true}
	if got := GetUserDisplayName(u); got != "@ivan" {
		t.Errorf("GetUserDisplayName = %q, want @ivan", got)
	}
	if got := GetUserDisplayName(models.User{TelegramID: 42}); got != "id42" {
		t.Errorf("GetUserDisplayName = %q, want id42", got)
	}
}

func TestFormatTopicName(t *testing.T) {
	ticket := models.Ticket{TicketCode: "SHFT-AB12", Status: constants.TICKET_STATUS_OPEN}
	user := models.User{Username: sql.NullString{String: "ivan", Valid: true}}
	got := FormatTopicName(ticket, user)
	if got != "🔵 SHFT-AB12 | @ivan" {
		t.Errorf("FormatTopicName = %q", got)
	}

	ticket.Status = constants.TICKET_STATUS_CLOSED
	got = FormatTopicName(ticket, user)
	if !strings.HasPrefix(got, "🔴 ") {
		t.Errorf("closed topic name should start with red marker, got %q", got)
	}
}

func TestTruncateText(t *testing.T) {
	if got := TruncateText("привет", 10); got != "привет" {
		t.Errorf("short text must be unchanged, got %q", got)
	}
	got := TruncateText("длинное сообщение пользователя", 10)
	if len([]rune(got)) != 10 || !strings.HasSuffix(got, "...") {
		t.Errorf("TruncateText = %q, want 10 runes ending with ellipsis", got)
	}
}

func TestValidateSubject(t *testing.T) {
	if _, err := ValidateSubject("   ", 50); err == nil {
		t.Error("blank subject must be rejected")
	}
	if _, err := ValidateSubject(strings.Repeat("ы", 51), 50); err == nil {
		t.Error("over-long subject must be rejected")
	}
	got, err := ValidateSubject("  не работает вход  ", 50)
	if err != nil {
		t.Fatalf("valid subject rejected: %v", err)
	}
	if got != "не работает вход" {
		t.Errorf("subject not trimmed: %q", got)
	}
}

func TestGenerateTicketLink(t *testing.T) {
	link, err := GenerateTicketLink("help_bot", "SHFT-AB12")
	if err != nil {
		t.Fatal(err)
	}
	if link != "https://t.me/help_bot?start=ticket_SHFT-AB12" {
		t.Errorf("GenerateTicketLink = %q", link)
	}
	if _, err := GenerateTicketLink("", "SHFT-AB12"); err == nil {
		t.Error("empty bot username must be rejected")
	}
}
