package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateSubject проверяет тему тикета: не пустая и не длиннее maxLen
// символов. Возвращает нормализованную тему (без краевых пробелов).
// Ошибка валидации — корректируемая пользователем, не логируется как сбой.
func ValidateSubject(subject string, maxLen int) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", fmt.Errorf("тема не может быть пустой")
	}
	if utf8.RuneCountInString(subject) > maxLen {
		return "", fmt.Errorf("тема слишком длинная (макс. %d символов)", maxLen)
	}
	return subject, nil
}
