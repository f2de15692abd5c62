// Пакет ratelimit — защита от спама: скользящее окно по пользователю.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter ограничивает число сообщений от одного пользователя в окне.
// Безопасен для конкурентных вызовов. Старые отметки вычищаются лениво,
// при каждой проверке — фонового обходчика нет, объём состояния ограничен
// числом сообщений одного пользователя в пределах окна.
type Limiter struct {
	maxMessages int
	window      time.Duration

	mu   sync.Mutex
	hits map[int64][]time.Time

	now func() time.Time // подменяется в тестах
}

// NewLimiter создаёт лимитер: не более maxMessages сообщений за window.
func NewLimiter(maxMessages int, window time.Duration) *Limiter {
	return &Limiter{
		maxMessages: maxMessages,
		window:      window,
		hits:        make(map[int64][]time.Time),
		now:         time.Now,
	}
}

// Check проверяет, не превышен ли лимит для пользователя.
// Возвращает (true, 0) при допуске — текущее сообщение при этом
// учитывается в окне, либо (false, retryAfter) при превышении.
func (l *Limiter) Check(userID int64) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	// Ленивая очистка: выбрасываем отметки старше окна.
	fresh := l.hits[userID][:0]
	for _, ts := range l.hits[userID] {
		if ts.After(cutoff) {
			fresh = append(fresh, ts)
		}
	}

	if len(fresh) >= l.maxMessages {
		l.hits[userID] = fresh
		oldest := fresh[0]
		retryAfter := l.window - now.Sub(oldest) + time.Second
		return false, retryAfter
	}

	l.hits[userID] = append(fresh, now)
	return true, 0
}

// Reset сбрасывает счётчик пользователя (например, после разбана).
func (l *Limiter) Reset(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hits, userID)
}
