package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock позволяет управлять временем в тестах.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(max int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(max, window)
	l.now = clock.now
	return l, clock
}

func TestLimiterThrottlesOverLimit(t *testing.T) {
	l, _ := newTestLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		ok, _ := l.Check(1)
		if !ok {
			t.Fatalf("сообщение %d не должно быть отклонено", i+1)
		}
	}

	ok, retryAfter := l.Check(1)
	if ok {
		t.Fatal("шестое сообщение в окне должно быть отклонено")
	}
	if retryAfter <= 0 {
		t.Errorf("retryAfter = %v, должен быть положительным", retryAfter)
	}
}

func TestLimiterAdmitsAfterWindow(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		l.Check(7)
	}
	if ok, _ := l.Check(7); ok {
		t.Fatal("лимит должен сработать")
	}

	clock.advance(time.Minute + time.Second)

	if ok, _ := l.Check(7); !ok {
		t.Fatal("после истечения окна пользователь должен быть допущен")
	}
}

func TestLimiterIsPerUser(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	if ok, _ := l.Check(1); !ok {
		t.Fatal("первый пользователь должен быть допущен")
	}
	if ok, _ := l.Check(2); !ok {
		t.Fatal("лимит одного пользователя не должен влиять на другого")
	}
	if ok, _ := l.Check(1); ok {
		t.Fatal("повтор от первого пользователя должен быть отклонён")
	}
}

func TestLimiterReset(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	l.Check(5)
	if ok, _ := l.Check(5); ok {
		t.Fatal("лимит должен сработать")
	}
	l.Reset(5)
	if ok, _ := l.Check(5); !ok {
		t.Fatal("после сброса пользователь должен быть допущен")
	}
}

func TestLimiterConcurrentChecks(t *testing.T) {
	l, _ := newTestLimiter(100, time.Minute)

	var wg sync.WaitGroup
	admitted := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := l.Check(9)
			admitted <- ok
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for ok := range admitted {
		if ok {
			count++
		}
	}
	if count != 100 {
		t.Errorf("допущено %d сообщений, ожидалось ровно 100", count)
	}
}
