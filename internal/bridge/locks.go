package bridge

import "sync"

// ticketLocks — мьютексы по ID тикета. Все изменения статуса тикета и его
// набора связей идут под этой блокировкой: два оператора, одновременно
// берущие тикет, или гонка закрытие/ответ сериализуются здесь.
// Записи не освобождаются; объём ограничен числом тикетов, затронутых за
// время жизни процесса.
type ticketLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// lock блокирует тикет и возвращает функцию разблокировки.
func (tl *ticketLocks) lock(ticketID int64) func() {
	tl.mu.Lock()
	if tl.locks == nil {
		tl.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := tl.locks[ticketID]
	if !ok {
		m = &sync.Mutex{}
		tl.locks[ticketID] = m
	}
	tl.mu.Unlock()

	m.Lock()
	return m.Unlock
}
