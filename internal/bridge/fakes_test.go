package bridge

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"supportbot/internal/constants"
	"supportbot/internal/models"
)

// memStore — хранилище в памяти, реализует все контракты stores.go и
// lifecycle.TicketStore. Семантика повторяет db.Store.
type memStore struct {
	mu       sync.Mutex
	users    map[int64]models.User
	byTG     map[int64]int64
	tickets  map[int64]models.Ticket
	msgs     []models.Message
	links    []models.MessageLink
	settings map[string]string
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]models.User),
		byTG:     make(map[int64]int64),
		tickets:  make(map[int64]models.Ticket),
		settings: make(map[string]string),
	}
}

func (s *memStore) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) ResolveOrCreateUser(telegramID int64, username, fullName string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byTG[telegramID]; ok {
		u := s.users[id]
		u.Username = sql.NullString{String: username, Valid: username != ""}
		u.FullName = fullName
		s.users[id] = u
		return u, nil
	}
	u := models.User{
		ID:         s.nextIDLocked(),
		TelegramID: telegramID,
		Username:   sql.NullString{String: username, Valid: username != ""},
		FullName:   fullName,
		CreatedAt:  time.Now(),
	}
	s.users[u.ID] = u
	s.byTG[telegramID] = u.ID
	return u, nil
}

func (s *memStore) GetUserByID(id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("пользователь %d не найден", id)
	}
	return u, nil
}

func (s *memStore) banUser(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	u.IsBanned = true
	s.users[userID] = u
}

func (s *memStore) CreateTicket(userID int64, subject string) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := models.Ticket{
		ID:        s.nextIDLocked(),
		UserID:    userID,
		Subject:   subject,
		Status:    constants.TICKET_STATUS_OPEN,
		CreatedAt: time.Now(),
	}
	t.TicketCode = fmt.Sprintf("SHFT-%04d", t.ID)
	s.tickets[t.ID] = t
	return t, nil
}

func (s *memStore) FindOpenTicketForUser(userID int64) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.Ticket
	for _, t := range s.tickets {
		t := t
		if t.UserID == userID && t.Status != constants.TICKET_STATUS_CLOSED &&
			(best == nil || t.ID > best.ID) {
			best = &t
		}
	}
	return best, nil
}

func (s *memStore) FindLastTicketForUser(userID int64) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.Ticket
	for _, t := range s.tickets {
		t := t
		if t.UserID == userID && (best == nil || t.ID > best.ID) {
			best = &t
		}
	}
	return best, nil
}

func (s *memStore) GetTicketByID(id int64) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *memStore) FindTicketByCode(code string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.TicketCode == code {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindTicketByTopic(topicID int64) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.TopicID.Valid && t.TopicID.Int64 == topicID {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (s *memStore) CountOpenTicketsForUser(userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, t := range s.tickets {
		if t.UserID == userID && t.Status != constants.TICKET_STATUS_CLOSED {
			count++
		}
	}
	return count, nil
}

func (s *memStore) SetTicketTopic(ticketID, topicID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tickets[ticketID]
	t.TopicID = sql.NullInt64{Int64: topicID, Valid: true}
	s.tickets[ticketID] = t
	return nil
}

func (s *memStore) UpdateTicketStatus(ticketID int64, status string, operatorID sql.NullInt64, closedAt sql.NullTime) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return models.Ticket{}, fmt.Errorf("тикет %d не найден", ticketID)
	}
	t.Status = status
	if operatorID.Valid {
		t.OperatorID = operatorID
	}
	t.ClosedAt = closedAt
	t.UpdatedAt = time.Now()
	s.tickets[ticketID] = t
	return t, nil
}

func (s *memStore) AddMessage(m models.Message) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.nextIDLocked()
	m.CreatedAt = time.Now()
	s.msgs = append(s.msgs, m)
	return m, nil
}

func (s *memStore) GetTicketMessages(ticketID int64, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.msgs {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) AddMessageLink(l models.MessageLink) (models.MessageLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.nextIDLocked()
	l.CreatedAt = time.Now()
	s.links = append(s.links, l)
	return l, nil
}

func (s *memStore) GetLinkBySupportMessage(supportMessageID int64) (*models.MessageLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.SupportMessageID == supportMessageID {
			l := l
			return &l, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetSetting(key, fallback string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.settings[key]; ok {
		return v
	}
	return fallback
}

func (s *memStore) setSetting(key, value string) {
	s.mu.Lock()
	s.settings[key] = value
	s.mu.Unlock()
}

func (s *memStore) linkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

func (s *memStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// fakeTransport записывает все отправки и позволяет подставлять ошибки.
// failCount: -1 — каждая отправка падает с sendErr, N>0 — первые N отправок.
type fakeTransport struct {
	mu         sync.Mutex
	sent       []SendRequest
	nextRef    int64
	sendErr    error
	failCount  int
	threadErr  error
	nextThread int64
	threads    []string
}

func (f *fakeTransport) Send(_ context.Context, req SendRequest) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil && f.failCount != 0 {
		if f.failCount > 0 {
			f.failCount--
		}
		return 0, f.sendErr
	}
	f.nextRef++
	f.sent = append(f.sent, req)
	return f.nextRef, nil
}

func (f *fakeTransport) CreateThread(_ context.Context, _ int64, label string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threadErr != nil {
		return 0, f.threadErr
	}
	f.nextThread++
	f.threads = append(f.threads, label)
	return f.nextThread, nil
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeTransport) lastSent() SendRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}
