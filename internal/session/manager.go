package session

import (
	"log"
	"sync"

	"supportbot/internal/constants"
)

// TicketDraft — временные данные создаваемого тикета: тема, введённая
// пользователем, и код тикета, выбранного для переписки.
// TicketDraft holds temporary data of a ticket being created: the subject
// entered by the user and the code of the ticket chosen for chatting.
type TicketDraft struct {
	Subject    string
	TicketCode string
	ForceNew   bool
}

// SessionManager управляет состояниями диалога пользователей и черновиками
// тикетов. Всё в памяти процесса: перезапуск сбрасывает диалоги, но не
// тикеты — они в базе.
// SessionManager manages user dialog states and ticket drafts.
type SessionManager struct {
	userStates     map[int64]string // Ключ: chatID, Значение: текущее состояние / Key: chatID, Value: current state
	userStateMutex sync.RWMutex

	drafts      map[int64]TicketDraft // Ключ: chatID пользователя / Key: user's chatID
	draftsMutex sync.RWMutex
}

// NewSessionManager создает и возвращает новый экземпляр SessionManager.
// NewSessionManager creates and returns a new instance of SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		userStates: make(map[int64]string),
		drafts:     make(map[int64]TicketDraft),
	}
}

// GetState возвращает текущее состояние пользователя.
// Если состояние для пользователя не установлено, возвращает STATE_IDLE.
// GetState returns the current user state, STATE_IDLE if none is set.
func (sm *SessionManager) GetState(chatID int64) string {
	sm.userStateMutex.RLock()
	defer sm.userStateMutex.RUnlock()
	state, ok := sm.userStates[chatID]
	if !ok {
		return constants.STATE_IDLE
	}
	return state
}

// SetState устанавливает новое состояние для пользователя.
// SetState sets a new state for the user.
func (sm *SessionManager) SetState(chatID int64, state string) {
	sm.userStateMutex.Lock()
	defer sm.userStateMutex.Unlock()
	sm.userStates[chatID] = state
	log.Printf("SessionManager.SetState: Состояние для chatID %d установлено: %s", chatID, state)
}

// ClearState сбрасывает состояние пользователя в STATE_IDLE.
// ClearState resets the user's state to STATE_IDLE.
func (sm *SessionManager) ClearState(chatID int64) {
	sm.userStateMutex.Lock()
	defer sm.userStateMutex.Unlock()
	delete(sm.userStates, chatID)
}

// GetDraft возвращает черновик тикета пользователя (нулевой, если его нет).
// GetDraft returns the user's ticket draft (zero value if absent).
func (sm *SessionManager) GetDraft(chatID int64) TicketDraft {
	sm.draftsMutex.RLock()
	defer sm.draftsMutex.RUnlock()
	return sm.drafts[chatID]
}

// SetDraft сохраняет черновик тикета пользователя.
// SetDraft stores the user's ticket draft.
func (sm *SessionManager) SetDraft(chatID int64, draft TicketDraft) {
	sm.draftsMutex.Lock()
	defer sm.draftsMutex.Unlock()
	sm.drafts[chatID] = draft
}

// ClearDraft удаляет черновик тикета пользователя.
// ClearDraft removes the user's ticket draft.
func (sm *SessionManager) ClearDraft(chatID int64) {
	sm.draftsMutex.Lock()
	defer sm.draftsMutex.Unlock()
	delete(sm.drafts, chatID)
}

// ClearAll сбрасывает и состояние, и черновик (выход в главное меню).
// ClearAll resets both state and draft (return to main menu).
func (sm *SessionManager) ClearAll(chatID int64) {
	sm.ClearState(chatID)
	sm.ClearDraft(chatID)
}
