package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"supportbot/internal/constants"
	"supportbot/internal/lifecycle"
	"supportbot/internal/models"
	"supportbot/internal/utils"
)

// jsonResponse - вспомогательная структура для стандартного ответа API
type jsonResponse struct {
	Status  string      `json:"status"` // "success" или "error"
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// TicketStatusRequest - структура запроса на изменение статуса тикета.
type TicketStatusRequest struct {
	Status             string `json:"status"`
	OperatorTelegramID int64  `json:"operator_telegram_id,omitempty"`
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(jsonResponse{Status: "error", Message: message})
}

func writeJSONSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jsonResponse{Status: "success", Message: "ok", Data: data})
}

// HealthHandler — проверка живости для балансировщика и мониторинга.
func (deps *ApiDependencies) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONSuccess(w, nil)
}

// ListTicketsHandler возвращает тикеты, опционально отфильтрованные по
// статусу: GET /api/tickets?status=open&limit=20
func (deps *ApiDependencies) ListTicketsHandler(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !isKnownStatus(status) {
		writeJSONError(w, http.StatusBadRequest, "неизвестный статус: "+status)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	tickets, err := deps.Store.ListTickets(status, limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "не удалось получить список тикетов")
		return
	}
	writeJSONSuccess(w, tickets)
}

// GetTicketHandler возвращает тикет с автором и историей переписки:
// GET /api/tickets/{code}
func (deps *ApiDependencies) GetTicketHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	view, err := deps.Bridge.GetTicketView(code, constants.DEFAULT_OPERATOR_HISTORY_LIMIT)
	if err != nil {
		log.Printf("GetTicketHandler: тикет %s: %v", code, err)
		writeJSONError(w, http.StatusInternalServerError, "не удалось получить тикет")
		return
	}
	if view == nil {
		writeJSONError(w, http.StatusNotFound, "тикет не найден")
		return
	}
	writeJSONSuccess(w, view)
}

// UpdateTicketStatusHandler переводит тикет в новый статус:
// POST /api/tickets/{code}/status {"status":"closed","operator_telegram_id":123}
func (deps *ApiDependencies) UpdateTicketStatusHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req TicketStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректное тело запроса")
		return
	}
	if !isKnownStatus(req.Status) {
		writeJSONError(w, http.StatusBadRequest, "неизвестный статус: "+req.Status)
		return
	}

	ticket, err := deps.Store.FindTicketByCode(code)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "не удалось получить тикет")
		return
	}
	if ticket == nil {
		writeJSONError(w, http.StatusNotFound, "тикет не найден")
		return
	}

	var actor *models.User
	if req.OperatorTelegramID != 0 {
		operator, err := deps.Store.GetUserByTelegramID(req.OperatorTelegramID)
		if err == nil {
			actor = &operator
		}
	}

	updated, err := deps.Bridge.SetTicketStatus(r.Context(), ticket.ID, req.Status, actor)
	if err != nil {
		var invalid *lifecycle.InvalidTransitionError
		if errors.As(err, &invalid) {
			writeJSONError(w, http.StatusConflict, invalid.Error())
			return
		}
		log.Printf("UpdateTicketStatusHandler: тикет %s в '%s': %v", code, req.Status, err)
		writeJSONError(w, http.StatusInternalServerError, "не удалось изменить статус")
		return
	}
	writeJSONSuccess(w, updated)
}

// TicketQRHandler отдаёт PNG с QR-кодом диплинка на тикет:
// GET /api/tickets/{code}/qr
func (deps *ApiDependencies) TicketQRHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	ticket, err := deps.Store.FindTicketByCode(code)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "не удалось получить тикет")
		return
	}
	if ticket == nil {
		writeJSONError(w, http.StatusNotFound, "тикет не найден")
		return
	}

	link, err := utils.GenerateTicketLink(deps.BotUsername, ticket.TicketCode)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "не удалось построить ссылку")
		return
	}
	// qrcode.Medium - уровень коррекции ошибок, 256 - размер в пикселях.
	qrBytes, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		log.Printf("TicketQRHandler: генерация QR для %s: %v", code, err)
		writeJSONError(w, http.StatusInternalServerError, "не удалось сгенерировать QR-код")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(qrBytes)
}

func isKnownStatus(status string) bool {
	switch status {
	case constants.TICKET_STATUS_OPEN, constants.TICKET_STATUS_IN_PROGRESS,
		constants.TICKET_STATUS_WAITING_USER, constants.TICKET_STATUS_CLOSED:
		return true
	}
	return false
}
