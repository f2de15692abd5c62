package bridge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"supportbot/internal/constants"
	"supportbot/internal/lifecycle"
	"supportbot/internal/models"
	"supportbot/internal/ratelimit"
)

func newTestRouterLimiter(t *testing.T, limiter *ratelimit.Limiter) (*Router, *memStore, *fakeTransport) {
	t.Helper()
	store := newMemStore()
	transport := &fakeTransport{}
	r := NewRouter(Deps{
		Users:     store,
		Tickets:   store,
		Messages:  store,
		Links:     store,
		Settings:  store,
		Lifecycle: &lifecycle.Controller{Tickets: store},
		Transport: transport,
		Limiter:   limiter,
	}, Config{SupportChatID: -100200300, MaxOpenTickets: 3, SendRetries: 2})
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r, store, transport
}

func newTestRouter(t *testing.T) (*Router, *memStore, *fakeTransport) {
	t.Helper()
	return newTestRouterLimiter(t, ratelimit.NewLimiter(100, time.Minute))
}

func userTextEvent(text string) UserEvent {
	return UserEvent{
		TelegramID: 111,
		Username:   "ivan",
		FullName:   "Иван Петров",
		MessageID:  10,
		Content:    models.Content{Kind: models.ContentText, Text: text},
	}
}

func TestUserMessageCreatesTicketAndLink(t *testing.T) {
	r, store, transport := newTestRouter(t)

	out, err := r.HandleUserEvent(context.Background(), userTextEvent("не работает оплата"))
	if err != nil {
		t.Fatalf("HandleUserEvent: %v", err)
	}
	if out.Status != OutcomeOK {
		t.Fatalf("статус = %s, ожидался OK", out.Status)
	}
	if out.Ticket == nil || out.Ticket.Status != constants.TICKET_STATUS_OPEN {
		t.Fatalf("ожидался открытый тикет, получено %+v", out.Ticket)
	}
	if !strings.HasPrefix(out.Ticket.TicketCode, "SHFT-") {
		t.Errorf("код тикета %q без префикса SHFT-", out.Ticket.TicketCode)
	}
	if len(out.Links) != 1 || store.linkCount() != 1 {
		t.Fatalf("ожидалась ровно одна связь, получено %d (в хранилище %d)", len(out.Links), store.linkCount())
	}
	if store.messageCount() != 1 {
		t.Errorf("ожидалось одно сообщение в истории, получено %d", store.messageCount())
	}
	if transport.sentCount() != 1 {
		t.Fatalf("ожидалась одна отправка, получено %d", transport.sentCount())
	}
	// тикет получил топик, отправка ушла в него
	if sent := transport.lastSent(); sent.ThreadID == 0 {
		t.Error("отправка должна уйти в топик тикета")
	}
	if len(transport.threads) != 1 || !strings.Contains(transport.threads[0], out.Ticket.TicketCode) {
		t.Errorf("топик должен быть создан с кодом тикета в названии, получено %v", transport.threads)
	}
	if !out.Links[0].TopicID.Valid {
		t.Error("связь должна хранить топик тикета")
	}
}

func TestSecondMessageReusesActiveTicket(t *testing.T) {
	r, store, transport := newTestRouter(t)
	ctx := context.Background()

	first, err := r.HandleUserEvent(ctx, userTextEvent("первое"))
	if err != nil {
		t.Fatal(err)
	}
	ev := userTextEvent("второе")
	ev.MessageID = 11
	second, err := r.HandleUserEvent(ctx, ev)
	if err != nil {
		t.Fatal(err)
	}

	if second.Ticket.ID != first.Ticket.ID {
		t.Errorf("второе сообщение должно попасть в тот же тикет: %d != %d", second.Ticket.ID, first.Ticket.ID)
	}
	if len(store.tickets) != 1 {
		t.Errorf("тикетов в хранилище %d, ожидался один", len(store.tickets))
	}
	if len(transport.threads) != 1 {
		t.Errorf("топик должен создаваться один раз, создано %d", len(transport.threads))
	}
}

func TestLimiterThrottlesUserEvent(t *testing.T) {
	r, store, transport := newTestRouterLimiter(t, ratelimit.NewLimiter(1, time.Minute))
	ctx := context.Background()

	if out, _ := r.HandleUserEvent(ctx, userTextEvent("раз")); out.Status != OutcomeOK {
		t.Fatalf("первое сообщение должно пройти, статус %s", out.Status)
	}
	out, err := r.HandleUserEvent(ctx, userTextEvent("два"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeThrottled {
		t.Fatalf("статус = %s, ожидался Throttled", out.Status)
	}
	if out.RetryAfter <= 0 {
		t.Error("RetryAfter должен быть положительным")
	}
	if store.linkCount() != 1 || transport.sentCount() != 1 {
		t.Error("отклонённое событие не должно оставить ни связей, ни отправок")
	}
}

func TestTransportThrottleExhaustedLeavesNoLinks(t *testing.T) {
	r, store, transport := newTestRouter(t)
	transport.sendErr = &ThrottledError{RetryAfter: 3 * time.Second}
	transport.failCount = -1

	out, err := r.HandleUserEvent(context.Background(), userTextEvent("привет"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeThrottled {
		t.Fatalf("статус = %s, ожидался Throttled", out.Status)
	}
	if out.RetryAfter != 3*time.Second {
		t.Errorf("RetryAfter = %v, ожидалось 3s", out.RetryAfter)
	}
	if store.linkCount() != 0 {
		t.Errorf("связей %d, при провале доставки их быть не должно", store.linkCount())
	}
	if store.messageCount() != 0 {
		t.Errorf("сообщений %d, при провале доставки история не пишется", store.messageCount())
	}
}

func TestTransportThrottleRetriesThenDelivers(t *testing.T) {
	r, store, transport := newTestRouter(t)
	transport.sendErr = &ThrottledError{RetryAfter: time.Second}
	transport.failCount = 1

	out, err := r.HandleUserEvent(context.Background(), userTextEvent("привет"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeOK {
		t.Fatalf("статус = %s, после повтора доставка должна пройти", out.Status)
	}
	if store.linkCount() != 1 {
		t.Errorf("связей %d, ожидалась одна", store.linkCount())
	}
}

func TestDeliveryFailureLeavesNoLinks(t *testing.T) {
	r, store, transport := newTestRouter(t)
	transport.sendErr = errors.New("сеть недоступна")
	transport.failCount = -1

	out, err := r.HandleUserEvent(context.Background(), userTextEvent("привет"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeDeliveryFailed {
		t.Fatalf("статус = %s, ожидался DeliveryFailed", out.Status)
	}
	if store.linkCount() != 0 || store.messageCount() != 0 {
		t.Error("при провале доставки не должно остаться ни связей, ни сообщений")
	}
}

func TestCaptionlessMediaSplitsIntoTwoSends(t *testing.T) {
	r, store, transport := newTestRouter(t)

	ev := userTextEvent("")
	ev.Content = models.Content{Kind: models.ContentVideoNote, FileID: "note-1"}
	out, err := r.HandleUserEvent(context.Background(), ev)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeOK {
		t.Fatalf("статус = %s, ожидался OK", out.Status)
	}
	if transport.sentCount() != 2 {
		t.Fatalf("отправок %d, ожидались две: заголовок и медиа", transport.sentCount())
	}
	if transport.sent[0].Content.Kind != models.ContentText ||
		!strings.Contains(transport.sent[0].Content.Text, out.Ticket.TicketCode) {
		t.Errorf("первая отправка должна быть заголовком с кодом тикета, получено %+v", transport.sent[0].Content)
	}
	if transport.sent[1].Content.Kind != models.ContentVideoNote {
		t.Errorf("вторая отправка должна быть медиа, получено %s", transport.sent[1].Content.Kind)
	}
	if len(out.Links) != 2 || store.linkCount() != 2 {
		t.Fatalf("связей %d, ожидались две", store.linkCount())
	}
	if out.Links[0].TicketID != out.Links[1].TicketID {
		t.Error("обе связи должны вести в один тикет")
	}
	if out.Links[0].SupportMessageID == out.Links[1].SupportMessageID {
		t.Error("связи должны различаться по ID сообщения в чате поддержки")
	}
}

func TestTopicCreateFailureFallsBackToSharedChat(t *testing.T) {
	r, store, transport := newTestRouter(t)
	transport.threadErr = errors.New("нет прав на создание топиков")

	out, err := r.HandleUserEvent(context.Background(), userTextEvent("привет"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeOK {
		t.Fatalf("статус = %s, деградация не должна ронять доставку", out.Status)
	}
	if !out.TransportDegraded {
		t.Error("должен быть выставлен флаг деградации")
	}
	if sent := transport.lastSent(); sent.ThreadID != 0 {
		t.Error("отправка должна уйти в общий чат")
	}
	if store.linkCount() != 1 {
		t.Fatalf("связей %d, ожидалась одна", store.linkCount())
	}
	if out.Links[0].TopicID.Valid {
		t.Error("связь не должна ссылаться на несозданный топик")
	}
}

func TestStaffReplyRoundTrip(t *testing.T) {
	r, store, transport := newTestRouter(t)
	ctx := context.Background()

	seed, err := r.HandleUserEvent(ctx, userTextEvent("не работает оплата"))
	if err != nil {
		t.Fatal(err)
	}

	out, err := r.HandleStaffEvent(ctx, StaffEvent{
		OperatorTelegramID: 999,
		Username:           "op",
		FullName:           "Оператор Смирнова",
		MessageID:          77,
		ReplyToMessageID:   seed.Links[0].SupportMessageID,
		Content:            models.Content{Kind: models.ContentText, Text: "проверьте карту"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeOK {
		t.Fatalf("статус = %s, ожидался OK", out.Status)
	}
	if out.Ticket.ID != seed.Ticket.ID {
		t.Errorf("ответ должен попасть в тикет %d, попал в %d", seed.Ticket.ID, out.Ticket.ID)
	}
	if out.Ticket.Status != constants.TICKET_STATUS_IN_PROGRESS {
		t.Errorf("статус = %s, первый ответ оператора берёт тикет в работу", out.Ticket.Status)
	}
	if !out.Ticket.OperatorID.Valid {
		t.Error("оператор должен быть назначен на тикет")
	}

	sent := transport.lastSent()
	if sent.ChatID != 111 {
		t.Errorf("ответ ушёл в чат %d, ожидался личный чат пользователя 111", sent.ChatID)
	}
	if sent.ReplyTo != 10 {
		t.Errorf("ответ должен цитировать исходное сообщение пользователя (10), получено %d", sent.ReplyTo)
	}
	if store.messageCount() != 2 {
		t.Fatalf("сообщений %d, ожидались два", store.messageCount())
	}
	if !store.msgs[1].IsFromOperator {
		t.Error("второе сообщение должно быть помечено как операторское")
	}
	if store.linkCount() != 2 {
		t.Fatalf("связей %d, ответ оператора должен оставить свою связь", store.linkCount())
	}
	if len(out.Links) != 1 || out.Links[0].SupportMessageID != 77 {
		t.Errorf("связь должна ссылаться на сообщение оператора 77, получено %+v", out.Links)
	}
}

func TestReplyToRelayedOperatorMessageFindsTicket(t *testing.T) {
	r, store, transport := newTestRouter(t)
	store.setSetting(constants.SETTING_ROUTING_MODE, constants.ROUTING_MODE_SHARED)
	ctx := context.Background()

	seed, err := r.HandleUserEvent(ctx, userTextEvent("не приходит код"))
	if err != nil {
		t.Fatal(err)
	}

	first, err := r.HandleStaffEvent(ctx, StaffEvent{
		OperatorTelegramID: 999,
		MessageID:          77,
		ReplyToMessageID:   seed.Links[0].SupportMessageID,
		Content:            models.Content{Kind: models.ContentText, Text: "какой у вас номер?"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != OutcomeOK {
		t.Fatalf("статус = %s, ожидался OK", first.Status)
	}

	// Второй оператор отвечает на сообщение первого, а не пользователя.
	// Без связи на операторское сообщение тикет было бы не найти.
	second, err := r.HandleStaffEvent(ctx, StaffEvent{
		OperatorTelegramID: 888,
		MessageID:          91,
		ReplyToMessageID:   77,
		Content:            models.Content{Kind: models.ContentText, Text: "уточните ещё код страны"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != OutcomeOK {
		t.Fatalf("статус = %s, ответ на ретранслированное сообщение оператора должен пройти", second.Status)
	}
	if second.Ticket.ID != seed.Ticket.ID {
		t.Errorf("найден тикет %d, ожидался %d", second.Ticket.ID, seed.Ticket.ID)
	}
	sent := transport.lastSent()
	if sent.ChatID != 111 {
		t.Errorf("ответ ушёл в чат %d, ожидался личный чат пользователя 111", sent.ChatID)
	}
	if sent.ReplyTo != first.Links[0].UserMessageID {
		t.Errorf("ответ должен цитировать доставленное сообщение первого оператора (%d), получено %d",
			first.Links[0].UserMessageID, sent.ReplyTo)
	}
}

func TestStaffMessageInTopicMatchesTicket(t *testing.T) {
	r, store, transport := newTestRouter(t)
	ctx := context.Background()

	seed, err := r.HandleUserEvent(ctx, userTextEvent("вопрос"))
	if err != nil {
		t.Fatal(err)
	}

	out, err := r.HandleStaffEvent(ctx, StaffEvent{
		OperatorTelegramID: 999,
		MessageID:          78,
		TopicID:            seed.Ticket.TopicID.Int64,
		Content:            models.Content{Kind: models.ContentText, Text: "отвечаю в топике"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeOK {
		t.Fatalf("статус = %s, сообщение в топике должно найти тикет", out.Status)
	}
	if out.Ticket.ID != seed.Ticket.ID {
		t.Errorf("найден тикет %d, ожидался %d", out.Ticket.ID, seed.Ticket.ID)
	}
	if sent := transport.lastSent(); sent.ChatID != 111 {
		t.Errorf("ответ ушёл в чат %d, ожидался 111", sent.ChatID)
	}
	// Ответ через топик тоже оставляет связь: дальше на него можно отвечать.
	if store.linkCount() != 2 {
		t.Fatalf("связей %d, ожидались две", store.linkCount())
	}
	link, err := store.GetLinkBySupportMessage(78)
	if err != nil {
		t.Fatal(err)
	}
	if link == nil || link.TicketID != seed.Ticket.ID {
		t.Errorf("связь сообщения 78 должна вести в тикет %d, получено %+v", seed.Ticket.ID, link)
	}
}

func TestStaffMessageWithoutTicketIgnored(t *testing.T) {
	r, _, transport := newTestRouter(t)

	out, err := r.HandleStaffEvent(context.Background(), StaffEvent{
		OperatorTelegramID: 999,
		MessageID:          79,
		Content:            models.Content{Kind: models.ContentText, Text: "просто болтаем"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeNoMatchingTicket {
		t.Fatalf("статус = %s, ожидался NoMatchingTicket", out.Status)
	}
	if transport.sentCount() != 0 {
		t.Error("сообщение вне тикетов не должно никуда пересылаться")
	}
}

func TestStaffReplyToClosedTicketRefused(t *testing.T) {
	r, _, transport := newTestRouter(t)
	ctx := context.Background()

	seed, err := r.HandleUserEvent(ctx, userTextEvent("вопрос"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.SetTicketStatus(ctx, seed.Ticket.ID, constants.TICKET_STATUS_CLOSED, nil); err != nil {
		t.Fatal(err)
	}
	sentBefore := transport.sentCount()

	out, err := r.HandleStaffEvent(ctx, StaffEvent{
		OperatorTelegramID: 999,
		MessageID:          80,
		ReplyToMessageID:   seed.Links[0].SupportMessageID,
		Content:            models.Content{Kind: models.ContentText, Text: "поздно"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeTicketClosed {
		t.Fatalf("статус = %s, ожидался TicketClosed", out.Status)
	}
	if transport.sentCount() != sentBefore {
		t.Error("ответ в закрытый тикет не должен доставляться")
	}
}

func TestUserMessageReopensClosedTicket(t *testing.T) {
	r, _, _ := newTestRouter(t)
	ctx := context.Background()

	seed, err := r.HandleUserEvent(ctx, userTextEvent("вопрос"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.SetTicketStatus(ctx, seed.Ticket.ID, constants.TICKET_STATUS_CLOSED, nil); err != nil {
		t.Fatal(err)
	}

	ev := userTextEvent("проблема вернулась")
	ev.MessageID = 12
	out, err := r.HandleUserEvent(ctx, ev)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeOK {
		t.Fatalf("статус = %s, ожидался OK", out.Status)
	}
	if out.Ticket.ID != seed.Ticket.ID {
		t.Errorf("сообщение должно переоткрыть тикет %d, создан %d", seed.Ticket.ID, out.Ticket.ID)
	}
	if out.Ticket.Status != constants.TICKET_STATUS_IN_PROGRESS {
		t.Errorf("статус = %s, переоткрытый тикет должен быть в работе", out.Ticket.Status)
	}
	if out.Ticket.ClosedAt.Valid {
		t.Error("метка закрытия должна быть сброшена")
	}
}

func TestClosedPolicyNewTicketCreatesFresh(t *testing.T) {
	r, store, _ := newTestRouter(t)
	store.setSetting(constants.SETTING_CLOSED_TICKET_POLICY, constants.CLOSED_POLICY_NEW_TICKET)
	ctx := context.Background()

	seed, err := r.HandleUserEvent(ctx, userTextEvent("вопрос"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.SetTicketStatus(ctx, seed.Ticket.ID, constants.TICKET_STATUS_CLOSED, nil); err != nil {
		t.Fatal(err)
	}

	out, err := r.HandleUserEvent(ctx, userTextEvent("снова проблема"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeOK {
		t.Fatalf("статус = %s, ожидался OK", out.Status)
	}
	if out.Ticket.ID == seed.Ticket.ID {
		t.Error("политика new_ticket должна создать новый тикет, а не переоткрыть старый")
	}
	if out.Ticket.Status != constants.TICKET_STATUS_OPEN {
		t.Errorf("новый тикет должен быть открыт, статус %s", out.Ticket.Status)
	}
}

func TestBannedUserRefused(t *testing.T) {
	r, store, transport := newTestRouter(t)
	u, err := store.ResolveOrCreateUser(111, "ivan", "Иван Петров")
	if err != nil {
		t.Fatal(err)
	}
	store.banUser(u.ID)

	out, err := r.HandleUserEvent(context.Background(), userTextEvent("пустите"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeBanned {
		t.Fatalf("статус = %s, ожидался Banned", out.Status)
	}
	if transport.sentCount() != 0 || store.linkCount() != 0 {
		t.Error("событие от заблокированного пользователя не должно иметь эффектов")
	}
}

func TestForceNewRespectsOpenCap(t *testing.T) {
	r, _, _ := newTestRouter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ev := userTextEvent("ещё вопрос")
		ev.ForceNew = true
		ev.Subject = "тема"
		out, err := r.HandleUserEvent(ctx, ev)
		if err != nil {
			t.Fatal(err)
		}
		if out.Status != OutcomeOK {
			t.Fatalf("тикет %d должен создаться, статус %s", i+1, out.Status)
		}
	}

	ev := userTextEvent("четвёртый")
	ev.ForceNew = true
	out, err := r.HandleUserEvent(ctx, ev)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeOpenCapExceeded {
		t.Fatalf("статус = %s, ожидался OpenCapExceeded", out.Status)
	}
}

func TestUserReplyResumesWaitingTicket(t *testing.T) {
	r, _, _ := newTestRouter(t)
	ctx := context.Background()

	seed, err := r.HandleUserEvent(ctx, userTextEvent("вопрос"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.SetTicketStatus(ctx, seed.Ticket.ID, constants.TICKET_STATUS_IN_PROGRESS, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := r.SetTicketStatus(ctx, seed.Ticket.ID, constants.TICKET_STATUS_WAITING_USER, nil); err != nil {
		t.Fatal(err)
	}

	ev := userTextEvent("отвечаю")
	ev.MessageID = 13
	out, err := r.HandleUserEvent(ctx, ev)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeOK {
		t.Fatalf("статус = %s, ожидался OK", out.Status)
	}
	if out.Ticket.Status != constants.TICKET_STATUS_IN_PROGRESS {
		t.Errorf("статус = %s, ответ пользователя снимает тикет с ожидания", out.Ticket.Status)
	}
}

func TestSetTicketStatusRejectsIllegalTransition(t *testing.T) {
	r, _, _ := newTestRouter(t)
	ctx := context.Background()

	seed, err := r.HandleUserEvent(ctx, userTextEvent("вопрос"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = r.SetTicketStatus(ctx, seed.Ticket.ID, constants.TICKET_STATUS_WAITING_USER, nil)
	var invalid *lifecycle.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("ожидался InvalidTransitionError, получено %v", err)
	}

	fresh, err := r.GetTicketView(seed.Ticket.TicketCode, 0)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Ticket.Status != constants.TICKET_STATUS_OPEN {
		t.Errorf("недопустимый переход не должен менять статус, сейчас %s", fresh.Ticket.Status)
	}
}

func TestTicketCodeRoutesToSelectedTicket(t *testing.T) {
	r, _, _ := newTestRouter(t)
	ctx := context.Background()

	older := userTextEvent("первый вопрос")
	older.ForceNew = true
	older.Subject = "оплата"
	first, err := r.HandleUserEvent(ctx, older)
	if err != nil {
		t.Fatal(err)
	}
	newer := userTextEvent("второй вопрос")
	newer.ForceNew = true
	newer.Subject = "доставка"
	second, err := r.HandleUserEvent(ctx, newer)
	if err != nil {
		t.Fatal(err)
	}
	if first.Ticket.ID == second.Ticket.ID {
		t.Fatal("для теста нужны два разных тикета")
	}

	// Пользователь выбрал старый тикет — сообщение обязано попасть в него,
	// а не в самый свежий.
	ev := userTextEvent("дополнение к оплате")
	ev.MessageID = 14
	ev.TicketCode = first.Ticket.TicketCode
	out, err := r.HandleUserEvent(ctx, ev)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeOK {
		t.Fatalf("статус = %s, ожидался OK", out.Status)
	}
	if out.Ticket.ID != first.Ticket.ID {
		t.Errorf("сообщение попало в тикет %d, ожидался выбранный %d", out.Ticket.ID, first.Ticket.ID)
	}
}

func TestForeignTicketCodeIgnored(t *testing.T) {
	r, store, _ := newTestRouter(t)
	ctx := context.Background()

	seed, err := r.HandleUserEvent(ctx, userTextEvent("чужой вопрос"))
	if err != nil {
		t.Fatal(err)
	}

	ev := UserEvent{
		TelegramID: 222,
		Username:   "petr",
		FullName:   "Пётр Сидоров",
		MessageID:  20,
		TicketCode: seed.Ticket.TicketCode,
		Content:    models.Content{Kind: models.ContentText, Text: "пустите к чужому тикету"},
	}
	out, err := r.HandleUserEvent(ctx, ev)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeOK {
		t.Fatalf("статус = %s, ожидался OK", out.Status)
	}
	if out.Ticket.ID == seed.Ticket.ID {
		t.Error("чужой код тикета не должен давать доступ к тикету")
	}
	if len(store.tickets) != 2 {
		t.Errorf("тикетов %d, для второго пользователя должен создаться свой", len(store.tickets))
	}
}

func TestRepeatedEventsReuseIdentity(t *testing.T) {
	r, store, _ := newTestRouter(t)
	ctx := context.Background()

	first, err := r.HandleUserEvent(ctx, userTextEvent("раз"))
	if err != nil {
		t.Fatal(err)
	}
	ev := userTextEvent("два")
	ev.MessageID = 11
	ev.Username = "ivan_new" // сменил никнейм, но это тот же человек
	second, err := r.HandleUserEvent(ctx, ev)
	if err != nil {
		t.Fatal(err)
	}

	if len(store.users) != 1 || len(store.byTG) != 1 {
		t.Fatalf("пользователей %d, повторное событие не должно плодить записи", len(store.users))
	}
	if first.Ticket.UserID != second.Ticket.UserID {
		t.Errorf("оба события должны принадлежать одному пользователю: %d != %d",
			first.Ticket.UserID, second.Ticket.UserID)
	}
	u, err := store.GetUserByID(first.Ticket.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if u.Username.String != "ivan_new" {
		t.Errorf("никнейм должен обновиться, сейчас %q", u.Username.String)
	}
}

func TestUnsupportedContentRejected(t *testing.T) {
	r, _, transport := newTestRouter(t)

	ev := userTextEvent("")
	ev.Content = models.Content{Kind: models.ContentKind("location")}
	out, err := r.HandleUserEvent(context.Background(), ev)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != OutcomeInvalidContent {
		t.Fatalf("статус = %s, ожидался InvalidContent", out.Status)
	}
	if transport.sentCount() != 0 {
		t.Error("неподдерживаемый контент не должен пересылаться")
	}
}
