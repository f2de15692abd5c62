package main

import (
	"log"
	"net/http"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"supportbot/internal/api"
	"supportbot/internal/bridge"
	"supportbot/internal/config"
	"supportbot/internal/constants"
	"supportbot/internal/db"
	"supportbot/internal/handlers"
	"supportbot/internal/lifecycle"
	"supportbot/internal/ratelimit"
	"supportbot/internal/session"
	"supportbot/internal/telegram_api"
)

func main() {
	// --- Блок инициализации ---
	if err := godotenv.Load(); err != nil {
		log.Println("Предупреждение: не удалось загрузить файл .env. Переменные окружения должны быть установлены иным способом.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось загрузить конфигурацию: %v", err)
	}

	store, err := db.NewStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось инициализировать базу данных: %v", err)
	}
	defer store.Close()

	botClient, err := telegram_api.NewBotClient(cfg.TelegramToken, cfg.AppEnv == "dev", cfg.SendTimeout)
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось инициализировать Telegram бота: %v", err)
	}
	botUsername := cfg.BotUsername
	if botUsername == "" {
		botUsername = botClient.Username()
	}

	transport := telegram_api.NewTransport(botClient, cfg.SupportChatID)

	lifecycleController := &lifecycle.Controller{
		Tickets: store,
		Effects: transport,
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimitMessages, cfg.RateLimitWindow)

	router := bridge.NewRouter(bridge.Deps{
		Users:     store,
		Tickets:   store,
		Messages:  store,
		Links:     store,
		Settings:  store,
		Lifecycle: lifecycleController,
		Transport: transport,
		Limiter:   limiter,
	}, bridge.Config{
		SupportChatID:    cfg.SupportChatID,
		MaxOpenTickets:   cfg.MaxOpenTickets,
		MaxSubjectLength: cfg.MaxSubjectLength,
		SendRetries:      cfg.SendRetries,
		HistoryLimit:     constants.DEFAULT_HISTORY_LIMIT,
	})

	sessionManager := session.NewSessionManager()

	botHandler := handlers.NewBotHandler(handlers.HandlerDependencies{
		Config:         cfg,
		BotClient:      botClient,
		Store:          store,
		Router:         router,
		SessionManager: sessionManager,
	})

	// --- Настройка роутера и Middleware ---
	apiRouter := chi.NewRouter()

	apiRouter.Use(middleware.Logger)
	apiRouter.Use(middleware.Recoverer)
	apiRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Api-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.SetupRoutes(apiRouter, &api.ApiDependencies{
		Config:      cfg,
		Store:       store,
		Bridge:      router,
		BotUsername: botUsername,
	})

	// Запускаем HTTP-сервер в отдельной горутине
	go func() {
		log.Printf("Запуск HTTP-сервера операторского API на порту %s", cfg.Port)
		if err := http.ListenAndServe(":"+cfg.Port, apiRouter); err != nil {
			log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: не удалось запустить HTTP-сервер: %v", err)
		}
	}()

	// Запуск самого бота
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botClient.GetUpdatesChan(u)

	log.Println("Бот и API-сервер запущены и готовы к работе...")

	for update := range updates {
		if update.Message != nil {
			log.Printf("[%s] %s", update.Message.From.UserName, update.Message.Text)
		} else if update.CallbackQuery != nil {
			log.Printf("Callback от %s: %s", update.CallbackQuery.From.UserName, update.CallbackQuery.Data)
		}
		go botHandler.HandleUpdate(update)
	}
}
