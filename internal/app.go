package internal

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"polychat/contract"
	"polychat/domain/event"
	"polychat/infrastructure/admin"
	"polychat/infrastructure/ws"
	"polychat/moderation"
	"polychat/runtime"
	"polychat/runtime/workers"
	"polychat/services"
	"polychat/sink"
	"polychat/translation"
)

// App holds every long-lived component of a chat server.
type App struct {
	log         *slog.Logger
	config      Config
	cache       *translation.BadgerCache
	router      *runtime.Router
	supervisor  *workers.Supervisor
	chatService *services.ChatService
}

// NewApp wires the server from config. Close must be called to release the translation cache.
func NewApp(log *slog.Logger, config Config) (*App, error) {
	// 1. Translation
	cache, err := translation.OpenBadgerCache(config.TranslationCachePath, config.TranslationCacheTTL, log)
	if err != nil {
		return nil, fmt.Errorf("translation cache opening failed: %w", err)
	}
	gateway := translation.NewGateway(log, provider(config), config.TranslationTimeout).
		WithCache(cache).
		WithRateLimit(config.TranslationRatePerSec)

	// 2. Rooms & routing
	hub := sink.NewHub()
	telemetry := make(chan event.Delivered, config.TelemetryBufferSize)
	router := runtime.NewRouter(log, runtime.NewRegistry(), runtime.NewRoomIndex(), gateway, hub, config.FanoutWorkers).
		WithDetector(translation.NewWhatlangDetector(translation.DefaultMinConfidence)).
		WithTelemetry(telemetry)
	if config.ModerationWordsDir != "" {
		censor, err := loadCensor(log, os.DirFS(config.ModerationWordsDir), config.ModerationCharReplacement)
		if err != nil {
			_ = cache.Close()
			return nil, err
		}
		router.WithCensor(censor)
	}

	// 3. Supervision
	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	counter := &event.DeliveryCounter{}
	supervisor.Add(
		workers.NewReporterWorker(log, router.Stats, config.MetricInterval).WithDeliveries(counter.Totals),
		workers.NewTelemetryWorker(log, telemetry, []event.Handler{
			event.NewLatencyHandler(log, config.LatencyThreshold),
			counter,
		}),
	)

	chatService := services.NewChatService(log, router, hub, supervisor, gateway, services.Config{
		ConnectionBufferSize: config.ConnectionBufferSize,
		CommandBufferSize:    config.CommandBufferSize,
		DeliveryTimeout:      config.DeliveryTimeout,
	})

	return &App{
		log:         log,
		config:      config,
		cache:       cache,
		router:      router,
		supervisor:  supervisor,
		chatService: chatService,
	}, nil
}

// Handler serves the websocket endpoint on /ws and the admin API under /api.
// Cancelling ctx closes every open websocket.
func (a *App) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewChatServer(a.log, a.chatService, ws.Config{
		ReadTimeout:    a.config.ReadTimeout,
		WriteTimeout:   a.config.WriteTimeout,
		OriginPatterns: a.config.OriginPatterns(),
	}).Handler(ctx))
	admin.NewAdminServer(a.log, a.chatService).Register(mux)
	return mux
}

// Run blocks until ctx is cancelled and every supervised worker has stopped.
func (a *App) Run(ctx context.Context) {
	a.supervisor.Run(ctx)
}

func (a *App) ChatService() services.IChatService {
	return a.chatService
}

func (a *App) Close() error {
	a.log.Info("Closing translation cache...")
	return a.cache.Close()
}

func provider(config Config) contract.Translator {
	client := &http.Client{Timeout: config.TranslationTimeout}
	switch config.TranslationProvider {
	case "none":
		return translation.NoopTranslator{}
	case "llm":
		return translation.NewLLMTranslator(translation.LLMConfig{
			BaseURL:      config.LLMBaseURL,
			APIKey:       config.LLMAPIKey,
			Model:        config.LLMModel,
			Temperature:  config.LLMTemperature,
			SystemPrompt: config.LLMSystemPrompt,
		}, client)
	default:
		return translation.NewLibreTranslator(config.LibreTranslateURL, config.LibreTranslateAPIKey, client)
	}
}

func loadCensor(log *slog.Logger, words fs.FS, replacement string) (*moderation.Moderator, error) {
	char, err := CharacterRune(replacement)
	if err != nil {
		return nil, err
	}
	data, err := runtime.NewCensoredLoader(words).LoadAll(".")
	if err != nil {
		return nil, fmt.Errorf("censored words loading failed: %w", err)
	}
	log.Info("Moderation enabled", "words", len(data.Words), "languages", data.Languages)
	return moderation.NewModerator(data.Words, char, log)
}
