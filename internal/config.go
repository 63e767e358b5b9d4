package internal

import (
	"fmt"
	"polychat/errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Host                      string        `env:"HOST,default=localhost" validate:"required"`
	Port                      int           `env:"PORT,default=3001" validate:"gte=1,lte=65535"`
	LogLevel                  string        `env:"LOG_LEVEL,default=INFO"`
	FanoutWorkers             int           `env:"FANOUT_WORKERS,default=16" validate:"gte=1"`
	ConnectionBufferSize      int           `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"gte=1"`
	CommandBufferSize         int           `env:"COMMAND_BUFFER_SIZE,default=32" validate:"gte=1"`
	DeliveryTimeout           time.Duration `env:"DELIVERY_TIMEOUT,default=2s" validate:"gt=0"`
	ReadTimeout               time.Duration `env:"READ_TIMEOUT,default=0s" validate:"gte=0"`
	WriteTimeout              time.Duration `env:"WRITE_TIMEOUT,default=5s" validate:"gte=0"`
	TranslationProvider       string        `env:"TRANSLATION_PROVIDER,default=libre" validate:"oneof=libre llm none"`
	LibreTranslateURL         string        `env:"LIBRETRANSLATE_URL,default=http://localhost:5000" validate:"required_if=TranslationProvider libre"`
	LibreTranslateAPIKey      string        `env:"LIBRETRANSLATE_API_KEY"`
	LLMBaseURL                string        `env:"LLM_BASE_URL" validate:"required_if=TranslationProvider llm"`
	LLMAPIKey                 string        `env:"LLM_API_KEY"`
	LLMModel                  string        `env:"LLM_MODEL,default=mistral-7b-instruct" validate:"required_if=TranslationProvider llm"`
	LLMTemperature            float64       `env:"LLM_TEMPERATURE,default=0" validate:"gte=0,lte=2"`
	LLMSystemPrompt           string        `env:"LLM_SYSTEM_PROMPT"`
	TranslationTimeout        time.Duration `env:"TRANSLATION_TIMEOUT,default=8s" validate:"gt=0"`
	TranslationRatePerSec     int           `env:"TRANSLATION_RATE_PER_SEC,default=0" validate:"gte=0"`
	TranslationCachePath      string        `env:"TRANSLATION_CACHE_PATH"`
	TranslationCacheTTL       time.Duration `env:"TRANSLATION_CACHE_TTL,default=24h" validate:"gte=0"`
	ModerationWordsDir        string        `env:"MODERATION_WORDS_DIR"`
	ModerationCharReplacement string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
	MetricInterval            time.Duration `env:"METRIC_INTERVAL,default=1m" validate:"gt=0"`
	LatencyThreshold          time.Duration `env:"LATENCY_THRESHOLD,default=2s" validate:"gte=0"`
	TelemetryBufferSize       int           `env:"TELEMETRY_BUFFER_SIZE,default=1024" validate:"gte=1"`
	RestartInterval           time.Duration `env:"RESTART_INTERVAL,default=1s" validate:"gt=0"`
	AllowedOrigins            string        `env:"ALLOWED_ORIGINS"`
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}
	if c.ModerationWordsDir != "" {
		if _, err := CharacterRune(c.ModerationCharReplacement); err != nil {
			return err
		}
	}
	return nil
}

// CharacterRune reads a single character setting such as MODERATION_CHARACTER_REPLACEMENT.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("%w: MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			errors.ErrInvalidConfig, str)
	}
	return r[0], nil
}

// OriginPatterns splits ALLOWED_ORIGINS ("a.com,*.b.com") for the websocket upgrade.
func (c Config) OriginPatterns() []string {
	var patterns []string
	for _, p := range strings.Split(c.AllowedOrigins, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}
