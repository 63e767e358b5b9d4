// Package translation wraps an external translation provider.
//
// The Gateway is fail-open: a slow, broken or unreachable provider never blocks
// or loses a message, the original text is used instead. One attempt is made
// per call, bounded by a timeout. Results can be cached and calls rate limited.
package translation

import (
	"context"
	"fmt"
	"log/slog"
	"polychat/contract"
	"polychat/domain"
	"polychat/errors"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/time/rate"
)

var _ contract.ITranslationGateway = (*Gateway)(nil)

type Gateway struct {
	log      *slog.Logger
	provider contract.Translator
	cache    contract.ITranslationCache
	limiter  *rate.Limiter
	timeout  time.Duration
}

func NewGateway(log *slog.Logger, provider contract.Translator, timeout time.Duration) *Gateway {
	return &Gateway{log: log, provider: provider, timeout: timeout}
}

func (g *Gateway) WithCache(cache contract.ITranslationCache) *Gateway {
	g.cache = cache
	return g
}

// WithRateLimit caps the calls per second sent to the provider.
// Waiting for a token counts against the call timeout.
func (g *Gateway) WithRateLimit(perSecond int) *Gateway {
	if perSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	}
	return g
}

// Translate returns text in targetLanguage, or text itself when anything goes wrong.
func (g *Gateway) Translate(ctx context.Context, text, targetLanguage, sourceLanguage string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	key := CacheKey(text, targetLanguage, sourceLanguage)
	if g.cache != nil {
		if cached, ok := g.cache.Get(key); ok {
			if cached.SourceText == text {
				return cached.TranslatedText
			}
			g.log.Debug("Translation cache collision, entry ignored", "key", key)
		}
	}

	translated, err := g.attempt(ctx, text, targetLanguage, sourceLanguage)
	if err != nil {
		g.log.Warn("Translation failed, using original text",
			"target", targetLanguage, "source", sourceLanguage, "error", err)
		return text
	}

	if g.cache != nil {
		entry := domain.CachedTranslation{SourceText: text, TranslatedText: translated}
		if err := g.cache.Set(key, entry); err != nil {
			g.log.Debug("Translation not cached", "error", err)
		}
	}
	return translated
}

func (g *Gateway) attempt(ctx context.Context, text, targetLanguage, sourceLanguage string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate limiter: %w", errors.ErrTranslationFailed, err)
		}
	}
	translated, err := g.provider.Translate(ctx, text, targetLanguage, sourceLanguage)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrTranslationFailed, err)
	}
	if strings.TrimSpace(translated) == "" {
		return "", errors.ErrEmptyTranslation
	}
	return translated, nil
}

// Languages lists the provider catalogue, empty when the provider cannot answer.
func (g *Gateway) Languages(ctx context.Context) []domain.Language {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	languages, err := g.provider.SupportedLanguages(ctx)
	if err != nil {
		g.log.Warn("Could not fetch supported languages", "error", err)
		return []domain.Language{}
	}
	return languages
}

// CacheKey identifies a translation by language pair and text hash.
func CacheKey(text, targetLanguage, sourceLanguage string) string {
	return fmt.Sprintf(CachePrefix+"%s:%s:%016x",
		domain.NormalizeLanguage(sourceLanguage),
		domain.NormalizeLanguage(targetLanguage),
		xxhash.Sum64String(text))
}

// ParseCacheKey splits a key built by CacheKey into its language pair.
func ParseCacheKey(key string) (source, target string, ok bool) {
	parts := strings.Split(strings.TrimPrefix(key, CachePrefix), ":")
	if !strings.HasPrefix(key, CachePrefix) || len(parts) != 3 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
