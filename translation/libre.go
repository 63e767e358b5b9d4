package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"polychat/contract"
	"polychat/domain"
	"polychat/errors"
	"strings"

	"github.com/samber/lo"
)

var _ contract.Translator = (*LibreTranslator)(nil)

// LibreTranslator talks to a LibreTranslate compatible HTTP API.
type LibreTranslator struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewLibreTranslator(baseURL, apiKey string, client *http.Client) *LibreTranslator {
	if client == nil {
		client = http.DefaultClient
	}
	return &LibreTranslator{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
}

type libreLanguage struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (l *LibreTranslator) Translate(ctx context.Context, text, targetLanguage, sourceLanguage string) (string, error) {
	source := domain.NormalizeLanguage(sourceLanguage)
	if source == "" {
		source = domain.AutoLanguage
	}
	body, err := json.Marshal(libreRequest{
		Q:      text,
		Source: source,
		Target: domain.NormalizeLanguage(targetLanguage),
		Format: "text",
		APIKey: l.apiKey,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var res libreResponse
	if err := l.do(httpReq, &res); err != nil {
		return "", err
	}
	return res.TranslatedText, nil
}

func (l *LibreTranslator) SupportedLanguages(ctx context.Context) ([]domain.Language, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/languages", nil)
	if err != nil {
		return nil, err
	}
	var res []libreLanguage
	if err := l.do(httpReq, &res); err != nil {
		return nil, err
	}
	return lo.Map(res, func(item libreLanguage, _ int) domain.Language {
		return domain.Language{Code: item.Code, Name: item.Name}
	}), nil
}

func (l *LibreTranslator) do(httpReq *http.Request, target any) error {
	return doJSON(l.client, httpReq, target)
}

// doJSON sends the request and decodes a 2xx JSON body into target.
func doJSON(client *http.Client, httpReq *http.Request, target any) error {
	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %d", errors.ErrProviderStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("malformed provider response: %w", err)
	}
	return nil
}

var _ contract.Translator = NoopTranslator{}

// NoopTranslator echoes the text back. Used when no provider is configured.
type NoopTranslator struct{}

func (NoopTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

func (NoopTranslator) SupportedLanguages(context.Context) ([]domain.Language, error) {
	return []domain.Language{}, nil
}
