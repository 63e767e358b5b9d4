package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"polychat/contract"
	"polychat/domain"
	"strings"

	"github.com/samber/lo"
)

var _ contract.Translator = (*LLMTranslator)(nil)

// LLMLanguages is what the chat completion models are asked to handle.
var LLMLanguages = []domain.Language{
	{Code: "en", Name: "English"}, {Code: "es", Name: "Spanish"}, {Code: "fr", Name: "French"},
	{Code: "de", Name: "German"}, {Code: "it", Name: "Italian"}, {Code: "pt", Name: "Portuguese"},
	{Code: "ru", Name: "Russian"}, {Code: "ja", Name: "Japanese"}, {Code: "ko", Name: "Korean"},
	{Code: "zh", Name: "Chinese"}, {Code: "zh-Hant", Name: "Traditional Chinese"}, {Code: "ar", Name: "Arabic"},
	{Code: "hi", Name: "Hindi"}, {Code: "nl", Name: "Dutch"}, {Code: "sv", Name: "Swedish"},
	{Code: "da", Name: "Danish"}, {Code: "no", Name: "Norwegian"}, {Code: "fi", Name: "Finnish"},
	{Code: "pl", Name: "Polish"}, {Code: "tr", Name: "Turkish"}, {Code: "th", Name: "Thai"},
	{Code: "vi", Name: "Vietnamese"}, {Code: "id", Name: "Indonesian"}, {Code: "ms", Name: "Malay"},
	{Code: "tl", Name: "Filipino"}, {Code: "he", Name: "Hebrew"}, {Code: "uk", Name: "Ukrainian"},
	{Code: "cs", Name: "Czech"}, {Code: "hu", Name: "Hungarian"}, {Code: "ro", Name: "Romanian"},
	{Code: "bg", Name: "Bulgarian"}, {Code: "hr", Name: "Croatian"}, {Code: "sk", Name: "Slovak"},
	{Code: "sl", Name: "Slovenian"}, {Code: "et", Name: "Estonian"}, {Code: "lv", Name: "Latvian"},
	{Code: "lt", Name: "Lithuanian"}, {Code: "el", Name: "Greek"}, {Code: "is", Name: "Icelandic"},
	{Code: "ga", Name: "Irish"}, {Code: "mt", Name: "Maltese"}, {Code: "cy", Name: "Welsh"},
	{Code: "eu", Name: "Basque"}, {Code: "ca", Name: "Catalan"}, {Code: "gl", Name: "Galician"},
}

// commentaryPrefixes mark lines a model adds around the translation.
var commentaryPrefixes = []string{"GLOSSARY:", "(Emoji:", "(Markdown", "(Code blocks", "(If the input"}

// answerPrefixes are labels some models put in front of the translated text.
var answerPrefixes = []string{"Translation:", "Translated text:", "TEXT:"}

type LLMConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	SystemPrompt string
}

// LLMTranslator asks an OpenAI compatible chat completion endpoint for translations.
type LLMTranslator struct {
	config LLMConfig
	client *http.Client
}

func NewLLMTranslator(config LLMConfig, client *http.Client) *LLMTranslator {
	if client == nil {
		client = http.DefaultClient
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &LLMTranslator{config: config, client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (l *LLMTranslator) Translate(ctx context.Context, text, targetLanguage, sourceLanguage string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       l.config.Model,
		Temperature: l.config.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(languageName(targetLanguage), sourceLanguage)},
			{Role: "user", Content: fmt.Sprintf("GLOSSARY (optional):\n%s\n\nTEXT:\n%s", l.config.SystemPrompt, text)},
		},
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if l.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+l.config.APIKey)
	}

	var res chatResponse
	if err := doJSON(l.client, httpReq, &res); err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("malformed provider response: no choices")
	}
	return CleanCompletion(res.Choices[0].Message.Content), nil
}

func (l *LLMTranslator) SupportedLanguages(context.Context) ([]domain.Language, error) {
	return LLMLanguages, nil
}

func systemPrompt(target, source string) string {
	from := ""
	if source != "" && source != domain.AutoLanguage {
		from = " from " + languageName(source)
	}
	return fmt.Sprintf("You are a professional translator. Translate the user's message%s into %s.\n"+
		"CRITICAL: Return ONLY the translated text. Do not add explanations, notes, or commentary.\n"+
		"Preserve meaning, tone, punctuation, and Markdown formatting.\n"+
		"Remove all emojis from the translation.\n"+
		"If the input is already in %s, provide a natural %s rewrite.\n"+
		"Your response must contain only the translation, nothing else.", from, target, target, target)
}

func languageName(code string) string {
	normalized := domain.NormalizeLanguage(code)
	for _, l := range LLMLanguages {
		if strings.EqualFold(l.Code, normalized) {
			return l.Name
		}
	}
	return code
}

// CleanCompletion keeps the first line of a completion that is actual translated text.
// Parenthesized notes and labels are skipped, surrounding quotes removed.
func CleanCompletion(content string) string {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "(") || lo.SomeBy(commentaryPrefixes, func(p string) bool {
			return strings.HasPrefix(line, p)
		}) {
			continue
		}
		for _, p := range answerPrefixes {
			if rest, ok := strings.CutPrefix(line, p); ok {
				line = strings.TrimSpace(rest)
			}
		}
		if line == "" {
			continue
		}
		return unquote(line)
	}
	return strings.TrimSpace(lines[0])
}

func unquote(s string) string {
	for _, q := range [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}, {"«", "»"}} {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			return strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
		}
	}
	return s
}
