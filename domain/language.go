package domain

import "strings"

// Language is an entry of the provider catalogue.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// TraditionalChinese is kept apart from "zh", which stands for simplified Chinese.
const TraditionalChinese = "zh-Hant"

// traditionalChineseSubtags are the script and regions written in traditional characters.
var traditionalChineseSubtags = map[string]struct{}{"hant": {}, "tw": {}, "hk": {}, "mo": {}}

// NormalizeLanguage lowers a language tag and keeps its base subtag.
// Chinese keeps its script, the two written forms not being mutually readable.
//   - "EN" -> "en"
//   - "fr-CA" -> "fr"
//   - "pt_BR" -> "pt"
//   - "zh-TW", "zh-Hant-HK" -> "zh-Hant"
//   - "zh-CN", "zh-Hans" -> "zh"
func NormalizeLanguage(code string) string {
	lang := strings.ToLower(strings.TrimSpace(code))
	idx := strings.IndexAny(lang, "-_")
	if idx < 0 {
		return lang
	}
	base, subtag := lang[:idx], lang[idx+1:]
	if base == "zh" {
		if next := strings.IndexAny(subtag, "-_"); next >= 0 {
			subtag = subtag[:next]
		}
		if _, ok := traditionalChineseSubtags[subtag]; ok {
			return TraditionalChinese
		}
	}
	return base
}

// SameLanguage reports whether two tags designate the same base language.
func SameLanguage(a, b string) bool {
	return NormalizeLanguage(a) == NormalizeLanguage(b)
}
