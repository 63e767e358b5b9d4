package translation

import (
	"polychat/contract"

	"github.com/abadojack/whatlanggo"
)

var _ contract.ILanguageDetector = WhatlangDetector{}

const DefaultMinConfidence = 0.5

// WhatlangDetector guesses a text's language with trigram statistics.
// Short texts are often unreliable, below minConfidence the guess is discarded.
type WhatlangDetector struct {
	minConfidence float64
}

func NewWhatlangDetector(minConfidence float64) WhatlangDetector {
	return WhatlangDetector{minConfidence: minConfidence}
}

func (d WhatlangDetector) Detect(text string) (string, bool) {
	info := whatlanggo.Detect(text)
	if info.Confidence < d.minConfidence {
		return "", false
	}
	code := info.Lang.Iso6391()
	return code, code != ""
}
