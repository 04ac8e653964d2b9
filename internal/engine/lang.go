package engine

import (
	"strings"

	"golang.org/x/text/language"
)

// LangUndetermined is reported when the transcript language cannot be known.
var LangUndetermined = language.Und.String()

// NormLang canonicalizes a caption language code ("en", "pt-BR", "zh-Hans").
// Empty or unparseable input → "und".
func NormLang(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return LangUndetermined
	}
	tag, err := language.Parse(code)
	if err != nil {
		return LangUndetermined
	}
	return tag.String()
}

// BaseLang returns the primary language subtag ("pt-BR" → "pt").
func BaseLang(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return LangUndetermined
	}
	base, _ := tag.Base()
	return base.String()
}
