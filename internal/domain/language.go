package domain

import "strings"

// Language is the closed set of content languages. Parse it once at the
// request boundary; nothing deeper re-parses raw codes.
type Language string

const (
	LanguageKorean  Language = "ko"
	LanguageEnglish Language = "en"
)

var SupportedLanguages = []Language{LanguageKorean, LanguageEnglish}

func (l Language) Valid() bool {
	switch l {
	case LanguageKorean, LanguageEnglish:
		return true
	default:
		return false
	}
}

func (l Language) String() string { return string(l) }

// ParseLanguage accepts a 2-letter code, optionally with a region suffix
// ("ko-KR", "en_US").
func ParseLanguage(raw string) (Language, bool) {
	code := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	l := Language(code)
	if !l.Valid() {
		return "", false
	}
	return l, true
}

// LanguageOrDefault parses raw and falls back to def when unrecognized.
func LanguageOrDefault(raw string, def Language) Language {
	if l, ok := ParseLanguage(raw); ok {
		return l
	}
	return def
}
