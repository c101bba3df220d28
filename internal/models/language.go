package models

import (
	"github.com/myrjola/casebook/internal/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"log/slog"
)

var ErrUnsupportedLanguage = errors.NewSentinel("unsupported language")

// Language is the display language threaded into every oracle request.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

var (
	supportedTags   = []language.Tag{language.English, language.Arabic}
	languageMatcher = language.NewMatcher(supportedTags)
)

// ParseLanguage accepts any BCP 47 tag whose base language is supported, e.g. "ar-EG" becomes LanguageArabic.
func ParseLanguage(s string) (Language, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return "", errors.Wrap(errors.Mark(err, ErrUnsupportedLanguage), "parse language tag",
			slog.String("language", s))
	}
	_, index, confidence := languageMatcher.Match(tag)
	if confidence < language.High {
		return "", errors.Wrap(ErrUnsupportedLanguage, "match language", slog.String("language", s))
	}
	base, _ := supportedTags[index].Base()
	return Language(base.String()), nil
}

func (l Language) tag() language.Tag {
	if l == "" {
		return language.English
	}
	return language.Make(string(l))
}

// Name is the English name of the language, as used inside prompts.
func (l Language) Name() string {
	return display.English.Languages().Name(l.tag())
}

// Direction is the text direction of the language, "rtl" or "ltr".
func (l Language) Direction() string {
	if l == LanguageArabic {
		return "rtl"
	}
	return "ltr"
}
