package service

import (
	"fmt"
	"golang.org/x/text/language"
	"time"
)

var supportedTitleLocales = []language.Tag{language.English, language.German}

var titleMatcher = language.NewMatcher(supportedTitleLocales)

// SessionTitle returns the default title of a session created from a recording,
// in the best match for acceptLanguage or fallback when nothing matches.
func SessionTitle(acceptLanguage string, fallback string, at time.Time) string {
	switch matchLocale(acceptLanguage, fallback) {
	case language.German:
		return fmt.Sprintf("Sitzung vom %s", at.Format("02.01.2006"))
	default:
		return fmt.Sprintf("Session %s", at.Format("Jan 2, 2006"))
	}
}

func matchLocale(acceptLanguage string, fallback string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		tags = []language.Tag{language.Make(fallback)}
	}

	_, idx, confidence := titleMatcher.Match(tags...)
	if confidence == language.No {
		_, idx, confidence = titleMatcher.Match(language.Make(fallback))
		if confidence == language.No {
			return language.English
		}
	}
	return supportedTitleLocales[idx]
}
