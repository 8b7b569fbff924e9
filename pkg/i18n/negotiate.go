package i18n

import (
	"golang.org/x/text/language"
)

// Negotiate picks the supported language best matching an Accept-Language
// header. The first supported language is the fallback; "" when supported is empty.
func Negotiate(acceptLanguage string, supported []string) string {
	if len(supported) == 0 {
		return ""
	}

	tags := make([]language.Tag, len(supported))
	for i, s := range supported {
		tags[i] = language.Make(s)
	}
	matcher := language.NewMatcher(tags)

	desired, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(desired) == 0 {
		return supported[0]
	}
	_, index, confidence := matcher.Match(desired...)
	if confidence == language.No {
		return supported[0]
	}
	return supported[index]
}
