package speech

import "strings"

// locales maps backend language codes to synthesis locale tags. Unknown codes
// fall back to Indian English, matching the service's narration voices.
var locales = map[string]string{
	"en": "en-IN",
	"hi": "hi-IN",
	"kn": "kn-IN",
}

// FallbackLocale is used when a language code has no specific mapping.
const FallbackLocale = "en-IN"

// LocaleFor returns the synthesis locale tag for a backend language code.
func LocaleFor(languageCode string) string {
	if l, ok := locales[languageCode]; ok {
		return l
	}
	return FallbackLocale
}

// Locales returns a copy of the language-code to locale mapping.
func Locales() map[string]string {
	out := make(map[string]string, len(locales))
	for k, v := range locales {
		out[k] = v
	}
	return out
}

// espeakVoice derives the eSpeak voice name from a locale tag, e.g.
// "hi-IN" -> "hi".
func espeakVoice(locale string) string {
	if i := strings.IndexByte(locale, '-'); i > 0 {
		return locale[:i]
	}
	if locale == "" {
		return "en"
	}
	return locale
}
