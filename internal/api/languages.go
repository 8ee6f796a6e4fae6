package api

// Language is one of the narration languages supported by the backend.
type Language struct {
	Code string
	Name string
	Flag string
}

// Languages supported by the story service.
var Languages = []Language{
	{Code: "en", Name: "English", Flag: "🇬🇧"},
	{Code: "hi", Name: "हिन्दी", Flag: "🇮🇳"},
	{Code: "kn", Name: "ಕನ್ನಡ", Flag: "🇮🇳"},
}

// KnownLanguage reports whether code is one of the supported language codes.
func KnownLanguage(code string) bool {
	for _, l := range Languages {
		if l.Code == code {
			return true
		}
	}
	return false
}
