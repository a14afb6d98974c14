package constants

// Language describes a selectable interface language
type Language struct {
	Code string
	Name string
	Flag string
}

// Languages lists the supported interface languages, default first.
var Languages = []Language{
	{Code: "en", Name: "English", Flag: "🇺🇸"},
	{Code: "fr", Name: "Français", Flag: "🇫🇷"},
	{Code: "es", Name: "Español", Flag: "🇪🇸"},
	{Code: "de", Name: "Deutsch", Flag: "🇩🇪"},
	{Code: "pt", Name: "Português", Flag: "🇵🇹"},
	{Code: "zh", Name: "中文", Flag: "🇨🇳"},
	{Code: "ja", Name: "日本語", Flag: "🇯🇵"},
}

// LookupLanguage returns the language for code, or the default language when code is unknown.
func LookupLanguage(code string) (Language, bool) {
	for _, lang := range Languages {
		if lang.Code == code {
			return lang, true
		}
	}
	return Languages[0], false
}
