package domain

// Language is a user-selectable source or target language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// particleBearing lists source languages whose discourse particles carry
// interpersonal meaning that translation tends to drop (modal particles in
// the Germanic entries, politeness particles in the Southeast Asian ones).
// The provider receives a particle-aware instruction for these codes.
var particleBearing = map[string]struct{}{
	"de": {},
	"nl": {},
	"th": {},
	"vi": {},
}

// ParticleBearing reports whether the source language is one for which the
// provider should specifically detect discourse particles.
func ParticleBearing(code string) bool {
	_, ok := particleBearing[code]
	return ok
}

var supportedLanguages = []Language{
	{Code: "en", Name: "English"},
	{Code: "de", Name: "German"},
	{Code: "nl", Name: "Dutch"},
	{Code: "fr", Name: "French"},
	{Code: "es", Name: "Spanish"},
	{Code: "it", Name: "Italian"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "ja", Name: "Japanese"},
	{Code: "ko", Name: "Korean"},
	{Code: "zh", Name: "Chinese"},
	{Code: "th", Name: "Thai"},
	{Code: "vi", Name: "Vietnamese"},
}

// SupportedLanguages returns the selectable language list in display order.
// The returned slice is a copy.
func SupportedLanguages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// LanguageName resolves a code to its display name, or "" if unknown.
func LanguageName(code string) string {
	for _, l := range supportedLanguages {
		if l.Code == code {
			return l.Name
		}
	}
	return ""
}
