package parsett

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Bibliographic and scene spellings that language.Parse does not accept.
var languageCodeAliases = map[string]string{
	"fre": "fra",
	"ger": "deu",
	"dut": "nld",
	"chi": "zho",
	"esp": "spa",
}

// LanguageName turns a release language code ("ITA", "ger") into its English
// display name. Unknown codes fall back to the default language.
func LanguageName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if alias, ok := languageCodeAliases[code]; ok {
		code = alias
	}
	tag, err := language.Parse(code)
	if err != nil {
		return DefaultLanguage
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return DefaultLanguage
	}
	return name
}
