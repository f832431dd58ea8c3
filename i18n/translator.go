package i18n

import "strings"

// Translator retrieves localized messages for Issue codes.
// data provides optional values to embed in the message (for example,
// "ref" or "path").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dict = map[string]map[string]string{
	"en": {
		"document_not_found":         "document {ref} not found",
		"document_parse_error":       "document could not be parsed",
		"reference_resolution_error": "reference {ref} does not resolve",
		"empty_composite":            "union or intersection has no members",
		"error":                      "unexpected error",
	},
	"ja": {
		"document_not_found":         "ドキュメント {ref} が見つかりません",
		"document_parse_error":       "ドキュメントを解析できません",
		"reference_resolution_error": "参照 {ref} を解決できません",
		"empty_composite":            "ユニオンまたはインターセクションにメンバーがありません",
		"error":                      "予期しないエラー",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dict[t.lang][code]
	if !ok {
		return code
	}
	for k, v := range data {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	// drop placeholders nobody filled
	for {
		i := strings.Index(msg, "{")
		j := strings.Index(msg, "}")
		if i < 0 || j < i {
			break
		}
		msg = strings.Join(strings.Fields(msg[:i]+msg[j+1:]), " ")
	}
	return msg
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if _, ok := dict[lang]; !ok {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
