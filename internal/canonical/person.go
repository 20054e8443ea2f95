package canonical

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// honorifics are the prefixes stripped from minister and rapporteur names.
// Matching is case-insensitive with trailing dots and colons trimmed.
var honorifics = map[string]struct{}{
	"min":      {},
	"ministro": {},
	"ministra": {},
	"rel":      {},
	"relator":  {},
	"relatora": {},
	"des":      {},
	"dr":       {},
	"dra":      {},
	"exmo":     {},
	"exma":     {},
	"sr":       {},
	"sra":      {},
}

// particles stay lowercase inside a title-cased Portuguese name, except in
// leading position.
var particles = map[string]struct{}{
	"de":  {},
	"da":  {},
	"das": {},
	"do":  {},
	"dos": {},
	"e":   {},
}

var titleCaser = cases.Title(language.BrazilianPortuguese)

// NormalizePersonName reduces differently-formatted records of the same
// person to one comparable form: honorific prefixes removed, whitespace
// collapsed, each token title-cased with connective particles kept
// lowercase. "MIN. GILMAR  mendes" and "Ministro Gilmar Mendes" both yield
// "Gilmar Mendes".
func NormalizePersonName(raw string) string {
	text := collapse(norm.NFC.String(raw))
	fields := strings.Fields(text)

	start := 0
	for start < len(fields) {
		token := strings.ToLower(strings.Trim(fields[start], ".:,"))
		if _, ok := honorifics[token]; !ok {
			break
		}
		start++
	}
	fields = fields[start:]

	out := make([]string, 0, len(fields))
	for i, field := range fields {
		token := strings.ToLower(strings.Trim(field, ".,:"))
		if token == "" {
			continue
		}
		if _, particle := particles[token]; particle && i > 0 {
			out = append(out, token)
			continue
		}
		out = append(out, titleCaser.String(token))
	}
	return strings.Join(out, " ")
}

// TitleCase renders a normalized lowercase title for display, keeping
// connective particles lowercase after the first word.
func TitleCase(normalized string) string {
	fields := strings.Fields(normalized)
	out := make([]string, 0, len(fields))
	for i, field := range fields {
		if _, particle := particles[field]; particle && i > 0 {
			out = append(out, field)
			continue
		}
		out = append(out, titleCaser.String(field))
	}
	return strings.Join(out, " ")
}
