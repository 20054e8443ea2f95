package canonical

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// minTitleLength guards noise-token removal: stripping never shrinks a
// title below this many runes, so short real titles survive aggressive
// vocabularies.
const minTitleLength = 8

var (
	quotePunct   = strings.NewReplacer(`"`, "", "'", "", "“", "", "”", "", "‘", "", "’", "", "«", "", "»", "", "[", " ", "]", " ", "(", " ", ")", " ", "{", " ", "}", " ")
	dashVariants = strings.NewReplacer("–", "-", "—", "-", "―", "-", "−", "-")

	longDatePattern  = regexp.MustCompile(`(?i)\b\d{1,2}º?\s+de\s+\p{L}+\s+de\s+\d{4}\b`)
	shortDatePattern = regexp.MustCompile(`\b\d{1,2}[./-]\d{1,2}[./-]\d{2,4}\b`)
	bareYearPattern  = regexp.MustCompile(`\b(1[89]|20)\d{2}\b`)
	trailingPunct    = regexp.MustCompile(`[\s.,;:!?-]+$`)
	ordinalEdition   = regexp.MustCompile(`^\d{1,3}[ªºao]?\.?$`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// noiseTokens is the fixed vocabulary of edition, volume, coordinator, and
// reviewer markers removed from cited-work titles. Matching is
// case-insensitive with trailing dots trimmed.
var noiseTokens = map[string]struct{}{
	"revista":       {},
	"revisada":      {},
	"revisado":      {},
	"atualizada":    {},
	"atualizado":    {},
	"ampliada":      {},
	"ampliado":      {},
	"aumentada":     {},
	"aumentado":     {},
	"reimpressão":   {},
	"reimpressao":   {},
	"tiragem":       {},
	"ed":            {},
	"eds":           {},
	"edição":        {},
	"edicao":        {},
	"edições":       {},
	"edicoes":       {},
	"vol":           {},
	"vols":          {},
	"volume":        {},
	"volumes":       {},
	"tomo":          {},
	"coord":         {},
	"coordenação":   {},
	"coordenacao":   {},
	"coordenador":   {},
	"coordenadora":  {},
	"coordenadores": {},
	"org":           {},
	"orgs":          {},
	"organizador":   {},
	"organizadora":  {},
	"organizadores": {},
}

// connectorTokens join noise tokens inside dropped segments ("revista e
// atualizada") without being noise on their own.
var connectorTokens = map[string]struct{}{
	"e":   {},
	"de":  {},
	"da":  {},
	"do":  {},
	"por": {},
}

// subtitleNoiseWords flag a colon-delimited subtitle as descriptive rather
// than part of the work's identity.
var subtitleNoiseWords = map[string]struct{}{
	"revista":      {},
	"revisada":     {},
	"atualizada":   {},
	"ampliada":     {},
	"edição":       {},
	"edicao":       {},
	"ed":           {},
	"vol":          {},
	"volume":       {},
	"tomo":         {},
	"coordenação":  {},
	"coordenacao":  {},
	"coordenado":   {},
	"coordenada":   {},
	"coord":        {},
	"organizado":   {},
	"organizada":   {},
	"org":          {},
	"reimpressão":  {},
	"reimpressao":  {},
	"obra":         {},
	"texto":        {},
	"atualização":  {},
	"atualizacao":  {},
}

// NormalizeTitle runs the deterministic cleanup pipeline on a raw
// cited-work title and returns its lowercase normalized form. Empty input,
// or input that cleans down to nothing, yields "".
func NormalizeTitle(raw string) string {
	text := norm.NFC.String(raw)
	text = quotePunct.Replace(text)
	text = dashVariants.Replace(text)
	text = collapse(text)
	text = trailingPunct.ReplaceAllString(text, "")

	text = dropDescriptiveSubtitle(text)
	text = stripDates(text)

	if stripped := stripNoise(text); runeLen(stripped) >= minTitleLength {
		text = stripped
	}

	text = strings.ReplaceAll(text, "-", " ")
	text = strings.ReplaceAll(text, ",", " ")
	text = strings.ReplaceAll(text, ";", " ")
	text = strings.ReplaceAll(text, ":", " ")
	text = collapse(text)
	return strings.ToLower(text)
}

// dropDescriptiveSubtitle removes a colon-delimited tail when it reads as
// edition metadata rather than a real subtitle.
func dropDescriptiveSubtitle(text string) string {
	idx := strings.Index(text, ":")
	if idx < 0 {
		return text
	}
	subtitle := strings.TrimSpace(text[idx+1:])
	if subtitle == "" {
		return strings.TrimSpace(text[:idx])
	}
	firstWord := strings.ToLower(strings.Trim(strings.Fields(subtitle)[0], ".,;"))
	if _, noisy := subtitleNoiseWords[firstWord]; noisy {
		return strings.TrimSpace(text[:idx])
	}
	if longDatePattern.MatchString(subtitle) || shortDatePattern.MatchString(subtitle) {
		return strings.TrimSpace(text[:idx])
	}
	return text
}

func stripDates(text string) string {
	text = longDatePattern.ReplaceAllString(text, " ")
	text = shortDatePattern.ReplaceAllString(text, " ")
	text = bareYearPattern.ReplaceAllString(text, " ")
	return collapse(text)
}

// stripNoise drops comma-delimited segments made entirely of edition
// metadata, then removes stray noise tokens from what remains.
func stripNoise(text string) string {
	segments := splitSegments(text)
	kept := segments[:1]
	for _, segment := range segments[1:] {
		if !segmentIsNoise(segment) {
			kept = append(kept, segment)
		}
	}

	joined := strings.Join(kept, " ")
	fields := strings.Fields(joined)
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if isNoiseToken(field) {
			continue
		}
		out = append(out, field)
	}
	return strings.Join(out, " ")
}

func splitSegments(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';'
	})
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	if len(segments) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return segments
}

func segmentIsNoise(segment string) bool {
	fields := strings.Fields(segment)
	if len(fields) == 0 {
		return true
	}
	sawNoise := false
	for _, field := range fields {
		if isNoiseToken(field) {
			sawNoise = true
			continue
		}
		normalized := normalizeToken(field)
		if _, connector := connectorTokens[normalized]; connector {
			continue
		}
		return false
	}
	return sawNoise
}

func isNoiseToken(token string) bool {
	normalized := normalizeToken(token)
	if normalized == "" {
		return true
	}
	if _, ok := noiseTokens[normalized]; ok {
		return true
	}
	return ordinalEdition.MatchString(normalized)
}

func normalizeToken(token string) string {
	return strings.ToLower(strings.Trim(token, ".,;:"))
}

func collapse(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

func runeLen(text string) int {
	return len([]rune(text))
}
