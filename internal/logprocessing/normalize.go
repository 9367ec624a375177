package logprocessing

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode"
)

var messageFields = []string{"message", "msg", "error", "err", "log", "text"}

// ExtractMessage returns the message field of a JSON-encoded log line, or
// rawLog unchanged when it is not JSON or has no recognised message field.
func ExtractMessage(rawLog string) string {
	trimmed := strings.TrimSpace(rawLog)
	if !strings.HasPrefix(trimmed, "{") {
		return rawLog
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return rawLog
	}

	for _, field := range messageFields {
		if msg, ok := parsed[field].(string); ok && msg != "" {
			return msg
		}
	}
	return rawLog
}

// PreProcess prepares a message for template mining: message extraction,
// variable masking, lower-casing and whitespace collapsing.
func PreProcess(rawLog string) string {
	message := MaskVariables(ExtractMessage(rawLog))
	return strings.Join(strings.Fields(strings.ToLower(message)), " ")
}

// Tokenize returns the sorted, de-duplicated content words of a message.
// Variable fragments and stop words are dropped, as are single characters.
// An empty or all-variable message yields an empty set.
func Tokenize(rawLog string) []string {
	text := strings.ToLower(StripPlaceholders(MaskVariables(ExtractMessage(rawLog))))

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(words))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 || isStopWord(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		tokens = append(tokens, w)
	}
	sort.Strings(tokens)
	return tokens
}

// Keywords returns the meaningful words of a mined template in their
// original order, skipping wildcards and placeholders.
func Keywords(pattern string) []string {
	var out []string
	for _, field := range strings.Fields(pattern) {
		if field == Wildcard || placeholderPattern.MatchString(strings.ToUpper(field)) {
			continue
		}
		word := strings.TrimFunc(strings.ToLower(field), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(word)) < 3 || isStopWord(word) || isNumber(word) {
			continue
		}
		out = append(out, word)
	}
	return out
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "been": {},
	"but": {}, "by": {}, "can": {}, "could": {}, "did": {}, "do": {}, "does": {},
	"for": {}, "from": {}, "had": {}, "has": {}, "have": {}, "he": {}, "her": {},
	"his": {}, "if": {}, "in": {}, "into": {}, "is": {}, "it": {}, "its": {},
	"may": {}, "no": {}, "not": {}, "of": {}, "on": {}, "or": {}, "our": {},
	"she": {}, "should": {}, "so": {}, "than": {}, "that": {}, "the": {},
	"their": {}, "then": {}, "there": {}, "these": {}, "they": {}, "this": {},
	"to": {}, "was": {}, "we": {}, "were": {}, "when": {}, "which": {}, "while": {},
	"will": {}, "with": {}, "would": {}, "you": {}, "your": {},
}

func isStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}
