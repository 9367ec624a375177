package logprocessing

import (
	"regexp"
	"strings"
)

// Placeholders substituted for variable parts of a message.
const (
	PlaceholderIP        = "<IP>"
	PlaceholderUUID      = "<UUID>"
	PlaceholderTimestamp = "<TIMESTAMP>"
	PlaceholderHex       = "<HEX>"
	PlaceholderPath      = "<PATH>"
	PlaceholderURL       = "<URL>"
	PlaceholderEmail     = "<EMAIL>"
	PlaceholderNumber    = "<NUM>"
)

var (
	urlPattern   = regexp.MustCompile(`\bhttps?://[a-zA-Z0-9.-]+[a-zA-Z0-9/._?=&%-]*`)
	emailPattern = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)

	timestampPattern     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?`)
	dottedDatePattern    = regexp.MustCompile(`\b\d{2}\.\d{2}\.\d{4}( \d{2}:\d{2}:\d{2})?\b`)
	unixTimestampPattern = regexp.MustCompile(`\b\d{10,13}\b`)

	uuidPattern = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)
	ipv4Pattern = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}(:\d{1,5})?\b`)
	ipv6Pattern = regexp.MustCompile(`\b[0-9a-fA-F]{1,4}(?::[0-9a-fA-F]{0,4}){2,7}\b`)

	hexPattern     = regexp.MustCompile(`\b0x[0-9a-fA-F]+\b`)
	longHexPattern = regexp.MustCompile(`\b[0-9a-fA-F]{16,}\b`)

	unixPathPattern    = regexp.MustCompile(`(?:^|\s)(/[a-zA-Z0-9_.-]+)+`)
	windowsPathPattern = regexp.MustCompile(`[A-Z]:\\[a-zA-Z0-9_.\-\\]+`)

	placeholderPattern = regexp.MustCompile(`<[A-Z_]+>`)
)

// statusContexts are words that mark a neighbouring number as a status or
// error code, which is kept literal ("returned 404" and "returned 500" stay
// distinct).
var statusContexts = []string{"status", "code", "http", "returned", "response", "errno", "exit"}

// MaskVariables replaces variable fragments (addresses, identifiers, times,
// paths, plain numbers) with placeholders. More specific patterns run first.
func MaskVariables(message string) string {
	message = urlPattern.ReplaceAllString(message, PlaceholderURL)
	message = emailPattern.ReplaceAllString(message, PlaceholderEmail)
	message = timestampPattern.ReplaceAllString(message, PlaceholderTimestamp)
	message = dottedDatePattern.ReplaceAllString(message, PlaceholderTimestamp)
	message = uuidPattern.ReplaceAllString(message, PlaceholderUUID)
	message = ipv4Pattern.ReplaceAllString(message, PlaceholderIP)
	message = ipv6Pattern.ReplaceAllString(message, PlaceholderIP)
	message = hexPattern.ReplaceAllString(message, PlaceholderHex)
	message = longHexPattern.ReplaceAllString(message, PlaceholderHex)
	message = unixTimestampPattern.ReplaceAllString(message, PlaceholderTimestamp)
	message = unixPathPattern.ReplaceAllStringFunc(message, func(m string) string {
		if strings.HasPrefix(m, "/") {
			return PlaceholderPath
		}
		return m[:1] + PlaceholderPath
	})
	message = windowsPathPattern.ReplaceAllString(message, PlaceholderPath)

	return maskNumbersExceptStatusCodes(message)
}

// StripPlaceholders blanks out every placeholder left by MaskVariables.
func StripPlaceholders(masked string) string {
	return placeholderPattern.ReplaceAllString(masked, " ")
}

func maskNumbersExceptStatusCodes(message string) string {
	tokens := strings.Fields(message)

	for i, token := range tokens {
		if !isNumber(token) {
			continue
		}

		keep := false
		for j := max(0, i-3); j < min(len(tokens), i+4) && !keep; j++ {
			if j == i {
				continue
			}
			lower := strings.ToLower(tokens[j])
			for _, ctx := range statusContexts {
				if strings.Contains(lower, ctx) {
					keep = true
					break
				}
			}
		}

		if !keep {
			tokens[i] = PlaceholderNumber
		}
	}

	return strings.Join(tokens, " ")
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
