package bot

import (
	"unicode/utf8"

	"github.com/keepmind9/tubebot/pkg/constants"
)

// maskSecret masks sensitive information for logging
func maskSecret(s string) string {
	if len(s) <= constants.MinSecretLengthForMasking {
		return "***"
	}
	return s[:constants.SecretMaskPrefixLength] + "***" + s[len(s)-constants.SecretMaskSuffixLength:]
}

// truncateMessage cuts message to at most max bytes on a rune boundary,
// marking the cut with "...".
func truncateMessage(message string, max int) string {
	if len(message) <= max {
		return message
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut] + "..."
}
