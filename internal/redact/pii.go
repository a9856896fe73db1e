// internal/redact/pii.go
package redact

import "regexp"

var (
	// Local part masked, domain retained.
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@([A-Za-z0-9.-]+\.[A-Za-z]{2,})\b`)

	// North-American-shaped phone numbers, last 4 digits retained.
	// Runs after the card mask so a 16-digit card number is never
	// partially matched as a phone number.
	phoneRe = regexp.MustCompile(`(?:\+\d{1,2}[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?(\d{4})\b`)

	// SSN-shaped sequences, fully masked.
	ssnRe = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

	// Credit-card-shaped sequences (four groups of four), last 4 retained.
	cardRe = regexp.MustCompile(`\b(?:\d{4}[ -]?){3}(\d{4})\b`)
)

// maskPII masks personally identifiable sequences. Each mask keeps
// enough shape for log correlation (domain, last-4) without exposing
// the identifier. Masked output contains no digits in the masked
// positions, so re-masking is a no-op.
func maskPII(text string) string {
	text = emailRe.ReplaceAllString(text, "***@${1}")
	text = ssnRe.ReplaceAllString(text, "***-**-****")
	text = cardRe.ReplaceAllString(text, "****-****-****-${1}")
	text = phoneRe.ReplaceAllString(text, "***-***-${1}")
	return text
}
