package redact

import (
	"testing"

	"github.com/bovinemagnet/pg-console-sub010/internal/config"
	"github.com/stretchr/testify/assert"
)

func piiRedactor(t *testing.T) *Redactor {
	t.Helper()
	return newTestRedactor(t, func(cfg *config.RedactionConfig) {
		cfg.MaskPII = true
	})
}

func TestMaskPII_Email(t *testing.T) {
	r := piiRedactor(t)

	assert.Equal(t, "contact ***@example.com", r.Redact("contact bob@example.com"))
	assert.Equal(t, "***@sub.example.co.uk", r.Redact("b.smith+tag@sub.example.co.uk"))
}

func TestMaskPII_Phone(t *testing.T) {
	r := piiRedactor(t)

	tests := []struct {
		input string
		want  string
	}{
		{"call 555-123-4567", "call ***-***-4567"},
		{"call (555) 123-4567", "call ***-***-4567"},
		{"call +1 555 123 4567", "call ***-***-4567"},
		{"call 5551234567", "call ***-***-4567"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Redact(tt.input))
	}
}

func TestMaskPII_SSN(t *testing.T) {
	r := piiRedactor(t)

	got := r.Redact("ssn 123-45-6789 on file")
	assert.Equal(t, "ssn ***-**-**** on file", got)
	assert.NotContains(t, got, "6789")
}

func TestMaskPII_CreditCard(t *testing.T) {
	r := piiRedactor(t)

	assert.Equal(t, "card ****-****-****-1111", r.Redact("card 4111-1111-1111-1111"))
	assert.Equal(t, "card ****-****-****-1111", r.Redact("card 4111111111111111"))
}

func TestMaskPII_DisabledByDefault(t *testing.T) {
	r := newTestRedactor(t, nil)

	input := "contact bob@example.com or 555-123-4567"
	assert.Equal(t, input, r.Redact(input))
}

func TestMaskPII_Idempotent(t *testing.T) {
	r := piiRedactor(t)

	inputs := []string{
		"bob@example.com 555-123-4567 123-45-6789 4111-1111-1111-1111",
		"mixed password=x and alice@example.org",
	}
	for _, input := range inputs {
		once := r.Redact(input)
		assert.Equal(t, once, r.Redact(once))
	}
}
