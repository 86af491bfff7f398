package imap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMessageID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"angle brackets stripped", "<abc@x>", "abc@x"},
		{"surrounding whitespace stripped", " abc@x ", "abc@x"},
		{"whitespace around brackets", "  <abc@x>  ", "abc@x"},
		{"already normalized", "abc@x", "abc@x"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeMessageID(tt.raw))
		})
	}
}

func TestFingerprintStability(t *testing.T) {
	assert.Equal(t, Fingerprint("<abc@x>"), Fingerprint(" abc@x "))
	assert.Equal(t, Fingerprint("abc@x"), Fingerprint("<abc@x>"))
	assert.NotEqual(t, Fingerprint("abc@x"), Fingerprint("abc@y"))

	// Fixed-length hex output regardless of input length.
	assert.Len(t, Fingerprint("a"), 64)
	assert.Len(t, Fingerprint("<a-very-long-identifier-with-lots-of-entropy@mail.example.org>"), 64)
}
