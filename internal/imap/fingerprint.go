package imap

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeMessageID strips surrounding whitespace and angle brackets from a
// raw Message-ID header value. "<abc@x>" and " abc@x " normalize identically.
func NormalizeMessageID(raw string) string {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	return strings.TrimSpace(id)
}

// Fingerprint derives the stable index id for a message from its Message-ID.
// Equal normalized identifiers always yield equal fingerprints, which is what
// makes indexing idempotent across backfill, live updates and restarts.
func Fingerprint(rawMessageID string) string {
	sum := sha256.Sum256([]byte(NormalizeMessageID(rawMessageID)))
	return hex.EncodeToString(sum[:])
}
