// Package fingerprint computes the content digests used to deduplicate
// index records.
//
// A fingerprint is the hex SHA-256 of the normalised text. Normalisation
// applies Unicode NFC, converts CRLF and CR line endings to LF and trims
// surrounding whitespace, so identical content always maps to the same key
// regardless of how it was encoded on disk.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalise returns the canonical form of text that is hashed.
func Normalise(text string) string {
	return strings.TrimSpace(lineEndings.Replace(norm.NFC.String(text)))
}

// Of returns the fingerprint of text.
func Of(text string) domain.Fingerprint {
	sum := sha256.Sum256([]byte(Normalise(text)))
	return domain.Fingerprint(hex.EncodeToString(sum[:]))
}
