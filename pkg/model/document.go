package model

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// DocumentID is the stable identity of an ingested document. It is derived
// from the content fingerprint, so two documents with identical normalized
// text share the same ID.
type DocumentID string

// Fingerprint is a SHA-256 digest of normalized document text, hex encoded.
type Fingerprint string

var whitespaceSeq = regexp.MustCompile(`\s+`)

// NormalizeText collapses all whitespace runs into single spaces and trims
// the result. Case is preserved.
func NormalizeText(text string) string {
	return strings.TrimSpace(whitespaceSeq.ReplaceAllString(text, " "))
}

// NewFingerprint computes the content fingerprint of a document. The input
// is normalized first, so whitespace-only edits do not change the result.
func NewFingerprint(text string) Fingerprint {
	digest := sha256.Sum256([]byte(NormalizeText(text)))
	return Fingerprint(hex.EncodeToString(digest[:]))
}

// DocumentID derives the document identity from the fingerprint.
func (f Fingerprint) DocumentID() DocumentID {
	return DocumentID(string(f))
}
