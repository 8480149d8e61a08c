package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint computes the dedup key for a document from its extracted text.
// Whitespace is normalized first so re-extraction of the same physical file
// produces the same hash even when page breaks or line wrapping differ.
// Volatile fields such as processing timestamps never enter the hash.
func Fingerprint(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// DocumentID derives the stable document identifier from a content hash.
// Two documents with the same hash are the same logical document, whatever
// their source paths.
func DocumentID(contentHash string) string {
	return "doc_" + contentHash[:12]
}
