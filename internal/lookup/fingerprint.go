package lookup

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// Fingerprint derives the primary key for a hint triple. The canonical
// encoding is stable across releases; changing it would orphan every stored
// record and cache entry.
func Fingerprint(huggingface, github, blogURL string) string {
	base := fmt.Sprintf("hf=%s|gh=%s|blog=%s", huggingface, github, blogURL)
	sum := sha1.Sum([]byte(base))
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns the key for the normalized hint triple.
func (h Hints) Fingerprint() string {
	return Fingerprint(h.HuggingFace, h.GitHub, h.BlogURL)
}
