// Package fingerprint computes the two content digests used for
// deduplication: a delivery-level fingerprint over the full normalized
// payload, and an incident-level fingerprint over a restricted set of
// grouping fields.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/onwatch/sentinel/internal/normalize"
)

// Delivery returns the sha-256 hex digest of the canonicalized raw
// payload, used for delivery-level idempotency when no idempotency key
// header is supplied.
func Delivery(rawPayload []byte) (string, error) {
	decoded, err := normalize.DecodeJSON(rawPayload)
	if err != nil {
		return "", fmt.Errorf("fingerprint: decoding payload: %w", err)
	}
	canon, err := normalize.Canonical(decoded)
	if err != nil {
		return "", fmt.Errorf("fingerprint: canonicalizing payload: %w", err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// Incident computes the grouping fingerprint for an alert: the hash of
// its source, title, and a caller-supplied set of grouping metadata
// values, sorted by key so field order never affects the digest. Two
// alerts that should be treated as the same underlying incident must be
// passed the same groupingFields.
func Incident(source, title string, groupingFields map[string]string) string {
	keys := make([]string, 0, len(groupingFields))
	for k := range groupingFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	fmt.Fprintf(h, "source:%s\ntitle:%s\n", source, title)
	for _, k := range keys {
		fmt.Fprintf(h, "%s:%s\n", k, groupingFields[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}
