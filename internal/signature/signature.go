// Package signature verifies inbound webhook HMAC signatures against a
// per-integration secret, with a timestamp window to reject replays.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"time"

	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/normalize"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
)

// DefaultMaxAge is the replay window used when an integration does not
// override it: requests older than this (by their timestamp header) are
// rejected, as are requests timestamped more than ClockSkew in the future.
const (
	DefaultMaxAge = 300 * time.Second
	ClockSkew     = 60 * time.Second
)

// Verifier checks an inbound request's signature header against the
// HMAC of its raw body, computed with the integration's secret.
type Verifier struct {
	now func() time.Time
}

func NewVerifier() *Verifier {
	return &Verifier{now: time.Now}
}

// Request carries the inputs needed to verify one webhook delivery.
type Request struct {
	RawBody         []byte
	SignatureHeader string // raw header value, e.g. "sha256=abcd..." or bare hex
	TimestampHeader string // raw header value, empty if the integration has none configured
}

// Verify checks the signature and, if the integration configures a
// timestamp header, the replay window. It returns a *serr.SentinelError
// with KindSignature on any failure.
func (v *Verifier) Verify(integ *domain.Integration, req Request) error {
	if req.SignatureHeader == "" {
		return serr.New("signature.Verify", serr.KindSignature, "missing signature header", serr.ErrMissingSignature).WithID(integ.ID)
	}

	expected, err := computeMAC(integ.Algorithm, integ.SigningSecret, req.RawBody)
	if err != nil {
		return serr.New("signature.Verify", serr.KindSignature, err.Error(), err).WithID(integ.ID)
	}

	provided := stripPrefix(req.SignatureHeader, integ.Prefix)
	if !constantTimeEqual(integ.Format, expected, provided) {
		return serr.New("signature.Verify", serr.KindSignature, "signature mismatch", serr.ErrInvalidSignature).WithID(integ.ID)
	}

	if integ.TimestampHeader != "" && req.TimestampHeader != "" {
		if err := v.checkTimestamp(integ, req.TimestampHeader); err != nil {
			return err
		}
	}

	return nil
}

// checkTimestamp accepts the same timestamp shapes as the normalizer
// does for alert payloads: RFC3339 or Unix (seconds or milliseconds,
// auto-detected by magnitude), per spec.md §4.1(4).
func (v *Verifier) checkTimestamp(integ *domain.Integration, raw string) error {
	ts, err := normalize.ParseTimestamp(raw)
	if err != nil {
		return serr.New("signature.checkTimestamp", serr.KindSignature, "invalid timestamp header", err).WithID(integ.ID)
	}
	now := v.now()

	maxAge := DefaultMaxAge
	if integ.MaxAgeSeconds > 0 {
		maxAge = time.Duration(integ.MaxAgeSeconds) * time.Second
	}

	if ts.After(now.Add(ClockSkew)) {
		return serr.New("signature.checkTimestamp", serr.KindSignature, "timestamp is in the future", serr.ErrWebhookTimestampFuture).WithID(integ.ID)
	}
	if now.Sub(ts) > maxAge {
		return serr.New("signature.checkTimestamp", serr.KindSignature, "timestamp outside replay window", serr.ErrWebhookExpired).WithID(integ.ID)
	}
	return nil
}

func computeMAC(algo domain.SignatureAlgorithm, secret, body []byte) ([]byte, error) {
	var h func() hash.Hash
	switch algo {
	case domain.AlgoSHA512:
		h = sha512.New
	case domain.AlgoSHA256, "":
		h = sha256.New
	default:
		return nil, fmt.Errorf("unsupported signature algorithm %q", algo)
	}
	mac := hmac.New(h, secret)
	mac.Write(body)
	return mac.Sum(nil), nil
}

func stripPrefix(header, prefix string) string {
	if prefix == "" {
		return header
	}
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return header
}

func constantTimeEqual(format domain.SignatureFormat, expected []byte, provided string) bool {
	var providedBytes []byte
	var err error
	switch format {
	case domain.FormatBase64:
		providedBytes, err = base64.StdEncoding.DecodeString(provided)
	case domain.FormatHex, "":
		providedBytes, err = hex.DecodeString(provided)
	default:
		return false
	}
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(expected, providedBytes) == 1
}
