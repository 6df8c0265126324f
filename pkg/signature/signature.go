// Package signature verifies content store webhook signatures.
//
// The content store signs every delivery with a header of the form
//
//	sanity-webhook-signature: t=1700000000000,v1=<signature>
//
// where signature is the unpadded base64url HMAC-SHA256 of "<t>.<raw body>"
// keyed with the shared webhook secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HeaderName is the header carrying the webhook signature.
const HeaderName = "sanity-webhook-signature"

// Result is the outcome of a verification.
type Result int

const (
	// Indeterminate: no signature header, or no secret to check it against.
	Indeterminate Result = iota
	// Valid: the signature matches the raw body.
	Valid
	// Invalid: the header is malformed or the signature does not match.
	Invalid
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "indeterminate"
	}
}

// Verify checks header against rawBody using secret. rawBody must be the exact
// bytes received on the wire. Surrounding whitespace in secret is ignored.
func Verify(rawBody []byte, header, secret string) Result {
	header = strings.TrimSpace(header)
	if header == "" {
		return Indeterminate
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return Indeterminate
	}

	timestamp, sig, err := decodeHeader(header)
	if err != nil {
		return Invalid
	}

	expected := computeSignature(rawBody, timestamp, secret)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return Invalid
	}
	return Valid
}

// FirstValue returns the first element of a possibly multi-valued header.
func FirstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Sign returns a header value for rawBody signed at ts.
func Sign(rawBody []byte, secret string, ts time.Time) string {
	timestamp := ts.UnixMilli()
	return fmt.Sprintf("t=%d,v1=%s", timestamp, computeSignature(rawBody, timestamp, strings.TrimSpace(secret)))
}

func computeSignature(rawBody []byte, timestamp int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func decodeHeader(header string) (int64, string, error) {
	var (
		timestamp int64
		sig       string
		haveTS    bool
	)

	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil || ts <= 0 {
				return 0, "", fmt.Errorf("invalid signature timestamp %q", value)
			}
			timestamp = ts
			haveTS = true
		case "v1":
			sig = value
		}
	}

	if !haveTS {
		return 0, "", fmt.Errorf("signature header has no timestamp")
	}
	if sig == "" {
		return 0, "", fmt.Errorf("signature header has no v1 signature")
	}
	return timestamp, sig, nil
}
