package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// signatureHeader is a parsed Stripe-Signature value: "t=<unix>,v1=<hex>".
// Stripe sends several v1 entries while a secret is being rolled.
type signatureHeader struct {
	timestamp string
	signedAt  time.Time
	v1        [][]byte
}

func parseSignatureHeader(raw string) (signatureHeader, bool) {
	var sig signatureHeader
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "t":
			unix, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return signatureHeader{}, false
			}
			sig.timestamp = strings.TrimSpace(value)
			sig.signedAt = time.Unix(unix, 0)
		case "v1":
			decoded, err := hex.DecodeString(strings.TrimSpace(value))
			if err != nil {
				continue
			}
			sig.v1 = append(sig.v1, decoded)
		}
	}
	if sig.timestamp == "" || len(sig.v1) == 0 {
		return signatureHeader{}, false
	}
	return sig, true
}

// fresh rejects deliveries signed more than maxAge away from now in either
// direction.
func (s signatureHeader) fresh(now time.Time, maxAge time.Duration) bool {
	skew := now.Sub(s.signedAt)
	if skew < 0 {
		skew = -skew
	}
	return skew <= maxAge
}

func (s signatureHeader) matches(secret string, payload []byte) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(s.timestamp))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range s.v1 {
		if hmac.Equal(candidate, expected) {
			return true
		}
	}
	return false
}
