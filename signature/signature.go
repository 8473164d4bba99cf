// Package signature authenticates request documents with an HMAC over a
// per-kind canonical message, so the shared secret never goes over the wire.
//
// The canonical messages are part of the wire contract:
//
//	activity:       {activity.type}{unixTimestamp}1
//	lookup:         {first dimension}{unixTimestamp}{dimension count}, 0{unixTimestamp}0 without dimensions
//	temporal data:  {unixTimestamp}-{user.additional.localDateTime}-{user.additional.timezone}
//	recommendation: {unixTimestamp}
//
// Missing inputs are substituted by the empty string.
package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"

	"brein.evalgo.org/brerr"
	"brein.evalgo.org/document"
)

// Document keys written by Sign.
const (
	SignatureKey     = "signature"
	SignatureTypeKey = "signatureType"
	TypeHmacSHA256   = "HmacSHA256"
)

// Messenger computes the canonical message of a built document.
type Messenger interface {
	SignatureMessage(doc document.Document) string
}

// Generate returns base64(HMAC-SHA256(secret, message)).
func Generate(message, secret string) (string, error) {
	if secret == "" {
		return "", brerr.New(brerr.KindSignature, "signature.Generate", "secret is required to sign a request")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// GenerateSecret returns a random base64 secret of the given bit length.
func GenerateSecret(bits int) (string, error) {
	if bits <= 0 || bits%8 != 0 {
		return "", brerr.Validation("signature.GenerateSecret", "bit length must be a positive multiple of 8, got %d", bits)
	}
	buf := make([]byte, bits/8)
	if _, err := rand.Read(buf); err != nil {
		return "", brerr.Wrap(brerr.KindSignature, "signature.GenerateSecret", err, "failed to read random bytes")
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Sign computes the signature of doc using m's canonical message and stores it
// in doc together with the signature type.
func Sign(doc document.Document, m Messenger, secret string) error {
	if doc == nil || m == nil {
		return brerr.Validation("signature.Sign", "document and messenger are required")
	}

	sig, err := Generate(m.SignatureMessage(doc), secret)
	if err != nil {
		return err
	}

	doc[SignatureKey] = sig
	doc[SignatureTypeKey] = TypeHmacSHA256
	return nil
}

// Verify reports whether doc carries the signature m and secret produce.
func Verify(doc document.Document, m Messenger, secret string) bool {
	got := doc.GetString(SignatureKey)
	if got == "" {
		return false
	}
	want, err := Generate(m.SignatureMessage(doc), secret)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(got), []byte(want))
}

// Timestamp returns the unixTimestamp of doc, 0 if absent.
func Timestamp(doc document.Document) int64 {
	ts, _ := doc.GetInt64("unixTimestamp")
	return ts
}

// ActivityMessage returns "{type}{unixTimestamp}1".
func ActivityMessage(doc document.Document) string {
	return doc.GetString("activity", "type") + strconv.FormatInt(Timestamp(doc), 10) + "1"
}

// LookupMessage returns "{firstDimension}{unixTimestamp}{count}".
func LookupMessage(doc document.Document) string {
	dimensions := stringList(doc, "lookup", "dimensions")

	first := "0"
	if len(dimensions) > 0 {
		first = dimensions[0]
	}
	return fmt.Sprintf("%s%d%d", first, Timestamp(doc), len(dimensions))
}

// TemporalDataMessage returns "{unixTimestamp}-{localDateTime}-{timezone}".
func TemporalDataMessage(doc document.Document) string {
	localDateTime := doc.GetString("user", "additional", "localDateTime")
	timezone := doc.GetString("user", "additional", "timezone")
	return fmt.Sprintf("%d-%s-%s", Timestamp(doc), localDateTime, timezone)
}

// RecommendationMessage returns "{unixTimestamp}".
func RecommendationMessage(doc document.Document) string {
	return strconv.FormatInt(Timestamp(doc), 10)
}

func stringList(doc document.Document, path ...string) []string {
	value, ok := doc.Get(path...)
	if !ok {
		return nil
	}
	switch list := value.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}
