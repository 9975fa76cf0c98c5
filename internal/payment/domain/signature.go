package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is where providers place the delivery signature.
const SignatureHeader = "X-Webhook-Signature"

// SignatureTolerance rejects replayed deliveries older than this.
const SignatureTolerance = 5 * time.Minute

// VerifySignature checks a "t=<unix>,v1=<hex hmac>" header against the raw
// payload. The signed message is "<t>.<payload>".
func VerifySignature(secret string, header string, payload []byte, now time.Time) error {
	if strings.TrimSpace(secret) == "" {
		return ErrMissingSecret
	}

	var ts int64
	var provided string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return ErrInvalidSignature
			}
			ts = parsed
		case "v1":
			provided = value
		}
	}
	if ts == 0 || provided == "" {
		return ErrInvalidSignature
	}

	age := now.Sub(time.Unix(ts, 0))
	if age > SignatureTolerance || age < -SignatureTolerance {
		return ErrInvalidSignature
	}

	if !hmac.Equal([]byte(ComputeSignature(secret, ts, payload)), []byte(provided)) {
		return ErrInvalidSignature
	}
	return nil
}

// ComputeSignature produces the v1 signature for a payload at time ts.
func ComputeSignature(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
