package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func signedHeader(secret string, at time.Time, payload []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), ComputeSignature(secret, at.Unix(), payload))
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, VerifySignature(secret, signedHeader(secret, now, payload), payload, now))

	// Clock skew inside the tolerance window is accepted in both directions.
	assert.NoError(t, VerifySignature(secret, signedHeader(secret, now.Add(-4*time.Minute), payload), payload, now))
	assert.NoError(t, VerifySignature(secret, signedHeader(secret, now.Add(4*time.Minute), payload), payload, now))
}

func TestVerifySignatureRejects(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		secret string
		header string
		expect error
	}{
		{
			name:   "missing secret",
			secret: " ",
			header: signedHeader(secret, now, payload),
			expect: ErrMissingSecret,
		},
		{
			name:   "empty header",
			secret: secret,
			header: "",
			expect: ErrInvalidSignature,
		},
		{
			name:   "garbage header",
			secret: secret,
			header: "not-a-signature",
			expect: ErrInvalidSignature,
		},
		{
			name:   "wrong secret",
			secret: secret,
			header: signedHeader("whsec_other", now, payload),
			expect: ErrInvalidSignature,
		},
		{
			name:   "replayed delivery outside tolerance",
			secret: secret,
			header: signedHeader(secret, now.Add(-6*time.Minute), payload),
			expect: ErrInvalidSignature,
		},
		{
			name:   "timestamp from the future outside tolerance",
			secret: secret,
			header: signedHeader(secret, now.Add(6*time.Minute), payload),
			expect: ErrInvalidSignature,
		},
		{
			name:   "tampered payload",
			secret: secret,
			header: signedHeader(secret, now, []byte(`{"id":"evt_2"}`)),
			expect: ErrInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, VerifySignature(tt.secret, tt.header, payload, now), tt.expect)
		})
	}
}
