package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testKey = []byte(strings.Repeat("k", MinKeyBytes))

func TestHMACKeyFromEnv(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := HMACKeyFromEnv(MinKeyBytes); !errors.Is(err, ErrHMACKeyMissing) {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}

	t.Setenv(HMACEnvKey, "short")
	if _, err := HMACKeyFromEnv(MinKeyBytes); !errors.Is(err, ErrHMACKeyTooShort) {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}

	t.Setenv(HMACEnvKey, "  "+string(testKey)+"  ")
	key, err := HMACKeyFromEnv(MinKeyBytes)
	if err != nil || string(key) != string(testKey) {
		t.Fatalf("key=%q err=%v", key, err)
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	signer, err := NewSigner(testKey, "packs")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	verifier, err := NewVerifier(testKey, "packs")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	user := uuid.New()
	raw, err := signer.Sign(user, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := verifier.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != user {
		t.Fatalf("subject=%v want %v", got, user)
	}
}

func TestVerify_Rejects(t *testing.T) {
	t.Parallel()

	user := uuid.New()
	signer, _ := NewSigner(testKey, "packs")
	verifier, _ := NewVerifier(testKey, "packs", WithLeeway(0))

	other, _ := NewSigner([]byte(strings.Repeat("x", MinKeyBytes)), "packs")
	forged, _ := other.Sign(user, time.Minute)

	wrongIss, _ := NewSigner(testKey, "elsewhere")
	foreign, _ := wrongIss.Sign(user, time.Minute)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   user.String(),
		Issuer:    "packs",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "packs",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(testKey)

	for name, raw := range map[string]string{
		"empty":      "",
		"garbage":    "not-a-token",
		"wrong key":  forged,
		"wrong iss":  foreign,
		"alg none":   none,
		"no subject": noSubject,
	} {
		if _, err := verifier.Verify(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}

	signer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := signer.Sign(user, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.Verify(expired); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestNewVerifier_KeyPolicy(t *testing.T) {
	t.Parallel()

	if _, err := NewVerifier(nil, ""); !errors.Is(err, ErrHMACKeyMissing) {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}
	if _, err := NewVerifier([]byte("short"), ""); !errors.Is(err, ErrHMACKeyTooShort) {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}
}

func TestBearerFromHeader(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer   abc  ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := BearerFromHeader(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("BearerFromHeader(%q)=(%q,%v) want (%q,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
