package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func FuzzBuild(f *testing.F) {
	f.Add("s3cr3t", "admin", "supabase")
	f.Add("k", "", "")
	f.Add("secret with spaces", "role.with.dots", "https://example.com/auth/v1")
	f.Add("k", "a\x7fb", "\xff")
	f.Add("ünïcödé", " ", "\"quoted\"")

	b := NewBuilder(WithClock(func() time.Time { return time.Unix(1700000000, 0) }))

	f.Fuzz(func(t *testing.T, secret, role, issuer string) {
		if secret == "" {
			t.Skip()
		}
		tok, err := b.Build(secret, role, issuer)
		if !utf8.ValidString(role) || !utf8.ValidString(issuer) {
			if !errors.Is(err, ErrInvalidUTF8) {
				t.Fatalf("expected ErrInvalidUTF8 for role %q issuer %q, got %v", role, issuer, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("Build: %v", err)
		}

		parts := strings.Split(tok, ".")
		if len(parts) != 3 {
			t.Fatalf("expected 3 segments, got %d in %q", len(parts), tok)
		}

		raw, err := base64.RawURLEncoding.DecodeString(parts[1])
		if err != nil {
			t.Fatalf("claims segment not base64url: %v", err)
		}
		for _, c := range raw {
			if c >= 0x7f {
				t.Fatalf("claims JSON contains non-printable-ASCII byte %#x", c)
			}
		}
		var claims map[string]any
		if err := json.Unmarshal(raw, &claims); err != nil {
			t.Fatalf("claims segment not JSON: %v", err)
		}
		if claims["role"] != role || claims["iss"] != issuer {
			t.Errorf("claims round-trip mismatch: %v", claims)
		}
		exp, _ := claims["exp"].(float64)
		iat, _ := claims["iat"].(float64)
		if exp-iat != 157680000 {
			t.Errorf("exp-iat = %v", exp-iat)
		}

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(parts[0] + "." + parts[1]))
		if want := base64.RawURLEncoding.EncodeToString(mac.Sum(nil)); parts[2] != want {
			t.Errorf("signature = %q, want %q", parts[2], want)
		}
	})
}
