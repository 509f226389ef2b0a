package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-that-is-32-bytes!"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService([]byte(testSecret), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestIssueAndValidate(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue("wallboard", 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "wallboard" {
		t.Errorf("Subject = %q, want wallboard", claims.Subject)
	}
	if claims.Issuer != issuer {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, issuer)
	}
	if ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time); ttl != time.Hour {
		t.Errorf("lifetime = %v, want default 1h", ttl)
	}
}

func TestNewTokenService_WeakSecret(t *testing.T) {
	if _, err := NewTokenService([]byte("short"), time.Hour); !errors.Is(err, ErrWeakSecret) {
		t.Errorf("err = %v, want ErrWeakSecret", err)
	}
}

func TestIssue_RequiresSubject(t *testing.T) {
	if _, err := newTestTokenService(t).Issue("", 0); err == nil {
		t.Error("expected error for empty subject")
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	other, err := NewTokenService([]byte(strings.Repeat("x", MinSecretLength)), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	foreign, _ := other.Issue("wallboard", 0)
	expired, _ := ts.Issue("wallboard", -time.Second)

	wrongAudience, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "wallboard",
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{"someone-else"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:  "wallboard",
		Issuer:   issuer,
		Audience: jwt.ClaimStrings{audience},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", foreign},
		{"expired", expired},
		{"wrong audience", wrongAudience},
		{"alg none", unsigned},
		{"garbage", "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Validate(tt.token); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
