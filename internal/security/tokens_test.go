package security

import (
	"testing"
	"time"
)

func TestTokenProvider_IssueAndValidateAccess(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, jti, exp, err := p.IssueAccess("u1", "a@example.com", "admin")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if token == "" || jti == "" {
		t.Fatal("access token or jti empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}
	claims, err := p.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "a@example.com" || claims.Role != "admin" || claims.ID != jti {
		t.Errorf("ValidateAccess: got sub=%q email=%q role=%q jti=%q", claims.Subject, claims.Email, claims.Role, claims.ID)
	}
}

func TestTokenProvider_DistinctJTI(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	_, j1, _, _ := p.IssueAccess("u1", "a@example.com", "member")
	_, j2, _, _ := p.IssueAccess("u1", "a@example.com", "member")
	if j1 == j2 {
		t.Error("two tokens share a jti")
	}
}

func TestTokenProvider_ValidateAccessInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if _, err := p.ValidateAccess("invalid-token"); err != ErrInvalidToken {
		t.Errorf("ValidateAccess invalid token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateAccessExpired(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	issued := time.Now().UTC()
	p.nowF = func() time.Time { return issued }
	token, _, _, err := p.IssueAccess("u1", "a@example.com", "member")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	p.nowF = func() time.Time { return issued.Add(p.AccessTTL() + time.Minute) }
	if _, err := p.ValidateAccess(token); err != ErrInvalidToken {
		t.Errorf("ValidateAccess expired: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateAccessWrongAudience(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, _, _, err := p.IssueAccess("u1", "a@example.com", "member")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	other := NewTokenProvider(p.privateKey, p.publicKey, "test-issuer", "other-audience", time.Minute)
	if _, err := other.ValidateAccess(token); err != ErrInvalidToken {
		t.Errorf("ValidateAccess wrong audience: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ES256(t *testing.T) {
	signer, pub, err := GenerateEphemeralKey()
	if err != nil {
		t.Fatalf("GenerateEphemeralKey: %v", err)
	}
	p := NewTokenProvider(signer, pub, "iss", "aud", time.Minute)
	token, _, _, err := p.IssueAccess("u2", "b@example.com", "member")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateAccess(token); err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
}
