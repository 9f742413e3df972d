package auth

import (
	"testing"
	"time"

	"github.com/fieldworkhq/orgcore/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", "orgcore")

	token, err := tm.GenerateToken("u1", "tenant-1", []domain.RoleName{"org_admin", "member"}, time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.UserID != "u1" || claims.TenantID != "tenant-1" {
		t.Fatalf("unexpected identity: %+v", claims)
	}
	roles := claims.RoleNames()
	if len(roles) != 2 || roles[0] != "org_admin" {
		t.Fatalf("unexpected roles: %v", roles)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", "orgcore").GenerateToken("u1", "t1", nil, time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := NewTokenManager("secret-b", "orgcore").ValidateToken(token); err == nil {
		t.Fatalf("expected signature rejection")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", "orgcore")
	token, err := tm.GenerateToken("u1", "t1", nil, -time.Minute)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := tm.ValidateToken(token); err == nil {
		t.Fatalf("expected expired token rejection")
	}
}

func TestGenerateRequiresIdentity(t *testing.T) {
	tm := NewTokenManager("test-secret", "orgcore")
	if _, err := tm.GenerateToken("", "t1", nil, time.Hour); err == nil {
		t.Fatalf("expected error for missing user id")
	}
	if _, err := tm.GenerateToken("u1", "", nil, time.Hour); err == nil {
		t.Fatalf("expected error for missing tenant id")
	}
}

func TestExtractToken(t *testing.T) {
	got, err := ExtractToken("Bearer abc.def.ghi")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if got != "abc.def.ghi" {
		t.Fatalf("unexpected token: %s", got)
	}

	for _, header := range []string{"", "abc", "Basic abc", "Bearer a b"} {
		if _, err := ExtractToken(header); err == nil {
			t.Fatalf("header %q should be rejected", header)
		}
	}
}
