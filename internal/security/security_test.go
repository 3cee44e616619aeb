package security

import (
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := GenerateAdminToken("secret", 7, "root", true, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseAdminToken("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.AdminID != 7 || claims.Username != "root" || !claims.IsSuperAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err = ParseAdminToken("other", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for wrong secret, got %v", err)
	}
}

func TestStaffTokenRejectedOnAdminRoutes(t *testing.T) {
	token, err := GenerateEmployeeToken("secret", 3, "Ana", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseEmployeeToken("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.EmployeeID != 3 || claims.Name != "Ana" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err = ParseAdminToken("secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected staff token to fail admin parse, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	token, err := GenerateEmployeeToken("secret", 3, "Ana", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err = ParseEmployeeToken("secret", token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired token, got %v", err)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected mismatch")
	}
}

func TestTOTP(t *testing.T) {
	key, err := GenerateTOTP("Table House", "root")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	code, err := totp.GenerateCode(key.Secret, time.Now())
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if !ValidateTOTP(code, key.Secret) {
		t.Fatalf("expected code to validate")
	}
	if ValidateTOTP("", key.Secret) {
		t.Fatalf("expected empty code to fail")
	}
}

func TestGeneratePasscode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GeneratePasscode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !IsPasscode(code) {
			t.Fatalf("unexpected passcode %q", code)
		}
	}
	for _, bad := range []string{"", "123", "12345", "12a4"} {
		if IsPasscode(bad) {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
