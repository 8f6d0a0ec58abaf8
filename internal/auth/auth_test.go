package auth

import (
	"testing"
	"time"

	"solaudit/internal/config"
)

func testConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:            "test-secret",
		Expiration:        24 * time.Hour,
		RefreshExpiration: 168 * time.Hour,
	}
}

func TestHashPassword(t *testing.T) {
	svc := NewService(testConfig())

	password := "testpassword123"
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if hash == "" {
		t.Error("Hash should not be empty")
	}

	if hash == password {
		t.Error("Hash should not equal the original password")
	}
}

func TestVerifyPassword(t *testing.T) {
	svc := NewService(testConfig())

	password := "testpassword123"
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if err := svc.VerifyPassword(hash, password); err != nil {
		t.Errorf("Should verify correct password, got error: %v", err)
	}

	if err := svc.VerifyPassword(hash, "wrongpassword"); err == nil {
		t.Error("Should not verify incorrect password")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewService(testConfig())

	userID := uint(1)
	email := "auditor@example.com"

	token, jti, err := svc.GenerateToken(userID, email)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Error("Token should not be empty")
	}
	if jti == "" {
		t.Error("JTI should not be empty")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("Expected user ID %d, got %d", userID, claims.UserID)
	}
	if claims.Email != email {
		t.Errorf("Expected email %s, got %s", email, claims.Email)
	}
	if claims.ID != jti {
		t.Errorf("Expected JTI %s, got %s", jti, claims.ID)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.Expiration = -1 * time.Hour // Already expired
	svc := NewService(cfg)

	token, _, err := svc.GenerateToken(1, "auditor@example.com")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("Should not validate expired token")
	}
}

func TestValidateTokenFromDifferentService(t *testing.T) {
	// Two services without a PEM secret generate independent key pairs
	svcA := NewService(testConfig())
	svcB := NewService(testConfig())

	token, _, err := svcA.GenerateToken(1, "auditor@example.com")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := svcB.ValidateToken(token); err == nil {
		t.Error("Token signed by another service should not validate")
	}
}

func TestExtractJTI(t *testing.T) {
	cfg := testConfig()
	cfg.Expiration = -1 * time.Hour
	svc := NewService(cfg)

	token, jti, err := svc.GenerateToken(1, "auditor@example.com")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	extracted, err := svc.ExtractJTI(token)
	if err != nil {
		t.Fatalf("Failed to extract JTI from expired token: %v", err)
	}
	if extracted != jti {
		t.Errorf("Expected JTI %s, got %s", jti, extracted)
	}
}
