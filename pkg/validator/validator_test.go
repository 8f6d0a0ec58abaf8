package validator

import (
	"testing"
)

func TestValidateStruct(t *testing.T) {
	type TestStruct struct {
		Email      string `validate:"required,email"`
		Password   string `validate:"required,min=8"`
		Name       string `validate:"required"`
		RepoURL    string `validate:"url"`
		SourceType string `validate:"oneof=manual file github"`
	}

	valid := TestStruct{
		Email:      "test@example.com",
		Password:   "password123",
		Name:       "John Doe",
		RepoURL:    "https://github.com/alice/vault",
		SourceType: "manual",
	}

	tests := []struct {
		name     string
		mutate   func(*TestStruct)
		expected bool
	}{
		{"valid struct", func(s *TestStruct) {}, true},
		{"missing required field", func(s *TestStruct) { s.Name = "" }, false},
		{"invalid email", func(s *TestStruct) { s.Email = "invalid-email" }, false},
		{"password too short", func(s *TestStruct) { s.Password = "short" }, false},
		{"invalid url", func(s *TestStruct) { s.RepoURL = "not a url" }, false},
		{"empty url allowed", func(s *TestStruct) { s.RepoURL = "" }, true},
		{"invalid oneof value", func(s *TestStruct) { s.SourceType = "carrier-pigeon" }, false},
		{"empty oneof allowed", func(s *TestStruct) { s.SourceType = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.mutate(&input)

			err := ValidateStruct(&input)
			isValid := err == nil
			if isValid != tt.expected {
				t.Errorf("ValidateStruct() valid = %v, want %v (err: %v)", isValid, tt.expected, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"test@example.com", true},
		{"user.name+tag@sub.example.co", true},
		{"", false},
		{"no-at-sign", false},
		{"@example.com", false},
		{"test@", false},
	}

	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateEmail(%q) valid = %v, want %v", tt.email, err == nil, tt.valid)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://github.com/alice/vault", true},
		{"http://localhost:8080", true},
		{"ftp://example.com", false},
		{"github.com/alice/vault", false},
		{"", false},
	}

	for _, tt := range tests {
		err := ValidateURL(tt.url)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateURL(%q) valid = %v, want %v", tt.url, err == nil, tt.valid)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("longenough"); err != nil {
		t.Errorf("expected valid password, got %v", err)
	}
	if err := ValidatePassword("short"); err == nil {
		t.Error("expected error for short password")
	}
	if err := ValidatePassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestSanitizeEmail(t *testing.T) {
	if got := SanitizeEmail("  Test@Example.COM \x00"); got != "test@example.com" {
		t.Errorf("SanitizeEmail() = %q", got)
	}
}
