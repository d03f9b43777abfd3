package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestHealthRecord_MarshalCanonical_SortsKeys(t *testing.T) {
	r := HealthRecord{
		"sleep_list": json.RawMessage(`{"sleep":[]}`),
		"profile":    json.RawMessage(`{"user":{"age":30}}`),
	}

	first, err := r.MarshalCanonical()
	if err != nil {
		t.Fatalf("MarshalCanonical failed: %v", err)
	}
	second, _ := r.MarshalCanonical()
	if string(first) != string(second) {
		t.Errorf("Expected stable output, got %q and %q", first, second)
	}
	if strings.Index(string(first), `"profile"`) > strings.Index(string(first), `"sleep_list"`) {
		t.Errorf("Expected keys in sorted order, got %s", first)
	}
}

func TestStoredToken_Credential(t *testing.T) {
	expiry := time.Unix(1700003600, 0).UTC()
	cred := Credential{AccessToken: "tok1", RefreshToken: "ref1", UserID: "u1", Expiry: expiry}

	stored := NewStoredToken(cred, "profile sleep")
	if stored.TokenType != "Bearer" {
		t.Errorf("Expected token type 'Bearer', got '%s'", stored.TokenType)
	}

	back := stored.Credential()
	if back.AccessToken != "tok1" || back.RefreshToken != "ref1" || back.UserID != "u1" {
		t.Errorf("Credential fields lost: %+v", back)
	}
	if !back.Expiry.Equal(expiry) {
		t.Errorf("Expected expiry %v, got %v", expiry, back.Expiry)
	}
}

func TestAsTimeout(t *testing.T) {
	err := AsTimeout("fetch profile", fmt.Errorf("get: %w", context.DeadlineExceeded))
	if !IsTimeout(err) {
		t.Fatalf("Expected timeout error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("Expected TimeoutError to unwrap to context.DeadlineExceeded")
	}

	plain := errors.New("boom")
	if AsTimeout("op", plain) != plain {
		t.Error("Expected non-deadline error to pass through unchanged")
	}
	if AsTimeout("op", nil) != nil {
		t.Error("Expected nil for nil error")
	}
}
