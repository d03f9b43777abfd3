package model

import (
	"encoding/json"
	"time"
)

// Credential is the upstream OAuth2 grant for one Fitbit user.
// It is replaced wholesale on re-authentication and passed by value.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	IssuedAt     time.Time `json:"issued_at"`
	Expiry       time.Time `json:"expiry"`
}

// StoredToken is the Token Store record.
type StoredToken struct {
	AccessToken  string    `json:"access_token" dynamodbav:"access_token"`
	RefreshToken string    `json:"refresh_token" dynamodbav:"refresh_token"`
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	TokenType    string    `json:"token_type,omitempty" dynamodbav:"token_type"`
	Scope        string    `json:"scope,omitempty" dynamodbav:"scope"`
	ExpiresAt    time.Time `json:"expires_at" dynamodbav:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// NewStoredToken builds the Token Store record for a credential.
func NewStoredToken(c Credential, scope string) StoredToken {
	return StoredToken{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		UserID:       c.UserID,
		TokenType:    "Bearer",
		Scope:        scope,
		ExpiresAt:    c.Expiry,
		UpdatedAt:    time.Now().UTC(),
	}
}

// Credential converts the stored record back into a Credential.
func (t StoredToken) Credential() Credential {
	return Credential{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		UserID:       t.UserID,
		IssuedAt:     t.UpdatedAt,
		Expiry:       t.ExpiresAt,
	}
}

// HealthRecord maps a category key to the raw JSON fetched for it.
// A missing key means the category was not collected.
type HealthRecord map[string]json.RawMessage

// Keys returns the category keys present in the record.
func (r HealthRecord) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return keys
}

// MarshalCanonical returns the indented JSON form embedded in prompts.
// encoding/json sorts map keys, so equal records produce equal bytes.
func (r HealthRecord) MarshalCanonical() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// AdviceResult is the text produced for one HealthRecord.
type AdviceResult struct {
	Text string `json:"advice"`
}
