// Package tokenstore persists the Fitbit credential obtained at login.
package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jun/fitadvice/internal/crypto"
	"github.com/jun/fitadvice/internal/model"
)

// ErrNotFound is returned when no token is stored for the user.
var ErrNotFound = errors.New("token not found")

// Store saves and loads StoredTokens. Writes are last-writer-wins.
type Store interface {
	Save(ctx context.Context, tok model.StoredToken) error
	Load(ctx context.Context, userID string) (*model.StoredToken, error)
}

func sealToken(ctx context.Context, enc crypto.Encryptor, tok model.StoredToken) (model.StoredToken, error) {
	var err error
	if tok.AccessToken, err = enc.Encrypt(ctx, tok.AccessToken); err != nil {
		return tok, fmt.Errorf("encrypt access token: %w", err)
	}
	if tok.RefreshToken, err = enc.Encrypt(ctx, tok.RefreshToken); err != nil {
		return tok, fmt.Errorf("encrypt refresh token: %w", err)
	}
	return tok, nil
}

func openToken(ctx context.Context, enc crypto.Encryptor, tok model.StoredToken) (model.StoredToken, error) {
	var err error
	if tok.AccessToken, err = enc.Decrypt(ctx, tok.AccessToken); err != nil {
		return tok, fmt.Errorf("decrypt access token: %w", err)
	}
	if tok.RefreshToken, err = enc.Decrypt(ctx, tok.RefreshToken); err != nil {
		return tok, fmt.Errorf("decrypt refresh token: %w", err)
	}
	return tok, nil
}
