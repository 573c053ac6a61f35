// Package identity verifies inbound bearer tokens. Two deployments exist:
// a shared secret for service-to-service callers, and Firebase ID tokens
// when requests come straight from the app and a user id is needed for
// token-gated generation.
package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier validates a bearer token and resolves the caller. UserID is
// empty for verifiers that carry no identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (userID string, err error)
}

// SecretVerifier compares against a configured shared secret in constant
// time.
type SecretVerifier struct {
	secret string
}

func NewSecretVerifier(secret string) *SecretVerifier {
	return &SecretVerifier{secret: secret}
}

func (v *SecretVerifier) Verify(_ context.Context, token string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.secret)) != 1 {
		return "", ErrInvalidToken
	}
	return "", nil
}

// FirebaseVerifier validates Firebase ID tokens and returns the caller's
// UID.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(ctx context.Context) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (string, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return tok.UID, nil
}

// FromRequest extracts the bearer token from an Authorization header.
func FromRequest(r *http.Request) (string, bool) {
	raw := r.Header.Get("Authorization")
	if raw == "" || !strings.HasPrefix(raw, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(raw, "Bearer "), true
}
