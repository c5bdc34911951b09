// internal/auth/jwt.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// DefaultTokenTTL is used by signers created with a zero ttl.
const DefaultTokenTTL = 24 * time.Hour

// Verifier checks EdDSA-signed session tokens issued by the account service
// and extracts the user id from the "sub" claim.
type Verifier struct {
	publicKey ed25519.PublicKey
}

func NewVerifier(publicKey ed25519.PublicKey) *Verifier {
	return &Verifier{publicKey: publicKey}
}

// LoadVerifier reads a PEM encoded ed25519 public key from path.
func LoadVerifier(path string) (*Verifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	key, err := jwt.ParseEdPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ed25519")
	}
	return NewVerifier(pub), nil
}

// Authenticate verifies a token string and returns its subject. Tokens
// without an exp claim are rejected.
func (v *Verifier) Authenticate(tokenString string) (uuid.UUID, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.publicKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	sub, err := t.Claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, fmt.Errorf("missing sub in jwt: %w", ErrInvalidToken)
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("sub is not a user id: %w", ErrInvalidToken)
	}
	return userID, nil
}

// Signer issues tokens. The game service never issues tokens in production;
// it is used by tests and by development setups without an account service.
type Signer struct {
	privateKey ed25519.PrivateKey
	ttl        time.Duration
}

// NewKeyPair generates a fresh signer and the verifier that accepts its tokens.
func NewKeyPair(ttl time.Duration) (*Signer, *Verifier, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Signer{privateKey: priv, ttl: ttl}, NewVerifier(pub), nil
}

// CreateJWT signs a token with sub = userID that expires after the signer's
// ttl, or DefaultTokenTTL when that is zero. A negative ttl yields a token
// that is already expired.
func (s *Signer) CreateJWT(userID uuid.UUID) (string, error) {
	ttl := s.ttl
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}
