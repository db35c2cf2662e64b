package auth

import (
	"crypto/rsa"
	"time"

	jwt "github.com/form3tech-oss/jwt-go"
	"github.com/pkg/errors"
)

// TokenClaims is the payload embedded in every signed token: client_ip,
// client_pubkey, and an absolute expiry.
type TokenClaims struct {
	ClientIP     string `json:"client_ip"`
	ClientPubkey string `json:"client_pubkey"`
	ExpiresAt    int64  `json:"expires_at_utc"`
}

// Valid implements jwt.Claims so form3tech-oss/jwt-go's Parse/Verify path
// rejects an expired token regardless of who calls it.
func (c TokenClaims) Valid() error {
	if time.Now().Unix() >= c.ExpiresAt {
		return errors.New("auth: token expired")
	}
	return nil
}

// ExpiresAtTime is a convenience accessor for callers that want a time.Time.
func (c TokenClaims) ExpiresAtTime() time.Time {
	return time.Unix(c.ExpiresAt, 0).UTC()
}

// TokenSigner mints RSA-SHA256-signed tokens from claims, grounded on
// validator/rpc/auth.go's createTokenString (there HS256 over a shared
// secret; here RS256 over the service's own keypair).
type TokenSigner struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

// NewTokenSigner wraps an RSA keypair for minting and verifying tokens.
func NewTokenSigner(private *rsa.PrivateKey) *TokenSigner {
	return &TokenSigner{private: private, public: &private.PublicKey}
}

// Mint signs claims and returns the compact JWT string.
func (s *TokenSigner) Mint(claims TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.private)
}

// Verify checks a token's signature and non-expiry and returns its claims.
func (s *TokenSigner) Verify(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return s.public, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("auth: token is not valid")
	}
	return claims, nil
}
