// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie the gateway reads the session token from.
const CookieName = "auth_token"

// ErrNoSigningKey is returned by CreateJWT when only a public key is loaded.
var ErrNoSigningKey = errors.New("no jwt signing key loaded")

// privateKey and publicKey sign and verify gateway tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is how long issued tokens live; 0 means no exp claim.
	tokenTTL time.Duration
)

// parseTokenExpireTime accepts "", "0", "never" or a Go duration.
func parseTokenExpireTime(s string) (time.Duration, error) {
	if s == "" || s == "0" || s == "never" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// Init generates a fresh ed25519 key pair for local development and tests.
// Only this process can sign with it, and tokens stop verifying on restart.
func Init(expire string) error {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	tokenTTL, err = parseTokenExpireTime(expire)
	return err
}

// InitFromPath loads raw ed25519 keys from disk.
func InitFromPath(privatePath, publicPath, expire string) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid ed25519 key sizes %d/%d", len(privateKeyData), len(publicKeyData))
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	tokenTTL, err = parseTokenExpireTime(expire)
	return err
}

// InitFromPublicKey loads a raw ed25519 public key for a verifier that never
// issues tokens itself; the login service holding the private key mints them.
func InitFromPublicKey(publicPath string) error {
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid ed25519 public key size %d", len(publicKeyData))
	}

	privateKey = nil
	publicKey = ed25519.PublicKey(publicKeyData)
	tokenTTL = 0
	return nil
}

// CanVerify reports whether a key has been loaded to check tokens with.
func CanVerify() bool {
	return len(publicKey) == ed25519.PublicKeySize
}

// CreateJWT signs a token whose subject is the member id.
func CreateJWT(userID string) (string, error) {
	if privateKey == nil {
		return "", ErrNoSigningKey
	}
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
	}
	if tokenTTL > 0 {
		claims["exp"] = time.Now().Add(tokenTTL).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies tokenString and returns its subject.
func AuthenticateJWT(tokenString string) (string, error) {
	if !CanVerify() {
		return "", fmt.Errorf("no jwt verification key loaded")
	}
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	userID, err := t.Claims.GetSubject()
	if err != nil || userID == "" {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return userID, nil
}

// TokenFromRequest returns the auth cookie, falling back to the token query
// parameter for clients that cannot set cookies on a websocket upgrade.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}
