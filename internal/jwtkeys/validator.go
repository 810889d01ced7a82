// Package jwtkeys validates the RSA key pair used to sign JWT access tokens.
package jwtkeys

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// File names under the jwt directory, matching what the install writes.
const (
	PrivateKeyFile = "jwt.key"
	PublicKeyFile  = "jwt.pem"
)

// Validator checks that the configured key pair exists, matches, meets the
// size floor and produces verifiable tokens.
type Validator struct {
	dir     string
	minBits int
	logger  *zap.Logger
}

// New creates a Validator over the given key directory.
func New(dir string, minBits int, logger *zap.Logger) *Validator {
	if minBits <= 0 {
		minBits = 2048
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{dir: dir, minBits: minBits, logger: logger}
}

// Validate returns nil when the key pair is usable for signing and verifying.
func (v *Validator) Validate(_ context.Context) error {
	privPEM, err := os.ReadFile(filepath.Join(v.dir, PrivateKeyFile))
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}
	pubPEM, err := os.ReadFile(filepath.Join(v.dir, PublicKeyFile))
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}

	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}

	if bits := priv.N.BitLen(); bits < v.minBits {
		return fmt.Errorf("private key is %d bits, below the %d bit floor", bits, v.minBits)
	}
	if !pub.Equal(&priv.PublicKey) {
		return fmt.Errorf("public key %s does not match private key %s", PublicKeyFile, PrivateKeyFile)
	}

	return v.signAndVerify(priv, pub)
}

// signAndVerify issues a short-lived probe token and parses it back, proving
// the pair works end to end rather than merely being well formed.
func (v *Validator) signAndVerify(priv any, pub any) error {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   "healthcheck-probe",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	})
	signed, err := token.SignedString(priv)
	if err != nil {
		return fmt.Errorf("sign probe token: %w", err)
	}

	parsed, err := jwt.Parse(signed, func(*jwt.Token) (any, error) {
		return pub, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return fmt.Errorf("verify probe token: %w", err)
	}
	if !parsed.Valid {
		return fmt.Errorf("probe token did not verify")
	}

	v.logger.Debug("jwt key pair validated", zap.String("dir", v.dir))
	return nil
}
