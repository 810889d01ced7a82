// Package gpg drives the server OpenPGP key pair: healthcheck facts about it
// and decryption of armored payloads stored by the server.
package gpg

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/openpgp"       //nolint:staticcheck // upstream keyring format
	"golang.org/x/crypto/openpgp/armor" //nolint:staticcheck

	// openpgp.Encrypt assumes recipients without hash preferences only support
	// RIPEMD160; the blank import registers it with crypto.RegisterHash.
	_ "golang.org/x/crypto/ripemd160" //nolint:staticcheck
	"golang.org/x/sys/unix"

	"github.com/nimdassdev/passbolt-api/internal/usecase/healthcheck"
)

// defaultFingerprint ships with the sample configuration and must be replaced
// during install.
const defaultFingerprint = "2FC8945833C51946E937F9FED47B0811573EE67E"

const probeMessage = "healthcheck probe message"

// Config holds server key locations and identity.
type Config struct {
	Home        string
	Fingerprint string
	PublicPath  string
	PrivatePath string
	Passphrase  string
}

// Keyring inspects and operates the configured server key pair. Problems with
// the keys are reported by Check rather than failing construction.
type Keyring struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Keyring.
func New(cfg Config, logger *zap.Logger) *Keyring {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Keyring{cfg: cfg, logger: logger}
}

// Check reports every gpg category fact: key material presence and shape,
// identity match against the configured fingerprint, and whether the pair can
// actually encrypt, decrypt, sign and verify.
func (k *Keyring) Check(_ context.Context) *healthcheck.GPGChecks {
	checks := &healthcheck.GPGChecks{}
	checks.Info.GpgHome = k.cfg.Home
	checks.Info.GpgKeyPrivate = k.cfg.PrivatePath

	checks.Lib = armorRoundTrips()
	checks.Home = dirExists(k.cfg.Home)
	checks.HomeWritable = checks.Home && unix.Access(k.cfg.Home, unix.W_OK) == nil

	checks.Key = k.cfg.Fingerprint != ""
	checks.KeyNotDefault = checks.Key && !strings.EqualFold(k.cfg.Fingerprint, defaultFingerprint)

	checks.KeyPublic = fileExists(k.cfg.PublicPath)
	checks.KeyPublicReadable = unix.Access(k.cfg.PublicPath, unix.R_OK) == nil
	checks.KeyPrivate = fileExists(k.cfg.PrivatePath)
	checks.KeyPrivateReadable = unix.Access(k.cfg.PrivatePath, unix.R_OK) == nil

	pub, pubErr := readEntity(k.cfg.PublicPath)
	checks.KeyPublicBlock = pubErr == nil
	priv, privErr := readEntity(k.cfg.PrivatePath)
	checks.KeyPrivateBlock = privErr == nil

	if pubErr != nil || privErr != nil {
		k.logger.Debug("server key pair not fully readable",
			zap.NamedError("public", pubErr),
			zap.NamedError("private", privErr))
	}

	if pubErr == nil {
		fingerprint := fingerprintOf(pub)
		checks.Info.Fingerprint = fingerprint
		checks.KeyPublicFingerprint = strings.EqualFold(fingerprint, k.cfg.Fingerprint)
		checks.KeyPublicEmail = primaryEmail(pub) != ""
	}
	if privErr == nil {
		checks.KeyPrivateFingerprint = strings.EqualFold(fingerprintOf(priv), k.cfg.Fingerprint)
	}
	checks.KeyPublicInKeyring = pubErr == nil && privErr == nil &&
		bytes.Equal(pub.PrimaryKey.Fingerprint[:], priv.PrimaryKey.Fingerprint[:])

	if pubErr == nil && privErr == nil {
		k.operationChecks(checks, pub, priv)
	}

	return checks
}

// operationChecks exercises the pair end to end with a probe message.
func (k *Keyring) operationChecks(checks *healthcheck.GPGChecks, pub, priv *openpgp.Entity) {
	if err := k.unlock(priv); err != nil {
		k.logger.Debug("private key unlock failed", zap.Error(err))
		return
	}

	ciphertext, err := encrypt(pub, nil, probeMessage)
	checks.CanEncrypt = err == nil

	if checks.CanEncrypt {
		plaintext, err := decrypt(openpgp.EntityList{priv}, ciphertext)
		checks.CanDecrypt = err == nil && string(plaintext) == probeMessage
	}

	signature, err := detachSign(priv, probeMessage)
	checks.CanSign = err == nil
	if checks.CanSign {
		checks.CanVerify = verifyDetached(openpgp.EntityList{pub}, probeMessage, signature)
	}

	signed, err := encrypt(pub, priv, probeMessage)
	checks.CanEncryptSign = err == nil
	if checks.CanEncryptSign {
		checks.CanDecryptVerify = decryptVerify(openpgp.EntityList{priv, pub}, signed, probeMessage)
	}
}

// Decrypt decrypts an armored OpenPGP message with the server private key.
func (k *Keyring) Decrypt(armored string) ([]byte, error) {
	priv, err := readEntity(k.cfg.PrivatePath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	if err := k.unlock(priv); err != nil {
		return nil, fmt.Errorf("unlock private key: %w", err)
	}
	return decrypt(openpgp.EntityList{priv}, armored)
}

// unlock decrypts the private key material in place when it is
// passphrase-protected.
func (k *Keyring) unlock(ent *openpgp.Entity) error {
	passphrase := []byte(k.cfg.Passphrase)
	if ent.PrivateKey != nil && ent.PrivateKey.Encrypted {
		if err := ent.PrivateKey.Decrypt(passphrase); err != nil {
			return err
		}
	}
	for _, sub := range ent.Subkeys {
		if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
			if err := sub.PrivateKey.Decrypt(passphrase); err != nil {
				return err
			}
		}
	}
	return nil
}

func readEntity(path string) (*openpgp.Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, err
	}
	if len(ring) == 0 {
		return nil, errors.New("no key in armored block")
	}
	return ring[0], nil
}

func fingerprintOf(ent *openpgp.Entity) string {
	return strings.ToUpper(hex.EncodeToString(ent.PrimaryKey.Fingerprint[:]))
}

// primaryEmail returns the first syntactically valid uid email on the key.
func primaryEmail(ent *openpgp.Entity) string {
	for _, identity := range ent.Identities {
		if identity.UserId == nil {
			continue
		}
		if addr, err := mail.ParseAddress(identity.UserId.Email); err == nil {
			return addr.Address
		}
	}
	return ""
}

func encrypt(to, signer *openpgp.Entity, msg string) (string, error) {
	var buf bytes.Buffer
	aw, err := armor.Encode(&buf, "PGP MESSAGE", nil)
	if err != nil {
		return "", err
	}
	pw, err := openpgp.Encrypt(aw, []*openpgp.Entity{to}, signer, nil, nil)
	if err != nil {
		return "", err
	}
	if _, err := pw.Write([]byte(msg)); err != nil {
		return "", err
	}
	if err := pw.Close(); err != nil {
		return "", err
	}
	if err := aw.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func decrypt(keyring openpgp.EntityList, armored string) ([]byte, error) {
	block, err := armor.Decode(strings.NewReader(armored))
	if err != nil {
		return nil, fmt.Errorf("decode armored message: %w", err)
	}
	md, err := openpgp.ReadMessage(block.Body, keyring, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	data, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, fmt.Errorf("read message body: %w", err)
	}
	return data, nil
}

func detachSign(signer *openpgp.Entity, msg string) (string, error) {
	var buf bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&buf, signer, strings.NewReader(msg), nil); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func verifyDetached(keyring openpgp.EntityList, msg, signature string) bool {
	_, err := openpgp.CheckArmoredDetachedSignature(keyring, strings.NewReader(msg), strings.NewReader(signature))
	return err == nil
}

// decryptVerify decrypts a signed message and requires the embedded signature
// to check out. The signature verdict is only final once the body has been
// fully read.
func decryptVerify(keyring openpgp.EntityList, armored, want string) bool {
	block, err := armor.Decode(strings.NewReader(armored))
	if err != nil {
		return false
	}
	md, err := openpgp.ReadMessage(block.Body, keyring, nil, nil)
	if err != nil {
		return false
	}
	data, err := io.ReadAll(md.UnverifiedBody)
	if err != nil || string(data) != want {
		return false
	}
	return md.IsSigned && md.SignedBy != nil && md.SignatureError == nil
}

func armorRoundTrips() bool {
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, "PGP MESSAGE", nil)
	if err != nil {
		return false
	}
	if _, err := w.Write([]byte(probeMessage)); err != nil {
		return false
	}
	if err := w.Close(); err != nil {
		return false
	}
	block, err := armor.Decode(&buf)
	if err != nil {
		return false
	}
	data, err := io.ReadAll(block.Body)
	return err == nil && string(data) == probeMessage
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
