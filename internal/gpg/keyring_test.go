package gpg

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/openpgp"       //nolint:staticcheck
	"golang.org/x/crypto/openpgp/armor" //nolint:staticcheck
	"golang.org/x/crypto/openpgp/packet"
)

// generateKeyPair writes an armored key pair into dir and returns its paths
// and fingerprint. SerializePrivate must run first: it signs the identities
// the public serialization reuses.
func generateKeyPair(t *testing.T, dir, email string) (pubPath, privPath, fingerprint string) {
	t.Helper()

	ent, err := openpgp.NewEntity("Passbolt Test", "", email, &packet.Config{RSABits: 1024})
	if err != nil {
		t.Fatalf("generate entity: %v", err)
	}

	var priv bytes.Buffer
	aw, err := armor.Encode(&priv, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatalf("armor private: %v", err)
	}
	if err := ent.SerializePrivate(aw, nil); err != nil {
		t.Fatalf("serialize private: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close private armor: %v", err)
	}

	var pub bytes.Buffer
	aw, err = armor.Encode(&pub, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("armor public: %v", err)
	}
	if err := ent.Serialize(aw); err != nil {
		t.Fatalf("serialize public: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close public armor: %v", err)
	}

	pubPath = filepath.Join(dir, "serverkey.asc")
	privPath = filepath.Join(dir, "serverkey_private.asc")
	if err := os.WriteFile(pubPath, pub.Bytes(), 0o600); err != nil {
		t.Fatalf("write public: %v", err)
	}
	if err := os.WriteFile(privPath, priv.Bytes(), 0o600); err != nil {
		t.Fatalf("write private: %v", err)
	}

	return pubPath, privPath, fingerprintOf(ent)
}

func healthyKeyring(t *testing.T) (*Keyring, string) {
	t.Helper()
	dir := t.TempDir()
	pubPath, privPath, fingerprint := generateKeyPair(t, dir, "admin@passbolt.local")
	k := New(Config{
		Home:        dir,
		Fingerprint: fingerprint,
		PublicPath:  pubPath,
		PrivatePath: privPath,
	}, nil)
	return k, fingerprint
}

func TestCheck_HealthyPair(t *testing.T) {
	k, fingerprint := healthyKeyring(t)

	checks := k.Check(context.Background())

	if !checks.Lib {
		t.Error("expected lib operable")
	}
	if !checks.Home || !checks.HomeWritable {
		t.Error("expected gpg home facts to pass")
	}
	if !checks.Key || !checks.KeyNotDefault {
		t.Error("expected configured fingerprint facts to pass")
	}
	if !checks.KeyPublic || !checks.KeyPublicReadable || !checks.KeyPublicBlock {
		t.Error("expected public key facts to pass")
	}
	if !checks.KeyPrivate || !checks.KeyPrivateReadable || !checks.KeyPrivateBlock {
		t.Error("expected private key facts to pass")
	}
	if !checks.KeyPublicFingerprint || !checks.KeyPrivateFingerprint {
		t.Error("expected fingerprint match facts to pass")
	}
	if !checks.KeyPublicEmail {
		t.Error("expected a uid email on the key")
	}
	if !checks.KeyPublicInKeyring {
		t.Error("expected the pair to match")
	}
	if !checks.CanEncrypt || !checks.CanDecrypt || !checks.CanSign || !checks.CanVerify {
		t.Errorf("expected basic crypto operations to pass, got %+v", checks)
	}
	if !checks.CanEncryptSign || !checks.CanDecryptVerify {
		t.Errorf("expected combined crypto operations to pass, got %+v", checks)
	}
	if checks.Info.Fingerprint != fingerprint {
		t.Errorf("expected fingerprint %s, got %s", fingerprint, checks.Info.Fingerprint)
	}
	if checks.Info.GpgHome != k.cfg.Home || checks.Info.GpgKeyPrivate != k.cfg.PrivatePath {
		t.Errorf("info paths = (%q, %q), want the configured ones", checks.Info.GpgHome, checks.Info.GpgKeyPrivate)
	}
}

func TestCheck_MissingPrivateKey(t *testing.T) {
	dir := t.TempDir()
	pubPath, privPath, fingerprint := generateKeyPair(t, dir, "admin@passbolt.local")
	if err := os.Remove(privPath); err != nil {
		t.Fatalf("remove private: %v", err)
	}
	k := New(Config{Home: dir, Fingerprint: fingerprint, PublicPath: pubPath, PrivatePath: privPath}, nil)

	checks := k.Check(context.Background())

	if checks.KeyPrivate || checks.KeyPrivateReadable || checks.KeyPrivateBlock {
		t.Error("expected private key facts to fail")
	}
	if checks.KeyPublicInKeyring {
		t.Error("expected pair match to fail without the private key")
	}
	if checks.CanEncrypt || checks.CanDecrypt || checks.CanSign {
		t.Error("expected crypto operations to fail closed")
	}
	if !checks.KeyPublic || !checks.KeyPublicBlock || !checks.KeyPublicFingerprint {
		t.Error("expected public key facts to be unaffected")
	}
}

func TestCheck_FingerprintMismatch(t *testing.T) {
	dir := t.TempDir()
	pubPath, privPath, _ := generateKeyPair(t, dir, "admin@passbolt.local")
	k := New(Config{
		Home:        dir,
		Fingerprint: "0000000000000000000000000000000000000000",
		PublicPath:  pubPath,
		PrivatePath: privPath,
	}, nil)

	checks := k.Check(context.Background())

	if checks.KeyPublicFingerprint || checks.KeyPrivateFingerprint {
		t.Error("expected fingerprint match facts to fail")
	}
	if !checks.Key || !checks.KeyNotDefault {
		t.Error("expected the configured fingerprint to still count as present and non-default")
	}
	if !checks.KeyPublicInKeyring {
		t.Error("expected pair match to be independent of the configured fingerprint")
	}
}

func TestCheck_DefaultFingerprint(t *testing.T) {
	k := New(Config{Fingerprint: defaultFingerprint}, nil)

	checks := k.Check(context.Background())

	if !checks.Key {
		t.Error("expected a configured fingerprint to count as present")
	}
	if checks.KeyNotDefault {
		t.Error("expected the shipped default fingerprint to be flagged")
	}
}

func TestCheck_GarbageKeyFile(t *testing.T) {
	dir := t.TempDir()
	pubPath := filepath.Join(dir, "serverkey.asc")
	if err := os.WriteFile(pubPath, []byte("not an armored key"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	k := New(Config{Home: dir, Fingerprint: "AB12", PublicPath: pubPath, PrivatePath: filepath.Join(dir, "missing.asc")}, nil)

	checks := k.Check(context.Background())

	if !checks.KeyPublic || !checks.KeyPublicReadable {
		t.Error("expected the garbage file to exist and be readable")
	}
	if checks.KeyPublicBlock {
		t.Error("expected the garbage file to fail block parsing")
	}
	if checks.Info.Fingerprint != "" {
		t.Error("expected no fingerprint info from a garbage file")
	}
}

func TestDecrypt_RoundTrip(t *testing.T) {
	k, _ := healthyKeyring(t)
	pub, err := readEntity(k.cfg.PublicPath)
	if err != nil {
		t.Fatalf("read public: %v", err)
	}

	ciphertext, err := encrypt(pub, nil, `{"host":"smtp.example.com","port":587}`)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	plaintext, err := k.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(plaintext) != `{"host":"smtp.example.com","port":587}` {
		t.Errorf("unexpected plaintext %q", plaintext)
	}
}

func TestDecrypt_GarbageMessage(t *testing.T) {
	k, _ := healthyKeyring(t)

	if _, err := k.Decrypt("-----BEGIN PGP MESSAGE-----\ngarbage\n-----END PGP MESSAGE-----"); err == nil {
		t.Error("expected error for a garbage message")
	}
}
