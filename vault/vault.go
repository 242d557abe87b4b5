// Package vault implements the symmetric encryption boundary for stored
// server secrets (passwords, SSH passphrases).
//
// Encrypt always produces an authenticated AES-256-GCM ciphertext with a
// key derived from the caller's secret via HKDF. Decrypt additionally
// understands the legacy unauthenticated stream-cipher format so
// previously-persisted ciphertexts keep decrypting under a newer vault
// without a forced migration. registry.Prepare encrypts only descriptors
// not yet encrypted and does not re-encrypt stored ciphertexts, so a
// legacy ciphertext stays legacy; the legacy path is only ever exercised
// on read.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// format tags prefixed to the raw ciphertext bytes before base64 encoding,
// so Decrypt can tell which construction produced a given ciphertext.
const (
	formatLegacyStreamCipher byte = 0x01
	formatAESGCM             byte = 0x02

	hkdfInfo = "sqlectron-core/vault"
)

// AuthError is returned by Decrypt when the supplied secret does not
// match the one used to encrypt the ciphertext, or the ciphertext is
// malformed/truncated.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("vault: authentication failed: %s", e.Reason)
}

// Encrypt encrypts plaintext under secret, returning a base64-encoded,
// self-describing ciphertext. The same secret must be supplied to Decrypt.
func Encrypt(plaintext, secret string) (string, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("vault: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("vault: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: generating nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	out := make([]byte, 0, len(sealed)+1)
	out = append(out, formatAESGCM)
	out = append(out, sealed...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. It also accepts ciphertexts produced by the
// legacy unauthenticated construction, for backward compatibility with
// secrets persisted before the vault was upgraded to AES-GCM.
func Decrypt(ciphertext, secret string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &AuthError{Reason: "ciphertext is not valid base64"}
	}
	if len(raw) < 1 {
		return "", &AuthError{Reason: "ciphertext is empty"}
	}

	format, body := raw[0], raw[1:]

	switch format {
	case formatAESGCM:
		return decryptAESGCM(body, secret)
	case formatLegacyStreamCipher:
		return decryptLegacyStreamCipher(body, secret)
	default:
		// Ciphertexts written before the format tag existed have no tag
		// byte at all; treat any unrecognized leading byte as legacy data
		// and attempt the full buffer through the legacy path.
		return decryptLegacyStreamCipher(raw, secret)
	}
}

func decryptAESGCM(body []byte, secret string) (string, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("vault: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("vault: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(body) < nonceSize {
		return "", &AuthError{Reason: "ciphertext too short"}
	}

	nonce, sealed := body[:nonceSize], body[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", &AuthError{Reason: "unknown secret or corrupted ciphertext"}
	}

	return string(plaintext), nil
}

// decryptLegacyStreamCipher reproduces the behavior of the original
// implementation's unauthenticated stream cipher (a password-derived key,
// no integrity check). It exists solely so ciphertexts written before this
// vault existed keep decrypting; Encrypt never produces this format.
func decryptLegacyStreamCipher(body []byte, secret string) (string, error) {
	key := legacyDeriveKey(secret)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("vault: %w", err)
	}

	if len(body) < aes.BlockSize {
		return "", &AuthError{Reason: "ciphertext too short"}
	}

	iv := body[:aes.BlockSize]
	ciphertext := body[aes.BlockSize:]

	stream := cipher.NewCTR(block, iv)
	plaintext := make([]byte, len(ciphertext))
	stream.XORKeyStream(plaintext, ciphertext)

	return string(plaintext), nil
}

// deriveKey derives a 32-byte AES-256 key from an arbitrary-length secret
// via HKDF-SHA256, so the encryption key is never the raw secret bytes.
func deriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("vault: secret must not be empty")
	}

	h := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("vault: deriving key: %w", err)
	}
	return key, nil
}

// legacyDeriveKey reproduces the original insecure key derivation: a
// single SHA-256 hash of the password string, truncated to the AES-256
// key size. This matches the behavior of Node's deprecated
// crypto.createCipher("aes-256-ctr", secret) against which previously
// stored ciphertexts must remain decryptable.
func legacyDeriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}
