package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"testing"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	cases := []struct {
		name      string
		plaintext string
		secret    string
	}{
		{"simple", "hunter2", "my-vault-key"},
		{"empty plaintext", "", "my-vault-key"},
		{"unicode", "пароль-密码-🔒", "another-key"},
		{"long secret", "short", "a-very-long-secret-key-used-as-the-vault-password-0123456789"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, err := Encrypt(tc.plaintext, tc.secret)
			if err != nil {
				t.Fatalf("Encrypt returned error: %v", err)
			}

			got, err := Decrypt(ciphertext, tc.secret)
			if err != nil {
				t.Fatalf("Decrypt returned error: %v", err)
			}

			if got != tc.plaintext {
				t.Errorf("round trip mismatch: got %q, want %q", got, tc.plaintext)
			}
		})
	}
}

func TestEncrypt_ProducesDifferentCiphertextEachTime(t *testing.T) {
	a, err := Encrypt("hunter2", "key")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encrypt("hunter2", "key")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("expected two encryptions of the same plaintext to differ (random nonce)")
	}
}

func TestDecrypt_WrongSecretIsAuthError(t *testing.T) {
	ciphertext, err := Encrypt("hunter2", "correct-key")
	if err != nil {
		t.Fatal(err)
	}

	_, err = Decrypt(ciphertext, "wrong-key")
	if err == nil {
		t.Fatal("expected an error decrypting with the wrong secret")
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("expected *AuthError, got %T: %v", err, err)
	}
}

func TestDecrypt_MalformedCiphertext(t *testing.T) {
	_, err := Decrypt("not-valid-base64!!!", "key")
	if err == nil {
		t.Fatal("expected an error for malformed base64")
	}
}

func TestDecrypt_LegacyFormatStillDecrypts(t *testing.T) {
	// Simulates a ciphertext written by the original unauthenticated
	// stream cipher, before this vault existed, to confirm the
	// compatibility path in Decrypt still recovers it.
	secret := "legacy-secret"
	plaintext := "old-password"

	key := legacyDeriveKey(secret)
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		t.Fatal(err)
	}

	stream := cipher.NewCTR(block, iv)
	ciphertext := make([]byte, len(plaintext))
	stream.XORKeyStream(ciphertext, []byte(plaintext))

	body := append([]byte{formatLegacyStreamCipher}, append(iv, ciphertext...)...)
	encoded := base64.StdEncoding.EncodeToString(body)

	got, err := Decrypt(encoded, secret)
	if err != nil {
		t.Fatalf("Decrypt returned error for legacy ciphertext: %v", err)
	}
	if got != plaintext {
		t.Errorf("got %q, want %q", got, plaintext)
	}
}
