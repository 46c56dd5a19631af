package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// aesKeyInfo is the HKDF context string for deriving the at-rest secret
// key, fixed so the same fallback key material always derives the same
// AES key across restarts.
const aesKeyInfo = "isolate-core/store/secret-cipher"

// Cipher encrypts and decrypts secret values at rest (proxy passwords).
// Encryption failure must abort the write rather than fall back to
// plaintext.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// NewAESCipher constructs an AES-GCM cipher from a 16/24/32-byte key. Used
// as the non-Windows cipher and as the Windows fallback when DPAPI is
// unavailable (e.g. running under a service account with no user profile).
func NewAESCipher(key []byte) (Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &aesCipher{gcm: gcm}, nil
}

type aesCipher struct {
	gcm cipher.AEAD
}

func (c *aesCipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return c.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *aesCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	ns := c.gcm.NonceSize()
	if len(ciphertext) < ns {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, data := ciphertext[:ns], ciphertext[ns:]
	plaintext, err := c.gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// DeriveAESKey stretches arbitrary-length keying material (e.g. an
// operator-supplied passphrase, or nothing at all) into a 32-byte AES-256
// key via HKDF-SHA256, so NewAESCipher always gets a key of the length it
// requires regardless of what was supplied.
func DeriveAESKey(material []byte) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, material, nil, []byte(aesKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive aes key: %w", err)
	}
	return key, nil
}
