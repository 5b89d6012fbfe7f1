package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	// KeySize is the required key length in bytes (AES-256).
	KeySize = 32
	// IVSize is the length of the random nonce generated per encryption.
	IVSize = 16
	// TagSize is the length of the GCM authentication tag.
	TagSize = 16
)

// ErrDecryptionFailed is returned for any decryption failure.
// The cause is never exposed to callers.
var ErrDecryptionFailed = errors.New("decryption failed")

// Sealed is the hex encoded result of an encryption.
type Sealed struct {
	EncryptedData string
	IV            string
	AuthTag       string
}

// Encryptor handles AES-256-GCM encryption of third-party API keys.
type Encryptor struct {
	gcm cipher.AEAD
}

// New creates an Encryptor. The key must be exactly 32 bytes.
func New(key string) (*Encryptor, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes for AES-256, got %d bytes", KeySize, len(key))
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM mode: %w", err)
	}

	return &Encryptor{gcm: gcm}, nil
}

// Encrypt seals plaintext with a fresh random IV.
func (e *Encryptor) Encrypt(plaintext string) (Sealed, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Sealed{}, fmt.Errorf("failed to generate iv: %w", err)
	}

	// Seal appends the tag to the ciphertext
	out := e.gcm.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext, tag := out[:len(out)-TagSize], out[len(out)-TagSize:]

	return Sealed{
		EncryptedData: hex.EncodeToString(ciphertext),
		IV:            hex.EncodeToString(iv),
		AuthTag:       hex.EncodeToString(tag),
	}, nil
}

// Decrypt opens a previously sealed value.
func (e *Encryptor) Decrypt(encryptedData, iv, authTag string) (string, error) {
	ciphertext, err := hex.DecodeString(encryptedData)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	nonce, err := hex.DecodeString(iv)
	if err != nil || len(nonce) != IVSize {
		return "", ErrDecryptionFailed
	}
	tag, err := hex.DecodeString(authTag)
	if err != nil || len(tag) != TagSize {
		return "", ErrDecryptionFailed
	}

	plaintext, err := e.gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// keyAlphabet holds the characters of generated keys. Its length must divide
// 256 so that mapping a random byte onto it is uniform.
const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// fails to compile when 256%len(keyAlphabet) != 0
var _ = [1]struct{}{}[256%len(keyAlphabet)]

// GenerateKey returns a random key accepted by New.
// Each random byte is mapped onto keyAlphabet so the key is printable.
func GenerateKey() (string, error) {
	buf := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	for i, b := range buf {
		buf[i] = keyAlphabet[int(b)%len(keyAlphabet)]
	}
	return string(buf), nil
}
