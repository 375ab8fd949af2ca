package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// sealLabel domain-separates the state-sealing key: an operator secret
// reused for anything else never yields the same AES key here.
const sealLabel = "facial-sentiment/agent-state/v1"

const sealKeyBytes = 32

// ErrSealedPayload marks a payload that is truncated, tampered with, or was
// sealed under a different secret. The three cases are deliberately not
// distinguished.
var ErrSealedPayload = errors.New("sealed payload is invalid for this secret")

func sealingKey(secret string) ([]byte, error) {
	key := make([]byte, sealKeyBytes)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(sealLabel))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return key, nil
}

func sealingAEAD(secret string) (cipher.AEAD, error) {
	key, err := sealingKey(secret)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext under secret with AES-GCM. The random nonce is
// prepended to the returned payload.
func Seal(secret, plaintext string) ([]byte, error) {
	aead, err := sealingAEAD(secret)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Open reverses Seal. Any authentication failure surfaces as
// ErrSealedPayload.
func Open(secret string, payload []byte) (string, error) {
	aead, err := sealingAEAD(secret)
	if err != nil {
		return "", err
	}
	if len(payload) <= aead.NonceSize() {
		return "", ErrSealedPayload
	}
	nonce, ciphertext := payload[:aead.NonceSize()], payload[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrSealedPayload
	}
	return string(plain), nil
}
