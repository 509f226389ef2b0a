package session

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for token sealing keys.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MB
	argonThreads = 4
	argonKeyLen  = 32 // AES-256
	saltLen      = 16
	nonceLen     = 12
)

// sealedPrefix marks a sealed value: sealedPrefix + base64(salt || nonce || ciphertext+tag).
const sealedPrefix = "sealed:v1:"

// ErrUnseal is returned when a sealed token cannot be opened, usually
// because the passphrase changed.
var ErrUnseal = errors.New("unseal token: wrong passphrase or corrupted value")

// Compile-time interface guard.
var _ Storage = (*SealedStorage)(nil)

// SealedStorage encrypts the token at rest. Other keys pass through.
type SealedStorage struct {
	inner      Storage
	passphrase string
}

// NewSealedStorage wraps inner so the token is stored encrypted under a
// key derived from passphrase.
func NewSealedStorage(inner Storage, passphrase string) *SealedStorage {
	return &SealedStorage{inner: inner, passphrase: passphrase}
}

func (s *SealedStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.inner.Get(ctx, key)
	if err != nil || key != KeyToken || v == "" {
		return v, err
	}
	// Tokens written before sealing was enabled are returned as stored.
	if !strings.HasPrefix(v, sealedPrefix) {
		return v, nil
	}
	return s.open(strings.TrimPrefix(v, sealedPrefix))
}

func (s *SealedStorage) Put(ctx context.Context, values map[string]string) error {
	tok, ok := values[KeyToken]
	if !ok || tok == "" {
		return s.inner.Put(ctx, values)
	}

	sealed, err := s.seal(tok)
	if err != nil {
		return err
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	out[KeyToken] = sealedPrefix + sealed
	return s.inner.Put(ctx, out)
}

func (s *SealedStorage) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}

func (s *SealedStorage) seal(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	gcm, err := s.gcm(salt)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	buf := make([]byte, 0, saltLen+nonceLen+len(plaintext)+gcm.Overhead())
	buf = append(buf, salt...)
	buf = append(buf, nonce...)
	buf = gcm.Seal(buf, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(buf), nil
}

func (s *SealedStorage) open(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(data) < saltLen+nonceLen {
		return "", ErrUnseal
	}
	salt, nonce, ct := data[:saltLen], data[saltLen:saltLen+nonceLen], data[saltLen+nonceLen:]

	gcm, err := s.gcm(salt)
	if err != nil {
		return "", err
	}
	plain, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrUnseal
	}
	return string(plain), nil
}

func (s *SealedStorage) gcm(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(s.passphrase), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}
