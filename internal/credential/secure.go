package credential

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/sakif/image-feed/internal/apperror"
	"github.com/sakif/image-feed/internal/repository"
)

const (
	tokenKey = "bearerToken"
	saltKey  = "credential.salt"
	saltSize = 16
)

// Argon2id parameters: one pass over 64 MiB with 4 lanes.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// SecureStore keeps the token encrypted at rest in a SecretRepository.
//
// ENCRYPTION SCHEME:
//
//	key        = Argon2id(passphrase, salt)          (32 bytes)
//	sealed     = nonce || XChaCha20-Poly1305(key, nonce, token, ad="bearerToken")
//
// The salt is random, generated once and stored next to the token. A wrong
// passphrase or a tampered row fails authentication on Open and is reported
// as an error, never as a garbage token.
type SecureStore struct {
	repo   repository.SecretRepository
	aead   cipher.AEAD
	logger *slog.Logger
}

var _ Store = (*SecureStore)(nil)

// NewSecureStore derives the encryption key from passphrase, creating and
// persisting a salt on first use.
func NewSecureStore(ctx context.Context, repo repository.SecretRepository, passphrase string, logger *slog.Logger) (*SecureStore, error) {
	if passphrase == "" {
		return nil, errors.New("credential: passphrase must not be empty")
	}

	salt, err := loadOrCreateSalt(ctx, repo)
	if err != nil {
		return nil, err
	}

	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("credential: creating cipher: %w", err)
	}

	return &SecureStore{
		repo:   repo,
		aead:   aead,
		logger: logger,
	}, nil
}

func loadOrCreateSalt(ctx context.Context, repo repository.SecretRepository) ([]byte, error) {
	salt, err := repo.GetSecret(ctx, saltKey)
	if err == nil && len(salt) == saltSize {
		return salt, nil
	}
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("credential: loading salt: %w", err)
	}

	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("credential: generating salt: %w", err)
	}
	if err := repo.PutSecret(ctx, saltKey, salt); err != nil {
		return nil, fmt.Errorf("credential: saving salt: %w", err)
	}
	// A fresh salt makes any previously sealed token unreadable.
	if err := repo.DeleteSecret(ctx, tokenKey); err != nil {
		return nil, fmt.Errorf("credential: dropping stale token: %w", err)
	}
	return salt, nil
}

func (s *SecureStore) Get(ctx context.Context) (string, bool, error) {
	sealed, err := s.repo.GetSecret(ctx, tokenKey)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("credential: reading token: %w", err)
	}

	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return "", false, errors.New("credential: stored token is truncated")
	}
	plain, err := s.aead.Open(nil, sealed[:n], sealed[n:], []byte(tokenKey))
	if err != nil {
		s.logger.Warn("credential: stored token failed authentication")
		return "", false, fmt.Errorf("credential: decrypting token: %w", err)
	}
	return string(plain), true, nil
}

func (s *SecureStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(token)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("credential: generating nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(token), []byte(tokenKey))

	if err := s.repo.PutSecret(ctx, tokenKey, sealed); err != nil {
		return fmt.Errorf("credential: writing token: %w", err)
	}
	return nil
}

func (s *SecureStore) Clear(ctx context.Context) error {
	if err := s.repo.DeleteSecret(ctx, tokenKey); err != nil {
		return fmt.Errorf("credential: clearing token: %w", err)
	}
	return nil
}
