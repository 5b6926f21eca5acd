// Package repository declares the storage interfaces the rest of the app
// depends on. Implementations live in subpackages (repository/sqlite).
package repository

import (
	"context"
)

// SecretRepository is a small key-value store for secret material.
//
// Values are opaque bytes: callers encrypt before Put and decrypt after Get.
// Every method is one atomic statement, so concurrent callers never see a
// half-written value.
type SecretRepository interface {
	// GetSecret returns apperror.ErrNotFound if key has never been set or was deleted.
	GetSecret(ctx context.Context, key string) ([]byte, error)
	PutSecret(ctx context.Context, key string, value []byte) error
	// DeleteSecret is idempotent.
	DeleteSecret(ctx context.Context, key string) error
}
