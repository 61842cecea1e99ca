// Package blob stores uploaded statement files under opaque document ids.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// StoredObject identifies an uploaded file.
type StoredObject struct {
	DocumentID      string
	EncryptionKeyID string
}

// DeleteResult reports whether the object still existed when deleted.
type DeleteResult struct {
	DeletedAtSource bool
}

// Store is the encrypted blob storage used for source documents. All errors
// wrap domain.ErrStorage.
type Store interface {
	Upload(ctx context.Context, data []byte, name string) (StoredObject, error)
	Download(ctx context.Context, documentID, encryptionKeyID string) ([]byte, error)
	Delete(ctx context.Context, documentID, encryptionKeyID string) (DeleteResult, error)
}

// Checksum returns the hex SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
