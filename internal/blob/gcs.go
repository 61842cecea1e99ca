package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/google/uuid"
)

const (
	uploadTimeout = 2 * time.Minute

	// GoogleManagedKey is recorded as the key id when no CMEK key is configured.
	GoogleManagedKey = "google-managed"
)

// GCSStore keeps documents in a Cloud Storage bucket, encrypted with a
// customer-managed KMS key when one is configured.
type GCSStore struct {
	client     *storage.Client
	bucket     string
	prefix     string
	kmsKeyName string
}

// NewGCSStore creates a storage client using Application Default Credentials.
func NewGCSStore(ctx context.Context, bucket, kmsKeyName string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStore: create storage client: %w", err)
	}
	return NewGCSStoreWithClient(client, bucket, kmsKeyName), nil
}

// NewGCSStoreWithClient wraps an existing client.
func NewGCSStoreWithClient(client *storage.Client, bucket, kmsKeyName string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, prefix: "documents/", kmsKeyName: kmsKeyName}
}

// Close closes the storage client.
func (s *GCSStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// URI returns the gs:// URI of a document.
func (s *GCSStore) URI(documentID string) string {
	return "gs://" + s.bucket + "/" + s.objectName(documentID)
}

func (s *GCSStore) objectName(documentID string) string {
	return s.prefix + documentID
}

func (s *GCSStore) keyID() string {
	if s.kmsKeyName == "" {
		return GoogleManagedKey
	}
	return s.kmsKeyName
}

// Upload writes data under a new document id.
func (s *GCSStore) Upload(ctx context.Context, data []byte, name string) (StoredObject, error) {
	documentID := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(s.objectName(documentID)).NewWriter(ctx)
	w.KMSKeyName = s.kmsKeyName
	w.ContentType = contentType(name)
	w.Metadata = map[string]string{
		"original_filename": path.Base(name),
		"checksum_sha256":   Checksum(data),
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return StoredObject{}, fmt.Errorf("Upload: write object: %w: %w", domain.ErrStorage, err)
	}
	if err := w.Close(); err != nil {
		return StoredObject{}, fmt.Errorf("Upload: finalize upload: %w: %w", domain.ErrStorage, err)
	}

	return StoredObject{DocumentID: documentID, EncryptionKeyID: s.keyID()}, nil
}

// Download reads a document. The key id must match the one recorded at upload.
func (s *GCSStore) Download(ctx context.Context, documentID, encryptionKeyID string) ([]byte, error) {
	if err := s.checkKey(encryptionKeyID); err != nil {
		return nil, fmt.Errorf("Download: %w", err)
	}

	rc, err := s.client.Bucket(s.bucket).Object(s.objectName(documentID)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Download: reading object %s: %w: %w", documentID, domain.ErrStorage, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Download: reading bytes: %w: %w", domain.ErrStorage, err)
	}
	return data, nil
}

// Delete removes a document. A missing object is not an error.
func (s *GCSStore) Delete(ctx context.Context, documentID, encryptionKeyID string) (DeleteResult, error) {
	if err := s.checkKey(encryptionKeyID); err != nil {
		return DeleteResult{}, fmt.Errorf("Delete: %w", err)
	}

	err := s.client.Bucket(s.bucket).Object(s.objectName(documentID)).Delete(ctx)
	switch {
	case errors.Is(err, storage.ErrObjectNotExist):
		return DeleteResult{DeletedAtSource: false}, nil
	case err != nil:
		return DeleteResult{}, fmt.Errorf("Delete: deleting object %s: %w: %w", documentID, domain.ErrStorage, err)
	}
	return DeleteResult{DeletedAtSource: true}, nil
}

func (s *GCSStore) checkKey(encryptionKeyID string) error {
	if encryptionKeyID != "" && encryptionKeyID != s.keyID() {
		return fmt.Errorf("%w: document encrypted with %q, store uses %q", domain.ErrStorage, encryptionKeyID, s.keyID())
	}
	return nil
}

// FetchURI downloads the object at a gs://bucket/path URI.
func FetchURI(ctx context.Context, client *storage.Client, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("FetchURI: %w", err)
	}
	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchURI: reading object %s/%s: %w: %w", bucket, object, domain.ErrStorage, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("FetchURI: reading bytes: %w: %w", domain.ErrStorage, err)
	}
	return data, nil
}

// ParseURI splits gs://bucket/path/to/object into bucket and object name.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
