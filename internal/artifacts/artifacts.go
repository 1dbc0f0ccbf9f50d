// Package artifacts pushes curated run outputs to Google Cloud Storage so
// downstream consumers read a stable gs:// location per month.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"

	"github.com/tulima-labs/finance-etl/internal/logger"
)

// UploadFile uploads a local file to a GCS bucket under the given object name.
// Application Default Credentials are assumed.
func UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	return uploadWithClient(ctx, client, bucketName, objectName, f)
}

func uploadWithClient(ctx context.Context, client *storage.Client, bucketName, objectName string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// UploadDir uploads every regular file under dir to bucket, prefixing object
// names with prefix. Subdirectory structure is preserved. Returns the gs://
// URIs of the uploaded objects.
func UploadDir(ctx context.Context, bucketName, prefix, dir string) ([]string, error) {
	log := logger.FromContext(ctx)

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	var uris []string
	err = filepath.WalkDir(dir, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		objectName := path.Join(prefix, filepath.ToSlash(rel))

		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open file %q: %w", p, err)
		}
		defer f.Close()

		if err := uploadWithClient(ctx, client, bucketName, objectName, f); err != nil {
			return fmt.Errorf("uploading %s: %w", rel, err)
		}
		uri := fmt.Sprintf("gs://%s/%s", bucketName, objectName)
		log.Info().Str("uri", uri).Msg("uploaded artifact")
		uris = append(uris, uri)
		return nil
	})
	if err != nil {
		return uris, err
	}
	return uris, nil
}
