// Package blob provides binary storage and time-limited URL signing for
// otherwise-private objects.
package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Store uploads and removes binary objects addressed by key.
type Store interface {
	// Put streams an object to storage under the given key.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Delete removes an object. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
}

// Signer issues a time-limited URL for a stored object.
type Signer interface {
	// Sign returns a URL valid for at most ttl.
	Sign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// VideoKey builds the storage key for a video binary: {folderID}/{fileName}.
func VideoKey(folderID uuid.UUID, fileName string) string {
	return fmt.Sprintf("%s/%s", folderID, fileName)
}

// ThumbnailKey builds the storage key for a thumbnail variant:
// {folderID}/thumbnails/{fileName}_thumbnail[_hq].jpg.
func ThumbnailKey(folderID uuid.UUID, fileName string, highQuality bool) string {
	suffix := "_thumbnail"
	if highQuality {
		suffix = "_thumbnail_hq"
	}
	return fmt.Sprintf("%s/thumbnails/%s%s.jpg", folderID, fileName, suffix)
}
