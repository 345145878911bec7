// Package blob stores uploaded print files.
// Store is implemented by a GridFS bucket for production, a directory on
// disk for single-host setups and an in-memory map for tests. Breaker wraps
// any of them with a circuit breaker.
package blob

import (
	"context"
	"time"

	"serotonyl.ru/printvend/internal/common"
)

// ContentTypePDF is the only content type the checkout uploads.
const ContentTypePDF = "application/pdf"

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = common.NewError(common.KindUpstream, "blob store unavailable")

// Object describes one stored blob.
type Object struct {
	Key        string
	Size       int64
	UploadedAt time.Time
}

// Store is a flat key/value blob container.
// Delete of a missing key succeeds so that cleanup can be retried.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	// List returns objects uploaded strictly before olderThan.
	List(ctx context.Context, olderThan time.Time) ([]Object, error)
}
