// Package storage reads document objects from the flat file bucket the
// upload service writes into. One file per object id, UTF-8 text.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	apperrors "docqa/errors"
)

type Bucket struct {
	path string
}

func NewBucket(path string) *Bucket {
	return &Bucket{path: path}
}

// ReadObject returns the text content of the object with the given id.
func (b *Bucket) ReadObject(objectID string) (string, error) {
	data, err := os.ReadFile(filepath.Join(b.path, objectID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: object file %s missing", apperrors.ErrStorage, objectID)
		}
		return "", fmt.Errorf("%w: read object %s: %v", apperrors.ErrStorage, objectID, err)
	}
	return string(data), nil
}
