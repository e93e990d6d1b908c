// Package blob stores the original uploads behind an opaque file reference.
package blob

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Metadata describes an uploaded file.
type Metadata struct {
	Filename    string
	ContentType string
	UserID      string
	UploadedAt  time.Time
}

// Store keeps raw uploads and returns a reference that identifies them.
type Store interface {
	Put(ctx context.Context, data []byte, meta Metadata) (string, error)
}

// ObjectKey builds a unique, path safe key of the form uploads/<user>/<date>/<uuid>-<name>.
func ObjectKey(meta Metadata) string {
	uploadedAt := meta.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now()
	}
	user := safeSegment(meta.UserID)
	if user == "" {
		user = "anonymous"
	}
	name := safeSegment(filepath.Base(meta.Filename))
	if name == "" || name == "." {
		name = "upload"
	}
	return fmt.Sprintf("uploads/%s/%s/%s-%s", user, uploadedAt.UTC().Format("2006/01/02"), uuid.NewString(), name)
}

func safeSegment(value string) string {
	value = strings.TrimSpace(value)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, value)
}
