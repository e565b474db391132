package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ImageTypes    = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	DocumentTypes = append([]string{"application/pdf"}, ImageTypes...)

	extensions = map[string]string{
		"image/jpeg":      ".jpg",
		"image/png":       ".png",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"application/pdf": ".pdf",
	}
)

type (
	// Upload is a file received from a client, ready to be stored.
	Upload struct {
		Filename    string
		ContentType string // sniffed from content, never trusted from the client
		Size        int64
		Body        io.Reader
	}

	// FileStorage stores uploaded files and serves them by URL.
	FileStorage interface {
		// SaveFile stores the upload under key and returns its public URL.
		SaveFile(ctx context.Context, key string, up *Upload) (string, error)
		// DeleteFile removes the file served at url. URLs not owned by the storage are ignored.
		DeleteFile(ctx context.Context, url string) error
		// KeyOf returns the key of the file served at url, and false for URLs the storage does not serve.
		KeyOf(url string) (string, bool)
	}
)

// NewUpload sniffs the content type of r.
func NewUpload(filename string, size int64, r io.Reader) (*Upload, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, errors.Wrap(err, "reading upload")
	}
	ct := http.DetectContentType(head)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return &Upload{
		Filename:    filename,
		ContentType: ct,
		Size:        size,
		Body:        br,
	}, nil
}

// Check validates the upload against the allowed content types and max size (0 = unlimited).
func (up *Upload) Check(field string, maxSize int64, allowed ...string) error {
	if maxSize > 0 && up.Size > maxSize {
		return NewValidationError(nil, FieldError{
			Field: field,
			Error: fmt.Sprintf("file too large (max %d MB)", maxSize/(1024*1024)),
		})
	}
	if !ContainsString(allowed, up.ContentType) {
		msg := "only image files are allowed"
		if ContainsString(allowed, "application/pdf") {
			msg = "only image or PDF files are allowed"
		}
		return NewValidationError(nil, FieldError{Field: field, Error: msg})
	}
	return nil
}

// Ext returns the file extension matching the sniffed content type.
func (up *Upload) Ext() string {
	if ext, ok := extensions[up.ContentType]; ok {
		return ext
	}
	return path.Ext(up.Filename)
}

// StoredWithPrefix reports whether url is served by files under a key starting with prefix.
func StoredWithPrefix(files FileStorage, url, prefix string) bool {
	key, ok := files.KeyOf(url)
	return ok && strings.HasPrefix(key, prefix)
}

// FileKey builds a unique storage key: "<dir>/<prefix><uuid><ext>".
func FileKey(dir, prefix string, up *Upload) string {
	return path.Join(dir, prefix+uuid.NewString()+up.Ext())
}
