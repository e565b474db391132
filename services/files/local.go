// Package filesvc stores uploaded files on the local disk or in an S3 compatible bucket.
package filesvc

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
)

var errInvalidKey = errors.New("invalid file key")

type localStorage struct {
	dir     string
	baseURL string
}

var _ core.FileStorage = (*localStorage)(nil)

// NewLocalStorage stores files under dir. They are served at baseURL by the API's static route.
func NewLocalStorage(dir, baseURL string) core.FileStorage {
	return &localStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func cleanKey(key string) (string, error) {
	key = path.Clean("/" + key)[1:]
	if key == "" || key == "." {
		return "", errInvalidKey
	}
	return key, nil
}

// keyOf returns the key of url when it is served under baseURL.
func keyOf(baseURL, url string) (string, bool) {
	prefix := baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key, err := cleanKey(strings.TrimPrefix(url, prefix))
	if err != nil {
		return "", false
	}
	return key, true
}

func (s *localStorage) SaveFile(_ context.Context, key string, up *core.Upload) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	fp := filepath.Join(s.dir, filepath.FromSlash(key))
	if err = os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload dir")
	}

	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, up.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrap(err, "closing file")
	}
	return s.baseURL + "/" + key, nil
}

func (s *localStorage) KeyOf(url string) (string, bool) {
	return keyOf(s.baseURL, url)
}

func (s *localStorage) DeleteFile(_ context.Context, url string) error {
	key, ok := s.KeyOf(url)
	if !ok {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key))); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}
