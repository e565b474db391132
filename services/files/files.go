package filesvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
)

// NewStorage returns the storage selected by conf.Files.Backend.
func NewStorage(ctx context.Context, conf *core.Config) (core.FileStorage, error) {
	switch conf.Files.Backend {
	case "", "local":
		return NewLocalStorage(conf.Files.Dir, conf.Files.BaseURL), nil
	case "s3":
		return NewS3Storage(ctx, conf)
	}
	return nil, errors.Errorf("unknown files backend %q", conf.Files.Backend)
}
