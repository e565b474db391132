package core

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrTokenNotFound = errors.New("token not found")

type (
	// Token is a short-lived record (OTP, pending approval...) kept in a TokenStore.
	// Expiry is decided by the reader from CreatedAt.
	Token struct {
		Namespace string    `db:"namespace"`
		Key       string    `db:"token_key"`
		Value     []byte    `db:"value"`
		CreatedAt time.Time `db:"created_at"`
	}

	// TokenStore is a namespaced key-value store for transient records.
	TokenStore interface {
		// PutToken creates or replaces the token identified by (Namespace, Key).
		PutToken(ctx context.Context, tok Token) error
		// GetToken returns ErrTokenNotFound when absent.
		GetToken(ctx context.Context, namespace, key string) (Token, error)
		// TakeToken fetches and deletes the token in a single step. It returns ErrTokenNotFound when absent.
		TakeToken(ctx context.Context, namespace, key string) (Token, error)
		DeleteToken(ctx context.Context, namespace, key string) error
		// DeleteTokensBefore removes every token of namespace created before t.
		DeleteTokensBefore(ctx context.Context, namespace string, t time.Time) (int64, error)
	}
)
