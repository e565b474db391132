package pgstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
)

const (
	putTokenQuery = `
		INSERT INTO tokens (namespace, token_key, value, created_at)
		VALUES (:namespace, :token_key, :value, :created_at)
		ON CONFLICT (namespace, token_key)
		DO UPDATE SET value = EXCLUDED.value, created_at = EXCLUDED.created_at`
	getTokenQuery = `
		SELECT namespace, token_key, value, created_at FROM tokens
		WHERE namespace = $1 AND token_key = $2`
	takeTokenQuery = `
		DELETE FROM tokens
		WHERE namespace = $1 AND token_key = $2
		RETURNING namespace, token_key, value, created_at`
	deleteTokenQuery        = `DELETE FROM tokens WHERE namespace = $1 AND token_key = $2`
	deleteTokensBeforeQuery = `DELETE FROM tokens WHERE namespace = $1 AND created_at < $2`
)

type tokenStore struct {
	db *sqlx.DB
}

var _ core.TokenStore = (*tokenStore)(nil)

func NewTokenStore(db *sqlx.DB) core.TokenStore {
	return &tokenStore{db: db}
}

func (s *tokenStore) PutToken(ctx context.Context, tok core.Token) error {
	tok.CreatedAt = tok.CreatedAt.UTC()
	if _, err := s.db.NamedExecContext(ctx, putTokenQuery, tok); err != nil {
		return errors.Wrap(err, "putting token")
	}
	return nil
}

func (s *tokenStore) GetToken(ctx context.Context, namespace, key string) (core.Token, error) {
	return s.get(ctx, getTokenQuery, namespace, key)
}

// TakeToken deletes and returns the row in one statement, so concurrent takers cannot both get it.
func (s *tokenStore) TakeToken(ctx context.Context, namespace, key string) (core.Token, error) {
	return s.get(ctx, takeTokenQuery, namespace, key)
}

func (s *tokenStore) get(ctx context.Context, query, namespace, key string) (core.Token, error) {
	var tok core.Token
	if err := s.db.GetContext(ctx, &tok, query, namespace, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Token{}, core.ErrTokenNotFound
		}
		return core.Token{}, errors.Wrap(err, "getting token")
	}
	tok.CreatedAt = tok.CreatedAt.UTC()
	return tok, nil
}

func (s *tokenStore) DeleteToken(ctx context.Context, namespace, key string) error {
	if _, err := s.db.ExecContext(ctx, deleteTokenQuery, namespace, key); err != nil {
		return errors.Wrap(err, "deleting token")
	}
	return nil
}

func (s *tokenStore) DeleteTokensBefore(ctx context.Context, namespace string, t time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, deleteTokensBeforeQuery, namespace, t.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "deleting tokens")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting tokens")
	}
	return n, nil
}
