package inmemdb

import (
	"context"
	"time"

	"github.com/gvpclubconnect/clubconnect/core"
)

type tokenStore struct {
	db *tokenTable
}

var _ core.TokenStore = (*tokenStore)(nil)

func NewTokenStore(db *DB) core.TokenStore {
	return &tokenStore{db: db.token}
}

func (s *tokenStore) PutToken(_ context.Context, tok core.Token) error {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	ns, ok := s.db.table[tok.Namespace]
	if !ok {
		ns = make(map[string]core.Token)
		s.db.table[tok.Namespace] = ns
	}
	tok.Value = append([]byte(nil), tok.Value...)
	ns[tok.Key] = tok
	return nil
}

func (s *tokenStore) GetToken(_ context.Context, namespace, key string) (core.Token, error) {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	if tok, ok := s.db.table[namespace][key]; ok {
		return tok, nil
	}
	return core.Token{}, core.ErrTokenNotFound
}

func (s *tokenStore) TakeToken(_ context.Context, namespace, key string) (core.Token, error) {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	tok, ok := s.db.table[namespace][key]
	if !ok {
		return core.Token{}, core.ErrTokenNotFound
	}
	delete(s.db.table[namespace], key)
	return tok, nil
}

func (s *tokenStore) DeleteToken(_ context.Context, namespace, key string) error {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	delete(s.db.table[namespace], key)
	return nil
}

func (s *tokenStore) DeleteTokensBefore(_ context.Context, namespace string, t time.Time) (int64, error) {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	var n int64
	for key, tok := range s.db.table[namespace] {
		if tok.CreatedAt.Before(t) {
			delete(s.db.table[namespace], key)
			n++
		}
	}
	return n, nil
}
