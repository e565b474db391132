package inmemdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gvpclubconnect/clubconnect/core"
)

func Test_tokenStore(t *testing.T) {
	store := NewTokenStore(Open())
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.PutToken(ctx, core.Token{Namespace: "a", Key: "k1", Value: []byte("v1"), CreatedAt: now}))
	require.NoError(t, store.PutToken(ctx, core.Token{Namespace: "a", Key: "k2", Value: []byte("v2"), CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.PutToken(ctx, core.Token{Namespace: "b", Key: "k1", Value: []byte("other"), CreatedAt: now.Add(-time.Hour)}))

	tok, err := store.GetToken(ctx, "a", "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), tok.Value)

	// replace
	require.NoError(t, store.PutToken(ctx, core.Token{Namespace: "a", Key: "k1", Value: []byte("v1bis"), CreatedAt: now}))
	tok, err = store.GetToken(ctx, "a", "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1bis"), tok.Value)

	n, err := store.DeleteTokensBefore(ctx, "a", now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = store.GetToken(ctx, "a", "k2")
	assert.Equal(t, core.ErrTokenNotFound, err)
	_, err = store.GetToken(ctx, "b", "k1")
	assert.NoError(t, err, "other namespaces are left untouched")

	require.NoError(t, store.DeleteToken(ctx, "b", "k1"))
	_, err = store.GetToken(ctx, "b", "k1")
	assert.Equal(t, core.ErrTokenNotFound, err)
}

func Test_tokenStore_TakeToken_once(t *testing.T) {
	store := NewTokenStore(Open())
	ctx := context.Background()
	require.NoError(t, store.PutToken(ctx, core.Token{Namespace: "club-join", Key: "k", Value: []byte("{}"), CreatedAt: time.Now()}))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		taken int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.TakeToken(ctx, "club-join", "k"); err == nil {
				mu.Lock()
				taken++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, taken)
}
