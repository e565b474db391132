package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gvpclubconnect/clubconnect/core/club"
)

func Test_clubRepository(t *testing.T) {
	repo := NewClubRepository(Open())
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	music, err := repo.CreateClub(ctx, club.Club{Name: "Music", Type: club.TypeCultural, CreatedAt: created})
	require.NoError(t, err)
	assert.NotEmpty(t, music.ID)
	_, err = repo.CreateClub(ctx, club.Club{Name: "Robotics", Type: club.TypeTechnical})
	require.NoError(t, err)

	_, err = repo.CreateClub(ctx, club.Club{Name: "Music"})
	assert.Equal(t, club.ErrClubExists, err)

	clubs, err := repo.QueryClubs(ctx)
	require.NoError(t, err)
	require.Len(t, clubs, 2)
	assert.Equal(t, "Music", clubs[0].Name)
	assert.Equal(t, "Robotics", clubs[1].Name)

	labels := []club.Label{{Name: "Band", Value: "3"}}
	updated, err := repo.UpdateClub(ctx, club.Club{Name: "Music", Type: club.TypeCultural, Labels: labels})
	require.NoError(t, err)
	assert.Equal(t, music.ID, updated.ID)
	assert.Equal(t, created, updated.CreatedAt)

	// stored copies are isolated from callers
	labels[0].Value = "changed"
	got, err := repo.GetClub(ctx, "Music")
	require.NoError(t, err)
	assert.Equal(t, "3", got.Labels[0].Value)

	_, err = repo.GetClub(ctx, "Chess")
	assert.Equal(t, club.ErrNotFound, err)
	_, err = repo.UpdateClub(ctx, club.Club{Name: "Chess"})
	assert.Equal(t, club.ErrNotFound, err)
}
