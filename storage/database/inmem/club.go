package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/gvpclubconnect/clubconnect/core/club"
)

type clubRepository struct {
	db *clubTable
}

var _ club.Repository = (*clubRepository)(nil)

func NewClubRepository(db *DB) club.Repository {
	return &clubRepository{db: db.club}
}

func cloneClub(c *club.Club) club.Club {
	cc := *c
	cc.Labels = append(make([]club.Label, 0, len(c.Labels)), c.Labels...)
	return cc
}

func (repo *clubRepository) CreateClub(_ context.Context, c club.Club) (club.Club, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[c.Name]; ok {
		return club.Club{}, club.ErrClubExists
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	stored := cloneClub(&c)
	repo.db.table[c.Name] = &stored
	return cloneClub(&stored), nil
}

func (repo *clubRepository) GetClub(_ context.Context, name string) (club.Club, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.table[name]; ok {
		return cloneClub(c), nil
	}
	return club.Club{}, club.ErrNotFound
}

func (repo *clubRepository) QueryClubs(_ context.Context) ([]club.Club, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	clubs := make([]club.Club, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		clubs = append(clubs, cloneClub(c))
	}
	sort.Slice(clubs, func(i, j int) bool { return clubs[i].Name < clubs[j].Name })
	return clubs, nil
}

func (repo *clubRepository) UpdateClub(_ context.Context, c club.Club) (club.Club, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[c.Name]
	if !ok {
		return club.Club{}, club.ErrNotFound
	}
	c.ID = orig.ID
	c.CreatedAt = orig.CreatedAt
	stored := cloneClub(&c)
	repo.db.table[c.Name] = &stored
	return cloneClub(&stored), nil
}
