package mongodb

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gvpclubconnect/clubconnect/core/club"
)

type clubRepository struct {
	db   *DB
	coll *mongo.Collection
}

var _ club.Repository = (*clubRepository)(nil)

func NewClubRepository(db *DB) club.Repository {
	return &clubRepository{db: db, coll: db.db.Collection(clubsCollection)}
}

func (repo *clubRepository) CreateClub(ctx context.Context, c club.Club) (club.Club, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Labels == nil {
		c.Labels = []club.Label{}
	}
	if _, err := repo.coll.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return club.Club{}, club.ErrClubExists
		}
		return club.Club{}, errors.Wrap(err, "inserting club")
	}
	return c, nil
}

func (repo *clubRepository) GetClub(ctx context.Context, name string) (club.Club, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	var c club.Club
	if err := repo.coll.FindOne(ctx, bson.M{"name": name}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return club.Club{}, club.ErrNotFound
		}
		return club.Club{}, errors.Wrap(err, "finding club")
	}
	return c, nil
}

func (repo *clubRepository) QueryClubs(ctx context.Context) ([]club.Club, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	cur, err := repo.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "querying clubs")
	}
	clubs := make([]club.Club, 0)
	if err = cur.All(ctx, &clubs); err != nil {
		return nil, errors.Wrap(err, "decoding clubs")
	}
	return clubs, nil
}

func (repo *clubRepository) UpdateClub(ctx context.Context, c club.Club) (club.Club, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	if c.Labels == nil {
		c.Labels = []club.Label{}
	}
	update := bson.M{"$set": bson.M{
		"type":        c.Type,
		"logo":        c.LogoURL,
		"description": c.Description,
		"labels":      c.Labels,
		"updatedAt":   c.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated club.Club
	if err := repo.coll.FindOneAndUpdate(ctx, bson.M{"name": c.Name}, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return club.Club{}, club.ErrNotFound
		}
		return club.Club{}, errors.Wrap(err, "updating club")
	}
	return updated, nil
}
