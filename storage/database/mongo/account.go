package mongodb

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gvpclubconnect/clubconnect/core/account"
)

type accountRepository struct {
	db   *DB
	coll *mongo.Collection
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db, coll: db.db.Collection(accountsCollection)}
}

func byEmailRole(email string, role account.Role) bson.M {
	return bson.M{"email": email, "role": role}
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	acc.Normalize()
	if _, err := repo.coll.InsertOne(ctx, acc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account.Account{}, account.ErrAccountExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acc, nil
}

func (repo *accountRepository) GetAccount(ctx context.Context, email string, role account.Role) (account.Account, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	var acc account.Account
	if err := repo.coll.FindOne(ctx, byEmailRole(email, role)).Decode(&acc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "finding account")
	}
	acc.Normalize()
	return acc, nil
}

func (repo *accountRepository) QueryAccounts(ctx context.Context, filter account.QueryFilter) ([]account.Account, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	q := bson.M{}
	if len(filter.Roles) > 0 {
		q["role"] = bson.M{"$in": filter.Roles}
	}
	if len(filter.Emails) > 0 {
		q["email"] = bson.M{"$in": filter.Emails}
	}
	if filter.Club != "" {
		q["selectedClubs"] = filter.Club
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "email", Value: 1}})
	cur, err := repo.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying accounts")
	}
	accounts := make([]account.Account, 0)
	if err = cur.All(ctx, &accounts); err != nil {
		return nil, errors.Wrap(err, "decoding accounts")
	}
	for i := range accounts {
		accounts[i].Normalize()
	}
	return accounts, nil
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	acc.Normalize()
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": acc.ID}, acc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account.Account{}, account.ErrAccountExists
		}
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if res.MatchedCount == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return acc, nil
}

func (repo *accountRepository) AddToSet(ctx context.Context, email string, role account.Role, field account.SetField, val string) (bool, error) {
	return repo.updateSet(ctx, email, role, bson.M{"$addToSet": bson.M{string(field): val}})
}

func (repo *accountRepository) RemoveFromSet(ctx context.Context, email string, role account.Role, field account.SetField, val string) (bool, error) {
	return repo.updateSet(ctx, email, role, bson.M{"$pull": bson.M{string(field): val}})
}

func (repo *accountRepository) updateSet(ctx context.Context, email string, role account.Role, update bson.M) (bool, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	res, err := repo.coll.UpdateOne(ctx, byEmailRole(email, role), update)
	if err != nil {
		return false, errors.Wrap(err, "updating account set")
	}
	return res.MatchedCount > 0, nil
}

func (repo *accountRepository) DeleteAccount(ctx context.Context, email string, role account.Role) (account.Account, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	var acc account.Account
	if err := repo.coll.FindOneAndDelete(ctx, byEmailRole(email, role)).Decode(&acc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "deleting account")
	}
	return acc, nil
}
