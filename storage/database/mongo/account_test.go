package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/gvpclubconnect/clubconnect/core/account"
)

func duplicateKeyResponse() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    11000,
		Message: "E11000 duplicate key error collection: clubconnect.accounts index: email_1_role_1",
	})
}

func Test_accountRepository_CreateAccount(t *testing.T) {
	mt := mtest.New(t, mockOptions())

	mt.Run("created", func(mt *mtest.T) {
		repo := NewAccountRepository(newMockDB(mt))
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		acc, err := repo.CreateAccount(context.Background(), account.Account{Name: "Asha", Email: "asha@gvp.test", Role: account.RoleMember})
		require.NoError(mt, err)
		assert.NotEmpty(mt, acc.ID)
		assert.NotNil(mt, acc.ParticipatedEvents)
	})

	mt.Run("duplicate (email, role)", func(mt *mtest.T) {
		repo := NewAccountRepository(newMockDB(mt))
		mt.AddMockResponses(duplicateKeyResponse())

		_, err := repo.CreateAccount(context.Background(), account.Account{Email: "asha@gvp.test", Role: account.RoleMember})
		assert.Equal(mt, account.ErrAccountExists, err)
	})
}

func Test_accountRepository_UpdateAccount(t *testing.T) {
	mt := mtest.New(t, mockOptions())

	mt.Run("duplicate (email, role)", func(mt *mtest.T) {
		repo := NewAccountRepository(newMockDB(mt))
		mt.AddMockResponses(duplicateKeyResponse())

		_, err := repo.UpdateAccount(context.Background(), account.Account{ID: "a1", Email: "asha@gvp.test", Role: account.RoleLead})
		assert.Equal(mt, account.ErrAccountExists, err)
	})

	mt.Run("unknown account", func(mt *mtest.T) {
		repo := NewAccountRepository(newMockDB(mt))
		mt.AddMockResponses(updateResponse(0, 0))

		_, err := repo.UpdateAccount(context.Background(), account.Account{ID: "a1", Email: "asha@gvp.test", Role: account.RoleLead})
		assert.Equal(mt, account.ErrNotFound, err)
	})
}

func Test_accountRepository_sets(t *testing.T) {
	mt := mtest.New(t, mockOptions())

	mt.Run("add matched", func(mt *mtest.T) {
		repo := NewAccountRepository(newMockDB(mt))
		mt.AddMockResponses(updateResponse(1, 1))

		matched, err := repo.AddToSet(context.Background(), "asha@gvp.test", account.RoleMember, account.ParticipatedEvents, "Hackathon-Robotics")
		require.NoError(mt, err)
		assert.True(mt, matched)

		stmt := nextUpdate(mt)
		assert.Equal(mt, bson.M{"email": "asha@gvp.test", "role": "member"}, stmt.Q)
		assert.Equal(mt, bson.M{"$addToSet": bson.M{"participatedEvents": "Hackathon-Robotics"}}, stmt.U)
	})

	mt.Run("remove without match", func(mt *mtest.T) {
		repo := NewAccountRepository(newMockDB(mt))
		mt.AddMockResponses(updateResponse(0, 0))

		matched, err := repo.RemoveFromSet(context.Background(), "asha@gvp.test", account.RoleLead, account.SelectedClubs, "Robotics")
		require.NoError(mt, err)
		assert.False(mt, matched)

		stmt := nextUpdate(mt)
		assert.Equal(mt, bson.M{"$pull": bson.M{"selectedClubs": "Robotics"}}, stmt.U)
	})
}

func Test_accountRepository_QueryAccounts(t *testing.T) {
	mt := mtest.New(t, mockOptions())

	mt.Run("roles, emails and club", func(mt *mtest.T) {
		repo := NewAccountRepository(newMockDB(mt))
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "a1"},
			{Key: "name", Value: "Prof"},
			{Key: "email", Value: "prof@gvp.test"},
			{Key: "role", Value: "faculty"},
		}))

		accounts, err := repo.QueryAccounts(context.Background(), account.QueryFilter{
			Roles:  []account.Role{account.RoleFaculty, account.RoleLead},
			Emails: []string{"prof@gvp.test"},
			Club:   "Robotics",
		})
		require.NoError(mt, err)
		require.Len(mt, accounts, 1)
		assert.Equal(mt, account.RoleFaculty, accounts[0].Role)
		assert.NotNil(mt, accounts[0].SelectedClubs)

		assert.Equal(mt, bson.M{
			"role":          bson.M{"$in": bson.A{"faculty", "lead"}},
			"email":         bson.M{"$in": bson.A{"prof@gvp.test"}},
			"selectedClubs": "Robotics",
		}, nextFilter(mt, "find"))
	})

	mt.Run("email lookup", func(mt *mtest.T) {
		repo := NewAccountRepository(newMockDB(mt))
		mt.AddMockResponses(emptyCursor(mt))

		_, err := repo.GetAccount(context.Background(), "asha@gvp.test", account.RoleLead)
		assert.Equal(mt, account.ErrNotFound, err)
		assert.Equal(mt, bson.M{"email": "asha@gvp.test", "role": "lead"}, nextFilter(mt, "find"))
	})
}
