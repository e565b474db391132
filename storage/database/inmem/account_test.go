package inmemdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gvpclubconnect/clubconnect/core/account"
)

func Test_accountRepository(t *testing.T) {
	repo := NewAccountRepository(Open())
	ctx := context.Background()

	member, err := repo.CreateAccount(ctx, account.Account{Name: "Bob", Email: "bob@test.cd", Role: account.RoleMember})
	require.NoError(t, err)
	assert.NotEmpty(t, member.ID)

	// same email, other role
	lead, err := repo.CreateAccount(ctx, account.Account{Name: "Bob", Email: "bob@test.cd", Role: account.RoleLead})
	require.NoError(t, err)
	assert.NotEqual(t, member.ID, lead.ID)

	// same (email, role)
	_, err = repo.CreateAccount(ctx, account.Account{Name: "Bobby", Email: "bob@test.cd", Role: account.RoleMember})
	assert.Equal(t, account.ErrAccountExists, err)

	faculty, err := repo.CreateAccount(ctx, account.Account{
		Name: "Alice", Email: "alice@test.cd", Role: account.RoleFaculty, SelectedClubs: []string{"Dance Club"},
	})
	require.NoError(t, err)

	t.Run("query", func(t *testing.T) {
		got, err := repo.QueryAccounts(ctx, account.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "Alice", got[0].Name)

		got, err = repo.QueryAccounts(ctx, account.QueryFilter{Roles: []account.Role{account.RoleMember, account.RoleLead}})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = repo.QueryAccounts(ctx, account.QueryFilter{Club: "Dance Club"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, faculty.ID, got[0].ID)

		got, err = repo.QueryAccounts(ctx, account.QueryFilter{Emails: []string{"lol@test.cd"}})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("sets", func(t *testing.T) {
		matched, err := repo.AddToSet(ctx, faculty.Email, account.RoleFaculty, account.SelectedClubs, "Coding Club")
		require.NoError(t, err)
		assert.True(t, matched)
		matched, err = repo.AddToSet(ctx, faculty.Email, account.RoleFaculty, account.SelectedClubs, "Coding Club")
		require.NoError(t, err)
		assert.True(t, matched)

		got, err := repo.GetAccount(ctx, faculty.Email, account.RoleFaculty)
		require.NoError(t, err)
		assert.Equal(t, []string{"Dance Club", "Coding Club"}, got.SelectedClubs)

		matched, err = repo.RemoveFromSet(ctx, faculty.Email, account.RoleFaculty, account.SelectedClubs, "Dance Club")
		require.NoError(t, err)
		assert.True(t, matched)
		got, err = repo.GetAccount(ctx, faculty.Email, account.RoleFaculty)
		require.NoError(t, err)
		assert.Equal(t, []string{"Coding Club"}, got.SelectedClubs)

		matched, err = repo.AddToSet(ctx, "lol@test.cd", account.RoleMember, account.ParticipatedEvents, "x")
		require.NoError(t, err)
		assert.False(t, matched)
	})

	t.Run("reads are copies", func(t *testing.T) {
		got, err := repo.GetAccount(ctx, faculty.Email, account.RoleFaculty)
		require.NoError(t, err)
		got.SelectedClubs[0] = "mutated"

		again, err := repo.GetAccount(ctx, faculty.Email, account.RoleFaculty)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.SelectedClubs[0])
	})

	t.Run("update & delete", func(t *testing.T) {
		member.Role = account.RoleLead // (bob, lead) is taken
		_, err := repo.UpdateAccount(ctx, member)
		assert.Equal(t, account.ErrAccountExists, err)

		deleted, err := repo.DeleteAccount(ctx, lead.Email, account.RoleLead)
		require.NoError(t, err)
		assert.Equal(t, lead.ID, deleted.ID)

		promoted, err := repo.UpdateAccount(ctx, member)
		require.NoError(t, err)
		assert.Equal(t, account.RoleLead, promoted.Role)

		_, err = repo.GetAccount(ctx, member.Email, account.RoleMember)
		assert.Equal(t, account.ErrNotFound, err)
	})
}
