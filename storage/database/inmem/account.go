package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
)

type accountRepository struct {
	db *accountTable
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db.account}
}

// find must be called with the lock held.
func (repo *accountRepository) find(email string, role account.Role) *account.Account {
	for _, acc := range repo.db.table {
		if acc.Email == email && acc.Role == role {
			return acc
		}
	}
	return nil
}

func cloneAccount(acc *account.Account) account.Account {
	c := *acc
	c.SelectedClubs = copyStrings(acc.SelectedClubs)
	c.PendingClubs = copyStrings(acc.PendingClubs)
	c.ParticipatedEvents = copyStrings(acc.ParticipatedEvents)
	c.PasswordHash = append([]byte(nil), acc.PasswordHash...)
	return c
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.find(acc.Email, acc.Role) != nil {
		return account.Account{}, account.ErrAccountExists
	}
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	stored := cloneAccount(&acc)
	repo.db.table[acc.ID] = &stored
	return cloneAccount(&stored), nil
}

func (repo *accountRepository) GetAccount(_ context.Context, email string, role account.Role) (account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if acc := repo.find(email, role); acc != nil {
		return cloneAccount(acc), nil
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) QueryAccounts(_ context.Context, filter account.QueryFilter) ([]account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	accounts := make([]account.Account, 0)
	for _, acc := range repo.db.table {
		if len(filter.Roles) > 0 && !hasRole(filter.Roles, acc.Role) {
			continue
		}
		if len(filter.Emails) > 0 && !core.ContainsString(filter.Emails, acc.Email) {
			continue
		}
		if filter.Club != "" && !core.ContainsString(acc.SelectedClubs, filter.Club) {
			continue
		}
		accounts = append(accounts, cloneAccount(acc))
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Name == accounts[j].Name {
			return accounts[i].Email < accounts[j].Email
		}
		return accounts[i].Name < accounts[j].Name
	})
	return accounts, nil
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[acc.ID]; !ok {
		return account.Account{}, account.ErrNotFound
	}
	if other := repo.find(acc.Email, acc.Role); other != nil && other.ID != acc.ID {
		return account.Account{}, account.ErrAccountExists
	}
	stored := cloneAccount(&acc)
	repo.db.table[acc.ID] = &stored
	return cloneAccount(&stored), nil
}

func (repo *accountRepository) AddToSet(_ context.Context, email string, role account.Role, field account.SetField, val string) (bool, error) {
	return repo.updateSet(email, role, field, func(set []string) []string {
		set, _ = addToSet(set, val)
		return set
	})
}

func (repo *accountRepository) RemoveFromSet(_ context.Context, email string, role account.Role, field account.SetField, val string) (bool, error) {
	return repo.updateSet(email, role, field, func(set []string) []string {
		set, _ = removeFromSet(set, val)
		return set
	})
}

func (repo *accountRepository) updateSet(email string, role account.Role, field account.SetField, update func([]string) []string) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	acc := repo.find(email, role)
	if acc == nil {
		return false, nil
	}
	switch field {
	case account.SelectedClubs:
		acc.SelectedClubs = update(copyStrings(acc.SelectedClubs))
	case account.PendingClubs:
		acc.PendingClubs = update(copyStrings(acc.PendingClubs))
	case account.ParticipatedEvents:
		acc.ParticipatedEvents = update(copyStrings(acc.ParticipatedEvents))
	}
	return true, nil
}

func (repo *accountRepository) DeleteAccount(_ context.Context, email string, role account.Role) (account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	acc := repo.find(email, role)
	if acc == nil {
		return account.Account{}, account.ErrNotFound
	}
	delete(repo.db.table, acc.ID)
	return cloneAccount(acc), nil
}

func hasRole(roles []account.Role, role account.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
