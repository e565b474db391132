package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/gvpclubconnect/clubconnect/core/event"
)

type eventRepository struct {
	db *eventTable
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db.event}
}

func cloneEvent(e *event.Event) event.Event {
	c := *e
	c.RegisteredEmails = copyStrings(e.RegisteredEmails)
	c.ParticipatedEmails = copyStrings(e.ParticipatedEmails)
	return c
}

func (repo *eventRepository) CreateEvent(_ context.Context, e event.Event) (event.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	stored := cloneEvent(&e)
	repo.db.table[e.ID] = &stored
	return cloneEvent(&stored), nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id string) (event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.table[id]; ok {
		return cloneEvent(e), nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter event.QueryFilter) ([]event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	events := make([]event.Event, 0)
	for _, e := range repo.db.table {
		switch {
		case filter.Club != "" && e.Club != filter.Club:
			continue
		case filter.ClubType != "" && e.ClubType != filter.ClubType:
			continue
		case filter.DateFrom != "" && e.Date < filter.DateFrom:
			continue
		case filter.DateBefore != "" && e.Date >= filter.DateBefore:
			continue
		}
		events = append(events, cloneEvent(e))
	}
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Date == b.Date {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if filter.Descending {
			return a.Date > b.Date
		}
		return a.Date < b.Date
	})
	return events, nil
}

func (repo *eventRepository) UpdateEvent(_ context.Context, e event.Event) (event.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[e.ID]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	// registrations are only changed through the set operations
	e.RegisteredEmails = orig.RegisteredEmails
	e.ParticipatedEmails = orig.ParticipatedEmails
	e.CreatedAt = orig.CreatedAt
	stored := cloneEvent(&e)
	repo.db.table[e.ID] = &stored
	return cloneEvent(&stored), nil
}

func (repo *eventRepository) DeleteEvent(_ context.Context, id string) (event.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e, ok := repo.db.table[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	delete(repo.db.table, id)
	return cloneEvent(e), nil
}

func (repo *eventRepository) AddRegistration(_ context.Context, id, email string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e, ok := repo.db.table[id]
	if !ok {
		return event.ErrNotFound
	}
	set, added := addToSet(copyStrings(e.RegisteredEmails), email)
	if !added {
		return event.ErrAlreadyRegistered
	}
	e.RegisteredEmails = set
	return nil
}

func (repo *eventRepository) RemoveRegistration(_ context.Context, id, email string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e, ok := repo.db.table[id]
	if !ok {
		return event.ErrNotFound
	}
	e.RegisteredEmails, _ = removeFromSet(e.RegisteredEmails, email)
	e.ParticipatedEmails, _ = removeFromSet(e.ParticipatedEmails, email)
	return nil
}

func (repo *eventRepository) AddParticipation(_ context.Context, id, email string) error {
	return repo.updateParticipation(id, email, func(set []string) []string {
		set, _ = addToSet(set, email)
		return set
	})
}

func (repo *eventRepository) RemoveParticipation(_ context.Context, id, email string) error {
	return repo.updateParticipation(id, email, func(set []string) []string {
		set, _ = removeFromSet(set, email)
		return set
	})
}

func (repo *eventRepository) updateParticipation(id, email string, update func([]string) []string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e, ok := repo.db.table[id]
	if !ok {
		return event.ErrNotFound
	}
	if !e.IsRegistered(email) {
		return event.ErrNotRegistered
	}
	e.ParticipatedEmails = update(copyStrings(e.ParticipatedEmails))
	return nil
}
