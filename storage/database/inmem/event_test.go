package inmemdb

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gvpclubconnect/clubconnect/core/event"
)

func createEvent(t *testing.T, repo event.Repository, name, club, clubType, date string) event.Event {
	e, err := repo.CreateEvent(context.Background(), event.Event{
		Name:      name,
		Club:      club,
		ClubType:  clubType,
		Date:      date,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return e
}

func Test_eventRepository_AddRegistration_concurrent(t *testing.T) {
	repo := NewEventRepository(Open())
	e := createEvent(t, repo, "Hackathon", "Coding Club", "Technical", "2030-01-01")
	ctx := context.Background()

	const (
		users    = 20
		attempts = 5 // per user
	)
	var (
		wg                sync.WaitGroup
		mu                sync.Mutex
		ok, alreadyExists int
	)
	for u := 0; u < users; u++ {
		for a := 0; a < attempts; a++ {
			wg.Add(1)
			go func(email string) {
				defer wg.Done()
				err := repo.AddRegistration(ctx, e.ID, email)
				mu.Lock()
				defer mu.Unlock()
				switch err {
				case nil:
					ok++
				case event.ErrAlreadyRegistered:
					alreadyExists++
				default:
					t.Errorf("AddRegistration() unexpected error = %v", err)
				}
			}(fmt.Sprintf("user%02d@test.cd", u))
		}
	}
	wg.Wait()

	assert.Equal(t, users, ok)
	assert.Equal(t, users*(attempts-1), alreadyExists)

	got, err := repo.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, got.RegisteredEmails, users)
}

func Test_eventRepository_participation(t *testing.T) {
	repo := NewEventRepository(Open())
	e := createEvent(t, repo, "Hackathon", "Coding Club", "Technical", "2030-01-01")
	ctx := context.Background()
	const email = "user@test.cd"

	assert.Equal(t, event.ErrNotFound, repo.AddRegistration(ctx, "lol", email))
	assert.Equal(t, event.ErrNotFound, repo.AddParticipation(ctx, "lol", email))
	assert.Equal(t, event.ErrNotRegistered, repo.AddParticipation(ctx, e.ID, email))
	assert.Equal(t, event.ErrNotRegistered, repo.RemoveParticipation(ctx, e.ID, email))

	require.NoError(t, repo.AddRegistration(ctx, e.ID, email))
	require.NoError(t, repo.AddParticipation(ctx, e.ID, email))
	require.NoError(t, repo.AddParticipation(ctx, e.ID, email)) // idempotent

	got, err := repo.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{email}, got.RegisteredEmails)
	assert.Equal(t, []string{email}, got.ParticipatedEmails)

	// updates never touch the email sets
	got.Description = "updated"
	got.RegisteredEmails = nil
	got.ParticipatedEmails = nil
	got, err = repo.UpdateEvent(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Description)
	assert.Equal(t, []string{email}, got.ParticipatedEmails)

	// removing the registration also removes the participation
	require.NoError(t, repo.RemoveRegistration(ctx, e.ID, email))
	got, err = repo.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, got.RegisteredEmails)
	assert.Empty(t, got.ParticipatedEmails)
}

func Test_eventRepository_QueryEvents(t *testing.T) {
	repo := NewEventRepository(Open())
	ctx := context.Background()

	past := createEvent(t, repo, "Past", "Coding Club", "Technical", "2020-05-01")
	older := createEvent(t, repo, "Older", "Dance Club", "Cultural", "2019-05-01")
	today := createEvent(t, repo, "Today", "Dance Club", "Cultural", "2025-06-01")
	soon := createEvent(t, repo, "Soon", "Coding Club", "Technical", "2025-07-01")

	names := func(events []event.Event) []string {
		n := make([]string, 0, len(events))
		for _, e := range events {
			n = append(n, e.Name)
		}
		return n
	}

	tests := []struct {
		name   string
		filter event.QueryFilter
		want   []event.Event
	}{
		{name: "all", want: []event.Event{older, past, today, soon}},
		{name: "club", filter: event.QueryFilter{Club: "Coding Club"}, want: []event.Event{past, soon}},
		{name: "club type", filter: event.QueryFilter{ClubType: "Cultural"}, want: []event.Event{older, today}},
		{name: "upcoming", filter: event.QueryFilter{DateFrom: "2025-06-01"}, want: []event.Event{today, soon}},
		{
			name:   "past, latest first",
			filter: event.QueryFilter{DateBefore: "2025-06-01", Descending: true},
			want:   []event.Event{past, older},
		},
		{
			name:   "upcoming technical",
			filter: event.QueryFilter{DateFrom: "2025-06-01", ClubType: "Technical"},
			want:   []event.Event{soon},
		},
		{name: "none", filter: event.QueryFilter{Club: "lol"}, want: []event.Event{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.QueryEvents(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, names(tt.want), names(got))
		})
	}
}

func Test_eventRepository_DeleteEvent(t *testing.T) {
	repo := NewEventRepository(Open())
	e := createEvent(t, repo, "Hackathon", "Coding Club", "Technical", "2030-01-01")
	ctx := context.Background()

	deleted, err := repo.DeleteEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, deleted.ID)

	_, err = repo.GetEvent(ctx, e.ID)
	assert.Equal(t, event.ErrNotFound, err)
	_, err = repo.DeleteEvent(ctx, e.ID)
	assert.Equal(t, event.ErrNotFound, err)
}
