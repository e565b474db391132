package mongodb

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gvpclubconnect/clubconnect/core/event"
)

type eventRepository struct {
	db   *DB
	coll *mongo.Collection
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db, coll: db.db.Collection(eventsCollection)}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.RegisteredEmails == nil {
		e.RegisteredEmails = []string{}
	}
	if e.ParticipatedEmails == nil {
		e.ParticipatedEmails = []string{}
	}
	if _, err := repo.coll.InsertOne(ctx, e); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return e, nil
}

func (repo *eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	var e event.Event
	if err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "finding event")
	}
	return e, nil
}

func (repo *eventRepository) QueryEvents(ctx context.Context, filter event.QueryFilter) ([]event.Event, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	q := bson.M{}
	if filter.Club != "" {
		q["club"] = filter.Club
	}
	if filter.ClubType != "" {
		q["clubtype"] = filter.ClubType
	}
	date := bson.M{}
	if filter.DateFrom != "" {
		date["$gte"] = filter.DateFrom
	}
	if filter.DateBefore != "" {
		date["$lt"] = filter.DateBefore
	}
	if len(date) > 0 {
		q["date"] = date
	}

	order := 1
	if filter.Descending {
		order = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: order}, {Key: "createdAt", Value: 1}})
	cur, err := repo.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0)
	if err = cur.All(ctx, &events); err != nil {
		return nil, errors.Wrap(err, "decoding events")
	}
	return events, nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"eventname":       e.Name,
		"clubtype":        e.ClubType,
		"club":            e.Club,
		"date":            e.Date,
		"description":     e.Description,
		"type":            e.Status,
		"image":           e.ImageURL,
		"documentUrl":     e.DocumentURL,
		"paymentRequired": e.PaymentRequired,
		"paymentLink":     e.PaymentLink,
		"paymentQR":       e.PaymentQRURL,
		"updatedAt":       e.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated event.Event
	if err := repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": e.ID}, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	return updated, nil
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, id string) (event.Event, error) {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	var e event.Event
	if err := repo.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "deleting event")
	}
	return e, nil
}

// AddRegistration relies on $addToSet so that concurrent registrations of the same email add it once.
func (repo *eventRepository) AddRegistration(ctx context.Context, id, email string) error {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	res, err := repo.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"registeredEmails": email}})
	if err != nil {
		return errors.Wrap(err, "registering to event")
	}
	switch {
	case res.MatchedCount == 0:
		return event.ErrNotFound
	case res.ModifiedCount == 0:
		return event.ErrAlreadyRegistered
	}
	return nil
}

func (repo *eventRepository) RemoveRegistration(ctx context.Context, id, email string) error {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$pull": bson.M{"registeredEmails": email, "participatedEmails": email}}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return errors.Wrap(err, "removing registration")
	}
	if res.MatchedCount == 0 {
		return event.ErrNotFound
	}
	return nil
}

func (repo *eventRepository) AddParticipation(ctx context.Context, id, email string) error {
	return repo.updateParticipation(ctx, id, email, bson.M{"$addToSet": bson.M{"participatedEmails": email}})
}

func (repo *eventRepository) RemoveParticipation(ctx context.Context, id, email string) error {
	return repo.updateParticipation(ctx, id, email, bson.M{"$pull": bson.M{"participatedEmails": email}})
}

// updateParticipation only matches events where email is registered.
func (repo *eventRepository) updateParticipation(ctx context.Context, id, email string, update bson.M) error {
	ctx, cancel := repo.db.withTimeout(ctx)
	defer cancel()

	res, err := repo.coll.UpdateOne(ctx, bson.M{"_id": id, "registeredEmails": email}, update)
	if err != nil {
		return errors.Wrap(err, "updating participation")
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := repo.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return errors.Wrap(err, "counting events")
	}
	if n == 0 {
		return event.ErrNotFound
	}
	return event.ErrNotRegistered
}
