package event

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
)

// storage directories
const (
	imagesDir    = "events/images"
	paymentQRDir = "events/payment-qr"
	documentsDir = "events/documents"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("event not found")
	ErrAlreadyRegistered = core.NewConflictError("Already registered")
	ErrNotRegistered     = core.NewConflictError("User not registered")
	errStoredDocumentURL = core.NewValidationError(nil, core.FieldError{Field: "documentUrl", Error: "stored documents can only be set by uploading them"})
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event) (Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		QueryEvents(ctx context.Context, filter QueryFilter) ([]Event, error)
		// UpdateEvent replaces the scalar fields of the event matching e.ID; the email sets are left untouched.
		UpdateEvent(ctx context.Context, e Event) (Event, error)
		DeleteEvent(ctx context.Context, id string) (Event, error)

		// AddRegistration atomically adds email to the registered set.
		// It returns ErrNotFound or ErrAlreadyRegistered.
		AddRegistration(ctx context.Context, id, email string) error
		// RemoveRegistration removes email from both sets. It returns ErrNotFound.
		RemoveRegistration(ctx context.Context, id, email string) error
		// AddParticipation atomically adds a registered email to the participated set.
		// It returns ErrNotFound or ErrNotRegistered.
		AddParticipation(ctx context.Context, id, email string) error
		// RemoveParticipation atomically removes a registered email from the participated set.
		// It returns ErrNotFound or ErrNotRegistered.
		RemoveParticipation(ctx context.Context, id, email string) error
	}

	// Participants gives access to the accounts attending events.
	Participants interface {
		AddParticipation(ctx context.Context, email, label string) (account.Role, error)
		RemoveParticipation(ctx context.Context, email, label string) (account.Role, error)
		RegisteredProfiles(ctx context.Context, emails []string) ([]account.Account, error)
		FacultyFollowing(ctx context.Context, club string) ([]account.Account, error)
	}

	// QRGenerator renders content as a PNG QR code.
	QRGenerator interface {
		Encode(content string) ([]byte, error)
	}

	Service struct {
		repo         Repository
		participants Participants
		files        core.FileStorage
		qr           QRGenerator
		notifier     core.Notifier
		logger       core.Logger
		maxUpload    int64
	}
)

func NewService(
	repo Repository,
	participants Participants,
	files core.FileStorage,
	qr QRGenerator,
	notifier core.Notifier,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:         repo,
		participants: participants,
		files:        files,
		qr:           qr,
		notifier:     notifier,
		logger:       logger,
		maxUpload:    conf.Server.MaxUploadSize,
	}
}

// Create stores a new event with its optional poster and payment QR, then notifies the club followers.
func (svc *Service) Create(ctx context.Context, ne NewEvent, uploads Uploads) (Event, error) {
	if uploads.Image != nil {
		if err := uploads.Image.Check("image", svc.maxUpload, core.ImageTypes...); err != nil {
			return Event{}, err
		}
	}
	if uploads.PaymentQR != nil {
		if err := uploads.PaymentQR.Check("paymentQR", svc.maxUpload, core.ImageTypes...); err != nil {
			return Event{}, err
		}
	}

	now := NowFunc().UTC()
	e := Event{
		ID:                 uuid.NewString(),
		Name:               ne.Name,
		ClubType:           ne.ClubType,
		Club:               ne.Club,
		Date:               ne.Date,
		Description:        ne.Description,
		Status:             StatusFor(ne.Date),
		PaymentRequired:    ne.PaymentRequired,
		PaymentLink:        ne.PaymentLink,
		RegisteredEmails:   []string{},
		ParticipatedEmails: []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	var err error
	if uploads.Image != nil {
		if e.ImageURL, err = svc.files.SaveFile(ctx, core.FileKey(imagesDir, e.ID+"-", uploads.Image), uploads.Image); err != nil {
			return Event{}, errors.Wrap(err, "saving event image")
		}
	}
	qr := uploads.PaymentQR
	if qr == nil && e.PaymentRequired && e.PaymentLink != "" {
		if qr, err = svc.paymentQR(e.PaymentLink); err != nil {
			return Event{}, err
		}
	}
	if qr != nil {
		if e.PaymentQRURL, err = svc.files.SaveFile(ctx, core.FileKey(paymentQRDir, e.ID+"-", qr), qr); err != nil {
			svc.removeFiles(ctx, e.ImageURL)
			return Event{}, errors.Wrap(err, "saving payment QR")
		}
	}

	created, err := svc.repo.CreateEvent(ctx, e)
	if err != nil {
		svc.removeFiles(ctx, e.ImageURL, e.PaymentQRURL)
		return Event{}, err
	}

	svc.notifyFollowers(created)
	return created, nil
}

func (svc *Service) paymentQR(link string) (*core.Upload, error) {
	png, err := svc.qr.Encode(link)
	if err != nil {
		return nil, errors.Wrap(err, "generating payment QR")
	}
	return &core.Upload{
		Filename:    "payment-qr.png",
		ContentType: "image/png",
		Size:        int64(len(png)),
		Body:        bytes.NewReader(png),
	}, nil
}

// notifyFollowers mails the faculty following the event's club, outside of the request.
func (svc *Service) notifyFollowers(e Event) {
	svc.notifier.Go("event-created:"+e.ID, func(ctx context.Context) error {
		followers, err := svc.participants.FacultyFollowing(ctx, e.Club)
		if err != nil {
			return errors.Wrap(err, "querying club followers")
		}
		msgs := make([]*core.EmailMessage, 0, len(followers))
		for _, f := range followers {
			msgs = append(msgs, &core.EmailMessage{
				To:           []mail.Address{{Name: f.Name, Address: f.Email}},
				Subject:      fmt.Sprintf("New event: %s (%s)", e.Name, e.Club),
				TemplateName: "event_created",
				TemplateData: map[string]interface{}{
					"Name":  f.Name,
					"Event": e,
				},
			})
		}
		svc.notifier.SendMessages(msgs...)
		return nil
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Event{}, ErrNotFound
	}
	return svc.repo.GetEvent(ctx, id)
}

// UpdateDate changes the event date and recomputes its status.
func (svc *Service) UpdateDate(ctx context.Context, id string, ud UpdateDate) (Event, error) {
	e, err := svc.Get(ctx, id)
	if err != nil {
		return Event{}, err
	}
	e.Date = ud.Date
	e.Status = StatusFor(ud.Date)
	e.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateEvent(ctx, e)
}

// Delete removes the event then its stored files.
func (svc *Service) Delete(ctx context.Context, id string) (Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Event{}, ErrNotFound
	}
	e, err := svc.repo.DeleteEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	svc.removeOwnFiles(ctx, e)
	return e, nil
}

// Listing

func (svc *Service) ListAll(ctx context.Context) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, QueryFilter{})
}

func (svc *Service) ListByClub(ctx context.Context, club string) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, QueryFilter{Club: core.CleanString(club)})
}

func (svc *Service) ListByType(ctx context.Context, clubType string) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, QueryFilter{ClubType: core.CleanString(clubType)})
}

// ListUpcoming returns events dated today or later, soonest first.
func (svc *Service) ListUpcoming(ctx context.Context, clubType string) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, QueryFilter{ClubType: core.CleanString(clubType), DateFrom: Today()})
}

// ListPast returns events dated before today, latest first.
func (svc *Service) ListPast(ctx context.Context, clubType string) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, QueryFilter{
		ClubType:   core.CleanString(clubType),
		DateBefore: Today(),
		Descending: true,
	})
}

// Registration & participation

func (svc *Service) Register(ctx context.Context, id string, r Registration) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return svc.repo.AddRegistration(ctx, id, r.Email)
}

func (svc *Service) RemoveRegistration(ctx context.Context, id string, r Registration) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return svc.repo.RemoveRegistration(ctx, id, r.Email)
}

// SetParticipation marks (or unmarks) a registered email as having participated,
// mirroring the change in the account's participation history.
func (svc *Service) SetParticipation(ctx context.Context, id string, pu ParticipationUpdate) (ParticipationResult, error) {
	e, err := svc.Get(ctx, id)
	if err != nil {
		return ParticipationResult{}, err
	}
	label := pu.Label
	if label == "" {
		label = e.Label()
	}

	participated := pu.Participated != nil && *pu.Participated
	mark, revert := svc.repo.AddParticipation, svc.repo.RemoveParticipation
	record := svc.participants.AddParticipation
	if !participated {
		mark, revert = revert, mark
		record = svc.participants.RemoveParticipation
	}
	if err := mark(ctx, id, pu.Email); err != nil {
		return ParticipationResult{}, err
	}
	role, err := record(ctx, pu.Email, label)
	if err != nil {
		// the event side only changed when the previous state differed
		if e.HasParticipated(pu.Email) != participated {
			if rerr := revert(ctx, id, pu.Email); rerr != nil {
				svc.logger.Error(fmt.Sprintf("reverting participation of %s in %q: %v", pu.Email, label, rerr), rerr)
			}
		}
		return ParticipationResult{}, err
	}

	res := ParticipationResult{UserFound: "none"}
	if role != "" {
		res.UserFound = string(role)
	} else {
		svc.logger.Warn(fmt.Sprintf("participation of %s in %q: no member or lead account", pu.Email, label))
	}
	if res.Event, err = svc.repo.GetEvent(ctx, id); err != nil {
		return ParticipationResult{}, err
	}
	return res, nil
}

// RegisteredProfiles lists the accounts registered to the event with their participation status.
func (svc *Service) RegisteredProfiles(ctx context.Context, id string) ([]Participant, error) {
	e, err := svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	accounts, err := svc.participants.RegisteredProfiles(ctx, e.RegisteredEmails)
	if err != nil {
		return nil, err
	}

	label := e.Label()
	profiles := make([]Participant, 0, len(accounts))
	for _, acc := range accounts {
		acc.Normalize()
		p := Participant{
			Name:               acc.Name,
			Email:              acc.Email,
			CollegeID:          acc.CollegeID,
			MobileNumber:       acc.MobileNumber,
			ImageURL:           acc.ImageURL,
			ParticipatedEvents: acc.ParticipatedEvents,
		}
		if core.ContainsString(acc.ParticipatedEvents, label) || e.HasParticipated(acc.Email) {
			p.ParticipationStatus = "participated"
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Documents

// AttachDocument links an externally hosted document to the event, removing the previous stored one.
func (svc *Service) AttachDocument(ctx context.Context, id string, ad AttachDocument) (Event, error) {
	if _, stored := svc.files.KeyOf(ad.DocumentURL); stored {
		return Event{}, errStoredDocumentURL
	}
	return svc.attachDocument(ctx, id, ad.DocumentURL)
}

// UploadDocument stores a document (image or PDF) and attaches it to the event.
func (svc *Service) UploadDocument(ctx context.Context, id string, up *core.Upload) (Event, error) {
	if err := up.Check("document", svc.maxUpload, core.DocumentTypes...); err != nil {
		return Event{}, err
	}
	if _, err := svc.Get(ctx, id); err != nil {
		return Event{}, err
	}
	url, err := svc.files.SaveFile(ctx, core.FileKey(documentsDir, id+"-", up), up)
	if err != nil {
		return Event{}, errors.Wrap(err, "saving document")
	}
	e, err := svc.attachDocument(ctx, id, url)
	if err != nil {
		svc.removeFiles(ctx, url)
		return Event{}, err
	}
	return e, nil
}

func (svc *Service) attachDocument(ctx context.Context, id, url string) (Event, error) {
	e, err := svc.Get(ctx, id)
	if err != nil {
		return Event{}, err
	}
	prev := e.DocumentURL
	e.DocumentURL = url
	e.UpdatedAt = NowFunc().UTC()
	if e, err = svc.repo.UpdateEvent(ctx, e); err != nil {
		return Event{}, err
	}
	if prev != url && core.StoredWithPrefix(svc.files, prev, ownKeyPrefix(documentsDir, id)) {
		svc.removeFiles(ctx, prev)
	}
	return e, nil
}

// UploadImage replaces the poster of the event.
func (svc *Service) UploadImage(ctx context.Context, id string, up *core.Upload) (Event, error) {
	if err := up.Check("image", svc.maxUpload, core.ImageTypes...); err != nil {
		return Event{}, err
	}
	e, err := svc.Get(ctx, id)
	if err != nil {
		return Event{}, err
	}
	url, err := svc.files.SaveFile(ctx, core.FileKey(imagesDir, id+"-", up), up)
	if err != nil {
		return Event{}, errors.Wrap(err, "saving event image")
	}

	prev := e.ImageURL
	e.ImageURL = url
	e.UpdatedAt = NowFunc().UTC()
	if e, err = svc.repo.UpdateEvent(ctx, e); err != nil {
		svc.removeFiles(ctx, url)
		return Event{}, err
	}
	if core.StoredWithPrefix(svc.files, prev, ownKeyPrefix(imagesDir, id)) {
		svc.removeFiles(ctx, prev)
	}
	return e, nil
}

// ownKeyPrefix is the key prefix of the files the event id stores in dir.
func ownKeyPrefix(dir, id string) string {
	return dir + "/" + id + "-"
}

// removeOwnFiles deletes the files e stored itself.
func (svc *Service) removeOwnFiles(ctx context.Context, e Event) {
	for _, f := range []struct{ url, dir string }{
		{e.ImageURL, imagesDir},
		{e.PaymentQRURL, paymentQRDir},
		{e.DocumentURL, documentsDir},
	} {
		if core.StoredWithPrefix(svc.files, f.url, ownKeyPrefix(f.dir, e.ID)) {
			svc.removeFiles(ctx, f.url)
		}
	}
}

func (svc *Service) removeFiles(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := svc.files.DeleteFile(ctx, url); err != nil {
			svc.logger.Warn(fmt.Sprintf("removing file %s: %v", url, err), err)
		}
	}
}
