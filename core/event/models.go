package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gvpclubconnect/clubconnect/core"
)

// Statuses
const (
	StatusUpcoming = "upcoming"
	StatusPast     = "past"
)

// Event is a club event. Dates are ISO (YYYY-MM-DD) strings.
type Event struct {
	ID                 string    `json:"id" bson:"_id"`
	Name               string    `json:"eventname" bson:"eventname"`
	ClubType           string    `json:"clubtype" bson:"clubtype"`
	Club               string    `json:"club" bson:"club"`
	Date               string    `json:"date" bson:"date"`
	Description        string    `json:"description" bson:"description"`
	Status             string    `json:"type" bson:"type"`
	ImageURL           string    `json:"image,omitempty" bson:"image,omitempty"`
	DocumentURL        string    `json:"documentUrl,omitempty" bson:"documentUrl,omitempty"`
	PaymentRequired    bool      `json:"paymentRequired" bson:"paymentRequired"`
	PaymentLink        string    `json:"paymentLink,omitempty" bson:"paymentLink,omitempty"`
	PaymentQRURL       string    `json:"paymentQR,omitempty" bson:"paymentQR,omitempty"`
	RegisteredEmails   []string  `json:"registeredEmails" bson:"registeredEmails"`
	ParticipatedEmails []string  `json:"participatedEmails" bson:"participatedEmails"`
	CreatedAt          time.Time `json:"createdAt" bson:"createdAt"` // UTC
	UpdatedAt          time.Time `json:"updatedAt" bson:"updatedAt"` // UTC
}

// Label is the participation history key of the event: "<eventname>-<club>".
func (e Event) Label() string {
	return e.Name + "-" + e.Club
}

func (e Event) IsRegistered(email string) bool {
	return core.ContainsString(e.RegisteredEmails, email)
}

func (e Event) HasParticipated(email string) bool {
	return core.ContainsString(e.ParticipatedEmails, email)
}

// NewEvent contains information needed to create an Event. It is bound from multipart forms.
type NewEvent struct {
	Name            string `json:"eventname" form:"eventname" validate:"required,notblank"`
	ClubType        string `json:"clubtype" form:"clubtype" validate:"required,clubtype"`
	Club            string `json:"club" form:"club" validate:"required,notblank"`
	Date            string `json:"date" form:"date" validate:"required,isodate"`
	Description     string `json:"description" form:"description" validate:"required,notblank"`
	PaymentRequired bool   `json:"paymentRequired" form:"paymentRequired"`
	PaymentLink     string `json:"paymentLink" form:"paymentLink" validate:"omitempty,url"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	ne.ClubType = core.CleanString(ne.ClubType)
	ne.Club = core.CleanString(ne.Club)
	ne.Date = core.CleanString(ne.Date)
	ne.Description = core.CleanString(ne.Description)
	ne.PaymentLink = core.CleanString(ne.PaymentLink)
	return validate.Struct(ne)
}

// Uploads are the optional files sent along a NewEvent.
type Uploads struct {
	Image     *core.Upload
	PaymentQR *core.Upload
}

type UpdateDate struct {
	Date string `json:"date" validate:"required,isodate"`
}

func (ud *UpdateDate) Validate(validate *validator.Validate) error {
	ud.Date = core.CleanString(ud.Date)
	return validate.Struct(ud)
}

type Registration struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *Registration) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

type ParticipationUpdate struct {
	Email        string `json:"userEmail" validate:"required,email"`
	Participated *bool  `json:"participated" validate:"required"`
	Label        string `json:"eventDetails"`
}

func (pu *ParticipationUpdate) Validate(validate *validator.Validate) error {
	pu.Email = core.CleanString(pu.Email, true /* lower */)
	pu.Label = core.CleanString(pu.Label)
	return validate.Struct(pu)
}

// ParticipationResult reports which account kind received the history update: member, lead or none.
type ParticipationResult struct {
	Event     Event  `json:"-"`
	UserFound string `json:"userFound"`
}

// Participant is the projection of a registered account shown to event managers.
type Participant struct {
	Name                string   `json:"name"`
	Email               string   `json:"email"`
	CollegeID           string   `json:"collegeId,omitempty"`
	MobileNumber        string   `json:"mobileNumber,omitempty"`
	ImageURL            string   `json:"imageUrl,omitempty"`
	ParticipatedEvents  []string `json:"participatedEvents"`
	ParticipationStatus string   `json:"participationStatus,omitempty"`
}

// QueryFilter applies AND on the non-empty fields.
type QueryFilter struct {
	Club     string
	ClubType string
	// DateFrom keeps events with date >= DateFrom.
	DateFrom string
	// DateBefore keeps events with date < DateBefore.
	DateBefore string
	Descending bool
}

// AttachDocument links an already hosted document to an event.
type AttachDocument struct {
	DocumentURL string `json:"documentUrl" validate:"required,url"`
}

func (ad *AttachDocument) Validate(validate *validator.Validate) error {
	ad.DocumentURL = core.CleanString(ad.DocumentURL)
	return validate.Struct(ad)
}
