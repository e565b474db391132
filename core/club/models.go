package club

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
)

// Club types
const (
	TypeCultural  = "Cultural"
	TypeTechnical = "Technical"
	TypeSocial    = "Social"
	TypeSports    = "Sports"
	TypeOther     = "Other"
)

var Types = []string{TypeCultural, TypeTechnical, TypeSocial, TypeSports, TypeOther}

// Label is a free-form name/value pair shown on the club page.
type Label struct {
	Name  string `json:"name" bson:"name" validate:"required,notblank"`
	Value string `json:"value" bson:"value"`
}

type Club struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Type        string    `json:"type" bson:"type"`
	LogoURL     string    `json:"logo" bson:"logo"`
	Description string    `json:"description" bson:"description"`
	Labels      []Label   `json:"labels" bson:"labels"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"` // UTC
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"` // UTC
}

// NewClub contains information needed to create a Club.
type NewClub struct {
	Name        string `json:"name" validate:"required,notblank"`
	Type        string `json:"type" validate:"required,clubtype"`
	Description string `json:"description"`
}

func (nc *NewClub) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Type = core.CleanString(nc.Type)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateClub updates the provided fields of a Club, creating it when missing.
type UpdateClub struct {
	Name        string   `json:"clubName" validate:"required,notblank"`
	Type        string   `json:"type" validate:"omitempty,clubtype"`
	LogoURL     *string  `json:"logo" validate:"omitempty,url"`
	Description *string  `json:"description"`
	Labels      *[]Label `json:"labels" validate:"omitempty,dive"`
}

func (uc *UpdateClub) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Type = core.CleanString(uc.Type)
	if uc.Description != nil {
		desc := core.CleanString(*uc.Description)
		uc.Description = &desc
	}
	return validate.Struct(uc)
}

// JoinRequest is a faculty request to follow a club, approved by an admin.
type JoinRequest struct {
	Email string       `json:"email" validate:"required,email"`
	Role  account.Role `json:"role" validate:"required,role"`
	Club  string       `json:"selectedClub" validate:"required,notblank"`
}

func (jr *JoinRequest) Validate(validate *validator.Validate) error {
	jr.Email = core.CleanString(jr.Email, true /* lower */)
	jr.Role = account.Role(core.CleanString(string(jr.Role), true /* lower */))
	jr.Club = core.CleanString(jr.Club)
	return validate.Struct(jr)
}

// JoinResolution is the outcome of an admin decision on a JoinRequest.
type JoinResolution struct {
	Email    string `json:"email"`
	Club     string `json:"club"`
	Approved bool   `json:"approved"`
}
