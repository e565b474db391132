package account

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/gvpclubconnect/clubconnect/core"
)

type Role string

// Roles
const (
	RoleAdmin   Role = "admin"
	RoleLead    Role = "lead"
	RoleMember  Role = "member"
	RoleFaculty Role = "faculty"
)

// AllRoles in display order.
var AllRoles = []Role{RoleMember, RoleLead, RoleFaculty, RoleAdmin}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleLead, RoleMember, RoleFaculty:
		return true
	}
	return false
}

// SetField names an array field of Account that supports add-to-set / pull updates.
type SetField string

const (
	SelectedClubs      SetField = "selectedClubs"
	PendingClubs       SetField = "pendingClubs"
	ParticipatedEvents SetField = "participatedEvents"
)

// Account is a single user account. Role tags the variant:
//   - admin: no extra fields
//   - lead: SelectedClubs holds the led club, PendingClubs the clubs awaiting admin approval
//   - member: ParticipatedEvents
//   - faculty: SelectedClubs holds the followed clubs
//
// Leads also keep their ParticipatedEvents.
type Account struct {
	ID                 string    `json:"id" bson:"_id"`
	Name               string    `json:"name" bson:"name"`
	Email              string    `json:"email" bson:"email"`
	Role               Role      `json:"role" bson:"role"`
	CollegeID          string    `json:"collegeId,omitempty" bson:"collegeId,omitempty"`
	MobileNumber       string    `json:"mobileNumber,omitempty" bson:"mobileNumber,omitempty"`
	ImageURL           string    `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Location           string    `json:"location,omitempty" bson:"location,omitempty"`
	SelectedClubs      []string  `json:"selectedClubs" bson:"selectedClubs"`
	PendingClubs       []string  `json:"pendingClubs" bson:"pendingClubs"`
	ParticipatedEvents []string  `json:"participatedEvents" bson:"participatedEvents"`
	PasswordHash       []byte    `json:"-" bson:"passwordHash"`
	CreatedAt          time.Time `json:"createdAt" bson:"createdAt"` // UTC
	UpdatedAt          time.Time `json:"updatedAt" bson:"updatedAt"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) IsAdmin() bool { return a.Role == RoleAdmin }

// LeadsClub reports whether the account has lead authority over club.
func (a *Account) LeadsClub(club string) bool {
	return a.Role == RoleLead && core.ContainsString(a.SelectedClubs, club)
}

// Normalize replaces nil sets with empty ones so they can be used by set updates.
func (a *Account) Normalize() {
	if a.SelectedClubs == nil {
		a.SelectedClubs = []string{}
	}
	if a.PendingClubs == nil {
		a.PendingClubs = []string{}
	}
	if a.ParticipatedEvents == nil {
		a.ParticipatedEvents = []string{}
	}
}

// Profile is the public projection returned by the profile endpoint.
type Profile struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	ImageURL string `json:"imageUrl"`
	Location string `json:"location"`
}

func (a Account) Profile() Profile {
	return Profile{
		Name:     a.Name,
		Email:    a.Email,
		Role:     a.Role,
		ImageURL: a.ImageURL,
		Location: a.Location,
	}
}

// LoginCredentials contains information needed to authenticate an Account.
type LoginCredentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     Role   `json:"role" validate:"required,role"`
	Club     string `json:"club" validate:"required_if=Role lead"`
}

func (lc *LoginCredentials) Validate(validate *validator.Validate) error {
	lc.Email = core.CleanString(lc.Email, true /* lower */)
	lc.Role = Role(core.CleanString(string(lc.Role), true /* lower */))
	lc.Club = core.CleanString(lc.Club)
	return validate.Struct(lc)
}

// NewAccount contains information needed to sign up.
type NewAccount struct {
	Name         string   `json:"name" validate:"required,notblank"`
	CollegeID    string   `json:"collegeId"`
	Email        string   `json:"email" validate:"required,email"`
	MobileNumber string   `json:"mobileNumber" validate:"omitempty,min=7,max=15,numeric"`
	Password     string   `json:"password" validate:"required"`
	Role         Role     `json:"role" validate:"required,signuprole"`
	Club         string   `json:"club" validate:"required_if=Role lead"`
	Clubs        []string `json:"clubs" validate:"omitempty,dive,notblank"`
	OTP          string   `json:"otp" validate:"required,len=6,numeric"`
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	na.CollegeID = core.CleanString(na.CollegeID)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.MobileNumber = core.CleanString(na.MobileNumber)
	na.Role = Role(core.CleanString(string(na.Role), true /* lower */))
	na.Club = core.CleanString(na.Club)
	na.OTP = core.CleanString(na.OTP)
	for i, c := range na.Clubs {
		na.Clubs[i] = core.CleanString(c)
	}
	return validate.Struct(na)
}

// UpdateProfile defines what information may be provided to modify an Account profile.
// Empty fields are left untouched.
type UpdateProfile struct {
	Email    string `json:"email" validate:"required,email"`
	Role     Role   `json:"role" validate:"required,role"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
	Location string `json:"location"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Email = core.CleanString(up.Email, true /* lower */)
	up.Role = Role(core.CleanString(string(up.Role), true /* lower */))
	up.Name = core.CleanString(up.Name)
	up.ImageURL = core.CleanString(up.ImageURL)
	up.Location = core.CleanString(up.Location)
	return validate.Struct(up)
}

// AccountRef identifies an account.
type AccountRef struct {
	Email string `json:"email" query:"email" form:"email" validate:"required,email"`
	Role  Role   `json:"role" query:"role" form:"role" validate:"required,role"`
}

func (ref *AccountRef) Validate(validate *validator.Validate) error {
	ref.Email = core.CleanString(ref.Email, true /* lower */)
	ref.Role = Role(core.CleanString(string(ref.Role), true /* lower */))
	return validate.Struct(ref)
}

// ConfirmWithOTP identifies an account and carries the OTP confirming a sensitive operation.
type ConfirmWithOTP struct {
	AccountRef
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

func (c *ConfirmWithOTP) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	c.Role = Role(core.CleanString(string(c.Role), true /* lower */))
	c.OTP = core.CleanString(c.OTP)
	return validate.Struct(c)
}

type ResetPassword struct {
	AccountRef
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required"`
}

func (rp *ResetPassword) Validate(validate *validator.Validate) error {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	rp.Role = Role(core.CleanString(string(rp.Role), true /* lower */))
	rp.OTP = core.CleanString(rp.OTP)
	return validate.Struct(rp)
}

// ClubAssignment is used by admins to promote members or grant / revoke clubs.
type ClubAssignment struct {
	Email string `json:"email" validate:"required,email"`
	Club  string `json:"club" validate:"required,notblank"`
}

func (ca *ClubAssignment) Validate(validate *validator.Validate) error {
	ca.Email = core.CleanString(ca.Email, true /* lower */)
	ca.Club = core.CleanString(ca.Club)
	return validate.Struct(ca)
}

type QueryFilter struct {
	Roles  []Role
	Emails []string
	// Club matches accounts whose SelectedClubs contain it.
	Club string
}
