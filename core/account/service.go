package account

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/otp"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound          = core.NewNotFoundError("account not found")
	ErrAccountExists     = core.NewConflictError("an account with this email already exists for this role")
	ErrInvalidPassword   = core.NewUnauthorizedError("Invalid password")
	ErrLeadClubPending   = core.NewUnauthorizedError("club lead access is pending admin approval")
	ErrClubNotFound      = core.NewNotFoundError("club not found")
	ErrNotClubMember     = core.NewNotFoundError("account is not associated with this club")
	errLeadAlreadyExists = core.NewConflictError("a lead with this email already exists")
	errMemberExists      = core.NewConflictError("a member with this email already exists")
	errStoredImageURL    = core.NewValidationError(nil, core.FieldError{Field: "imageUrl", Error: "stored images can only be set by uploading them"})
)

type (
	Repository interface {
		// CreateAccount returns ErrAccountExists when (email, role) is taken.
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccount(ctx context.Context, email string, role Role) (Account, error)
		// QueryAccounts applies AND on the non-empty QueryFilter fields. Results are sorted by name.
		QueryAccounts(ctx context.Context, filter QueryFilter) ([]Account, error)
		// UpdateAccount replaces the account matching acc.ID.
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
		// AddToSet atomically adds val to the field of the (email, role) account.
		// It reports whether an account matched.
		AddToSet(ctx context.Context, email string, role Role, field SetField, val string) (bool, error)
		// RemoveFromSet atomically removes val from the field of the (email, role) account.
		RemoveFromSet(ctx context.Context, email string, role Role, field SetField, val string) (bool, error)
		DeleteAccount(ctx context.Context, email string, role Role) (Account, error)
	}

	// ClubDirectory tells whether a club is known.
	ClubDirectory interface {
		ClubExists(ctx context.Context, name string) (bool, error)
	}

	Service struct {
		repo     Repository
		clubs    ClubDirectory
		otps     *otp.Manager
		notifier core.Notifier
		files    core.FileStorage
		logger   core.Logger
		maxImage int64
	}
)

func NewService(
	repo Repository,
	clubs ClubDirectory,
	otps *otp.Manager,
	notifier core.Notifier,
	files core.FileStorage,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		clubs:    clubs,
		otps:     otps,
		notifier: notifier,
		files:    files,
		logger:   logger,
		maxImage: conf.Server.MaxUploadSize,
	}
}

// Login authenticates the account of the given role.
// A lead must name the club they log in for; unknown clubs are recorded as pending for admin approval.
func (svc *Service) Login(ctx context.Context, lc LoginCredentials) (Account, error) {
	acc, err := svc.repo.GetAccount(ctx, lc.Email, lc.Role)
	if err != nil {
		return Account{}, err
	}
	if err := acc.CheckPassword(lc.Password); err != nil {
		return Account{}, ErrInvalidPassword
	}

	if acc.Role == RoleLead && !acc.LeadsClub(lc.Club) {
		if _, err := svc.repo.AddToSet(ctx, acc.Email, acc.Role, PendingClubs, lc.Club); err != nil {
			return Account{}, errors.Wrap(err, "recording pending club")
		}
		svc.logger.Warn(fmt.Sprintf("lead %s requested access to club %q", acc.Email, lc.Club))
		return Account{}, ErrLeadClubPending
	}
	return acc, nil
}

func (svc *Service) Get(ctx context.Context, email string, role Role) (Account, error) {
	return svc.repo.GetAccount(ctx, core.CleanString(email, true /* lower */), role)
}

// ClubsOf returns the clubs selected by a faculty account.
func (svc *Service) ClubsOf(ctx context.Context, email string) ([]string, error) {
	acc, err := svc.Get(ctx, email, RoleFaculty)
	if err != nil {
		return nil, err
	}
	return acc.SelectedClubs, nil
}

func (svc *Service) List(ctx context.Context, role Role) ([]Account, error) {
	return svc.repo.QueryAccounts(ctx, QueryFilter{Roles: []Role{role}})
}

// Admins returns every admin account.
func (svc *Service) Admins(ctx context.Context) ([]Account, error) {
	return svc.List(ctx, RoleAdmin)
}

// FacultyFollowing returns faculty accounts that selected club.
func (svc *Service) FacultyFollowing(ctx context.Context, club string) ([]Account, error) {
	return svc.repo.QueryAccounts(ctx, QueryFilter{Roles: []Role{RoleFaculty}, Club: club})
}

// Signup

// SendSignupOTP issues a signup OTP for email and mails it.
func (svc *Service) SendSignupOTP(ctx context.Context, email string) error {
	return svc.sendOTP(ctx, otp.PurposeSignup, email, "", "Your signup OTP")
}

// Signup verifies the OTP then creates the account.
func (svc *Service) Signup(ctx context.Context, na NewAccount) (Account, error) {
	if _, err := svc.repo.GetAccount(ctx, na.Email, na.Role); err == nil {
		return Account{}, ErrAccountExists
	} else if errors.Cause(err) != ErrNotFound {
		return Account{}, errors.Wrap(err, "checking account")
	}

	if err := svc.otps.Verify(ctx, otp.PurposeSignup, na.Email, na.OTP); err != nil {
		return Account{}, err
	}

	now := NowFunc().UTC()
	acc := Account{
		Name:         na.Name,
		Email:        na.Email,
		Role:         na.Role,
		CollegeID:    na.CollegeID,
		MobileNumber: na.MobileNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if na.Role == RoleLead && na.Club != "" {
		acc.PendingClubs = []string{na.Club}
	}
	acc.Normalize()
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateAccount(ctx, acc)
}

// Profile

func (svc *Service) UpdateProfile(ctx context.Context, up UpdateProfile) (Account, error) {
	acc, err := svc.repo.GetAccount(ctx, up.Email, up.Role)
	if err != nil {
		return Account{}, err
	}
	if up.Name != "" {
		acc.Name = up.Name
	}
	if up.ImageURL != "" && up.ImageURL != acc.ImageURL {
		if _, stored := svc.files.KeyOf(up.ImageURL); stored {
			return Account{}, errStoredImageURL
		}
		acc.ImageURL = up.ImageURL
	}
	if up.Location != "" {
		acc.Location = up.Location
	}
	acc.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateAccount(ctx, acc)
}

// UploadProfileImage stores an image and makes it the account's profile image.
func (svc *Service) UploadProfileImage(ctx context.Context, ref AccountRef, up *core.Upload) (Account, error) {
	if err := up.Check("file", svc.maxImage, core.ImageTypes...); err != nil {
		return Account{}, err
	}
	acc, err := svc.repo.GetAccount(ctx, ref.Email, ref.Role)
	if err != nil {
		return Account{}, err
	}

	url, err := svc.files.SaveFile(ctx, core.FileKey(profileDir(acc.Email), "profile-", up), up)
	if err != nil {
		return Account{}, errors.Wrap(err, "saving profile image")
	}

	email, prev := acc.Email, acc.ImageURL
	acc.ImageURL = url
	acc.UpdatedAt = NowFunc().UTC()
	if acc, err = svc.repo.UpdateAccount(ctx, acc); err != nil {
		svc.removeImage(ctx, email, url)
		return Account{}, err
	}
	svc.removeImage(ctx, email, prev)
	return acc, nil
}

// Account deletion

func (svc *Service) RequestDeletionOTP(ctx context.Context, ref AccountRef) error {
	acc, err := svc.repo.GetAccount(ctx, ref.Email, ref.Role)
	if err != nil {
		return err
	}
	return svc.sendOTP(ctx, otp.PurposeAccountDeletion, acc.Email, acc.Name, "Account deletion OTP")
}

// DeleteWithOTP removes the account once the deletion OTP is verified.
func (svc *Service) DeleteWithOTP(ctx context.Context, c ConfirmWithOTP) error {
	if _, err := svc.repo.GetAccount(ctx, c.Email, c.Role); err != nil {
		return err
	}
	if err := svc.otps.Verify(ctx, otp.PurposeAccountDeletion, c.Email, c.OTP); err != nil {
		return err
	}
	return svc.Delete(ctx, c.Email, c.Role)
}

// Delete removes the account and its profile image.
func (svc *Service) Delete(ctx context.Context, email string, role Role) error {
	acc, err := svc.repo.DeleteAccount(ctx, email, role)
	if err != nil {
		return err
	}
	svc.removeImage(ctx, acc.Email, acc.ImageURL)
	return nil
}

// Password reset

func (svc *Service) RequestPasswordReset(ctx context.Context, ref AccountRef) error {
	acc, err := svc.repo.GetAccount(ctx, ref.Email, ref.Role)
	if err != nil {
		return err
	}
	return svc.sendOTP(ctx, otp.PurposePasswordReset, acc.Email, acc.Name, "Password reset OTP")
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	acc, err := svc.repo.GetAccount(ctx, rp.Email, rp.Role)
	if err != nil {
		return err
	}
	if err := svc.otps.Verify(ctx, otp.PurposePasswordReset, rp.Email, rp.OTP); err != nil {
		return err
	}
	if err := acc.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	acc.UpdatedAt = NowFunc().UTC()
	_, err = svc.repo.UpdateAccount(ctx, acc)
	return err
}

// Roles & clubs administration

// Promote turns a member into the lead of club.
func (svc *Service) Promote(ctx context.Context, ca ClubAssignment) (Account, error) {
	if err := svc.checkClub(ctx, ca.Club); err != nil {
		return Account{}, err
	}
	acc, err := svc.repo.GetAccount(ctx, ca.Email, RoleMember)
	if err != nil {
		return Account{}, err
	}
	if _, err := svc.repo.GetAccount(ctx, ca.Email, RoleLead); err == nil {
		return Account{}, errLeadAlreadyExists
	} else if errors.Cause(err) != ErrNotFound {
		return Account{}, errors.Wrap(err, "checking lead")
	}

	acc.Role = RoleLead
	acc.SelectedClubs = []string{ca.Club}
	acc.PendingClubs = []string{}
	acc.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateAccount(ctx, acc)
}

// Demote turns a lead back into a member, dropping their club association.
func (svc *Service) Demote(ctx context.Context, email string) (Account, error) {
	email = core.CleanString(email, true /* lower */)
	acc, err := svc.repo.GetAccount(ctx, email, RoleLead)
	if err != nil {
		return Account{}, err
	}
	if _, err := svc.repo.GetAccount(ctx, email, RoleMember); err == nil {
		return Account{}, errMemberExists
	} else if errors.Cause(err) != ErrNotFound {
		return Account{}, errors.Wrap(err, "checking member")
	}

	acc.Role = RoleMember
	acc.SelectedClubs = []string{}
	acc.PendingClubs = []string{}
	acc.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateAccount(ctx, acc)
}

// ApproveLeadClub grants a lead authority over club.
func (svc *Service) ApproveLeadClub(ctx context.Context, ca ClubAssignment) (Account, error) {
	if err := svc.checkClub(ctx, ca.Club); err != nil {
		return Account{}, err
	}
	acc, err := svc.repo.GetAccount(ctx, ca.Email, RoleLead)
	if err != nil {
		return Account{}, err
	}
	pending := make([]string, 0, len(acc.PendingClubs))
	for _, c := range acc.PendingClubs {
		if c != ca.Club {
			pending = append(pending, c)
		}
	}
	acc.SelectedClubs = []string{ca.Club}
	acc.PendingClubs = pending
	acc.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateAccount(ctx, acc)
}

// RemoveClub removes club from a faculty's selected clubs.
func (svc *Service) RemoveClub(ctx context.Context, ca ClubAssignment) error {
	acc, err := svc.repo.GetAccount(ctx, ca.Email, RoleFaculty)
	if err != nil {
		return err
	}
	if !core.ContainsString(acc.SelectedClubs, ca.Club) {
		return ErrNotClubMember
	}
	if _, err := svc.repo.RemoveFromSet(ctx, acc.Email, acc.Role, SelectedClubs, ca.Club); err != nil {
		return errors.Wrap(err, "removing club")
	}
	return nil
}

// Participation history

// AddParticipation adds label to the history of the member, or else the lead, with that email.
// It returns the matched role, or "" when no account matched.
func (svc *Service) AddParticipation(ctx context.Context, email, label string) (Role, error) {
	return svc.updateParticipation(ctx, email, label, svc.repo.AddToSet)
}

// RemoveParticipation reverses AddParticipation.
func (svc *Service) RemoveParticipation(ctx context.Context, email, label string) (Role, error) {
	return svc.updateParticipation(ctx, email, label, svc.repo.RemoveFromSet)
}

func (svc *Service) updateParticipation(
	ctx context.Context,
	email, label string,
	update func(context.Context, string, Role, SetField, string) (bool, error),
) (Role, error) {
	for _, role := range []Role{RoleMember, RoleLead} {
		matched, err := update(ctx, email, role, ParticipatedEvents, label)
		if err != nil {
			return "", errors.Wrap(err, "updating participation history")
		}
		if matched {
			return role, nil
		}
	}
	return "", nil
}

// RegisteredProfiles returns the member and lead accounts owning emails, one per email.
// When both a member and a lead match, the lead wins.
func (svc *Service) RegisteredProfiles(ctx context.Context, emails []string) ([]Account, error) {
	if len(emails) == 0 {
		return []Account{}, nil
	}
	members, err := svc.repo.QueryAccounts(ctx, QueryFilter{Roles: []Role{RoleMember}, Emails: emails})
	if err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	leads, err := svc.repo.QueryAccounts(ctx, QueryFilter{Roles: []Role{RoleLead}, Emails: emails})
	if err != nil {
		return nil, errors.Wrap(err, "querying leads")
	}

	byEmail := make(map[string]Account, len(emails))
	for _, acc := range append(members, leads...) {
		byEmail[acc.Email] = acc
	}
	profiles := make([]Account, 0, len(byEmail))
	for _, email := range emails {
		if acc, ok := byEmail[email]; ok {
			profiles = append(profiles, acc)
			delete(byEmail, email)
		}
	}
	return profiles, nil
}

// helpers

func (svc *Service) checkClub(ctx context.Context, club string) error {
	ok, err := svc.clubs.ClubExists(ctx, club)
	if err != nil {
		return errors.Wrap(err, "checking club")
	}
	if !ok {
		return ErrClubNotFound
	}
	return nil
}

func (svc *Service) sendOTP(ctx context.Context, purpose, email, name, subject string) error {
	code, err := svc.otps.Issue(ctx, purpose, email)
	if err != nil {
		return err
	}
	svc.notifier.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: email}},
		Subject:      subject,
		TemplateName: "otp",
		TemplateData: map[string]interface{}{
			"Name":    name,
			"Code":    code,
			"Purpose": subject,
		},
	})
	return nil
}

func profileDir(email string) string {
	return "profiles/" + strings.ReplaceAll(email, "@", "_at_")
}

// removeImage deletes url only when it is a profile image stored for email.
func (svc *Service) removeImage(ctx context.Context, email, url string) {
	if !core.StoredWithPrefix(svc.files, url, profileDir(email)+"/profile-") {
		return
	}
	if err := svc.files.DeleteFile(ctx, url); err != nil {
		svc.logger.Warn(fmt.Sprintf("removing file %s: %v", url, err), err)
	}
}
