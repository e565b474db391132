package club

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
)

const (
	// JoinRequestNamespace is the token store namespace of pending join requests.
	JoinRequestNamespace = "club-join"

	logoDir = "clublogo"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound            = core.NewNotFoundError("club not found")
	ErrClubExists          = core.NewConflictError("a club with this name already exists")
	ErrAlreadySelected     = core.NewConflictError("club already selected")
	ErrJoinRequestNotFound = core.NewNotFoundError("invalid or expired approval link")
	ErrFacultyOnly         = core.NewValidationError(nil, core.FieldError{Field: "role", Error: "only faculty can select clubs"})
	errStoredLogoURL       = core.NewValidationError(nil, core.FieldError{Field: "logo", Error: "stored logos can only be set by uploading them"})
)

type (
	Repository interface {
		// CreateClub returns ErrClubExists when the name is taken.
		CreateClub(ctx context.Context, c Club) (Club, error)
		GetClub(ctx context.Context, name string) (Club, error)
		// QueryClubs returns every club sorted by name.
		QueryClubs(ctx context.Context) ([]Club, error)
		// UpdateClub replaces the club matching c.Name.
		UpdateClub(ctx context.Context, c Club) (Club, error)
	}

	Service struct {
		repo      Repository
		accounts  account.Repository
		tokens    core.TokenStore
		notifier  core.Notifier
		files     core.FileStorage
		logger    core.Logger
		baseURL   string
		approvals core.ApprovalsConfig
		maxImage  int64
	}

	joinToken struct {
		Email string       `json:"email"`
		Role  account.Role `json:"role"`
		Club  string       `json:"club"`
	}
)

func NewService(
	repo Repository,
	accounts account.Repository,
	tokens core.TokenStore,
	notifier core.Notifier,
	files core.FileStorage,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:      repo,
		accounts:  accounts,
		tokens:    tokens,
		notifier:  notifier,
		files:     files,
		logger:    logger,
		baseURL:   conf.PublicBaseURL,
		approvals: conf.Approvals,
		maxImage:  conf.Server.MaxUploadSize,
	}
}

func (svc *Service) Init(ctx context.Context, nc NewClub) (Club, error) {
	now := NowFunc().UTC()
	return svc.repo.CreateClub(ctx, Club{
		Name:        nc.Name,
		Type:        nc.Type,
		Description: nc.Description,
		Labels:      []Label{},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Get(ctx context.Context, name string) (Club, error) {
	return svc.repo.GetClub(ctx, core.CleanString(name))
}

func (svc *Service) List(ctx context.Context) ([]Club, error) {
	return svc.repo.QueryClubs(ctx)
}

// ClubExists implements account.ClubDirectory.
func (svc *Service) ClubExists(ctx context.Context, name string) (bool, error) {
	if _, err := svc.repo.GetClub(ctx, name); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Upsert updates the provided fields of the club, or creates it (type defaults to Cultural).
// It reports whether the club was created.
func (svc *Service) Upsert(ctx context.Context, uc UpdateClub) (Club, bool, error) {
	c, err := svc.repo.GetClub(ctx, uc.Name)
	created := false
	switch errors.Cause(err) {
	case nil:
	case ErrNotFound:
		created = true
		c = Club{
			Name:      uc.Name,
			Type:      TypeCultural,
			Labels:    []Label{},
			CreatedAt: NowFunc().UTC(),
		}
	default:
		return Club{}, false, err
	}

	if uc.Type != "" {
		c.Type = uc.Type
	}
	if uc.LogoURL != nil && *uc.LogoURL != c.LogoURL {
		if _, stored := svc.files.KeyOf(*uc.LogoURL); stored {
			return Club{}, false, errStoredLogoURL
		}
		c.LogoURL = *uc.LogoURL
	}
	if uc.Description != nil {
		c.Description = *uc.Description
	}
	if uc.Labels != nil {
		c.Labels = append([]Label{}, *uc.Labels...)
	}
	c.UpdatedAt = NowFunc().UTC()

	if created {
		c, err = svc.repo.CreateClub(ctx, c)
	} else {
		c, err = svc.repo.UpdateClub(ctx, c)
	}
	return c, created, err
}

// SetLogo stores an uploaded image and makes it the club logo.
func (svc *Service) SetLogo(ctx context.Context, name string, up *core.Upload) (Club, error) {
	if err := up.Check("logo", svc.maxImage, core.ImageTypes...); err != nil {
		return Club{}, err
	}
	c, err := svc.repo.GetClub(ctx, core.CleanString(name))
	if err != nil {
		return Club{}, err
	}

	url, err := svc.files.SaveFile(ctx, core.FileKey(logoDir, c.ID+"-", up), up)
	if err != nil {
		return Club{}, errors.Wrap(err, "saving logo")
	}
	id, prev := c.ID, c.LogoURL
	c.LogoURL = url
	c.UpdatedAt = NowFunc().UTC()
	if c, err = svc.repo.UpdateClub(ctx, c); err != nil {
		svc.removeLogo(ctx, id, url)
		return Club{}, err
	}
	svc.removeLogo(ctx, id, prev)
	return c, nil
}

// removeLogo deletes url when it is a logo stored for the club id.
func (svc *Service) removeLogo(ctx context.Context, id, url string) {
	if !core.StoredWithPrefix(svc.files, url, logoDir+"/"+id+"-") {
		return
	}
	if err := svc.files.DeleteFile(ctx, url); err != nil {
		svc.logger.Warn(fmt.Sprintf("removing logo %s: %v", url, err), err)
	}
}

// Join workflow

// RequestJoin records a pending join request and mails every admin an approve / reject link.
// It returns the number of admins notified.
func (svc *Service) RequestJoin(ctx context.Context, jr JoinRequest) (int, error) {
	if jr.Role != account.RoleFaculty {
		return 0, ErrFacultyOnly
	}
	acc, err := svc.accounts.GetAccount(ctx, jr.Email, jr.Role)
	if err != nil {
		return 0, err
	}
	if core.ContainsString(acc.SelectedClubs, jr.Club) {
		return 0, ErrAlreadySelected
	}
	if _, err := svc.repo.GetClub(ctx, jr.Club); err != nil {
		return 0, err
	}

	key, err := core.RandomHex(32)
	if err != nil {
		return 0, errors.Wrap(err, "generating approval token")
	}
	val, err := json.Marshal(joinToken{Email: acc.Email, Role: acc.Role, Club: jr.Club})
	if err != nil {
		return 0, errors.Wrap(err, "encoding approval token")
	}
	tok := core.Token{Namespace: JoinRequestNamespace, Key: key, Value: val, CreatedAt: NowFunc().UTC()}
	if err := svc.tokens.PutToken(ctx, tok); err != nil {
		return 0, errors.Wrap(err, "storing approval token")
	}

	admins, err := svc.accounts.QueryAccounts(ctx, account.QueryFilter{Roles: []account.Role{account.RoleAdmin}})
	if err != nil {
		return 0, errors.Wrap(err, "querying admins")
	}
	if len(admins) == 0 {
		svc.logger.Warn(fmt.Sprintf("join request of %s for %q: no admin to notify", acc.Email, jr.Club))
		return 0, nil
	}

	msgs := make([]*core.EmailMessage, 0, len(admins))
	for _, admin := range admins {
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: admin.Name, Address: admin.Email}},
			Subject:      "Club selection approval required",
			TemplateName: "join_request",
			TemplateData: map[string]interface{}{
				"Faculty":    acc.Name,
				"Email":      acc.Email,
				"Club":       jr.Club,
				"ApproveURL": svc.approvalURL(key, true),
				"RejectURL":  svc.approvalURL(key, false),
			},
		})
	}
	svc.notifier.SendMessages(msgs...)
	return len(admins), nil
}

// ResolveJoin consumes the approval token and applies the admin decision.
func (svc *Service) ResolveJoin(ctx context.Context, key string, approved bool) (JoinResolution, error) {
	tok, err := svc.tokens.TakeToken(ctx, JoinRequestNamespace, key)
	if err != nil {
		if errors.Cause(err) == core.ErrTokenNotFound {
			return JoinResolution{}, ErrJoinRequestNotFound
		}
		return JoinResolution{}, errors.Wrap(err, "taking approval token")
	}
	if NowFunc().UTC().Sub(tok.CreatedAt) > svc.approvals.TTL {
		return JoinResolution{}, ErrJoinRequestNotFound
	}

	var jt joinToken
	if err := json.Unmarshal(tok.Value, &jt); err != nil {
		return JoinResolution{}, errors.Wrap(err, "decoding approval token")
	}

	acc, err := svc.accounts.GetAccount(ctx, jt.Email, jt.Role)
	if err != nil {
		return JoinResolution{}, err
	}
	if approved {
		if _, err := svc.accounts.AddToSet(ctx, jt.Email, jt.Role, account.SelectedClubs, jt.Club); err != nil {
			return JoinResolution{}, errors.Wrap(err, "adding selected club")
		}
	}

	tmpl, subject := "join_rejected", "Club selection rejected"
	if approved {
		tmpl, subject = "join_approved", "Club selection approved"
	}
	svc.notifier.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acc.Name, Address: acc.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: map[string]interface{}{
			"Name": acc.Name,
			"Club": jt.Club,
		},
	})
	return JoinResolution{Email: jt.Email, Club: jt.Club, Approved: approved}, nil
}

// SelectedClubs returns the selected and pending clubs of an account.
func (svc *Service) SelectedClubs(ctx context.Context, email string, role account.Role) ([]string, []string, error) {
	acc, err := svc.accounts.GetAccount(ctx, core.CleanString(email, true /* lower */), role)
	if err != nil {
		return nil, nil, err
	}
	acc.Normalize()
	return acc.SelectedClubs, acc.PendingClubs, nil
}

// SweepJoinRequests removes join requests older than the approval TTL.
func (svc *Service) SweepJoinRequests(ctx context.Context) (int64, error) {
	before := NowFunc().UTC().Add(-svc.approvals.TTL)
	n, err := svc.tokens.DeleteTokensBefore(ctx, JoinRequestNamespace, before)
	if err != nil {
		return 0, errors.Wrap(err, "sweeping join requests")
	}
	return n, nil
}

// RunSweeper calls SweepJoinRequests every approvals.SweepInterval until ctx is done.
func (svc *Service) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(svc.approvals.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.SweepJoinRequests(ctx)
			if err != nil {
				svc.logger.Error(err.Error(), err)
				continue
			}
			if n > 0 {
				svc.logger.Info(fmt.Sprintf("swept %d expired join requests", n))
			}
		}
	}
}

func (svc *Service) approvalURL(key string, approved bool) string {
	return fmt.Sprintf("%s/api/club-selection/approve/%s/%t", svc.baseURL, key, approved)
}
