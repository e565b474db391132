// Package testutil builds in-memory application environments for tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"

	"github.com/gvpclubconnect/clubconnect/apps/bootstrap"
	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
	"github.com/gvpclubconnect/clubconnect/core/club"
	"github.com/gvpclubconnect/clubconnect/core/event"
	"github.com/gvpclubconnect/clubconnect/core/otp"
	appfs "github.com/gvpclubconnect/clubconnect/fs"
	emailsvc "github.com/gvpclubconnect/clubconnect/services/email"
	filesvc "github.com/gvpclubconnect/clubconnect/services/files"
	"github.com/gvpclubconnect/clubconnect/services/notify"
	qrsvc "github.com/gvpclubconnect/clubconnect/services/qrcode"
	inmemdb "github.com/gvpclubconnect/clubconnect/storage/database/inmem"
)

const (
	// Password satisfies the password policy.
	Password = "Sup3r$ecret"
	FilesURL = "http://localhost:8000/uploads"
)

// NewConfig returns the default config tuned for tests: in-memory stores, console mails, local files.
func NewConfig(t *testing.T) *core.Config {
	conf := core.NewConfig()
	conf.Debug = true
	conf.TestMode = true
	conf.DatabaseEngine = bootstrap.EngineMemory
	conf.TokensEngine = bootstrap.EngineMemory
	conf.Mail.Backend = "console"
	conf.Files.Backend = "local"
	conf.Files.Dir = t.TempDir()
	conf.Files.BaseURL = FilesURL
	conf.Server.DisableReqLogs = true
	conf.OTP.TTL = 5 * time.Minute
	conf.OTP.MaxAttempts = 3
	conf.Approvals.TTL = 7 * 24 * time.Hour
	return conf
}

// Logger records log entries instead of printing them.
type Logger struct {
	mu      sync.Mutex
	entries []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, level+": "+msg)
	l.mu.Unlock()
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }

// Entries returns the recorded entries of level (all of them when level is empty).
func (l *Logger) Entries(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var entries []string
	for _, e := range l.entries {
		if level == "" || strings.HasPrefix(e, level+": ") {
			entries = append(entries, e)
		}
	}
	return entries
}

// Env is a fully wired application backed by in-memory stores.
// Notifications run inline so their effects are visible as soon as a call returns.
type Env struct {
	Conf       *core.Config
	Logger     *Logger
	DB         *inmemdb.DB
	Accounts   account.Repository
	Clubs      club.Repository
	Events     event.Repository
	Tokens     core.TokenStore
	Mail       *emailsvc.ConsoleServiceMock
	Files      core.FileStorage
	OTPs       *otp.Manager
	AccountSvc *account.Service
	ClubSvc    *club.Service
	EventSvc   *event.Service
	Validate   *validator.Validate
	Translator ut.Translator
}

func NewEnv(t *testing.T) *Env {
	conf := NewConfig(t)
	logger := new(Logger)
	db := inmemdb.Open()

	env := &Env{
		Conf:     conf,
		Logger:   logger,
		DB:       db,
		Accounts: inmemdb.NewAccountRepository(db),
		Clubs:    inmemdb.NewClubRepository(db),
		Events:   inmemdb.NewEventRepository(db),
		Tokens:   inmemdb.NewTokenStore(db),
		Mail:     emailsvc.NewConsoleServiceMock(conf),
		Files:    filesvc.NewLocalStorage(conf.Files.Dir, conf.Files.BaseURL),
	}
	notifier := notify.NewInlineDispatcher(env.Mail, logger, conf.Notify)
	env.OTPs = otp.NewManager(env.Tokens, conf.OTP)
	env.ClubSvc = club.NewService(env.Clubs, env.Accounts, env.Tokens, notifier, env.Files, logger, conf)
	env.AccountSvc = account.NewService(env.Accounts, env.ClubSvc, env.OTPs, notifier, env.Files, logger, conf)
	env.EventSvc = event.NewService(env.Events, env.AccountSvc, env.Files, qrsvc.NewGenerator(), notifier, logger, conf)

	env.Translator = bootstrap.NewTranslator()
	env.Validate = bootstrap.NewValidator(env.Translator)
	core.ParseEmailTemplates(appfs.FS, conf, logger)
	return env
}

// CreateAccount stores an account with Password as password.
func CreateAccount(t *testing.T, repo account.Repository, name, email string, role account.Role, clubs ...string) account.Account {
	now := time.Now().UTC()
	acc := account.Account{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if role == account.RoleLead || role == account.RoleFaculty {
		acc.SelectedClubs = clubs
	}
	acc.Normalize()
	if err := acc.SetPassword(Password); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

func CreateClub(t *testing.T, repo club.Repository, name, clubType string) club.Club {
	now := time.Now().UTC()
	c, err := repo.CreateClub(context.Background(), club.Club{
		Name:      name,
		Type:      clubType,
		Labels:    []club.Label{},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateClub() failed: %v", err)
	}
	return c
}

// CreateEvent stores an event of c held on date (YYYY-MM-DD).
func CreateEvent(t *testing.T, repo event.Repository, name string, c club.Club, date string, registered ...string) event.Event {
	now := time.Now().UTC()
	e, err := repo.CreateEvent(context.Background(), event.Event{
		Name:               name,
		ClubType:           c.Type,
		Club:               c.Name,
		Date:               date,
		Description:        name + " description",
		Status:             event.StatusFor(date),
		RegisteredEmails:   []string{},
		ParticipatedEmails: []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		t.Fatalf("CreateEvent() failed: %v", err)
	}
	for _, email := range registered {
		if err := repo.AddRegistration(context.Background(), e.ID, email); err != nil {
			t.Fatalf("CreateEvent() registration failed: %v", err)
		}
	}
	if len(registered) > 0 {
		if e, err = repo.GetEvent(context.Background(), e.ID); err != nil {
			t.Fatalf("CreateEvent() failed: %v", err)
		}
	}
	return e
}

// Date returns the ISO date days away from today.
func Date(days int) string {
	return event.NowFunc().UTC().AddDate(0, 0, days).Format(core.ISODateLayout)
}

// LastOTP returns the code of the last OTP mailed to email.
func LastOTP(t *testing.T, mail *emailsvc.ConsoleServiceMock, email string) string {
	msgs := mail.SentMessages()
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if msg.TemplateName != "otp" || len(msg.To) == 0 || msg.To[0].Address != email {
			continue
		}
		if data, ok := msg.TemplateData.(map[string]interface{}); ok {
			return fmt.Sprint(data["Code"])
		}
	}
	t.Fatalf("LastOTP(): no OTP sent to %s", email)
	return ""
}

// SentTo returns the messages mailed to email using template.
func SentTo(mail *emailsvc.ConsoleServiceMock, template, email string) []core.EmailMessage {
	var found []core.EmailMessage
	for _, msg := range mail.SentMessages() {
		if msg.TemplateName != template {
			continue
		}
		for _, to := range msg.To {
			if to.Address == email {
				found = append(found, msg)
				break
			}
		}
	}
	return found
}
