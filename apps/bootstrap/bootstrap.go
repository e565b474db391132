// Package bootstrap builds the dependencies shared by the API server and the admin CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
	"github.com/gvpclubconnect/clubconnect/core/club"
	"github.com/gvpclubconnect/clubconnect/core/event"
	logsvc "github.com/gvpclubconnect/clubconnect/services/logger"
	inmemdb "github.com/gvpclubconnect/clubconnect/storage/database/inmem"
	mongodb "github.com/gvpclubconnect/clubconnect/storage/database/mongo"
	pgstore "github.com/gvpclubconnect/clubconnect/storage/database/postgres"
)

// Engines
const (
	EngineMemory   = "memory"
	EngineMongo    = "mongo"
	EnginePostgres = "postgres"
)

// Stores groups the repositories selected by the configured engines.
type Stores struct {
	Accounts account.Repository
	Clubs    club.Repository
	Events   event.Repository
	Tokens   core.TokenStore
	// SQL is the tokens database; nil unless the postgres tokens engine is used.
	SQL *sqlx.DB

	closers []func(ctx context.Context) error
}

// Close releases every opened database connection.
func (s *Stores) Close(ctx context.Context) error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func NewLogger(prefix string, conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator knowing every custom tag of the app.
func NewValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	club.InitValidators(validate, translator)
	return validate
}

// OpenStores connects the record and token stores chosen by conf.DatabaseEngine and conf.TokensEngine.
// Postgres databases are created and migrated when needed.
func OpenStores(ctx context.Context, conf *core.Config, logger core.Logger) (*Stores, error) {
	var (
		stores = new(Stores)
		memDB  *inmemdb.DB
	)
	memory := func() *inmemdb.DB {
		if memDB == nil {
			memDB = inmemdb.Open()
		}
		return memDB
	}

	switch conf.DatabaseEngine {
	case "", EngineMemory:
		db := memory()
		stores.Accounts = inmemdb.NewAccountRepository(db)
		stores.Clubs = inmemdb.NewClubRepository(db)
		stores.Events = inmemdb.NewEventRepository(db)
	case EngineMongo:
		db, err := mongodb.Open(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening mongo")
		}
		stores.closers = append(stores.closers, db.Close)
		stores.Accounts = mongodb.NewAccountRepository(db)
		stores.Clubs = mongodb.NewClubRepository(db)
		stores.Events = mongodb.NewEventRepository(db)
	default:
		return nil, errors.Errorf("unknown database engine %q", conf.DatabaseEngine)
	}

	switch conf.TokensEngine {
	case "", EngineMemory:
		stores.Tokens = inmemdb.NewTokenStore(memory())
	case EnginePostgres:
		db, err := openPostgres(ctx, conf)
		if err != nil {
			_ = stores.Close(ctx)
			return nil, err
		}
		stores.closers = append(stores.closers, func(context.Context) error { return db.Close() })
		stores.Tokens = pgstore.NewTokenStore(db)
		stores.SQL = db
	default:
		_ = stores.Close(ctx)
		return nil, errors.Errorf("unknown tokens engine %q", conf.TokensEngine)
	}

	logger.Info(fmt.Sprintf("stores ready : database=%s tokens=%s", engineName(conf.DatabaseEngine), engineName(conf.TokensEngine)))
	return stores, nil
}

// openPostgres creates, opens and migrates the tokens database.
func openPostgres(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := pgstore.CreateIfNotExist(ctx, conf); err != nil {
		return nil, errors.Wrap(err, "creating postgres database")
	}
	db, err := pgstore.Open(ctx, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening postgres")
	}
	if err = pgstore.Migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func engineName(engine string) string {
	if engine == "" {
		return EngineMemory
	}
	return engine
}
