// Package otp issues and verifies short numeric one-time codes.
// Codes are kept in a core.TokenStore, one per (purpose, email).
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
)

// Purposes
const (
	PurposeSignup          = "otp:signup"
	PurposeAccountDeletion = "otp:account-deletion"
	PurposePasswordReset   = "otp:password-reset"
)

const codeLen = 6

var (
	NowFunc = time.Now // mockable

	// errors
	ErrMissing         = core.NewNotFoundError("OTP expired or not requested")
	ErrExpired         = core.NewConflictError("OTP expired, please request a new one")
	ErrInvalid         = core.NewUnauthorizedError("Invalid OTP")
	ErrTooManyAttempts = core.NewUnauthorizedError("Too many failed attempts, please request a new OTP")
)

type record struct {
	Code     string `json:"code"`
	Attempts int    `json:"attempts"`
}

type Manager struct {
	store       core.TokenStore
	ttl         time.Duration
	maxAttempts int

	mu sync.Mutex // serializes attempt updates
}

func NewManager(store core.TokenStore, conf core.OTPConfig) *Manager {
	return &Manager{
		store:       store,
		ttl:         conf.TTL,
		maxAttempts: conf.MaxAttempts,
	}
}

// Issue generates a new code for (purpose, email), replacing any outstanding one.
func (m *Manager) Issue(ctx context.Context, purpose, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", errors.Wrap(err, "generating otp")
	}
	val, err := json.Marshal(record{Code: code})
	if err != nil {
		return "", errors.Wrap(err, "encoding otp")
	}
	tok := core.Token{
		Namespace: purpose,
		Key:       email,
		Value:     val,
		CreatedAt: NowFunc().UTC(),
	}
	if err := m.store.PutToken(ctx, tok); err != nil {
		return "", errors.Wrap(err, "storing otp")
	}
	return code, nil
}

// Verify checks code against the outstanding OTP of (purpose, email) and consumes it on success.
func (m *Manager) Verify(ctx context.Context, purpose, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, err := m.store.GetToken(ctx, purpose, email)
	if err != nil {
		if errors.Cause(err) == core.ErrTokenNotFound {
			return ErrMissing
		}
		return errors.Wrap(err, "getting otp")
	}

	if NowFunc().UTC().Sub(tok.CreatedAt) > m.ttl {
		if err := m.store.DeleteToken(ctx, purpose, email); err != nil {
			return errors.Wrap(err, "deleting expired otp")
		}
		return ErrExpired
	}

	var rec record
	if err := json.Unmarshal(tok.Value, &rec); err != nil {
		return errors.Wrap(err, "decoding otp")
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) == 1 {
		if err := m.store.DeleteToken(ctx, purpose, email); err != nil {
			return errors.Wrap(err, "deleting used otp")
		}
		return nil
	}

	rec.Attempts++
	if rec.Attempts >= m.maxAttempts {
		if err := m.store.DeleteToken(ctx, purpose, email); err != nil {
			return errors.Wrap(err, "deleting otp")
		}
		return ErrTooManyAttempts
	}
	if tok.Value, err = json.Marshal(rec); err != nil {
		return errors.Wrap(err, "encoding otp")
	}
	if err := m.store.PutToken(ctx, tok); err != nil {
		return errors.Wrap(err, "storing otp")
	}
	return ErrInvalid
}

func generateCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeLen, n.Int64()), nil
}
