package echoapi

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
)

const (
	contextClaimsKey = "claims"
	bearerPrefix     = "Bearer "
)

var signingMethod = jwt.SigningMethodHS256

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Email string       `json:"email"`
	Role  account.Role `json:"role"`
	Clubs []string     `json:"clubs,omitempty"` // led clubs
}

// CanManage reports whether the claims grant management rights over club.
func (c *Claims) CanManage(club string) bool {
	if c.Role == account.RoleAdmin {
		return true
	}
	return c.Role == account.RoleLead && club != "" && core.ContainsString(c.Clubs, club)
}

func NewClaims(conf *core.Config, acc account.Account) *Claims {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   acc.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: acc.Email,
		Role:  acc.Role,
	}
	if acc.Role == account.RoleLead {
		claims.Clubs = acc.SelectedClubs
	}
	return claims
}

// GenerateToken generates a signed JWT token string representing the account Claims.
func GenerateToken(conf *core.Config, acc account.Account) (string, error) {
	token := jwt.NewWithClaims(signingMethod, NewClaims(conf, acc))
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(conf *core.Config, tokenStr string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		tokenStr, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(conf.SecretKey), nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(conf.AppName),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// jwtMiddleware authenticates the "Authorization: Bearer <token>" header and stores the Claims in the context.
func jwtMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, bearerPrefix) || len(auth) == len(bearerPrefix) {
				return errMissingToken
			}
			claims, err := parseToken(conf, auth[len(bearerPrefix):])
			if err != nil {
				return errInvalidToken.WithInternal(err)
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return claims, nil
	}
	return nil, errMissingToken
}

func adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.Role != account.RoleAdmin {
			return errHttpForbidden
		}
		return next(ctx)
	}
}

// managerMiddleware only lets admins and leads through; club ownership is checked by the handlers.
// A lead's clubs are reloaded from their account so that demotions and club removals apply to tokens
// issued before them.
func managerMiddleware(accounts *account.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			switch claims.Role {
			case account.RoleAdmin:
			case account.RoleLead:
				acc, err := accounts.Get(ctx.Request().Context(), claims.Email, account.RoleLead)
				if err != nil {
					if errors.Cause(err) == account.ErrNotFound {
						return errHttpForbidden
					}
					return errors.Wrap(err, "getting lead account")
				}
				fresh := *claims
				fresh.Clubs = acc.SelectedClubs
				ctx.Set(contextClaimsKey, &fresh)
			default:
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// checkManager fails with 403 unless the context claims can manage club.
func checkManager(ctx echo.Context, club string) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.CanManage(club) {
		return errHttpForbidden
	}
	return nil
}
