package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/access"
)

const (
	authScheme      = "Bearer"
	contextActorKey = "actor"
)

var signingMethod = jwt.SigningMethodHS256

// Claims represents the authorization claims transmitted via a JWT.
// The subject is the id of the authenticated user.
type Claims struct {
	jwt.StandardClaims
}

func NewClaims(conf *core.Config, userID int) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.Itoa(userID),
			ExpiresAt: now.Add(conf.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
	}
}

// GenerateToken generates a signed JWT token string for the user.
func GenerateToken(conf *core.Config, userID int) (string, error) {
	token := jwt.NewWithClaims(signingMethod, NewClaims(conf, userID))
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(tokenStr string, secret []byte) (*access.Actor, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != signingMethod.Alg() {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(err, "parsing subject")
	}
	return &access.Actor{ID: id}, nil
}

// actorMiddleware authenticates the bearer token of a request, if any.
// A missing or invalid token leaves the request anonymous; handlers decide whether that is allowed.
func actorMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			parts := strings.SplitN(ctx.Request().Header.Get(echo.HeaderAuthorization), " ", 2)
			if len(parts) == 2 && parts[0] == authScheme {
				if actor, err := parseToken(parts[1], secret); err == nil {
					ctx.Set(contextActorKey, actor)
				}
			}
			return next(ctx)
		}
	}
}

// getActor returns the authenticated actor, or nil.
func getActor(ctx echo.Context) *access.Actor {
	actor, _ := ctx.Get(contextActorKey).(*access.Actor)
	return actor
}

func requireActor(ctx echo.Context) (*access.Actor, error) {
	if actor := getActor(ctx); actor != nil {
		return actor, nil
	}
	return nil, errUnauthenticated
}
