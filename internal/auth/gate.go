package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"coffeeshop/internal/clock"
)

const (
	PermissionGetDrinksDetail = "get:drinks-detail"
	PermissionPostDrinks      = "post:drinks"
	PermissionPatchDrinks     = "patch:drinks"
	PermissionDeleteDrinks    = "delete:drinks"
)

const (
	CodeHeaderMissing   = "authorization_header_missing"
	CodeInvalidHeader   = "invalid_header"
	CodeTokenExpired    = "token_expired"
	CodeInvalidClaims   = "invalid_claims"
	CodeUnauthorized    = "unauthorized"
	CodeJWKSUnavailable = "jwks_unavailable"
)

// Error is a tagged permission failure carrying the HTTP status to answer with.
type Error struct {
	Status      int
	Code        string
	Description string
	Err         error
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Description
}

func (e *Error) Unwrap() error {
	return e.Err
}

func AsError(err error) (*Error, bool) {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

func fail(status int, code, description string, cause error) *Error {
	return &Error{Status: status, Code: code, Description: description, Err: cause}
}

// Claims are the verified parts of a bearer token a handler may use.
type Claims struct {
	Subject     string
	Permissions []string
}

func (c Claims) Has(permission string) bool {
	return slices.Contains(c.Permissions, permission)
}

type tokenClaims struct {
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

type Gate struct {
	keys     KeySource
	issuer   string
	audience string
	clock    clock.Clock
}

func NewGate(keys KeySource, issuer, audience string, clk clock.Clock) *Gate {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Gate{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
		clock:    clk,
	}
}

// Check verifies the Authorization header value and requires permission in
// the token's permissions claim. The key set is fetched on every call.
func (g *Gate) Check(ctx context.Context, header, permission string) (Claims, error) {
	raw, authErr := bearer(header)
	if authErr != nil {
		return Claims{}, authErr
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(raw, &tokenClaims{})
	if err != nil {
		return Claims{}, fail(http.StatusUnauthorized, CodeInvalidHeader, "unable to parse authentication token", err)
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return Claims{}, fail(http.StatusBadRequest, CodeInvalidHeader, "unable to find the appropriate key", nil)
	}

	keys, err := g.keys.Keys(ctx)
	if err != nil {
		return Claims{}, fail(http.StatusInternalServerError, CodeJWKSUnavailable, "unable to fetch signing keys", err)
	}
	key, ok := keys[kid]
	if !ok {
		return Claims{}, fail(http.StatusBadRequest, CodeInvalidHeader, "unable to find the appropriate key", nil)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(g.issuer),
		jwt.WithAudience(g.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.clock.Now),
	)
	var claims tokenClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return key, nil
	}); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, fail(http.StatusUnauthorized, CodeTokenExpired, "token expired", err)
		case errors.Is(err, jwt.ErrTokenInvalidClaims):
			return Claims{}, fail(http.StatusUnauthorized, CodeInvalidClaims, "incorrect claims, please check the audience and issuer", err)
		default:
			return Claims{}, fail(http.StatusUnauthorized, CodeInvalidHeader, "unable to parse authentication token", err)
		}
	}

	if claims.Permissions == nil {
		return Claims{}, fail(http.StatusBadRequest, CodeInvalidClaims, "permissions not included in token", nil)
	}
	verified := Claims{Subject: claims.Subject, Permissions: claims.Permissions}
	if !verified.Has(permission) {
		return Claims{}, fail(http.StatusForbidden, CodeUnauthorized, "permission not found", nil)
	}
	return verified, nil
}

func bearer(header string) (string, *Error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fail(http.StatusUnauthorized, CodeHeaderMissing, "authorization header is expected", nil)
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", fail(http.StatusUnauthorized, CodeInvalidHeader, "authorization header must be a bearer token", nil)
	}
	return parts[1], nil
}
