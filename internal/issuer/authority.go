// Package issuer is a local signing authority for development and tests. It
// mints RS256 bearer tokens that carry a permissions claim and publishes the
// matching key set, standing in for the hosted identity provider.
package issuer

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"coffeeshop/internal/auth"
	"coffeeshop/internal/clock"
)

const (
	keyBits  = 2048
	JWKSPath = "/.well-known/jwks.json"
)

type Authority struct {
	key      *rsa.PrivateKey
	keyID    string
	issuer   string
	audience string
	clock    clock.Clock
}

// Grant describes one token. Zero fields fall back to the authority's
// defaults; the Omit flags drop a claim or header entirely.
type Grant struct {
	Subject         string
	Permissions     []string
	OmitPermissions bool
	Issuer          string
	Audience        string
	TTL             time.Duration
	KeyID           string
	OmitKeyID       bool
}

func New(issuer, audience string, clk clock.Clock) (*Authority, error) {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, err
	}
	return NewWithKey(key, uuid.NewString(), issuer, audience, clk)
}

func NewWithKey(key *rsa.PrivateKey, keyID, issuer, audience string, clk clock.Clock) (*Authority, error) {
	if key == nil {
		return nil, errors.New("signing key required")
	}
	if keyID == "" {
		return nil, errors.New("key id required")
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Authority{
		key:      key,
		keyID:    keyID,
		issuer:   issuer,
		audience: audience,
		clock:    clk,
	}, nil
}

func (a *Authority) KeyID() string {
	return a.keyID
}

func (a *Authority) Issuer() string {
	return a.issuer
}

func (a *Authority) Audience() string {
	return a.audience
}

func (a *Authority) Issue(subject string, permissions []string, ttl time.Duration) (string, error) {
	return a.IssueWith(Grant{Subject: subject, Permissions: permissions, TTL: ttl})
}

func (a *Authority) IssueWith(grant Grant) (string, error) {
	now := a.clock.Now().UTC()
	ttl := grant.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	issuer := grant.Issuer
	if issuer == "" {
		issuer = a.issuer
	}
	audience := grant.Audience
	if audience == "" {
		audience = a.audience
	}

	claims := jwt.MapClaims{
		"sub": grant.Subject,
		"iss": issuer,
		"aud": []string{audience},
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if !grant.OmitPermissions {
		permissions := grant.Permissions
		if permissions == nil {
			permissions = []string{}
		}
		claims["permissions"] = permissions
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if !grant.OmitKeyID {
		kid := grant.KeyID
		if kid == "" {
			kid = a.keyID
		}
		token.Header["kid"] = kid
	}
	return token.SignedString(a.key)
}

func (a *Authority) JWKS() auth.JWKSet {
	return auth.JWKSet{Keys: []auth.JWK{auth.RSAJWK(a.keyID, &a.key.PublicKey)}}
}

// Handler serves the public key set at JWKSPath.
func (a *Authority) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+JWKSPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.JWKS())
	})
	return mux
}
