package authprovider

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"travel_booking/internal/domain"
)

// Claims is the subset of the provider's access-token claims we read.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 access tokens signed with the provider's JWT secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (v *Verifier) Verify(token string) (domain.Identity, error) {
	if len(v.secret) == 0 {
		return domain.Identity{}, errors.New("no JWT secret configured")
	}
	if token == "" {
		return domain.Identity{}, errors.New("missing token")
	}
	var c Claims
	if _, err := v.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return v.secret, nil }); err != nil {
		return domain.Identity{}, err
	}
	if c.Subject == "" {
		return domain.Identity{}, fmt.Errorf("token has no subject")
	}
	return domain.Identity{ID: c.Subject, Email: c.Email}, nil
}

// Sign issues a token the Verifier accepts, for local runs without the
// hosted provider.
func (v *Verifier) Sign(id domain.Identity, expires time.Time) (string, error) {
	c := Claims{
		Email: id.Email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}
