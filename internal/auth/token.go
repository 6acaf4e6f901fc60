package auth

import (
	"errors"
	"time"

	"NoticeBoard/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrMissingToken = errors.New("no token provided")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

const claimsContextKey = "auth.claims"

// Claims binds a token to one account. Tokens carry no expiry.
type Claims struct {
	ID   string `json:"id"`
	Role Role   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the account id the token was issued for.
func (c *Claims) SubjectID() (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.ID)
}

// TokenIssuer signs and verifies HS256 tokens with the shared secret.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewTokenIssuer(cfg *config.Config) *TokenIssuer {
	return &TokenIssuer{secret: []byte(cfg.JWTSecret), now: time.Now}
}

func (t *TokenIssuer) Issue(id primitive.ObjectID, role Role) (string, error) {
	claims := &Claims{
		ID:   id.Hex(),
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(t.now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies the signature and returns the claims. An exp claim is
// honoured when present even though Issue never sets one.
func (t *TokenIssuer) Parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.SubjectID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SetClaims stores verified claims on the request context.
func SetClaims(c echo.Context, claims *Claims) {
	c.Set(claimsContextKey, claims)
}

// ClaimsFrom returns the verified claims, or nil when the route is public.
func ClaimsFrom(c echo.Context) *Claims {
	claims, _ := c.Get(claimsContextKey).(*Claims)
	return claims
}
