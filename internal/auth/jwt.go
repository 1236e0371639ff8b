package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kidcanvas/api/internal/config"
)

// TokenExpiry is the fixed validity window of a minted token. There is no
// refresh or revocation path; a token stays valid for the full window.
const TokenExpiry = 7 * 24 * time.Hour

// Token codec failure modes. ErrConfig is a server-side problem and must
// surface as a 500, never as a 401.
var (
	ErrExpired   = errors.New("token expired")
	ErrMalformed = errors.New("token malformed")
	ErrConfig    = errors.New("signing secret not configured")
)

// Principal is the authenticated identity derived from a verified token.
type Principal struct {
	UserID int64
	Role   string
}

type Claims struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Codec mints and verifies bearer tokens. The secret is fixed at
// construction; request handling never reads ambient state.
type Codec struct {
	secret []byte
}

// NewCodec rejects an absent or placeholder secret so the caller can refuse
// to start.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" || secret == config.PlaceholderSecret {
		return nil, ErrConfig
	}
	return &Codec{secret: []byte(secret)}, nil
}

func (c *Codec) Mint(userID int64, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
			Issuer:    "kidcanvas",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks signature and validity window. Expiry is reported as
// ErrExpired; every other parse or signature failure is ErrMalformed.
func (c *Codec) Verify(tokenString string) (Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrExpired
		}
		return Principal{}, ErrMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Principal{}, ErrMalformed
	}

	return Principal{UserID: claims.UserID, Role: claims.Role}, nil
}
