package receipt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidLink is returned for tampered, foreign or expired download links.
var ErrInvalidLink = errors.New("invalid or expired receipt link")

const linkIssuer = "elottery-receipts"

type linkClaims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// Signer issues and checks signed receipt download tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner returns a signer whose tokens live for ttl.
func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl}
}

// Sign returns a token granting access to receiptID and its expiry.
func (s *Signer) Sign(receiptID string, userID int64, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.ttl)
	claims := linkClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   receiptID,
			Issuer:    linkIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify returns the receipt id and owner a token grants access to.
func (s *Signer) Verify(token string, now time.Time) (string, int64, error) {
	var claims linkClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(linkIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", 0, ErrInvalidLink
	}
	return claims.Subject, claims.UserID, nil
}
