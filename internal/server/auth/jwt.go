package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/daianaegermichels/financas/internal/common"
	"github.com/daianaegermichels/financas/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims plus the user identity. The subject
// is the user's email.
type Claims struct {
	jwt.RegisteredClaims
	UserID         int64  `json:"userId"`
	Name           string `json:"nome"`
	ExpirationTime string `json:"horaExpiracao"`
}

// TokenIssuer signs and verifies HS512 bearer tokens.
type TokenIssuer struct {
	secretKey        []byte
	validityDuration time.Duration
	now              func() time.Time
}

func NewTokenIssuer(secretKey []byte, validityDuration time.Duration) *TokenIssuer {
	return &TokenIssuer{secretKey: secretKey, validityDuration: validityDuration, now: time.Now}
}

// Generate issues a token for u that expires validityDuration from now.
func (i *TokenIssuer) Generate(u *models.User) (string, error) {
	now := i.now()
	exp := now.Add(i.validityDuration)

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:         u.ID,
		Name:           u.Name,
		ExpirationTime: exp.Format("15:04"),
	})

	tokenString, err := token.SignedString(i.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// Parse verifies signature, algorithm and expiry. Expired tokens yield
// common.ErrTokenExpired, everything else common.ErrInvalidToken.
func (i *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// Valid reports whether tokenString is a well-formed, correctly signed and
// unexpired token.
func (i *TokenIssuer) Valid(tokenString string) bool {
	_, err := i.Parse(tokenString)
	return err == nil
}

// Subject returns the email carried by a valid token.
func (i *TokenIssuer) Subject(tokenString string) (string, error) {
	claims, err := i.Parse(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", common.ErrInvalidToken
	}
	return claims.Subject, nil
}
