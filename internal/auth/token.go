package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ayush/recipe-catalog/backend/internal/models"
)

// Token lifetimes. Login tokens carry the full identity; reset tokens carry
// only the user id and expire quickly.
const (
	LoginTokenTTL = 5 * time.Hour
	ResetTokenTTL = 15 * time.Minute
)

// Claims is the JWT payload for both login and password-reset tokens. Reset
// tokens leave Email and Role empty.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies bearer tokens with a shared HMAC secret. Validity
// is purely cryptographic; nothing is persisted server-side.
type Tokens struct {
	secret []byte
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret)}
}

// IssueLogin mints a login token embedding the user's id, email, and role.
func (t *Tokens) IssueLogin(user models.User) (string, error) {
	return t.sign(Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(LoginTokenTTL)),
		},
	})
}

// IssueReset mints a short-lived password-reset token for the user.
func (t *Tokens) IssueReset(userID string) (string, error) {
	return t.sign(Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ResetTokenTTL)),
		},
	})
}

// Verify parses a token string and returns its claims. Any malformed,
// expired, or mis-signed token fails closed with models.ErrInvalidToken.
func (t *Tokens) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, models.ErrInvalidToken
	}
	return claims, nil
}

func (t *Tokens) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}
