package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

const formTokenPurpose = "contact-form"

// FormTokens issues and verifies signed tokens that identify one rendered
// form instance. The token id is the key of the in-flight flag.
type FormTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewFormTokens creates a token issuer signing with secret
func NewFormTokens(secret string, ttl time.Duration) *FormTokens {
	return &FormTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// FormToken is an issued token and the form instance it names
type FormToken struct {
	ID      string
	Token   string
	Expires time.Time
}

// Issue creates a token for a new form instance bound to userID
func (f *FormTokens) Issue(userID string) (FormToken, error) {
	now := f.now()
	id := uuid.NewString()
	expires := now.Add(f.ttl)

	claims := jwt.MapClaims{
		"sub": userID,
		"jti": id,
		"pur": formTokenPurpose,
		"iat": now.Unix(),
		"exp": expires.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(f.secret)
	if err != nil {
		return FormToken{}, fmt.Errorf("failed to sign form token: %w", err)
	}

	return FormToken{ID: id, Token: signed, Expires: expires}, nil
}

// Verify checks the signature, expiry and owner of a token and returns the
// form instance id
func (f *FormTokens) Verify(tokenString, userID string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return f.secret, nil
	}, jwt.WithTimeFunc(f.now), jwt.WithExpirationRequired())
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", ErrTokenExpired
	}
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	if purpose, _ := claims["pur"].(string); purpose != formTokenPurpose {
		return "", ErrInvalidToken
	}
	if sub, _ := claims["sub"].(string); sub != userID {
		return "", ErrInvalidToken
	}

	id, ok := claims["jti"].(string)
	if !ok {
		return "", ErrInvalidToken
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrInvalidToken
	}

	return id, nil
}
