package session

import (
	"context"
	"errors"

	"bidmarket/internal/app/model"

	"github.com/golang-jwt/jwt"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	jwt.StandardClaims
}

// Creator issues a token for an authenticated user
type Creator interface {
	Create(ctx context.Context, u *model.User) (string, error)
}

// Reader resolves a token back to its user
type Reader interface {
	Read(ctx context.Context, tokenString string) (*model.User, error)
}

// Manager combines token issuing and resolution
type Manager interface {
	Creator
	Reader
}
