// Package auth carries the authenticated caller through a request and issues
// the JWT access tokens that identify it.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"csrhub/internal/model"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

func (a Actor) IsAdmin() bool     { return a.Role == model.RoleAdmin }
func (a Actor) IsNGO() bool       { return a.Role == model.RoleNGO }
func (a Actor) IsCorporate() bool { return a.Role == model.RoleCorporate }

type contextKey string

const actorKey contextKey = "actor"

// WithActor stores the actor in ctx
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// FromContext returns the actor stored by WithActor
func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

var ErrInvalidToken = errors.New("invalid token")

// IssueToken signs an HS256 access token with sub and role claims
func IssueToken(secret []byte, actor Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  actor.UserID.String(),
		"role": actor.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

// ParseToken validates tokenString and extracts the actor
func ParseToken(secret []byte, tokenString string) (Actor, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return Actor{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Actor{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Actor{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	if !model.IsValidRole(role) {
		return Actor{}, ErrInvalidToken
	}
	return Actor{UserID: userID, Role: role}, nil
}
