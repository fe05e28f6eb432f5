package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool { return r == RoleClient || r == RoleAdmin }

// User is the profile projection of an identity owned by the auth provider.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type UserStats struct {
	ReservationsCount int   `json:"reservations_count"`
	TotalSpent        Money `json:"total_spent"`
}

// Session is populated once per request from the verified access token and
// the profile directory.
type Session struct {
	UserID string
	Email  string
	Role   Role
	Token  string
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
