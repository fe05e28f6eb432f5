package domain

import (
	"context"
	"time"
)

type OfferRepository interface {
	ListOffers(ctx context.Context, f OfferFilter) ([]Offer, error)
	GetOffer(ctx context.Context, id string) (Offer, error)
	CreateOffer(ctx context.Context, o Offer) error
	UpdateOffer(ctx context.Context, o Offer) error
	// DeleteOffer fails with ErrConflict while reservations reference the offer.
	DeleteOffer(ctx context.Context, id string) error
	CountOffers(ctx context.Context) (int, error)
}

type ReservationRepository interface {
	// Reserve inserts r while holding the offer's booking lock. capacity > 0
	// bounds the guests of active reservations for the same departure.
	Reserve(ctx context.Context, r Reservation, capacity int, now time.Time) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, q ReservationQuery) ([]Reservation, error)
	// UpdateReservation writes r only if the stored status still equals from.
	UpdateReservation(ctx context.Context, r Reservation, from ReservationStatus) error
	DeleteReservation(ctx context.Context, id string) error
	// ExpireHolds cancels blocked reservations whose hold ended before now.
	ExpireHolds(ctx context.Context, now time.Time) (int64, error)
}

type FavoriteRepository interface {
	AddFavorite(ctx context.Context, userID, offerID string) error
	RemoveFavorite(ctx context.Context, userID, offerID string) error
	IsFavorite(ctx context.Context, userID, offerID string) (bool, error)
	ListFavoriteIDs(ctx context.Context, userID string) ([]string, error)
}

type UserRepository interface {
	UpsertUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
	CountByRole(ctx context.Context) (map[Role]int, error)
}

// Identity is the opaque hosted auth provider.
type Identity struct {
	ID    string
	Email string
}

type AuthTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string, meta map[string]any) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, AuthTokens, error)
	SignOut(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context, accessToken string) (Identity, error)
	ResetPassword(ctx context.Context, email string) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
