package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"travel_booking/internal/domain"
)

// SeedService loads catalogue fixtures and provisions the demo accounts.
type SeedService struct {
	offers *OfferService
	users  *UserService
}

func NewSeedService(o *OfferService, u *UserService) *SeedService {
	return &SeedService{offers: o, users: u}
}

// DecodeSeedFile reads a JSON array of offer records, or an object that
// wraps one under "offers".
func DecodeSeedFile(r io.Reader) ([]map[string]any, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Offers []map[string]any `json:"offers"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: seed file is neither an array nor {\"offers\": [...]}: %v", domain.ErrInvalid, err)
	}
	return wrapped.Offers, nil
}

// SeedOffer inserts the record, or refreshes the stored offer's fields when
// an earlier run already created it. created reports which happened.
func (s *SeedService) SeedOffer(ctx context.Context, rec map[string]any) (o domain.Offer, created bool, err error) {
	o, err = MapSeedOffer(rec)
	if err != nil {
		return domain.Offer{}, false, err
	}
	out, err := s.offers.Create(ctx, o)
	if err == nil {
		return out, true, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return domain.Offer{}, false, err
	}
	out, err = s.offers.Update(ctx, o.ID, patchFrom(o))
	if err != nil {
		return domain.Offer{}, false, err
	}
	return out, false, nil
}

// patchFrom rewrites every scalar field; itinerary and dates stay as first
// seeded.
func patchFrom(o domain.Offer) domain.OfferPatch {
	images := o.Images
	p := domain.OfferPatch{
		Title:            &o.Title,
		Description:      &o.Description,
		ShortDescription: &o.ShortDescription,
		Destination:      &o.Destination,
		Country:          &o.Country,
		Duration:         &o.Duration,
		Price:            &o.Price,
		OriginalPrice:    o.OriginalPrice,
		ClearOriginal:    o.OriginalPrice == nil,
		Images:           &images,
		Meals:            &o.Meals,
		TripType:         &o.TripType,
		Season:           &o.Season,
		IsLastMinute:     &o.IsLastMinute,
		Rating:           &o.Rating,
		ReviewCount:      &o.ReviewCount,
		Accommodation:    &o.Accommodation,
		Transport:        &o.Transport,
	}
	return p
}

// DemoAccount is a login created for local environments.
type DemoAccount struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

var DemoAccounts = []DemoAccount{
	{Email: "admin@travel.com", Password: "admin123", Name: "Administrator", Role: domain.RoleAdmin},
	{Email: "user@travel.com", Password: "user123", Name: "Test User", Role: domain.RoleClient},
}

// ProvisionDemoAccounts registers each account with the identity provider
// (signing in instead when it already exists) and pins its profile role.
func (s *SeedService) ProvisionDemoAccounts(ctx context.Context, accounts []DemoAccount) error {
	for _, a := range accounts {
		u, err := s.users.Provision(ctx, a.Email, a.Password, a.Name, a.Role)
		if err != nil {
			return fmt.Errorf("provision %s: %w", a.Email, err)
		}
		log.Info().Str("email", u.Email).Str("role", string(u.Role)).Msg("demo account ready")
	}
	return nil
}
