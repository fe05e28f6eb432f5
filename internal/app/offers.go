package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"travel_booking/internal/domain"
)

type OfferService struct {
	repo     domain.OfferRepository
	cache    domain.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewOfferService(r domain.OfferRepository, c domain.Cache, ttl time.Duration) *OfferService {
	return &OfferService{repo: r, cache: c, cacheTTL: ttl, now: time.Now}
}

func offerKey(id string) string { return fmt.Sprintf("offer:%s", id) }

func (s *OfferService) List(ctx context.Context, f domain.OfferFilter) ([]domain.Offer, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out, err := s.repo.ListOffers(ctx, f)
	if err != nil {
		log.Error().Err(err).Msg("list offers failed")
		return nil, err
	}
	return out, nil
}

// Get returns ok=false when the offer does not exist.
func (s *OfferService) Get(ctx context.Context, id string) (domain.Offer, bool, error) {
	key := offerKey(id)
	var o domain.Offer
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &o); ok {
			return o, true, nil
		}
	}
	o, err := s.repo.GetOffer(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Offer{}, false, nil
	}
	if err != nil {
		log.Error().Err(err).Str("offer_id", id).Msg("get offer failed")
		return domain.Offer{}, false, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, o, int(s.cacheTTL.Seconds()))
	}
	return o, true, nil
}

func (s *OfferService) Create(ctx context.Context, o domain.Offer) (domain.Offer, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now().UTC()
	}
	if err := o.Validate(); err != nil {
		return domain.Offer{}, err
	}
	if !o.ItineraryContiguous() {
		log.Warn().Str("offer_id", o.ID).Msg("itinerary days are not contiguous from 1")
	}
	for i, d := range o.AvailableDates {
		o.AvailableDates[i] = domain.DateOnly(d)
	}
	if o.Images == nil {
		o.Images = []string{}
	}
	if err := s.repo.CreateOffer(ctx, o); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.Offer{}, err
		}
		log.Error().Err(err).Str("offer_id", o.ID).Msg("create offer failed")
		return domain.Offer{}, err
	}
	return o, nil
}

func (s *OfferService) Update(ctx context.Context, id string, p domain.OfferPatch) (domain.Offer, error) {
	cur, err := s.repo.GetOffer(ctx, id)
	if err != nil {
		return domain.Offer{}, err
	}
	next := p.Apply(cur)
	if err := next.Validate(); err != nil {
		return domain.Offer{}, err
	}
	if err := s.repo.UpdateOffer(ctx, next); err != nil {
		log.Error().Err(err).Str("offer_id", id).Msg("update offer failed")
		return domain.Offer{}, err
	}
	s.invalidate(ctx, id)
	return next, nil
}

func (s *OfferService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteOffer(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrConflict) && !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Str("offer_id", id).Msg("delete offer failed")
		}
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *OfferService) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, offerKey(id))
	}
}

// WithClock replaces the time source; tests pin it.
func (s *OfferService) WithClock(now func() time.Time) *OfferService {
	s.now = now
	return s
}
