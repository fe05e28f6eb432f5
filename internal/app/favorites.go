package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"travel_booking/internal/domain"
)

type FavoriteService struct {
	favs   domain.FavoriteRepository
	offers domain.OfferRepository
}

func NewFavoriteService(f domain.FavoriteRepository, o domain.OfferRepository) *FavoriteService {
	return &FavoriteService{favs: f, offers: o}
}

// Add is idempotent; favoriting an unknown offer is ErrNotFound.
func (s *FavoriteService) Add(ctx context.Context, userID, offerID string) error {
	if _, err := s.offers.GetOffer(ctx, offerID); err != nil {
		return err
	}
	return s.favs.AddFavorite(ctx, userID, offerID)
}

// Remove is idempotent.
func (s *FavoriteService) Remove(ctx context.Context, userID, offerID string) error {
	return s.favs.RemoveFavorite(ctx, userID, offerID)
}

func (s *FavoriteService) IsFavorite(ctx context.Context, userID, offerID string) (bool, error) {
	return s.favs.IsFavorite(ctx, userID, offerID)
}

// List returns the user's favorite offers; offers deleted since are skipped.
func (s *FavoriteService) List(ctx context.Context, userID string) ([]domain.Offer, error) {
	ids, err := s.favs.ListFavoriteIDs(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("list favorites failed")
		return nil, err
	}
	out := make([]domain.Offer, 0, len(ids))
	for _, id := range ids {
		o, err := s.offers.GetOffer(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
