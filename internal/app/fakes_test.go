package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"travel_booking/internal/domain"
	"travel_booking/internal/storage/memory"
)

var (
	now       = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	clock     = func() time.Time { return now }
	departure = time.Date(2025, 7, 12, 0, 0, 0, 0, time.UTC)
	errDown   = errors.New("store down")
)

func greekOffer() domain.Offer {
	orig := domain.Zloty(2999)
	return domain.Offer{
		ID: "kreta", Title: "Wakacje na Krecie", Destination: "Kreta", Country: "Grecja",
		Duration: 7, Price: domain.Zloty(2499), OriginalPrice: &orig,
		Meals: domain.MealsAllInclusive, TripType: domain.TripRelax, Season: domain.SeasonSummer,
		AvailableDates: []time.Time{departure}, CreatedAt: now.Add(-48 * time.Hour),
	}
}

func polishOffer() domain.Offer {
	return domain.Offer{
		ID: "tatry", Title: "Przygoda w Tatrach", Destination: "Zakopane", Country: "Polska",
		Duration: 5, Price: domain.Zloty(899), Meals: domain.MealsHalfBoard,
		TripType: domain.TripAdventure, Season: domain.SeasonWinter,
		AvailableDates: []time.Time{departure}, CreatedAt: now.Add(-24 * time.Hour),
	}
}

func newStore(t *testing.T, offers ...domain.Offer) *memory.Store {
	t.Helper()
	s := memory.New()
	for _, o := range offers {
		if err := s.CreateOffer(context.Background(), o); err != nil {
			t.Fatalf("seed %s: %v", o.ID, err)
		}
	}
	return s
}

// mapCache is an in-process domain.Cache that counts hits.
type mapCache struct {
	mu   sync.Mutex
	m    map[string]any
	hits int
}

func newMapCache() *mapCache { return &mapCache{m: map[string]any{}} }

func (c *mapCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	if !ok {
		return false, nil
	}
	c.hits++
	*(dst.(*domain.Offer)) = v.(domain.Offer)
	return true, nil
}

func (c *mapCache) Set(_ context.Context, key string, v any, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = v
	return nil
}

func (c *mapCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

// brokenOffers fails every list call.
type brokenOffers struct{ domain.OfferRepository }

func (brokenOffers) ListOffers(context.Context, domain.OfferFilter) ([]domain.Offer, error) {
	return nil, errDown
}

// countingOffers records GetOffer calls per id.
type countingOffers struct {
	domain.OfferRepository
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingOffers) GetOffer(ctx context.Context, id string) (domain.Offer, error) {
	c.mu.Lock()
	c.calls[id]++
	c.mu.Unlock()
	return c.OfferRepository.GetOffer(ctx, id)
}

// hiddenOffers behaves as if every offer had been removed.
type hiddenOffers struct{ domain.OfferRepository }

func (hiddenOffers) GetOffer(context.Context, string) (domain.Offer, error) {
	return domain.Offer{}, domain.ErrNotFound
}
