// Package memory is an in-process implementation of the repository ports,
// used by tests and by STORAGE=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"travel_booking/internal/domain"
)

type Store struct {
	mu           sync.RWMutex
	offers       map[string]domain.Offer
	reservations map[string]domain.Reservation
	favorites    map[string]map[string]time.Time // user -> offer -> added
	users        map[string]domain.User
}

func New() *Store {
	return &Store{
		offers:       map[string]domain.Offer{},
		reservations: map[string]domain.Reservation{},
		favorites:    map[string]map[string]time.Time{},
		users:        map[string]domain.User{},
	}
}

func cloneOffer(o domain.Offer) domain.Offer {
	o.Images = append([]string(nil), o.Images...)
	o.AvailableDates = append([]time.Time(nil), o.AvailableDates...)
	if o.Itinerary != nil {
		it := make([]domain.ItineraryDay, len(o.Itinerary))
		for i, d := range o.Itinerary {
			d.Activities = append([]string(nil), d.Activities...)
			it[i] = d
		}
		o.Itinerary = it
	}
	if o.OriginalPrice != nil {
		v := *o.OriginalPrice
		o.OriginalPrice = &v
	}
	return o
}

// ---- offers ----

func (s *Store) ListOffers(_ context.Context, f domain.OfferFilter) ([]domain.Offer, error) {
	s.mu.RLock()
	out := make([]domain.Offer, 0, len(s.offers))
	for _, o := range s.offers {
		if f.Matches(o) {
			out = append(out, cloneOffer(o))
		}
	}
	s.mu.RUnlock()

	domain.SortOffers(out, f.Sort)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) GetOffer(_ context.Context, id string) (domain.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[id]
	if !ok {
		return domain.Offer{}, domain.ErrNotFound
	}
	return cloneOffer(o), nil
}

func (s *Store) CreateOffer(_ context.Context, o domain.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[o.ID]; ok {
		return fmt.Errorf("%w: offer %s already exists", domain.ErrConflict, o.ID)
	}
	s.offers[o.ID] = cloneOffer(o)
	return nil
}

func (s *Store) UpdateOffer(_ context.Context, o domain.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[o.ID]; !ok {
		return domain.ErrNotFound
	}
	s.offers[o.ID] = cloneOffer(o)
	return nil
}

func (s *Store) DeleteOffer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[id]; !ok {
		return domain.ErrNotFound
	}
	for _, r := range s.reservations {
		if r.OfferID == id {
			return fmt.Errorf("%w: offer %s has reservations", domain.ErrConflict, id)
		}
	}
	delete(s.offers, id)
	for _, favs := range s.favorites {
		delete(favs, id)
	}
	return nil
}

func (s *Store) CountOffers(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.offers), nil
}

// ---- reservations ----

// Reserve checks capacity and inserts under the store lock, which stands in
// for the per-offer row lock of the SQL store.
func (s *Store) Reserve(_ context.Context, r domain.Reservation, capacity int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[r.OfferID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := s.reservations[r.ID]; ok {
		return fmt.Errorf("%w: reservation %s already exists", domain.ErrConflict, r.ID)
	}
	if capacity > 0 {
		taken := 0
		dep := domain.DateOnly(r.DepartureDate)
		for _, x := range s.reservations {
			if x.OfferID == r.OfferID && domain.DateOnly(x.DepartureDate).Equal(dep) && x.Active(now) {
				taken += x.Guests
			}
		}
		if taken+r.Guests > capacity {
			return fmt.Errorf("%w: %d of %d places left", domain.ErrSoldOut, max(capacity-taken, 0), capacity)
		}
	}
	s.reservations[r.ID] = r
	return nil
}

func (s *Store) GetReservation(_ context.Context, id string) (domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return r, nil
}

// ListReservations returns matches newest first.
func (s *Store) ListReservations(_ context.Context, q domain.ReservationQuery) ([]domain.Reservation, error) {
	s.mu.RLock()
	out := make([]domain.Reservation, 0)
	for _, r := range s.reservations {
		if q.UserID != nil && r.UserID != *q.UserID {
			continue
		}
		if q.Status != nil && r.Status != *q.Status {
			continue
		}
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateReservation(_ context.Context, r domain.Reservation, from domain.ReservationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reservations[r.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != from {
		return fmt.Errorf("%w: reservation %s is %s, expected %s", domain.ErrConflict, r.ID, cur.Status, from)
	}
	s.reservations[r.ID] = r
	return nil
}

func (s *Store) DeleteReservation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.reservations, id)
	return nil
}

func (s *Store) ExpireHolds(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.reservations {
		if r.HoldExpired(now) {
			r.Status = domain.StatusCancelled
			r.BlockedUntil = nil
			s.reservations[id] = r
			n++
		}
	}
	return n, nil
}

// ---- favorites ----

func (s *Store) AddFavorite(_ context.Context, userID, offerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs, ok := s.favorites[userID]
	if !ok {
		favs = map[string]time.Time{}
		s.favorites[userID] = favs
	}
	if _, ok := favs[offerID]; !ok {
		favs[offerID] = time.Now()
	}
	return nil
}

func (s *Store) RemoveFavorite(_ context.Context, userID, offerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.favorites[userID], offerID)
	return nil
}

func (s *Store) IsFavorite(_ context.Context, userID, offerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.favorites[userID][offerID]
	return ok, nil
}

// ListFavoriteIDs returns the most recently added first.
func (s *Store) ListFavoriteIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	favs := s.favorites[userID]
	ids := make([]string, 0, len(favs))
	for id := range favs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := favs[ids[i]], favs[ids[j]]
		if !a.Equal(b) {
			return a.After(b)
		}
		return ids[i] < ids[j]
	})
	s.mu.RUnlock()
	return ids, nil
}

// ---- users ----

// UpsertUser keeps emails unique across profiles, ignoring case as the
// MySQL unique key does.
func (s *Store) UpsertUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, other := range s.users {
		if id != u.ID && strings.EqualFold(other.Email, u.Email) {
			return fmt.Errorf("%w: email %s is taken", domain.ErrConflict, u.Email)
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *Store) ListUsers(context.Context) ([]domain.User, error) {
	s.mu.RLock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteUser drops the profile together with its favorites and reservations.
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.users, id)
	delete(s.favorites, id)
	for rid, r := range s.reservations {
		if r.UserID == id {
			delete(s.reservations, rid)
		}
	}
	return nil
}

func (s *Store) CountByRole(context.Context) (map[domain.Role]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[domain.Role]int{}
	for _, u := range s.users {
		out[u.Role]++
	}
	return out, nil
}
