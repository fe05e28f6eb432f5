package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"travel_booking/internal/adapters/observability"
	"travel_booking/internal/domain"
)

type ReservationConfig struct {
	HoldDuration    time.Duration
	PaymentLeadDays int
	// Capacity bounds guests per offer departure; 0 disables the check.
	Capacity int
}

type ReservationService struct {
	offers domain.OfferRepository
	repo   domain.ReservationRepository
	cfg    ReservationConfig
	now    func() time.Time
}

func NewReservationService(o domain.OfferRepository, r domain.ReservationRepository, cfg ReservationConfig) *ReservationService {
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = 2 * time.Hour
	}
	return &ReservationService{offers: o, repo: r, cfg: cfg, now: time.Now}
}

func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	s.now = now
	return s
}

// Create places a hold (or a paid booking when req.Confirmed) and snapshots
// the total price from the offer's current price.
func (s *ReservationService) Create(ctx context.Context, req domain.NewReservationRequest) (domain.Reservation, error) {
	if req.UserID == "" {
		return domain.Reservation{}, domain.ErrUnauthorized
	}
	if req.Guests < 1 {
		return domain.Reservation{}, fmt.Errorf("%w: guests must be at least 1", domain.ErrInvalid)
	}
	offer, err := s.offers.GetOffer(ctx, req.OfferID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !offer.HasDeparture(req.DepartureDate) {
		return domain.Reservation{}, fmt.Errorf("%w: %s is not an available departure", domain.ErrInvalid, req.DepartureDate.Format(time.DateOnly))
	}

	now := s.now().UTC()
	r := domain.Reservation{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		OfferID:       offer.ID,
		Status:        domain.StatusBlocked,
		Guests:        req.Guests,
		TotalPrice:    offer.Price.Mul(req.Guests),
		DepartureDate: domain.DateOnly(req.DepartureDate),
		CreatedAt:     now,
	}
	if req.Confirmed {
		r.Status = domain.StatusConfirmed
		dl := domain.PaymentDeadline(r.DepartureDate, now, s.cfg.PaymentLeadDays)
		r.PaymentDeadline = &dl
	} else {
		until := now.Add(s.cfg.HoldDuration)
		r.BlockedUntil = &until
	}

	if err := s.repo.Reserve(ctx, r, s.cfg.Capacity, now); err != nil {
		if !errors.Is(err, domain.ErrSoldOut) {
			log.Error().Err(err).Str("offer_id", r.OfferID).Str("user_id", r.UserID).Msg("create reservation failed")
		}
		return domain.Reservation{}, err
	}
	observability.ObserveTransition("new", string(r.Status))
	log.Info().Str("reservation_id", r.ID).Str("status", string(r.Status)).Msg("reservation created")
	return r, nil
}

// Get returns a reservation visible to the session: its owner or an admin.
func (s *ReservationService) Get(ctx context.Context, sess domain.Session, id string) (domain.ReservationView, error) {
	r, err := s.load(ctx, sess, id)
	if err != nil {
		return domain.ReservationView{}, err
	}
	views, err := s.join(ctx, []domain.Reservation{r})
	if err != nil {
		return domain.ReservationView{}, err
	}
	return views[0], nil
}

// Confirm is the mocked payment step (or an admin confirmation).
func (s *ReservationService) Confirm(ctx context.Context, sess domain.Session, id string) (domain.Reservation, error) {
	return s.transition(ctx, sess, id, domain.StatusConfirmed, true)
}

// Cancel moves the reservation to cancelled. An admin cancelling someone
// else's reservation must pass confirmed.
func (s *ReservationService) Cancel(ctx context.Context, sess domain.Session, id string, confirmed bool) (domain.Reservation, error) {
	return s.transition(ctx, sess, id, domain.StatusCancelled, confirmed)
}

func (s *ReservationService) transition(ctx context.Context, sess domain.Session, id string, to domain.ReservationStatus, confirmed bool) (domain.Reservation, error) {
	r, err := s.load(ctx, sess, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := checkConfirmed(sess, r, confirmed); err != nil {
		return domain.Reservation{}, err
	}
	now := s.now().UTC()
	next, err := r.Transition(to, now, s.cfg.PaymentLeadDays)
	if errors.Is(err, domain.ErrHoldExpired) {
		s.expireOne(ctx, r, now)
		return domain.Reservation{}, err
	}
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := s.repo.UpdateReservation(ctx, next, r.Status); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			log.Error().Err(err).Str("reservation_id", id).Msg("update reservation failed")
		}
		return domain.Reservation{}, err
	}
	observability.ObserveTransition(string(r.Status), string(next.Status))
	log.Info().
		Str("reservation_id", id).
		Str("from", string(r.Status)).
		Str("to", string(next.Status)).
		Str("by", sess.UserID).
		Msg("reservation status changed")
	return next, nil
}

func (s *ReservationService) expireOne(ctx context.Context, r domain.Reservation, now time.Time) {
	next := r
	next.Status = domain.StatusCancelled
	next.BlockedUntil = nil
	if err := s.repo.UpdateReservation(ctx, next, domain.StatusBlocked); err != nil && !errors.Is(err, domain.ErrConflict) {
		log.Error().Err(err).Str("reservation_id", r.ID).Msg("expire hold failed")
		return
	}
	observability.ObserveTransition(string(domain.StatusBlocked), string(domain.StatusCancelled))
	observability.ObserveExpiredHolds(1)
}

// Delete removes a reservation that was never paid for. Like Cancel, an
// admin deleting someone else's reservation must pass confirmed.
func (s *ReservationService) Delete(ctx context.Context, sess domain.Session, id string, confirmed bool) error {
	r, err := s.load(ctx, sess, id)
	if err != nil {
		return err
	}
	if err := checkConfirmed(sess, r, confirmed); err != nil {
		return err
	}
	if r.Status == domain.StatusConfirmed {
		return fmt.Errorf("%w: confirmed reservations must be cancelled, not deleted", domain.ErrConflict)
	}
	return s.repo.DeleteReservation(ctx, id)
}

func (s *ReservationService) ListForUser(ctx context.Context, userID string) ([]domain.ReservationView, error) {
	rs, err := s.repo.ListReservations(ctx, domain.ReservationQuery{UserID: &userID})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("list reservations failed")
		return nil, err
	}
	return s.join(ctx, rs)
}

func (s *ReservationService) ListAll(ctx context.Context, status *domain.ReservationStatus) ([]domain.ReservationView, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: status %q", domain.ErrInvalid, *status)
	}
	rs, err := s.repo.ListReservations(ctx, domain.ReservationQuery{Status: status})
	if err != nil {
		log.Error().Err(err).Msg("list all reservations failed")
		return nil, err
	}
	return s.join(ctx, rs)
}

// ExpireHolds cancels every lapsed hold and reports how many it touched.
func (s *ReservationService) ExpireHolds(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireHolds(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		observability.ObserveExpiredHolds(int(n))
		log.Info().Int64("count", n).Msg("expired reservation holds")
	}
	return n, nil
}

// RunSweeper calls ExpireHolds every interval until ctx is done.
func (s *ReservationService) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.ExpireHolds(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("hold sweep failed")
			}
		}
	}
}

func (s *ReservationService) load(ctx context.Context, sess domain.Session, id string) (domain.Reservation, error) {
	if sess.UserID == "" {
		return domain.Reservation{}, domain.ErrUnauthorized
	}
	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if r.UserID != sess.UserID && !sess.IsAdmin() {
		// Do not reveal other users' reservations.
		return domain.Reservation{}, domain.ErrNotFound
	}
	return r, nil
}

func checkConfirmed(sess domain.Session, r domain.Reservation, confirmed bool) error {
	if r.UserID != sess.UserID && !confirmed {
		return fmt.Errorf("%w: reservation %s belongs to another user", domain.ErrConfirmationRequired, r.ID)
	}
	return nil
}

const joinConcurrency = 8

// join attaches offer fields, issuing one lookup per distinct offer.
func (s *ReservationService) join(ctx context.Context, rs []domain.Reservation) ([]domain.ReservationView, error) {
	ids := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		ids[r.OfferID] = struct{}{}
	}

	var mu sync.Mutex
	found := make(map[string]domain.Offer, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(joinConcurrency)
	for id := range ids {
		id := id
		g.Go(func() error {
			o, err := s.offers.GetOffer(gctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			found[id] = o
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	out := make([]domain.ReservationView, 0, len(rs))
	for _, r := range rs {
		v := domain.ReservationView{
			Reservation:     r,
			EffectiveStatus: r.EffectiveStatus(now),
			Expired:         r.HoldExpired(now),
		}
		if o, ok := found[r.OfferID]; ok {
			v.OfferTitle, v.Destination, v.Country = o.Title, o.Destination, o.Country
		} else {
			v.OfferMissing = true
		}
		out = append(out, v)
	}
	return out, nil
}
