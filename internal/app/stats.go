package app

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"travel_booking/internal/domain"
)

const monthlyBuckets = 6

type StatsService struct {
	offers domain.OfferRepository
	res    domain.ReservationRepository
	users  domain.UserRepository
	now    func() time.Time
}

func NewStatsService(o domain.OfferRepository, r domain.ReservationRepository, u domain.UserRepository) *StatsService {
	return &StatsService{offers: o, res: r, users: u, now: time.Now}
}

func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// Compute scans the ledger and offers; nothing is maintained incrementally.
func (s *StatsService) Compute(ctx context.Context) (domain.AdminStats, error) {
	var (
		rs     []domain.Reservation
		offers []domain.Offer
		roles  map[domain.Role]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rs, err = s.res.ListReservations(gctx, domain.ReservationQuery{})
		return err
	})
	g.Go(func() (err error) {
		offers, err = s.offers.ListOffers(gctx, domain.OfferFilter{})
		return err
	})
	g.Go(func() (err error) {
		roles, err = s.users.CountByRole(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.AdminStats{}, err
	}

	countries := make(map[string]string, len(offers))
	for _, o := range offers {
		countries[o.ID] = o.Country
	}
	st := Aggregate(rs, countries, s.now().UTC())
	st.TotalOffers = len(offers)
	st.TotalClients = roles[domain.RoleClient]
	st.TotalAdmins = roles[domain.RoleAdmin]
	return st, nil
}

// Aggregate is the pure read-side summary. countries maps offer ID to the
// offer's country; reservations of unknown offers are left out of the
// per-country ranking. Holds lapsed at now count as cancelled.
func Aggregate(rs []domain.Reservation, countries map[string]string, now time.Time) domain.AdminStats {
	st := domain.AdminStats{TotalReservations: len(rs)}
	byCountry := map[string]int{}
	byMonth := map[string]domain.Money{}
	for _, r := range rs {
		switch r.EffectiveStatus(now) {
		case domain.StatusConfirmed:
			st.ConfirmedReservations++
			st.TotalRevenue += r.TotalPrice
			byMonth[r.CreatedAt.UTC().Format("2006-01")] += r.TotalPrice
		case domain.StatusBlocked:
			st.BlockedReservations++
		case domain.StatusCancelled:
			st.CancelledReservations++
		}
		if c, ok := countries[r.OfferID]; ok && c != "" {
			byCountry[c]++
		}
	}

	st.PopularCountries = make([]domain.CountryCount, 0, len(byCountry))
	for c, n := range byCountry {
		st.PopularCountries = append(st.PopularCountries, domain.CountryCount{Country: c, Reservations: n})
	}
	sort.Slice(st.PopularCountries, func(i, j int) bool {
		a, b := st.PopularCountries[i], st.PopularCountries[j]
		if a.Reservations != b.Reservations {
			return a.Reservations > b.Reservations
		}
		return a.Country < b.Country
	})

	st.MonthlyRevenue = make([]domain.MonthRevenue, 0, len(byMonth))
	for m, v := range byMonth {
		st.MonthlyRevenue = append(st.MonthlyRevenue, domain.MonthRevenue{Month: m, Revenue: v})
	}
	sort.Slice(st.MonthlyRevenue, func(i, j int) bool {
		return st.MonthlyRevenue[i].Month > st.MonthlyRevenue[j].Month
	})
	if len(st.MonthlyRevenue) > monthlyBuckets {
		st.MonthlyRevenue = st.MonthlyRevenue[:monthlyBuckets]
	}
	return st
}
