package app_test

import (
	"context"
	"testing"
	"time"

	"travel_booking/internal/app"
	"travel_booking/internal/domain"
)

func res(offer string, st domain.ReservationStatus, total int64, created time.Time) domain.Reservation {
	return domain.Reservation{OfferID: offer, Status: st, TotalPrice: domain.Zloty(total), CreatedAt: created}
}

func TestAggregate_RevenueCountsConfirmedOnly(t *testing.T) {
	rs := []domain.Reservation{
		res("a", domain.StatusConfirmed, 100, now),
		res("a", domain.StatusBlocked, 50, now),
		res("a", domain.StatusCancelled, 200, now),
	}
	st := app.Aggregate(rs, nil, now)
	if st.TotalRevenue != domain.Zloty(100) {
		t.Fatalf("revenue: want 100.00 got %s", st.TotalRevenue)
	}
	if st.TotalReservations != 3 || st.ConfirmedReservations != 1 || st.BlockedReservations != 1 || st.CancelledReservations != 1 {
		t.Fatalf("status counts: %+v", st)
	}
	if len(st.PopularCountries) != 0 {
		t.Fatalf("unknown offers must not be ranked: %+v", st.PopularCountries)
	}
}

func TestAggregate_LapsedHoldCountsAsCancelled(t *testing.T) {
	lapsed := res("a", domain.StatusBlocked, 50, now.Add(-3*time.Hour))
	until := now.Add(-time.Hour)
	lapsed.BlockedUntil = &until
	live := res("a", domain.StatusBlocked, 50, now)
	later := now.Add(time.Hour)
	live.BlockedUntil = &later

	st := app.Aggregate([]domain.Reservation{lapsed, live}, nil, now)
	if st.BlockedReservations != 1 || st.CancelledReservations != 1 {
		t.Fatalf("want blocked=1 cancelled=1, got %+v", st)
	}
	if st.TotalRevenue != 0 {
		t.Fatalf("holds carry no revenue: %s", st.TotalRevenue)
	}
}

func TestAggregate_CountryRanking(t *testing.T) {
	countries := map[string]string{"kreta": "Grecja", "rodos": "Grecja", "tatry": "Polska", "rzym": "Włochy"}
	rs := []domain.Reservation{
		res("kreta", domain.StatusConfirmed, 1, now),
		res("rodos", domain.StatusCancelled, 1, now),
		res("tatry", domain.StatusBlocked, 1, now),
		res("rzym", domain.StatusBlocked, 1, now),
		res("gone", domain.StatusConfirmed, 1, now),
	}
	got := app.Aggregate(rs, countries, now).PopularCountries
	want := []domain.CountryCount{
		{Country: "Grecja", Reservations: 2},
		{Country: "Polska", Reservations: 1},
		{Country: "Włochy", Reservations: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("want %v got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank %d: want %v got %v", i, want[i], got[i])
		}
	}
}

func TestAggregate_MonthlyRevenue(t *testing.T) {
	var rs []domain.Reservation
	for m := 1; m <= 8; m++ {
		at := time.Date(2025, time.Month(m), 15, 12, 0, 0, 0, time.UTC)
		rs = append(rs, res("a", domain.StatusConfirmed, int64(m*100), at))
		rs = append(rs, res("a", domain.StatusBlocked, 999, at))
	}
	months := app.Aggregate(rs, nil, now).MonthlyRevenue
	if len(months) != 6 {
		t.Fatalf("want 6 buckets, got %d", len(months))
	}
	if months[0].Month != "2025-08" || months[0].Revenue != domain.Zloty(800) {
		t.Fatalf("most recent month first: %+v", months[0])
	}
	if months[5].Month != "2025-03" {
		t.Fatalf("oldest kept bucket: %+v", months[5])
	}
}

func TestStatsService_Compute(t *testing.T) {
	store := newStore(t, greekOffer(), polishOffer())
	ctx := context.Background()
	for _, u := range []domain.User{
		{ID: "u1", Email: "a@x.pl", Role: domain.RoleClient},
		{ID: "u2", Email: "b@x.pl", Role: domain.RoleClient},
		{ID: "root", Email: "admin@x.pl", Role: domain.RoleAdmin},
	} {
		if err := store.UpsertUser(ctx, u); err != nil {
			t.Fatalf("user: %v", err)
		}
	}
	rsvc := app.NewReservationService(store, store, app.ReservationConfig{}).WithClock(clock)
	r, err := rsvc.Create(ctx, domain.NewReservationRequest{UserID: "u1", OfferID: "kreta", Guests: 2, DepartureDate: departure})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := rsvc.Confirm(ctx, client("u1"), r.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	st, err := app.NewStatsService(store, store, store).WithClock(clock).Compute(ctx)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if st.TotalOffers != 2 || st.TotalClients != 2 || st.TotalAdmins != 1 {
		t.Fatalf("totals: %+v", st)
	}
	if st.TotalRevenue != domain.Zloty(4998) {
		t.Fatalf("revenue: %s", st.TotalRevenue)
	}
	if len(st.MonthlyRevenue) != 1 || st.MonthlyRevenue[0].Month != "2025-05" {
		t.Fatalf("monthly: %+v", st.MonthlyRevenue)
	}
}
