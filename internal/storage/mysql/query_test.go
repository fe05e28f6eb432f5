package mysql

import (
	"strings"
	"testing"
	"time"

	"travel_booking/internal/domain"
)

func TestBuildListOffers_Empty(t *testing.T) {
	q, args := buildListOffers(domain.OfferFilter{})
	if strings.Contains(q, "WHERE") {
		t.Fatalf("empty filter should have no WHERE clause:\n%s", q)
	}
	if !strings.HasSuffix(q, "ORDER BY o.created_at DESC, o.id") {
		t.Fatalf("default order should be newest first:\n%s", q)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestBuildListOffers_AllPredicates(t *testing.T) {
	country := "Grecja"
	tt := domain.TripRelax
	season := domain.SeasonSummer
	meals := domain.MealsAllInclusive
	lo, hi := domain.Zloty(1000), domain.Zloty(3000)
	dest := "50%_off"
	from := time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC)
	to := time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)
	lm := true

	q, args := buildListOffers(domain.OfferFilter{
		Country: &country, TripType: &tt, Season: &season, Meals: &meals,
		PriceMin: &lo, PriceMax: &hi, Destination: &dest,
		DateFrom: &from, DateTo: &to, LastMinute: &lm,
		Sort: domain.SortPriceAsc, Limit: 3,
	})

	for _, want := range []string{
		"o.country = ?", "o.trip_type = ?", "o.season = ?", "o.meals = ?",
		"o.price >= ?", "o.price <= ?", "LOWER(o.destination) LIKE ?",
		"o.is_last_minute = ?",
		"EXISTS (SELECT 1 FROM available_dates d WHERE d.offer_id = o.id AND d.date >= ? AND d.date <= ?)",
		"ORDER BY o.price ASC", "LIMIT ?",
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("query missing %q:\n%s", want, q)
		}
	}
	if strings.Count(q, "?") != len(args) {
		t.Fatalf("placeholder/arg mismatch: %d vs %d", strings.Count(q, "?"), len(args))
	}
	if args[4] != int64(100000) || args[5] != int64(300000) {
		t.Fatalf("prices should bind as minor units, got %v %v", args[4], args[5])
	}
	if args[6] != `%50\%\_off%` {
		t.Fatalf("LIKE pattern not escaped: %v", args[6])
	}
	if d := args[8].(time.Time); d.Hour() != 0 || d.Day() != 1 {
		t.Fatalf("date bound should be truncated to the day: %v", d)
	}
	if args[len(args)-1] != 3 {
		t.Fatalf("limit should bind last, got %v", args[len(args)-1])
	}
}

func TestBuildListOffers_OnlyDateTo(t *testing.T) {
	to := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	q, args := buildListOffers(domain.OfferFilter{DateTo: &to})
	if !strings.Contains(q, "d.offer_id = o.id AND d.date <= ?)") || strings.Contains(q, "d.date >= ?") {
		t.Fatalf("unexpected date predicate:\n%s", q)
	}
	if len(args) != 1 {
		t.Fatalf("args: %v", args)
	}
}

func TestBuildListOffers_SortOrders(t *testing.T) {
	cases := map[domain.SortOrder]string{
		domain.SortNewest:    "ORDER BY o.created_at DESC",
		domain.SortPriceDesc: "ORDER BY o.price DESC",
		domain.SortRating:    "ORDER BY o.rating DESC",
	}
	for s, want := range cases {
		q, _ := buildListOffers(domain.OfferFilter{Sort: s})
		if !strings.Contains(q, want) {
			t.Fatalf("sort %q: want %q in\n%s", s, want, q)
		}
	}
}

func TestPlaceholders(t *testing.T) {
	if placeholders(0) != "" || placeholders(1) != "?" || placeholders(3) != "?,?,?" {
		t.Fatalf("placeholders: %q %q %q", placeholders(0), placeholders(1), placeholders(3))
	}
}
