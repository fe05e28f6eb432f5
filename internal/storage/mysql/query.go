package mysql

import (
	"strings"

	"travel_booking/internal/domain"
)

var orderBy = map[domain.SortOrder]string{
	"":                   "o.created_at DESC, o.id",
	domain.SortNewest:    "o.created_at DESC, o.id",
	domain.SortPriceAsc:  "o.price ASC, o.created_at DESC, o.id",
	domain.SortPriceDesc: "o.price DESC, o.created_at DESC, o.id",
	domain.SortRating:    "o.rating DESC, o.created_at DESC, o.id",
}

// buildListOffers renders f as a SELECT over offers. Every predicate is a
// bound parameter; only the ORDER BY comes from a fixed table.
func buildListOffers(f domain.OfferFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, vals ...any) {
		where = append(where, cond)
		args = append(args, vals...)
	}

	if f.Country != nil {
		add("o.country = ?", *f.Country)
	}
	if f.TripType != nil {
		add("o.trip_type = ?", string(*f.TripType))
	}
	if f.Season != nil {
		add("o.season = ?", string(*f.Season))
	}
	if f.Meals != nil {
		add("o.meals = ?", string(*f.Meals))
	}
	if f.PriceMin != nil {
		add("o.price >= ?", int64(*f.PriceMin))
	}
	if f.PriceMax != nil {
		add("o.price <= ?", int64(*f.PriceMax))
	}
	if f.Destination != nil {
		add("LOWER(o.destination) LIKE ?", "%"+escapeLike(strings.ToLower(*f.Destination))+"%")
	}
	if f.LastMinute != nil {
		add("o.is_last_minute = ?", *f.LastMinute)
	}
	if f.DateFrom != nil || f.DateTo != nil {
		cond := "EXISTS (SELECT 1 FROM available_dates d WHERE d.offer_id = o.id"
		var vals []any
		if f.DateFrom != nil {
			cond += " AND d.date >= ?"
			vals = append(vals, domain.DateOnly(*f.DateFrom))
		}
		if f.DateTo != nil {
			cond += " AND d.date <= ?"
			vals = append(vals, domain.DateOnly(*f.DateTo))
		}
		add(cond+")", vals...)
	}

	var b strings.Builder
	b.WriteString("SELECT")
	b.WriteString(offerColumns)
	b.WriteString("\nFROM offers o")
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, "\n  AND "))
	}
	b.WriteString("\nORDER BY ")
	ob, ok := orderBy[f.Sort]
	if !ok {
		ob = orderBy[domain.SortNewest]
	}
	b.WriteString(ob)
	if f.Limit > 0 {
		b.WriteString("\nLIMIT ?")
		args = append(args, f.Limit)
	}
	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
