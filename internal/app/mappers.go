package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"travel_booking/internal/domain"
)

/********** alias registries **********/

// Seed files come from two generations of tooling: snake_case rows and
// camelCase fixtures. Both spellings are accepted for every field.
var offerAliases = map[string][]string{
	"id":                {"id", "offer_id", "offerId"},
	"title":             {"title", "name"},
	"description":       {"description", "long_description", "longDescription"},
	"short_description": {"short_description", "shortDescription", "summary"},
	"destination":       {"destination", "city", "location.destination"},
	"country":           {"country", "location.country"},
	"duration":          {"duration", "duration_days", "durationDays", "days"},
	"price":             {"price", "price.amount"},
	"original_price":    {"original_price", "originalPrice", "price.original"},
	"images":            {"images", "photos", "gallery"},
	"meals":             {"meals", "meal_plan", "mealPlan", "board"},
	"trip_type":         {"trip_type", "tripType", "type"},
	"season":            {"season"},
	"is_last_minute":    {"is_last_minute", "isLastMinute", "last_minute", "lastMinute"},
	"rating":            {"rating", "rating.value", "score"},
	"review_count":      {"review_count", "reviewCount", "reviews"},
	"accommodation":     {"accommodation", "hotel"},
	"transport":         {"transport", "travel"},
	"itinerary":         {"itinerary", "program", "days_plan"},
	"available_dates":   {"available_dates", "availableDates", "dates"},
	"created_at":        {"created_at", "createdAt"},
}

var dayAliases = map[string][]string{
	"day":         {"day", "day_number", "dayNumber"},
	"title":       {"title", "name"},
	"description": {"description", "details"},
	"activities":  {"activities", "items"},
}

// seedNamespace scopes ids derived from non-UUID seed keys like "1".
var seedNamespace = uuid.MustParse("6f1c2a7e-4d0b-5a9e-8c3f-2b7d9e1a4c55")

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstAlias returns the first value present under any alias of key.
func firstAlias(m map[string]any, aliases map[string][]string, key string) any {
	for _, p := range aliases[key] {
		if v := lookupAny(m, p); v != nil {
			return v
		}
	}
	return nil
}

func aliasStr(m map[string]any, aliases map[string][]string, key string) string {
	switch v := firstAlias(m, aliases, key).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// aliasFloat: number from float64 or a string like "4,5".
func aliasFloat(m map[string]any, aliases map[string][]string, key string) (float64, bool) {
	switch v := firstAlias(m, aliases, key).(type) {
	case float64:
		return v, true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func aliasInt(m map[string]any, aliases map[string][]string, key string) int {
	f, _ := aliasFloat(m, aliases, key)
	return int(f)
}

func aliasBool(m map[string]any, aliases map[string][]string, key string) bool {
	switch v := firstAlias(m, aliases, key).(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return false
}

// aliasMoney keeps decimal amounts exact: numbers are re-rendered with the
// shortest representation before ParseMoney sees them.
func aliasMoney(m map[string]any, aliases map[string][]string, key string) (*domain.Money, error) {
	s := aliasStr(m, aliases, key)
	if s == "" {
		return nil, nil
	}
	v, err := domain.ParseMoney(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &v, nil
}

// sliceStrings: accept []any with either strings or {url/src}.
func sliceStrings(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch t := it.(type) {
		case string:
			if t != "" {
				out = append(out, t)
			}
		case map[string]any:
			if u, ok := t["url"].(string); ok && u != "" {
				out = append(out, u)
			} else if u, ok := t["src"].(string); ok && u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}

// parseSeedTime accepts a bare date or an RFC 3339 timestamp.
func parseSeedTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

/********** mappers **********/

// seedOfferID keeps UUID keys and derives a stable UUID for anything else,
// so reseeding the same file hits the same rows.
func seedOfferID(raw string) string {
	if raw == "" {
		return uuid.NewString()
	}
	if id, err := uuid.Parse(raw); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(seedNamespace, []byte("offer:"+raw)).String()
}

// MapSeedOffer turns one decoded seed record into an offer. It does not
// validate; the offer service does that on write.
func MapSeedOffer(m map[string]any) (domain.Offer, error) {
	o := domain.Offer{
		ID:               seedOfferID(aliasStr(m, offerAliases, "id")),
		Title:            aliasStr(m, offerAliases, "title"),
		Description:      aliasStr(m, offerAliases, "description"),
		ShortDescription: aliasStr(m, offerAliases, "short_description"),
		Destination:      aliasStr(m, offerAliases, "destination"),
		Country:          aliasStr(m, offerAliases, "country"),
		Duration:         aliasInt(m, offerAliases, "duration"),
		Images:           sliceStrings(firstAlias(m, offerAliases, "images")),
		Meals:            domain.MealPlan(aliasStr(m, offerAliases, "meals")),
		TripType:         domain.TripType(strings.ToLower(aliasStr(m, offerAliases, "trip_type"))),
		Season:           domain.Season(strings.ToLower(aliasStr(m, offerAliases, "season"))),
		IsLastMinute:     aliasBool(m, offerAliases, "is_last_minute"),
		ReviewCount:      aliasInt(m, offerAliases, "review_count"),
		Accommodation:    aliasStr(m, offerAliases, "accommodation"),
		Transport:        aliasStr(m, offerAliases, "transport"),
	}
	if o.Meals == "" {
		o.Meals = domain.MealsNone
	}
	if r, ok := aliasFloat(m, offerAliases, "rating"); ok {
		o.Rating = r
	}

	price, err := aliasMoney(m, offerAliases, "price")
	if err != nil {
		return domain.Offer{}, err
	}
	if price == nil {
		return domain.Offer{}, fmt.Errorf("%w: offer %q has no price", domain.ErrInvalid, o.Title)
	}
	o.Price = *price
	if o.OriginalPrice, err = aliasMoney(m, offerAliases, "original_price"); err != nil {
		return domain.Offer{}, err
	}

	for _, d := range sliceStrings(firstAlias(m, offerAliases, "available_dates")) {
		t, err := parseSeedTime(d)
		if err != nil {
			return domain.Offer{}, fmt.Errorf("%w: available date %q", domain.ErrInvalid, d)
		}
		o.AvailableDates = append(o.AvailableDates, domain.DateOnly(t))
	}
	if s := aliasStr(m, offerAliases, "created_at"); s != "" {
		t, err := parseSeedTime(s)
		if err != nil {
			return domain.Offer{}, fmt.Errorf("%w: created_at %q", domain.ErrInvalid, s)
		}
		o.CreatedAt = t.UTC()
	}

	if days, ok := firstAlias(m, offerAliases, "itinerary").([]any); ok {
		for _, it := range days {
			dm, ok := it.(map[string]any)
			if !ok {
				continue
			}
			o.Itinerary = append(o.Itinerary, domain.ItineraryDay{
				Day:         aliasInt(dm, dayAliases, "day"),
				Title:       aliasStr(dm, dayAliases, "title"),
				Description: aliasStr(dm, dayAliases, "description"),
				Activities:  sliceStrings(firstAlias(dm, dayAliases, "activities")),
			})
		}
	}
	return o, nil
}
