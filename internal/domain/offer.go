package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type MealPlan string

const (
	MealsBreakfast    MealPlan = "BB"
	MealsHalfBoard    MealPlan = "HB"
	MealsAllInclusive MealPlan = "AI"
	MealsNone         MealPlan = "none"
)

func (m MealPlan) Valid() bool {
	switch m {
	case MealsBreakfast, MealsHalfBoard, MealsAllInclusive, MealsNone:
		return true
	}
	return false
}

type TripType string

const (
	TripRelax     TripType = "relax"
	TripAdventure TripType = "adventure"
	TripCulture   TripType = "culture"
	TripFamily    TripType = "family"
)

func (t TripType) Valid() bool {
	switch t {
	case TripRelax, TripAdventure, TripCulture, TripFamily:
		return true
	}
	return false
}

type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
	SeasonWinter Season = "winter"
)

func (s Season) Valid() bool {
	switch s {
	case SeasonSpring, SeasonSummer, SeasonAutumn, SeasonWinter:
		return true
	}
	return false
}

type Offer struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	ShortDescription string         `json:"short_description"`
	Destination      string         `json:"destination"`
	Country          string         `json:"country"`
	Duration         int            `json:"duration"`
	Price            Money          `json:"price"`
	OriginalPrice    *Money         `json:"original_price,omitempty"`
	Images           []string       `json:"images"`
	Meals            MealPlan       `json:"meals"`
	TripType         TripType       `json:"trip_type"`
	Season           Season         `json:"season"`
	IsLastMinute     bool           `json:"is_last_minute"`
	Rating           float64        `json:"rating"`
	ReviewCount      int            `json:"review_count"`
	Accommodation    string         `json:"accommodation"`
	Transport        string         `json:"transport"`
	Itinerary        []ItineraryDay `json:"itinerary"`
	AvailableDates   []time.Time    `json:"available_dates"`
	CreatedAt        time.Time      `json:"created_at"`
}

type ItineraryDay struct {
	Day         int      `json:"day"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Activities  []string `json:"activities"`
}

// Validate checks the hard invariants of an offer. Itinerary contiguity is
// soft and reported separately by ItineraryContiguous.
func (o Offer) Validate() error {
	switch {
	case strings.TrimSpace(o.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalid)
	case strings.TrimSpace(o.Destination) == "":
		return fmt.Errorf("%w: destination is required", ErrInvalid)
	case strings.TrimSpace(o.Country) == "":
		return fmt.Errorf("%w: country is required", ErrInvalid)
	case o.Duration < 1:
		return fmt.Errorf("%w: duration must be at least 1 day", ErrInvalid)
	case o.Price <= 0:
		return fmt.Errorf("%w: price must be positive", ErrInvalid)
	case o.OriginalPrice != nil && o.Price > *o.OriginalPrice:
		return fmt.Errorf("%w: price %s exceeds original price %s", ErrInvalid, o.Price, *o.OriginalPrice)
	case !o.Meals.Valid():
		return fmt.Errorf("%w: meal plan %q", ErrInvalid, o.Meals)
	case !o.TripType.Valid():
		return fmt.Errorf("%w: trip type %q", ErrInvalid, o.TripType)
	case !o.Season.Valid():
		return fmt.Errorf("%w: season %q", ErrInvalid, o.Season)
	case o.Rating < 0 || o.Rating > 5:
		return fmt.Errorf("%w: rating must be within 0..5", ErrInvalid)
	case o.ReviewCount < 0:
		return fmt.Errorf("%w: review count must not be negative", ErrInvalid)
	}
	return nil
}

// ItineraryContiguous reports whether day numbers are unique and run 1..n.
func (o Offer) ItineraryContiguous() bool {
	seen := make(map[int]bool, len(o.Itinerary))
	for _, d := range o.Itinerary {
		if d.Day < 1 || d.Day > len(o.Itinerary) || seen[d.Day] {
			return false
		}
		seen[d.Day] = true
	}
	return true
}

// HasDeparture reports whether d (compared as a calendar date) is one of the
// offer's available dates.
func (o Offer) HasDeparture(d time.Time) bool {
	d = DateOnly(d)
	for _, a := range o.AvailableDates {
		if DateOnly(a).Equal(d) {
			return true
		}
	}
	return false
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// OfferPatch is a partial update; nil fields are left untouched.
type OfferPatch struct {
	Title            *string   `json:"title"`
	Description      *string   `json:"description"`
	ShortDescription *string   `json:"short_description"`
	Destination      *string   `json:"destination"`
	Country          *string   `json:"country"`
	Duration         *int      `json:"duration"`
	Price            *Money    `json:"price"`
	OriginalPrice    *Money    `json:"original_price"`
	ClearOriginal    bool      `json:"clear_original_price"`
	Images           *[]string `json:"images"`
	Meals            *MealPlan `json:"meals"`
	TripType         *TripType `json:"trip_type"`
	Season           *Season   `json:"season"`
	IsLastMinute     *bool     `json:"is_last_minute"`
	Rating           *float64  `json:"rating"`
	ReviewCount      *int      `json:"review_count"`
	Accommodation    *string   `json:"accommodation"`
	Transport        *string   `json:"transport"`
}

// Apply returns a copy of o with the patch applied.
func (p OfferPatch) Apply(o Offer) Offer {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&o.Title, p.Title)
	set(&o.Description, p.Description)
	set(&o.ShortDescription, p.ShortDescription)
	set(&o.Destination, p.Destination)
	set(&o.Country, p.Country)
	set(&o.Accommodation, p.Accommodation)
	set(&o.Transport, p.Transport)
	if p.Duration != nil {
		o.Duration = *p.Duration
	}
	if p.Price != nil {
		o.Price = *p.Price
	}
	if p.ClearOriginal {
		o.OriginalPrice = nil
	} else if p.OriginalPrice != nil {
		v := *p.OriginalPrice
		o.OriginalPrice = &v
	}
	if p.Images != nil {
		o.Images = append([]string(nil), (*p.Images)...)
	}
	if p.Meals != nil {
		o.Meals = *p.Meals
	}
	if p.TripType != nil {
		o.TripType = *p.TripType
	}
	if p.Season != nil {
		o.Season = *p.Season
	}
	if p.IsLastMinute != nil {
		o.IsLastMinute = *p.IsLastMinute
	}
	if p.Rating != nil {
		o.Rating = *p.Rating
	}
	if p.ReviewCount != nil {
		o.ReviewCount = *p.ReviewCount
	}
	return o
}

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortRating    SortOrder = "rating"
)

func (s SortOrder) Valid() bool {
	switch s {
	case "", SortNewest, SortPriceAsc, SortPriceDesc, SortRating:
		return true
	}
	return false
}

// OfferFilter is a conjunction of optional predicates. A nil field places no
// constraint; an empty string is a real value, not "unset".
type OfferFilter struct {
	Country     *string
	TripType    *TripType
	Season      *Season
	Meals       *MealPlan
	PriceMin    *Money
	PriceMax    *Money
	Destination *string // case-insensitive substring
	DateFrom    *time.Time
	DateTo      *time.Time
	LastMinute  *bool
	Sort        SortOrder
	Limit       int
}

func (f OfferFilter) Validate() error {
	if f.TripType != nil && !f.TripType.Valid() {
		return fmt.Errorf("%w: trip type %q", ErrInvalid, *f.TripType)
	}
	if f.Season != nil && !f.Season.Valid() {
		return fmt.Errorf("%w: season %q", ErrInvalid, *f.Season)
	}
	if f.Meals != nil && !f.Meals.Valid() {
		return fmt.Errorf("%w: meal plan %q", ErrInvalid, *f.Meals)
	}
	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		return fmt.Errorf("%w: price_min is greater than price_max", ErrInvalid)
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return fmt.Errorf("%w: date_from is after date_to", ErrInvalid)
	}
	if !f.Sort.Valid() {
		return fmt.Errorf("%w: sort %q", ErrInvalid, f.Sort)
	}
	if f.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalid)
	}
	return nil
}

// Matches evaluates every set predicate against o.
func (f OfferFilter) Matches(o Offer) bool {
	if f.Country != nil && o.Country != *f.Country {
		return false
	}
	if f.TripType != nil && o.TripType != *f.TripType {
		return false
	}
	if f.Season != nil && o.Season != *f.Season {
		return false
	}
	if f.Meals != nil && o.Meals != *f.Meals {
		return false
	}
	if f.PriceMin != nil && o.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && o.Price > *f.PriceMax {
		return false
	}
	if f.Destination != nil && !strings.Contains(strings.ToLower(o.Destination), strings.ToLower(*f.Destination)) {
		return false
	}
	if f.LastMinute != nil && o.IsLastMinute != *f.LastMinute {
		return false
	}
	if f.DateFrom != nil || f.DateTo != nil {
		return f.anyDateInRange(o.AvailableDates)
	}
	return true
}

func (f OfferFilter) anyDateInRange(dates []time.Time) bool {
	for _, d := range dates {
		d = DateOnly(d)
		if f.DateFrom != nil && d.Before(DateOnly(*f.DateFrom)) {
			continue
		}
		if f.DateTo != nil && d.After(DateOnly(*f.DateTo)) {
			continue
		}
		return true
	}
	return false
}

// SortOffers orders offers in place. Ties fall back to newest first, then ID.
func SortOffers(offers []Offer, order SortOrder) {
	newer := func(a, b Offer) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	}
	sort.SliceStable(offers, func(i, j int) bool {
		a, b := offers[i], offers[j]
		switch order {
		case SortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case SortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		case SortRating:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		}
		return newer(a, b)
	})
}
