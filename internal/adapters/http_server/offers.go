package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"travel_booking/internal/domain"
)

const maxLimit = 200

// parseFilter reads the offer filter from the query string. A parameter that
// is present constrains the result even when its value is empty.
func parseFilter(q url.Values) (domain.OfferFilter, error) {
	var f domain.OfferFilter
	str := func(k string) *string {
		if !q.Has(k) {
			return nil
		}
		v := q.Get(k)
		return &v
	}
	f.Country = str("country")
	f.Destination = str("destination")
	if v := str("trip_type"); v != nil {
		t := domain.TripType(*v)
		f.TripType = &t
	}
	if v := str("season"); v != nil {
		s := domain.Season(*v)
		f.Season = &s
	}
	if v := str("meals"); v != nil {
		m := domain.MealPlan(*v)
		f.Meals = &m
	}
	for k, dst := range map[string]**domain.Money{"price_min": &f.PriceMin, "price_max": &f.PriceMax} {
		if v := str(k); v != nil {
			m, err := domain.ParseMoney(*v)
			if err != nil {
				return f, fmt.Errorf("%w: %s must be an amount", domain.ErrInvalid, k)
			}
			*dst = &m
		}
	}
	for k, dst := range map[string]**time.Time{"date_from": &f.DateFrom, "date_to": &f.DateTo} {
		if v := str(k); v != nil {
			d, err := time.Parse(time.DateOnly, *v)
			if err != nil {
				return f, fmt.Errorf("%w: %s must be YYYY-MM-DD", domain.ErrInvalid, k)
			}
			*dst = &d
		}
	}
	if v := str("last_minute"); v != nil {
		b, err := strconv.ParseBool(*v)
		if err != nil {
			return f, fmt.Errorf("%w: last_minute must be true or false", domain.ErrInvalid)
		}
		f.LastMinute = &b
	}
	f.Sort = domain.SortOrder(q.Get("sort"))
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLimit {
			return f, fmt.Errorf("%w: limit must be an integer between 1 and %d", domain.ErrInvalid, maxLimit)
		}
		f.Limit = n
	}
	return f, f.Validate()
}

func (h *Handlers) listOffers(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Offers.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, pageOf(out))
}

func (h *Handlers) getOffer(w http.ResponseWriter, r *http.Request) {
	o, ok, err := h.Offers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "offer not found")
		return
	}
	writeCacheable(w, r, o)
}

type itineraryDayRequest struct {
	Day         int      `json:"day" validate:"min=1"`
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description"`
	Activities  []string `json:"activities"`
}

type createOfferRequest struct {
	Title            string                `json:"title" validate:"required,max=255"`
	Description      string                `json:"description"`
	ShortDescription string                `json:"short_description" validate:"max=512"`
	Destination      string                `json:"destination" validate:"required,max=128"`
	Country          string                `json:"country" validate:"required,max=128"`
	Duration         int                   `json:"duration" validate:"min=1"`
	Price            domain.Money          `json:"price" validate:"gt=0"`
	OriginalPrice    *domain.Money         `json:"original_price" validate:"omitempty,gt=0"`
	Images           []string              `json:"images" validate:"dive,url"`
	Meals            domain.MealPlan       `json:"meals" validate:"oneof=BB HB AI none"`
	TripType         domain.TripType       `json:"trip_type" validate:"oneof=relax adventure culture family"`
	Season           domain.Season         `json:"season" validate:"oneof=spring summer autumn winter"`
	IsLastMinute     bool                  `json:"is_last_minute"`
	Rating           float64               `json:"rating" validate:"min=0,max=5"`
	ReviewCount      int                   `json:"review_count" validate:"min=0"`
	Accommodation    string                `json:"accommodation"`
	Transport        string                `json:"transport"`
	Itinerary        []itineraryDayRequest `json:"itinerary" validate:"dive"`
	AvailableDates   []string              `json:"available_dates" validate:"dive,datetime=2006-01-02"`
}

func (req createOfferRequest) offer() domain.Offer {
	o := domain.Offer{
		Title: req.Title, Description: req.Description, ShortDescription: req.ShortDescription,
		Destination: req.Destination, Country: req.Country, Duration: req.Duration,
		Price: req.Price, OriginalPrice: req.OriginalPrice, Images: req.Images,
		Meals: req.Meals, TripType: req.TripType, Season: req.Season, IsLastMinute: req.IsLastMinute,
		Rating: req.Rating, ReviewCount: req.ReviewCount,
		Accommodation: req.Accommodation, Transport: req.Transport,
	}
	for _, d := range req.Itinerary {
		o.Itinerary = append(o.Itinerary, domain.ItineraryDay{Day: d.Day, Title: d.Title, Description: d.Description, Activities: d.Activities})
	}
	for _, s := range req.AvailableDates {
		d, _ := time.Parse(time.DateOnly, s) // checked by the datetime tag
		o.AvailableDates = append(o.AvailableDates, d)
	}
	return o
}

func (h *Handlers) createOffer(w http.ResponseWriter, r *http.Request) {
	var req createOfferRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Offers.Create(r.Context(), req.offer())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/offers/"+o.ID)
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handlers) updateOffer(w http.ResponseWriter, r *http.Request) {
	var p domain.OfferPatch
	if err := decode(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Offers.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handlers) deleteOffer(w http.ResponseWriter, r *http.Request) {
	if err := h.Offers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
