package domain

type QuestionCategory string

const (
	QuestionReservation QuestionCategory = "reservation"
	QuestionRecommended QuestionCategory = "recommended"
	QuestionFamily      QuestionCategory = "family"
	QuestionLastMinute  QuestionCategory = "last_minute"
	QuestionBudget      QuestionCategory = "budget"
)

// Intent is the structured reading of a free-text chat message. MaxPrice is
// in whole złoty.
type Intent struct {
	Country          *string           `json:"country"`
	Destination      *string           `json:"destination"`
	TripType         *TripType         `json:"tripType"`
	MaxPrice         *int64            `json:"maxPrice"`
	LastMinute       bool              `json:"lastMinute"`
	QuestionCategory *QuestionCategory `json:"questionCategory"`
}

// Filter turns the extracted entities into an offer query.
func (i Intent) Filter(limit int) OfferFilter {
	f := OfferFilter{
		Country:     i.Country,
		Destination: i.Destination,
		TripType:    i.TripType,
		Limit:       limit,
	}
	if i.MaxPrice != nil {
		m := Zloty(*i.MaxPrice)
		f.PriceMax = &m
	}
	if i.LastMinute {
		t := true
		f.LastMinute = &t
	}
	return f
}
