// Package assistant holds the rule-based chat classifier: Parse reads a
// message into a domain.Intent and Respond renders the reply text.
package assistant

import (
	"regexp"
	"strconv"
	"strings"

	"travel_booking/internal/domain"
)

type keyword struct {
	needle string
	value  string
}

// Lookup tables are scanned in order and the first hit wins.
var countryKeywords = []keyword{
	{"egipt", "Egipt"},
	{"grecj", "Grecja"},
	{"włoch", "Włochy"},
	{"hiszpa", "Hiszpania"},
	{"chorwacj", "Chorwacja"},
	{"portugal", "Portugalia"},
	{"maroko", "Maroko"},
	{"tajland", "Tajlandia"},
	{"tajski", "Tajlandia"},
	{"indonezj", "Indonezja"},
	{"bali", "Indonezja"},
	{"japoni", "Japonia"},
	{"tanzani", "Tanzania"},
	{"norwegi", "Norwegia"},
	{"island", "Islandia"},
	{"kanad", "Kanada"},
	{"zea", "ZEA"},
	{"dubaj", "ZEA"},
	{"polsk", "Polska"},
	{"węgr", "Węgry"},
	{"wegr", "Węgry"},
	{"czec", "Czechy"},
}

var destinationKeywords = []keyword{
	{"hurghada", "Hurghada"},
	{"sharm", "Sharm El Sheikh"},
	{"kreta", "Kreta"},
	{"rodos", "Rodos"},
	{"korf", "Korfu"},
	{"zakynthos", "Zakynthos"},
	{"rzym", "Rzym"},
	{"wenecj", "Wenecja"},
	{"neapol", "Neapol"},
	{"barcelon", "Barcelona"},
	{"madryt", "Madryt"},
	{"teneryf", "Teneryfa"},
	{"dubrovnik", "Dubrovnik"},
	{"split", "Split"},
	{"lisbona", "Lizbona"},
	{"porto", "Porto"},
	{"marrakesz", "Marrakesz"},
	{"bangkok", "Bangkok"},
	{"phuket", "Phuket"},
	{"ubud", "Ubud"},
	{"tokio", "Tokio"},
	{"osaka", "Osaka"},
	{"zanzibar", "Zanzibar"},
	{"serengeti", "Serengeti"},
	{"reykjavik", "Reykjavik"},
	{"zakopan", "Zakopane"},
	{"gdańsk", "Gdańsk"},
	{"kraków", "Kraków"},
	{"prag", "Praga"},
	{"budapes", "Budapeszt"},
}

var tripTypeKeywords = []keyword{
	{"relaks", string(domain.TripRelax)},
	{"plaż", string(domain.TripRelax)},
	{"morz", string(domain.TripRelax)},
	{"wypoczy", string(domain.TripRelax)},
	{"przygod", string(domain.TripAdventure)},
	{"aktywn", string(domain.TripAdventure)},
	{"gór", string(domain.TripAdventure)},
	{"trekking", string(domain.TripAdventure)},
	{"rodzin", string(domain.TripFamily)},
	{"dziec", string(domain.TripFamily)},
	{"zwiedza", string(domain.TripCulture)},
	{"kultur", string(domain.TripCulture)},
	{"zabytk", string(domain.TripCulture)},
}

type pricePattern struct {
	re   *regexp.Regexp
	mult int64
}

// Tried in order; the first pattern that matches decides the ceiling.
var pricePatterns = []pricePattern{
	{regexp.MustCompile(`(\d+)\s*(?:k\b|tys)`), 1000},
	{regexp.MustCompile(`(\d+)\s*(?:zł|zloty|zlotych)`), 1},
	{regexp.MustCompile(`\b(?:do|maksymalnie|maximum|max)\s*(\d+)`), 1},
}

var (
	reservationPhrases = []string{"rezerwacj", "zarezerwow", "jak zarezerwować", "jak dokona"}
	recommendPhrases   = []string{"poleca", "najlep", "jaki kierunek", "gdzie pojechać", "teraz najlep"}
	familyPhrases      = []string{"rodzin", "dziec"}
	lastMinutePhrases  = []string{"last minute", "lastminute"}
	urgentPhrases      = []string{"last minute", "lastminute", "pilne"}
	budgetPhrases      = []string{"budżet", "budzet"}
)

// Parse classifies text. It is pure: equal input gives an equal Intent.
func Parse(text string) domain.Intent {
	msg := strings.ToLower(text)
	var in domain.Intent

	if v, ok := firstHit(msg, countryKeywords); ok {
		in.Country = &v
	}
	if v, ok := firstHit(msg, destinationKeywords); ok {
		in.Destination = &v
	}
	if v, ok := firstHit(msg, tripTypeKeywords); ok {
		tt := domain.TripType(v)
		in.TripType = &tt
	}
	priceFound := false
	if p, ok := extractPrice(msg); ok {
		in.MaxPrice = &p
		priceFound = true
	}
	in.LastMinute = containsAny(msg, urgentPhrases)

	var cat domain.QuestionCategory
	switch {
	case containsAny(msg, reservationPhrases):
		cat = domain.QuestionReservation
	case containsAny(msg, recommendPhrases):
		cat = domain.QuestionRecommended
	case containsAny(msg, familyPhrases):
		cat = domain.QuestionFamily
		tt := domain.TripFamily
		in.TripType = &tt
	case containsAny(msg, lastMinutePhrases):
		cat = domain.QuestionLastMinute
		in.LastMinute = true
	case containsAny(msg, budgetPhrases) || priceFound:
		cat = domain.QuestionBudget
	}
	if cat != "" {
		in.QuestionCategory = &cat
	}
	return in
}

func firstHit(msg string, table []keyword) (string, bool) {
	for _, k := range table {
		if strings.Contains(msg, k.needle) {
			return k.value, true
		}
	}
	return "", false
}

func extractPrice(msg string) (int64, bool) {
	for _, p := range pricePatterns {
		m := p.re.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || n > domain.MaxZloty/p.mult {
			continue
		}
		return n * p.mult, true
	}
	return 0, false
}

func containsAny(msg string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}
