package assistant

import (
	"fmt"
	"strings"
	"time"

	"travel_booking/internal/domain"
)

const noResults = "Przepraszam, nie znalazłem ofert dokładnie pasujących do Twoich kryteriów. " +
	"Spróbuj zmienić parametry wyszukiwania lub zapytać o inne kierunki. " +
	"Możesz też zapytać o oferty Last Minute lub propozycje dla rodzin!"

// Apology is the reply shown when the assistant backend fails.
const Apology = "Przepraszam, wystąpił błąd. Spróbuj ponownie."

// forms holds the Polish count agreement: 1, 2-4 (but not 12-14), the rest.
type forms [3]string

func (f forms) of(n int) string {
	switch {
	case n == 1:
		return f[0]
	case n%10 >= 2 && n%10 <= 4 && (n%100 < 12 || n%100 > 14):
		return f[1]
	}
	return f[2]
}

var (
	offerAcc       = forms{"ofertę", "oferty", "ofert"}
	popularNom     = forms{"popularna oferta", "popularne oferty", "popularnych ofert"}
	greatAcc       = forms{"świetną ofertę", "świetne oferty", "świetnych ofert"}
	idealNom       = forms{"idealna propozycja", "idealne propozycje", "idealnych propozycji"}
	hotAcc         = forms{"gorącą ofertę", "gorące oferty", "gorących ofert"}
	matchedAcc     = forms{"ofertę dopasowaną", "oferty dopasowane", "ofert dopasowanych"}
	relaxingAcc    = forms{"relaksującą ofertę", "relaksujące oferty", "relaksujących ofert"}
	adventureNom   = forms{"pełna adrenaliny wycieczka", "pełne adrenaliny wycieczki", "pełnych adrenaliny wycieczek"}
	promoAcc       = forms{"promocyjną ofertę", "promocyjne oferty", "promocyjnych ofert"}
	interestingAcc = forms{"interesującą ofertę", "interesujące oferty", "interesujących ofert"}
)

// Respond renders the reply for a parsed intent and the offers found for it.
// now selects the seasonal advice of the recommendation template.
func Respond(in domain.Intent, offers []domain.Offer, now time.Time) string {
	n := len(offers)
	if in.QuestionCategory != nil {
		switch *in.QuestionCategory {
		case domain.QuestionReservation:
			return reservationReply(n)
		case domain.QuestionRecommended:
			return recommendedReply(n, now.Month())
		case domain.QuestionFamily:
			return familyReply(n)
		case domain.QuestionLastMinute:
			return lastMinuteReply(n)
		case domain.QuestionBudget:
			return budgetReply(n, in.MaxPrice)
		}
	}

	if n == 0 {
		return noResults
	}

	var b strings.Builder
	switch {
	case in.Country != nil:
		fmt.Fprintf(&b, "Świetnie! Znalazłem dla Ciebie %d %s wycieczek do %s. ", n, offerAcc.of(n), *in.Country)
	case in.Destination != nil:
		fmt.Fprintf(&b, "Doskonały wybór! Mam %d %s do %s. ", n, offerAcc.of(n), *in.Destination)
	case in.TripType != nil && *in.TripType == domain.TripRelax:
		fmt.Fprintf(&b, "Idealnie! Przygotowałem %d %s dla Ciebie. ", n, relaxingAcc.of(n))
	case in.TripType != nil && *in.TripType == domain.TripAdventure:
		fmt.Fprintf(&b, "Kochasz przygody! Oto %d %s. ", n, adventureNom.of(n))
	case in.LastMinute:
		fmt.Fprintf(&b, "Świetnie! Znalazłem %d %s Last Minute. ", n, promoAcc.of(n))
	default:
		fmt.Fprintf(&b, "Na podstawie Twojego zapytania znalazłem %d %s. ", n, interestingAcc.of(n))
	}
	if in.MaxPrice != nil {
		fmt.Fprintf(&b, "Wszystkie mieszczą się w Twoim budżecie do %d zł. ", *in.MaxPrice)
	}
	b.WriteString("Poniżej znajdziesz szczegóły każdej z propozycji.")
	return b.String()
}

func reservationReply(n int) string {
	var b strings.Builder
	b.WriteString("📝 Rezerwacja jest bardzo prosta! Wystarczy:\n\n")
	b.WriteString("1️⃣ Wybierz interesującą Cię ofertę\n")
	b.WriteString("2️⃣ Kliknij przycisk \"Zarezerwuj\"\n")
	b.WriteString("3️⃣ Wypełnij formularz z danymi uczestników\n")
	b.WriteString("4️⃣ Dokonaj płatności online\n")
	b.WriteString("5️⃣ Otrzymasz potwierdzenie na email\n\n")
	if n > 0 {
		fmt.Fprintf(&b, "Oto %d %s, które możesz od razu zarezerwować:", n, popularNom.of(n))
	} else {
		b.WriteString("Możesz przejrzeć wszystkie dostępne oferty i wybrać odpowiednią dla siebie!")
	}
	return b.String()
}

func recommendedReply(n int, month time.Month) string {
	var b strings.Builder
	switch {
	case month == time.December || month <= time.February:
		b.WriteString("❄️ W tym okresie polecam:\n\n")
		b.WriteString("🎿 Zakopane - idealne na narty i snowboard\n")
		b.WriteString("🌴 Egipt - ciepłe słońce i rajskie plaże\n")
		b.WriteString("✨ Praga i Budapeszt - magiczne świąteczne rynki\n\n")
	case month <= time.May:
		b.WriteString("🌸 Na wiosnę polecam:\n\n")
		b.WriteString("🌺 Grecję - piękna pogoda, mniej turystów\n")
		b.WriteString("🏛️ Włochy - idealne na zwiedzanie\n")
		b.WriteString("🌷 Hiszpanię - przyjemne temperatury\n\n")
	case month <= time.September:
		b.WriteString("☀️ Latem najlepsze są:\n\n")
		b.WriteString("🏖️ Grecja - piękne plaże i wyspy\n")
		b.WriteString("🌊 Chorwacja - krystalicznie czyste morze\n")
		b.WriteString("🏝️ Tajlandia - egzotyczne wakacje\n\n")
	default:
		b.WriteString("🍂 Jesienią polecam:\n\n")
		b.WriteString("🌅 Egipt - gorące słońce, brak upałów\n")
		b.WriteString("🎨 Włochy - doskonałe na zwiedzanie\n")
		b.WriteString("🏔️ Maroko - fascynująca kultura\n\n")
	}
	if n > 0 {
		fmt.Fprintf(&b, "Znalazłem dla Ciebie %d %s na ten okres:", n, greatAcc.of(n))
	}
	return b.String()
}

func familyReply(n int) string {
	var b strings.Builder
	b.WriteString("👨‍👩‍👧‍👦 Dla rodzin z dziećmi polecam oferty, które oferują:\n\n")
	b.WriteString("✅ Atrakcje dla dzieci i aquaparki\n")
	b.WriteString("✅ Animacje i kluby dla młodszych\n")
	b.WriteString("✅ Bezpieczne, płytkie plaże\n")
	b.WriteString("✅ Hotele z wyżywieniem all inclusive\n\n")
	if n > 0 {
		fmt.Fprintf(&b, "Oto %d %s dla Twojej rodziny:", n, idealNom.of(n))
	} else {
		b.WriteString("Sprawdź nasze oferty rodzinne - znajdziesz tam wiele wspaniałych propozycji!")
	}
	return b.String()
}

func lastMinuteReply(n int) string {
	var b strings.Builder
	b.WriteString("⚡ Tak! Mamy świetne oferty Last Minute!\n\n")
	b.WriteString("✨ Wyjazd już za kilka dni\n")
	b.WriteString("💰 Ceny nawet o 50% niższe\n")
	b.WriteString("🎯 Sprawdzone hotele i destynacje\n\n")
	if n > 0 {
		fmt.Fprintf(&b, "Znalazłem %d %s Last Minute:", n, hotAcc.of(n))
	} else {
		b.WriteString("Sprawdź naszą sekcję Last Minute - oferty dodajemy codziennie!")
	}
	return b.String()
}

func budgetReply(n int, maxPrice *int64) string {
	var b strings.Builder
	b.WriteString("💰 Oczywiście! Możesz znaleźć wycieczki w każdym budżecie.\n\n")
	if maxPrice != nil {
		fmt.Fprintf(&b, "💵 Dla budżetu do %d zł mamy wiele świetnych opcji!\n\n", *maxPrice)
	}
	b.WriteString("💡 Wskazówka: Oferty Last Minute często mają najlepsze ceny!\n\n")
	if n > 0 {
		fmt.Fprintf(&b, "Znalazłem %d %s do Twojego budżetu:", n, matchedAcc.of(n))
	} else {
		b.WriteString("Sprecyzuj swój budżet, a znajdę dla Ciebie najlepsze oferty!")
	}
	return b.String()
}
