package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"travel_booking/internal/adapters/authprovider"
	server "travel_booking/internal/adapters/http_server"
	"travel_booking/internal/app"
	"travel_booking/internal/domain"
	"travel_booking/internal/storage/memory"
)

// fakeIDP stands in for the hosted identity provider.
type fakeIDP struct{}

func (fakeIDP) SignUp(_ context.Context, email, _ string, _ map[string]any) (domain.Identity, error) {
	return domain.Identity{ID: "id-" + email, Email: email}, nil
}
func (fakeIDP) SignIn(context.Context, string, string) (domain.Identity, domain.AuthTokens, error) {
	return domain.Identity{}, domain.AuthTokens{}, domain.ErrUnauthorized
}
func (fakeIDP) SignOut(context.Context, string) error { return nil }
func (fakeIDP) CurrentUser(context.Context, string) (domain.Identity, error) {
	return domain.Identity{}, domain.ErrUnauthorized
}
func (fakeIDP) ResetPassword(context.Context, string) error { return nil }

type fixture struct {
	srv    *httptest.Server
	store  *memory.Store
	client string // bearer tokens
	admin  string
}

var departure = time.Date(2025, 7, 12, 0, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	verifier := authprovider.NewVerifier("test-secret")

	seed := []domain.Offer{
		{
			ID: "kreta", Title: "Wakacje na Krecie", ShortDescription: "Plaże Krety", Destination: "Kreta",
			Country: "Grecja", Duration: 7, Price: domain.Zloty(2499), Images: []string{"https://img/kreta.jpg"},
			Meals: domain.MealsAllInclusive, TripType: domain.TripRelax, Season: domain.SeasonSummer,
			Rating: 4.5, AvailableDates: []time.Time{departure}, CreatedAt: time.Now().Add(-time.Hour),
		},
		{
			ID: "tatry", Title: "Przygoda w Tatrach", Destination: "Zakopane", Country: "Polska", Duration: 5,
			Price: domain.Zloty(1299), Meals: domain.MealsHalfBoard, TripType: domain.TripAdventure,
			Season: domain.SeasonWinter, AvailableDates: []time.Time{departure}, CreatedAt: time.Now(),
		},
	}
	for _, o := range seed {
		if err := store.CreateOffer(ctx, o); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	_ = store.UpsertUser(ctx, domain.User{ID: "u-client", Email: "user@travel.com", Role: domain.RoleClient, CreatedAt: time.Now()})
	_ = store.UpsertUser(ctx, domain.User{ID: "u-admin", Email: "admin@travel.com", Role: domain.RoleAdmin, CreatedAt: time.Now()})

	sign := func(id, email string) string {
		tok, err := verifier.Sign(domain.Identity{ID: id, Email: email}, time.Now().Add(time.Hour))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}

	s := server.New()
	s.MountHandlers(&server.Handlers{
		Offers:       app.NewOfferService(store, nil, 0),
		Reservations: app.NewReservationService(store, store, app.ReservationConfig{PaymentLeadDays: 30}),
		Favorites:    app.NewFavoriteService(store, store),
		Users:        app.NewUserService(store, store, fakeIDP{}, verifier),
		Stats:        app.NewStatsService(store, store, store),
		Assistant:    app.NewAssistantService(store, 3),
	})
	ts := httptest.NewServer(s.Mux())
	t.Cleanup(ts.Close)

	return &fixture{
		srv: ts, store: store,
		client: sign("u-client", "user@travel.com"),
		admin:  sign("u-admin", "admin@travel.com"),
	}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, f.srv.URL+path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func expect(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if resp.StatusCode != status {
		var b bytes.Buffer
		_, _ = b.ReadFrom(resp.Body)
		t.Fatalf("%s %s: status %d, want %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, status, b.String())
	}
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

type offersPage struct {
	Items []domain.Offer `json:"items"`
	Count int            `json:"count"`
}

type reservationsPage struct {
	Items []domain.ReservationView `json:"items"`
}

type chatReply struct {
	Response string `json:"response"`
	Offers   []struct {
		ID       string `json:"id"`
		ImageURL string `json:"image_url"`
		Duration string `json:"duration"`
	} `json:"offers"`
	Intent domain.Intent `json:"intent"`
}

func TestOffers_ListFilterAndETag(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/v1/offers?country=Grecja&price_max=3000", "", nil)
	expect(t, resp, http.StatusOK)
	page := decodeBody[offersPage](t, resp)
	if page.Count != 1 || page.Items[0].ID != "kreta" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Items[0].Price != domain.Zloty(2499) {
		t.Fatalf("price did not round-trip: %v", page.Items[0].Price)
	}

	etag := resp.Header.Get("ETag")
	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/v1/offers?country=Grecja&price_max=3000", nil)
	req.Header.Set("If-None-Match", etag)
	again, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer again.Body.Close()
	if again.StatusCode != http.StatusNotModified {
		t.Fatalf("want 304, got %d", again.StatusCode)
	}
}

func TestOffers_BadFilterAndMissing(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/v1/offers?trip_type=cruise", "", nil)
	expect(t, resp, http.StatusBadRequest)
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type: %q", ct)
	}

	expect(t, f.do(t, http.MethodGet, "/v1/offers?date_from=12-07-2025", "", nil), http.StatusBadRequest)
	expect(t, f.do(t, http.MethodGet, "/v1/offers/nope", "", nil), http.StatusNotFound)
}

func TestReservations_RequireSession(t *testing.T) {
	f := newFixture(t)
	expect(t, f.do(t, http.MethodGet, "/v1/reservations", "", nil), http.StatusUnauthorized)
	expect(t, f.do(t, http.MethodGet, "/v1/reservations", "not-a-jwt", nil), http.StatusUnauthorized)
}

func TestReservations_BookPayCancel(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/v1/reservations", f.client, map[string]any{
		"offer_id": "kreta", "guests": 2, "departure_date": "2025-07-12",
	})
	expect(t, resp, http.StatusCreated)
	res := decodeBody[domain.Reservation](t, resp)
	if res.Status != domain.StatusBlocked || res.BlockedUntil == nil || res.TotalPrice != domain.Zloty(4998) {
		t.Fatalf("unexpected reservation: %+v", res)
	}

	resp = f.do(t, http.MethodPost, "/v1/reservations/"+res.ID+"/pay", f.client, nil)
	expect(t, resp, http.StatusOK)
	paid := decodeBody[domain.Reservation](t, resp)
	if paid.Status != domain.StatusConfirmed || paid.PaymentDeadline == nil || paid.BlockedUntil != nil {
		t.Fatalf("unexpected after pay: %+v", paid)
	}

	expect(t, f.do(t, http.MethodDelete, "/v1/reservations/"+res.ID, f.client, nil), http.StatusConflict)
	expect(t, f.do(t, http.MethodPost, "/v1/reservations/"+res.ID+"/cancel", f.client, nil), http.StatusOK)
	expect(t, f.do(t, http.MethodPost, "/v1/reservations/"+res.ID+"/pay", f.client, nil), http.StatusConflict)

	resp = f.do(t, http.MethodGet, "/v1/reservations", f.client, nil)
	expect(t, resp, http.StatusOK)
	list := decodeBody[reservationsPage](t, resp)
	if len(list.Items) != 1 || list.Items[0].OfferTitle != "Wakacje na Krecie" || list.Items[0].Country != "Grecja" {
		t.Fatalf("join missing offer fields: %+v", list.Items)
	}
}

func TestReservations_Validation(t *testing.T) {
	f := newFixture(t)
	cases := []map[string]any{
		{"offer_id": "kreta", "guests": 0, "departure_date": "2025-07-12"},
		{"offer_id": "kreta", "guests": 1, "departure_date": "12.07.2025"},
		{"offer_id": "kreta", "guests": 1, "departure_date": "2025-07-13"}, // not an available date
		{"offer_id": "kreta", "guests": 1, "departure_date": "2025-07-12", "extra": true},
	}
	for _, body := range cases {
		expect(t, f.do(t, http.MethodPost, "/v1/reservations", f.client, body), http.StatusBadRequest)
	}
	expect(t, f.do(t, http.MethodPost, "/v1/reservations", f.client,
		map[string]any{"offer_id": "nope", "guests": 1, "departure_date": "2025-07-12"}), http.StatusNotFound)
}

func TestReservations_OtherUsersAreHidden(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/v1/reservations", f.admin, map[string]any{
		"offer_id": "tatry", "guests": 1, "departure_date": "2025-07-12",
	})
	expect(t, resp, http.StatusCreated)
	res := decodeBody[domain.Reservation](t, resp)

	expect(t, f.do(t, http.MethodGet, "/v1/reservations/"+res.ID, f.client, nil), http.StatusNotFound)
	expect(t, f.do(t, http.MethodPost, "/v1/reservations/"+res.ID+"/cancel", f.client, nil), http.StatusNotFound)
}

func TestReservations_AdminActingOnOthersNeedsConfirm(t *testing.T) {
	f := newFixture(t)
	book := func() string {
		resp := f.do(t, http.MethodPost, "/v1/reservations", f.client, map[string]any{
			"offer_id": "kreta", "guests": 1, "departure_date": "2025-07-12",
		})
		expect(t, resp, http.StatusCreated)
		return decodeBody[domain.Reservation](t, resp).ID
	}

	id := book()
	expect(t, f.do(t, http.MethodPost, "/v1/reservations/"+id+"/cancel", f.admin, nil), http.StatusPreconditionRequired)
	expect(t, f.do(t, http.MethodDelete, "/v1/reservations/"+id, f.admin, nil), http.StatusPreconditionRequired)
	got, _ := f.store.GetReservation(context.Background(), id)
	if got.Status != domain.StatusBlocked {
		t.Fatalf("unconfirmed admin call changed status to %s", got.Status)
	}
	expect(t, f.do(t, http.MethodPost, "/v1/reservations/"+id+"/cancel?confirm=true", f.admin, nil), http.StatusOK)
	expect(t, f.do(t, http.MethodDelete, "/v1/reservations/"+id+"?confirm=true", f.admin, nil), http.StatusNoContent)

	id = book()
	expect(t, f.do(t, http.MethodPost, "/v1/admin/reservations/"+id+"/cancel?confirm=true", f.admin, nil), http.StatusOK)

	// Owners never need the extra step, admins included.
	resp := f.do(t, http.MethodPost, "/v1/reservations", f.admin, map[string]any{
		"offer_id": "tatry", "guests": 1, "departure_date": "2025-07-12",
	})
	expect(t, resp, http.StatusCreated)
	own := decodeBody[domain.Reservation](t, resp)
	expect(t, f.do(t, http.MethodPost, "/v1/reservations/"+own.ID+"/cancel", f.admin, nil), http.StatusOK)
}

func TestAdmin_RoleAndConfirmation(t *testing.T) {
	f := newFixture(t)

	expect(t, f.do(t, http.MethodGet, "/v1/admin/stats", f.client, nil), http.StatusForbidden)
	expect(t, f.do(t, http.MethodDelete, "/v1/admin/offers/tatry", f.admin, nil), http.StatusPreconditionRequired)

	resp := f.do(t, http.MethodPost, "/v1/reservations", f.client, map[string]any{
		"offer_id": "kreta", "guests": 1, "departure_date": "2025-07-12",
	})
	expect(t, resp, http.StatusCreated)
	expect(t, f.do(t, http.MethodDelete, "/v1/admin/offers/kreta?confirm=true", f.admin, nil), http.StatusConflict)
	expect(t, f.do(t, http.MethodDelete, "/v1/admin/offers/tatry?confirm=true", f.admin, nil), http.StatusNoContent)

	resp = f.do(t, http.MethodGet, "/v1/admin/stats", f.admin, nil)
	expect(t, resp, http.StatusOK)
	st := decodeBody[domain.AdminStats](t, resp)
	if st.TotalOffers != 1 || st.TotalReservations != 1 || st.BlockedReservations != 1 || st.TotalClients != 1 || st.TotalAdmins != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	expect(t, f.do(t, http.MethodDelete, "/v1/admin/users/u-admin?confirm=true", f.admin, nil), http.StatusConflict)
}

func TestAdmin_CreateAndPatchOffer(t *testing.T) {
	f := newFixture(t)
	body := map[string]any{
		"title": "Rzym", "destination": "Rzym", "country": "Włochy", "duration": 4,
		"price": 1899.99, "meals": "BB", "trip_type": "culture", "season": "spring",
		"images":          []string{"https://img/rzym.jpg"},
		"available_dates": []string{"2025-04-10"},
		"itinerary":       []map[string]any{{"day": 1, "title": "Koloseum"}},
	}
	resp := f.do(t, http.MethodPost, "/v1/admin/offers", f.admin, body)
	expect(t, resp, http.StatusCreated)
	o := decodeBody[domain.Offer](t, resp)
	if o.ID == "" || o.Price != domain.Money(189999) || len(o.AvailableDates) != 1 {
		t.Fatalf("unexpected offer: %+v", o)
	}

	body["trip_type"] = "cruise"
	expect(t, f.do(t, http.MethodPost, "/v1/admin/offers", f.admin, body), http.StatusBadRequest)

	resp = f.do(t, http.MethodPatch, "/v1/admin/offers/"+o.ID, f.admin, map[string]any{"price": 1500, "is_last_minute": true})
	expect(t, resp, http.StatusOK)
	patched := decodeBody[domain.Offer](t, resp)
	if patched.Price != domain.Zloty(1500) || !patched.IsLastMinute || patched.Title != "Rzym" {
		t.Fatalf("unexpected patch result: %+v", patched)
	}
}

func TestFavorites(t *testing.T) {
	f := newFixture(t)
	expect(t, f.do(t, http.MethodPut, "/v1/favorites/kreta", f.client, nil), http.StatusNoContent)
	expect(t, f.do(t, http.MethodPut, "/v1/favorites/kreta", f.client, nil), http.StatusNoContent)
	expect(t, f.do(t, http.MethodPut, "/v1/favorites/nope", f.client, nil), http.StatusNotFound)

	resp := f.do(t, http.MethodGet, "/v1/favorites/kreta", f.client, nil)
	expect(t, resp, http.StatusOK)
	if got := decodeBody[map[string]bool](t, resp); !got["favorite"] {
		t.Fatalf("expected favorite")
	}

	resp = f.do(t, http.MethodGet, "/v1/favorites", f.client, nil)
	expect(t, resp, http.StatusOK)
	if page := decodeBody[offersPage](t, resp); page.Count != 1 {
		t.Fatalf("favorites: %+v", page)
	}

	expect(t, f.do(t, http.MethodDelete, "/v1/favorites/kreta", f.client, nil), http.StatusNoContent)
	expect(t, f.do(t, http.MethodDelete, "/v1/favorites/kreta", f.client, nil), http.StatusNoContent)
}

func TestChat(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/v1/assistant/chat", "", map[string]string{"message": "Szukam wycieczki do Grecji"})
	expect(t, resp, http.StatusOK)
	out := decodeBody[chatReply](t, resp)
	if out.Intent.Country == nil || *out.Intent.Country != "Grecja" {
		t.Fatalf("intent: %+v", out.Intent)
	}
	if len(out.Offers) != 1 || out.Offers[0].ImageURL != "https://img/kreta.jpg" || out.Offers[0].Duration != "7 dni" {
		t.Fatalf("offers: %+v", out.Offers)
	}
	if !strings.Contains(out.Response, "Grecja") {
		t.Fatalf("response: %q", out.Response)
	}

	resp = f.do(t, http.MethodPost, "/v1/assistant/chat", "", map[string]string{})
	expect(t, resp, http.StatusBadRequest)
	if e := decodeBody[map[string]string](t, resp); e["error"] == "" || e["details"] == "" {
		t.Fatalf("chat error contract: %v", e)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	expect(t, f.do(t, http.MethodGet, "/healthz", "", nil), http.StatusOK)
}

func TestAuthAndProfile(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email": " Nowy@Travel.com ", "password": "sekret1", "name": "Nowy",
	})
	expect(t, resp, http.StatusCreated)
	if u := decodeBody[domain.User](t, resp); u.Email != "nowy@travel.com" || u.Role != domain.RoleClient {
		t.Fatalf("unexpected profile: %+v", u)
	}
	expect(t, f.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email": "not-an-email", "password": "sekret1", "name": "x",
	}), http.StatusBadRequest)
	// Padded addresses are cleaned before validation, so these reach the provider.
	expect(t, f.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email": " User@Travel.com ", "password": "wrong",
	}), http.StatusUnauthorized)
	expect(t, f.do(t, http.MethodPost, "/v1/auth/reset", "", map[string]any{"email": "user@travel.com\n"}), http.StatusAccepted)

	expect(t, f.do(t, http.MethodGet, "/v1/me", "", nil), http.StatusUnauthorized)
	resp = f.do(t, http.MethodGet, "/v1/me", f.client, nil)
	expect(t, resp, http.StatusOK)
	if u := decodeBody[domain.User](t, resp); u.ID != "u-client" {
		t.Fatalf("me = %+v", u)
	}

	expect(t, f.do(t, http.MethodPost, "/v1/reservations", f.client, map[string]any{
		"offer_id": "tatry", "guests": 2, "departure_date": "2025-07-12", "pay": true,
	}), http.StatusCreated)
	resp = f.do(t, http.MethodGet, "/v1/me/stats", f.client, nil)
	expect(t, resp, http.StatusOK)
	if st := decodeBody[domain.UserStats](t, resp); st.ReservationsCount != 1 {
		t.Fatalf("stats = %+v", st)
	}

	resp = f.do(t, http.MethodGet, "/v1/admin/users", f.admin, nil)
	expect(t, resp, http.StatusOK)
	users := decodeBody[struct {
		Items []domain.User `json:"items"`
	}](t, resp)
	if len(users.Items) != 3 {
		t.Fatalf("want 3 users, got %d", len(users.Items))
	}
	expect(t, f.do(t, http.MethodDelete, "/v1/admin/users/u-client?confirm=true", f.admin, nil), http.StatusNoContent)
	expect(t, f.do(t, http.MethodPost, "/v1/auth/logout", f.admin, nil), http.StatusNoContent)
}
