package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"travel_booking/internal/app"
	"travel_booking/internal/domain"
)

type Handlers struct {
	Offers       *app.OfferService
	Reservations *app.ReservationService
	Favorites    *app.FavoriteService
	Users        *app.UserService
	Stats        *app.StatsService
	Assistant    *app.AssistantService
	// Health reports backing-store reachability; nil means always healthy.
	Health func(ctx context.Context) error
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", h.healthz)

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/offers", h.listOffers)
		r.Get("/offers/{id}", h.getOffer)
		r.Post("/assistant/chat", h.chat)

		r.Post("/auth/signup", h.signUp)
		r.Post("/auth/login", h.login)
		r.Post("/auth/reset", h.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(h.Users))

			r.Post("/auth/logout", h.logout)
			r.Get("/me", h.me)
			r.Get("/me/stats", h.myStats)

			r.Get("/reservations", h.listMyReservations)
			r.Post("/reservations", h.createReservation)
			r.Get("/reservations/{id}", h.getReservation)
			r.Post("/reservations/{id}/pay", h.payReservation)
			r.Post("/reservations/{id}/cancel", h.cancelReservation)
			r.Delete("/reservations/{id}", h.deleteReservation)

			r.Get("/favorites", h.listFavorites)
			r.Get("/favorites/{offerID}", h.isFavorite)
			r.Put("/favorites/{offerID}", h.addFavorite)
			r.Delete("/favorites/{offerID}", h.removeFavorite)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/offers", h.createOffer)
				r.Patch("/offers/{id}", h.updateOffer)
				r.With(RequireConfirm).Delete("/offers/{id}", h.deleteOffer)

				r.Get("/reservations", h.listAllReservations)
				r.Post("/reservations/{id}/confirm", h.payReservation)
				r.With(RequireConfirm).Post("/reservations/{id}/cancel", h.cancelReservation)

				r.Get("/users", h.listUsers)
				r.With(RequireConfirm).Delete("/users/{id}", h.deleteUser)

				r.Get("/stats", h.adminStats)
			})
		})
	})
}

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health(r.Context()); err != nil {
			log.Warn().Err(err).Msg("health check failed")
			writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "storage unreachable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ---- responses ----

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors to problem responses. Only 5xx are logged
// here; the raw error never reaches the client for those.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalid):
		writeProblem(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "sign in again")
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, domain.ErrConfirmationRequired):
		writeProblem(w, http.StatusPreconditionRequired, "Confirmation required", "repeat the request with confirm=true")
	case errors.Is(err, domain.ErrHoldExpired):
		writeProblem(w, http.StatusGone, "Reservation expired", "the hold on this reservation has lapsed")
	case errors.Is(err, domain.ErrSoldOut):
		writeProblem(w, http.StatusConflict, "Sold out", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Timeout", "")
	default:
		log.Error().Err(err).Str("route", routeOf(r)).Str("method", r.Method).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal error", "something went wrong, try again later")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

// writeCacheable answers 304 when the client already holds this version.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write body")
	}
}

type page[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func pageOf[T any](items []T) page[T] {
	if items == nil {
		items = []T{}
	}
	return page[T]{Items: items, Count: len(items)}
}

// ---- requests ----

var validate = validator.New()

const maxBody = 1 << 20

// normalizer is implemented by requests that clean up fields before validation.
type normalizer interface{ normalize() }

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", domain.ErrInvalid, err)
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalid, describe(err))
	}
	return nil
}

func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		msg := fmt.Sprintf("%s failed %q", jsonName(fe.Namespace()), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s failed %q (%s)", jsonName(fe.Namespace()), fe.Tag(), fe.Param())
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// jsonName drops the struct name validator puts in front of the field path.
func jsonName(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func session(r *http.Request) domain.Session {
	s, _ := domain.SessionFrom(r.Context())
	return s
}
