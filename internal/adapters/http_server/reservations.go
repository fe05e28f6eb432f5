package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"travel_booking/internal/domain"
)

type createReservationRequest struct {
	OfferID       string `json:"offer_id" validate:"required"`
	Guests        int    `json:"guests" validate:"min=1,max=50"`
	DepartureDate string `json:"departure_date" validate:"required,datetime=2006-01-02"`
	// Pay books straight to confirmed instead of placing a hold.
	Pay bool `json:"pay"`
}

func (h *Handlers) createReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	dep, _ := time.Parse(time.DateOnly, req.DepartureDate)
	res, err := h.Reservations.Create(r.Context(), domain.NewReservationRequest{
		UserID:        session(r).UserID,
		OfferID:       req.OfferID,
		Guests:        req.Guests,
		DepartureDate: dep,
		Confirmed:     req.Pay,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/reservations/"+res.ID)
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handlers) listMyReservations(w http.ResponseWriter, r *http.Request) {
	out, err := h.Reservations.ListForUser(r.Context(), session(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageOf(out))
}

func (h *Handlers) getReservation(w http.ResponseWriter, r *http.Request) {
	v, err := h.Reservations.Get(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// payReservation is the mocked payment; admins reach it as "confirm".
func (h *Handlers) payReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Reservations.Confirm(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) cancelReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Reservations.Cancel(r.Context(), session(r), chi.URLParam(r, "id"), confirmed(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) deleteReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.Reservations.Delete(r.Context(), session(r), chi.URLParam(r, "id"), confirmed(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listAllReservations(w http.ResponseWriter, r *http.Request) {
	var status *domain.ReservationStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := domain.ReservationStatus(v)
		status = &s
	}
	out, err := h.Reservations.ListAll(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageOf(out))
}
