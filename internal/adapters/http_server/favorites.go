package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handlers) listFavorites(w http.ResponseWriter, r *http.Request) {
	out, err := h.Favorites.List(r.Context(), session(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageOf(out))
}

func (h *Handlers) isFavorite(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Favorites.IsFavorite(r.Context(), session(r).UserID, chi.URLParam(r, "offerID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": ok})
}

func (h *Handlers) addFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.Favorites.Add(r.Context(), session(r).UserID, chi.URLParam(r, "offerID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) removeFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.Favorites.Remove(r.Context(), session(r).UserID, chi.URLParam(r, "offerID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
