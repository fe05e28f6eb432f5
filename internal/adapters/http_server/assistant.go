package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"travel_booking/internal/assistant"
	"travel_booking/internal/domain"
)

type chatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// chatOffer is the card the chat widget renders.
type chatOffer struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Country     string          `json:"country"`
	Destination string          `json:"destination"`
	Price       domain.Money    `json:"price"`
	Duration    string          `json:"duration"`
	ImageURL    string          `json:"image_url"`
	TripType    domain.TripType `json:"trip_type"`
	Rating      float64         `json:"rating,omitempty"`
	Description string          `json:"description,omitempty"`
}

type chatResponse struct {
	Response string        `json:"response"`
	Offers   []chatOffer   `json:"offers"`
	Intent   domain.Intent `json:"intent"`
}

type chatError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

func durationLabel(days int) string {
	if days == 1 {
		return "1 dzień"
	}
	return fmt.Sprintf("%d dni", days)
}

func toChatOffer(o domain.Offer) chatOffer {
	c := chatOffer{
		ID: o.ID, Title: o.Title, Country: o.Country, Destination: o.Destination,
		Price: o.Price, Duration: durationLabel(o.Duration), TripType: o.TripType,
		Rating: o.Rating, Description: o.ShortDescription,
	}
	if len(o.Images) > 0 {
		c.ImageURL = o.Images[0]
	}
	return c
}

// chat keeps the widget's own contract: failures answer {error, details}.
func (h *Handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, chatError{Error: assistant.Apology, Details: "body must be JSON with a message field"})
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, chatError{Error: assistant.Apology, Details: describe(err)})
		return
	}

	reply, err := h.Assistant.Chat(r.Context(), req.Message)
	if err != nil {
		log.Error().Err(err).Msg("chat failed")
		writeJSON(w, http.StatusInternalServerError, chatError{Error: assistant.Apology, Details: "offer search is unavailable"})
		return
	}
	out := chatResponse{Response: reply.Response, Intent: reply.Intent, Offers: make([]chatOffer, 0, len(reply.Offers))}
	for _, o := range reply.Offers {
		out.Offers = append(out.Offers, toChatOffer(o))
	}
	writeJSON(w, http.StatusOK, out)
}
