package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"travel_booking/internal/adapters/observability"
	"travel_booking/internal/assistant"
	"travel_booking/internal/domain"
)

type ChatReply struct {
	Response string
	Offers   []domain.Offer
	Intent   domain.Intent
}

type AssistantService struct {
	offers domain.OfferRepository
	limit  int
	now    func() time.Time
}

func NewAssistantService(o domain.OfferRepository, limit int) *AssistantService {
	if limit <= 0 {
		limit = 3
	}
	return &AssistantService{offers: o, limit: limit, now: time.Now}
}

func (s *AssistantService) WithClock(now func() time.Time) *AssistantService {
	s.now = now
	return s
}

// Chat runs parse -> offer query -> respond. A store failure is returned so
// the caller can answer with the apology message.
func (s *AssistantService) Chat(ctx context.Context, message string) (ChatReply, error) {
	in := assistant.Parse(message)
	found, err := s.offers.ListOffers(ctx, in.Filter(s.limit))
	if err != nil {
		log.Error().Err(err).Msg("assistant offer query failed")
		return ChatReply{}, err
	}
	category := "none"
	if in.QuestionCategory != nil {
		category = string(*in.QuestionCategory)
	}
	observability.ObserveAssistant(category, len(found))
	return ChatReply{
		Response: assistant.Respond(in, found, s.now()),
		Offers:   found,
		Intent:   in,
	}, nil
}
