package domain

import (
	"fmt"
	"time"
)

type ReservationStatus string

const (
	StatusBlocked   ReservationStatus = "blocked"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusBlocked, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

type Reservation struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	OfferID         string            `json:"offer_id"`
	Status          ReservationStatus `json:"status"`
	Guests          int               `json:"guests"`
	TotalPrice      Money             `json:"total_price"`
	DepartureDate   time.Time         `json:"departure_date"`
	CreatedAt       time.Time         `json:"created_at"`
	BlockedUntil    *time.Time        `json:"blocked_until,omitempty"`
	PaymentDeadline *time.Time        `json:"payment_deadline,omitempty"`
}

// HoldExpired reports whether r is a blocked hold whose window has passed.
func (r Reservation) HoldExpired(now time.Time) bool {
	return r.Status == StatusBlocked && r.BlockedUntil != nil && !now.Before(*r.BlockedUntil)
}

// EffectiveStatus treats a lapsed hold as cancelled even before the sweeper
// has written that to the store.
func (r Reservation) EffectiveStatus(now time.Time) ReservationStatus {
	if r.HoldExpired(now) {
		return StatusCancelled
	}
	return r.Status
}

// Active reservations count against departure capacity.
func (r Reservation) Active(now time.Time) bool {
	return r.EffectiveStatus(now) != StatusCancelled
}

// CanTransition encodes the ledger state machine:
// blocked -> confirmed | cancelled, confirmed -> cancelled; cancelled is terminal.
func CanTransition(from, to ReservationStatus) bool {
	switch from {
	case StatusBlocked:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled
	}
	return false
}

// PaymentDeadline is departure minus lead days, never earlier than now.
func PaymentDeadline(departure, now time.Time, leadDays int) time.Time {
	d := DateOnly(departure).AddDate(0, 0, -leadDays)
	if d.Before(now) {
		return now
	}
	return d
}

// Transition returns r moved to status `to` with the timestamps the target
// state requires.
func (r Reservation) Transition(to ReservationStatus, now time.Time, leadDays int) (Reservation, error) {
	if !CanTransition(r.Status, to) {
		return r, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	if to == StatusConfirmed && r.HoldExpired(now) {
		return r, ErrHoldExpired
	}
	out := r
	out.Status = to
	switch to {
	case StatusConfirmed:
		out.BlockedUntil = nil
		dl := PaymentDeadline(r.DepartureDate, now, leadDays)
		out.PaymentDeadline = &dl
	case StatusCancelled:
		out.BlockedUntil = nil
	}
	return out, nil
}

// NewReservationRequest is what a user submits when booking.
type NewReservationRequest struct {
	UserID        string
	OfferID       string
	Guests        int
	DepartureDate time.Time
	// Confirmed creates the reservation already paid instead of as a hold.
	Confirmed bool
}

type ReservationQuery struct {
	UserID *string
	Status *ReservationStatus
}

// ReservationView is a reservation joined with the offer fields lists show.
type ReservationView struct {
	Reservation
	EffectiveStatus ReservationStatus `json:"effective_status"`
	Expired         bool              `json:"expired"`
	OfferTitle      string            `json:"offer_title,omitempty"`
	Destination     string            `json:"destination,omitempty"`
	Country         string            `json:"country,omitempty"`
	OfferMissing    bool              `json:"offer_missing,omitempty"`
}
