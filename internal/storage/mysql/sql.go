package mysql

const offerColumns = `
  o.id, o.title, o.description, o.short_description, o.destination, o.country,
  o.duration, o.price, o.original_price, o.images, o.meals, o.trip_type, o.season,
  o.is_last_minute, o.rating, o.review_count, o.accommodation, o.transport, o.created_at`

const getOfferSQL = `SELECT` + offerColumns + `
FROM offers o
WHERE o.id = ?`

const insertOfferSQL = `
INSERT INTO offers
  (id, title, description, short_description, destination, country, duration, price,
   original_price, images, meals, trip_type, season, is_last_minute, rating, review_count,
   accommodation, transport, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Itinerary and departure dates are not editable through an update.
const updateOfferSQL = `
UPDATE offers SET
  title             = ?,
  description       = ?,
  short_description = ?,
  destination       = ?,
  country           = ?,
  duration          = ?,
  price             = ?,
  original_price    = ?,
  images            = ?,
  meals             = ?,
  trip_type         = ?,
  season            = ?,
  is_last_minute    = ?,
  rating            = ?,
  review_count      = ?,
  accommodation     = ?,
  transport         = ?
WHERE id = ?
`

const deleteOfferSQL = `DELETE FROM offers WHERE id = ?`

const countOffersSQL = `SELECT COUNT(*) FROM offers`

const insertItineraryPrefix = "INSERT INTO itinerary_days (offer_id, day, title, description, activities) VALUES "

const insertDatesPrefix = "INSERT IGNORE INTO available_dates (offer_id, date) VALUES "

// -----------------------------------------------------------------------------
// RESERVATIONS
// -----------------------------------------------------------------------------

const lockOfferSQL = `SELECT id FROM offers WHERE id = ? FOR UPDATE`

const countOfferReservationsSQL = `SELECT COUNT(*) FROM reservations WHERE offer_id = ?`

// Guests of confirmed bookings plus holds that have not lapsed yet.
const takenGuestsSQL = `
SELECT COALESCE(SUM(guests), 0)
FROM reservations
WHERE offer_id = ?
  AND departure_date = ?
  AND (status = 'confirmed'
       OR (status = 'blocked' AND (blocked_until IS NULL OR blocked_until > ?)))
`

const reservationColumns = `
  id, user_id, offer_id, status, guests, total_price, departure_date,
  blocked_until, payment_deadline, created_at`

const insertReservationSQL = `
INSERT INTO reservations (` + reservationColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const getReservationSQL = `SELECT` + reservationColumns + ` FROM reservations WHERE id = ?`

const listReservationsSQL = `SELECT` + reservationColumns + ` FROM reservations`

const updateReservationSQL = `
UPDATE reservations
SET status = ?, blocked_until = ?, payment_deadline = ?
WHERE id = ? AND status = ?
`

const reservationExistsSQL = `SELECT status FROM reservations WHERE id = ?`

const deleteReservationSQL = `DELETE FROM reservations WHERE id = ?`

const expireHoldsSQL = `
UPDATE reservations
SET status = 'cancelled', blocked_until = NULL
WHERE status = 'blocked' AND blocked_until IS NOT NULL AND blocked_until <= ?
`

// -----------------------------------------------------------------------------
// FAVORITES
// -----------------------------------------------------------------------------

const addFavoriteSQL = `INSERT IGNORE INTO favorites (user_id, offer_id, created_at) VALUES (?, ?, ?)`

const removeFavoriteSQL = `DELETE FROM favorites WHERE user_id = ? AND offer_id = ?`

const isFavoriteSQL = `SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = ? AND offer_id = ?)`

const listFavoritesSQL = `
SELECT offer_id FROM favorites
WHERE user_id = ?
ORDER BY created_at DESC, offer_id
`

// -----------------------------------------------------------------------------
// PROFILES
// -----------------------------------------------------------------------------

// Profiles are written update-then-insert: a taken email must fail with a
// duplicate-key error, never rewrite the row that owns it.
const updateProfileSQL = `UPDATE profiles SET email = ?, name = ?, role = ? WHERE id = ?`

const profileExistsSQL = `SELECT COUNT(*) FROM profiles WHERE id = ?`

const insertProfileSQL = `
INSERT INTO profiles (id, email, name, role, created_at)
VALUES (?, ?, ?, ?, ?)
`

const getProfileSQL = `SELECT id, email, name, role, created_at FROM profiles WHERE id = ?`

const listProfilesSQL = `SELECT id, email, name, role, created_at FROM profiles ORDER BY created_at DESC, id`

const deleteProfileSQL = `DELETE FROM profiles WHERE id = ?`

const countByRoleSQL = `SELECT role, COUNT(*) FROM profiles GROUP BY role`
