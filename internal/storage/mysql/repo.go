package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"travel_booking/internal/domain"
)

// MySQL server error numbers the repository translates.
const (
	errDuplicateKey  = 1062
	errRowReferenced = 1451
	errNoParentRow   = 1452
)

func valMoney(p *domain.Money) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}
func valJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func mysqlCode(err error) uint16 {
	var me *driver.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// Repo implements every repository port over one *sql.DB.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Ping is used by the health check.
func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *Repo) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ---- offers ----

type rowScanner interface{ Scan(dest ...any) error }

func scanOffer(s rowScanner) (domain.Offer, error) {
	var (
		o        domain.Offer
		price    int64
		original sql.NullInt64
		images   []byte
		meals    string
		tripType string
		season   string
	)
	if err := s.Scan(
		&o.ID, &o.Title, &o.Description, &o.ShortDescription, &o.Destination, &o.Country,
		&o.Duration, &price, &original, &images, &meals, &tripType, &season,
		&o.IsLastMinute, &o.Rating, &o.ReviewCount, &o.Accommodation, &o.Transport, &o.CreatedAt,
	); err != nil {
		return domain.Offer{}, err
	}
	o.Price = domain.Money(price)
	if original.Valid {
		m := domain.Money(original.Int64)
		o.OriginalPrice = &m
	}
	o.Meals, o.TripType, o.Season = domain.MealPlan(meals), domain.TripType(tripType), domain.Season(season)
	o.CreatedAt = o.CreatedAt.UTC()
	o.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &o.Images); err != nil {
			return domain.Offer{}, fmt.Errorf("offer %s images: %w", o.ID, err)
		}
	}
	return o, nil
}

func (r *Repo) ListOffers(ctx context.Context, f domain.OfferFilter) ([]domain.Offer, error) {
	q, args := buildListOffers(f)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Offer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) GetOffer(ctx context.Context, id string) (domain.Offer, error) {
	o, err := scanOffer(r.db.QueryRowContext(ctx, getOfferSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Offer{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Offer{}, err
	}
	one := []domain.Offer{o}
	if err := r.loadChildren(ctx, one); err != nil {
		return domain.Offer{}, err
	}
	return one[0], nil
}

// loadChildren fills itinerary (by day) and dates (ascending) with one query
// per child table.
func (r *Repo) loadChildren(ctx context.Context, offers []domain.Offer) error {
	if len(offers) == 0 {
		return nil
	}
	idx := make(map[string]int, len(offers))
	args := make([]any, 0, len(offers))
	for i := range offers {
		idx[offers[i].ID] = i
		args = append(args, offers[i].ID)
		offers[i].Itinerary = []domain.ItineraryDay{}
		offers[i].AvailableDates = []time.Time{}
	}
	in := placeholders(len(args))

	rows, err := r.db.QueryContext(ctx,
		"SELECT offer_id, day, title, description, activities FROM itinerary_days WHERE offer_id IN ("+in+") ORDER BY offer_id, day, id",
		args...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			offerID string
			d       domain.ItineraryDay
			acts    []byte
		)
		if err := rows.Scan(&offerID, &d.Day, &d.Title, &d.Description, &acts); err != nil {
			rows.Close()
			return err
		}
		d.Activities = []string{}
		if len(acts) > 0 {
			_ = json.Unmarshal(acts, &d.Activities)
		}
		i := idx[offerID]
		offers[i].Itinerary = append(offers[i].Itinerary, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx,
		"SELECT offer_id, date FROM available_dates WHERE offer_id IN ("+in+") ORDER BY offer_id, date",
		args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			offerID string
			d       time.Time
		)
		if err := rows.Scan(&offerID, &d); err != nil {
			return err
		}
		i := idx[offerID]
		offers[i].AvailableDates = append(offers[i].AvailableDates, domain.DateOnly(d))
	}
	return rows.Err()
}

func (r *Repo) CreateOffer(ctx context.Context, o domain.Offer) error {
	images, err := valJSON(o.Images)
	if err != nil {
		return err
	}
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertOfferSQL,
			o.ID, o.Title, o.Description, o.ShortDescription, o.Destination, o.Country,
			o.Duration, int64(o.Price), valMoney(o.OriginalPrice), images,
			string(o.Meals), string(o.TripType), string(o.Season),
			o.IsLastMinute, o.Rating, o.ReviewCount, o.Accommodation, o.Transport, o.CreatedAt.UTC(),
		); err != nil {
			return err
		}
		if err := insertItinerary(ctx, tx, o.ID, o.Itinerary); err != nil {
			return err
		}
		return insertDates(ctx, tx, o.ID, o.AvailableDates)
	})
	if mysqlCode(err) == errDuplicateKey {
		return fmt.Errorf("%w: offer %s already exists", domain.ErrConflict, o.ID)
	}
	return err
}

func insertItinerary(ctx context.Context, tx *sql.Tx, offerID string, days []domain.ItineraryDay) error {
	if len(days) == 0 {
		return nil
	}
	values := make([]string, 0, len(days))
	args := make([]any, 0, len(days)*5)
	for _, d := range days {
		acts := d.Activities
		if acts == nil {
			acts = []string{}
		}
		a, err := valJSON(acts)
		if err != nil {
			return err
		}
		values = append(values, "(?,?,?,?,?)")
		args = append(args, offerID, d.Day, d.Title, d.Description, a)
	}
	_, err := tx.ExecContext(ctx, insertItineraryPrefix+strings.Join(values, ","), args...)
	return err
}

func insertDates(ctx context.Context, tx *sql.Tx, offerID string, dates []time.Time) error {
	if len(dates) == 0 {
		return nil
	}
	values := make([]string, 0, len(dates))
	args := make([]any, 0, len(dates)*2)
	for _, d := range dates {
		values = append(values, "(?,?)")
		args = append(args, offerID, domain.DateOnly(d))
	}
	_, err := tx.ExecContext(ctx, insertDatesPrefix+strings.Join(values, ","), args...)
	return err
}

func (r *Repo) UpdateOffer(ctx context.Context, o domain.Offer) error {
	images, err := valJSON(o.Images)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, updateOfferSQL,
		o.Title, o.Description, o.ShortDescription, o.Destination, o.Country,
		o.Duration, int64(o.Price), valMoney(o.OriginalPrice), images,
		string(o.Meals), string(o.TripType), string(o.Season),
		o.IsLastMinute, o.Rating, o.ReviewCount, o.Accommodation, o.Transport,
		o.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Zero rows also means "no column changed"; tell the two apart.
		var id string
		if err := r.db.QueryRowContext(ctx, "SELECT id FROM offers WHERE id = ?", o.ID).Scan(&id); errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (r *Repo) DeleteOffer(ctx context.Context, id string) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var got string
		if err := tx.QueryRowContext(ctx, lockOfferSQL, id).Scan(&got); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx, countOfferReservationsSQL, id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: offer %s has %d reservations", domain.ErrConflict, id, n)
		}
		_, err := tx.ExecContext(ctx, deleteOfferSQL, id)
		return err
	})
	if mysqlCode(err) == errRowReferenced {
		return fmt.Errorf("%w: offer %s has reservations", domain.ErrConflict, id)
	}
	return err
}

func (r *Repo) CountOffers(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countOffersSQL).Scan(&n)
	return n, err
}

// ---- reservations ----

func scanReservation(s rowScanner) (domain.Reservation, error) {
	var (
		res      domain.Reservation
		status   string
		total    int64
		blocked  sql.NullTime
		deadline sql.NullTime
	)
	if err := s.Scan(&res.ID, &res.UserID, &res.OfferID, &status, &res.Guests, &total,
		&res.DepartureDate, &blocked, &deadline, &res.CreatedAt); err != nil {
		return domain.Reservation{}, err
	}
	res.Status = domain.ReservationStatus(status)
	res.TotalPrice = domain.Money(total)
	res.DepartureDate = domain.DateOnly(res.DepartureDate)
	res.CreatedAt = res.CreatedAt.UTC()
	res.BlockedUntil = timePtr(blocked)
	res.PaymentDeadline = timePtr(deadline)
	return res, nil
}

// Reserve locks the offer row so concurrent bookings of one offer run one at
// a time; the capacity sum and the insert happen under that lock.
func (r *Repo) Reserve(ctx context.Context, res domain.Reservation, capacity int, now time.Time) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var id string
		if err := tx.QueryRowContext(ctx, lockOfferSQL, res.OfferID).Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		if capacity > 0 {
			var taken int
			if err := tx.QueryRowContext(ctx, takenGuestsSQL, res.OfferID, domain.DateOnly(res.DepartureDate), now.UTC()).Scan(&taken); err != nil {
				return err
			}
			if taken+res.Guests > capacity {
				return fmt.Errorf("%w: %d of %d places left", domain.ErrSoldOut, max(capacity-taken, 0), capacity)
			}
		}
		_, err := tx.ExecContext(ctx, insertReservationSQL,
			res.ID, res.UserID, res.OfferID, string(res.Status), res.Guests, int64(res.TotalPrice),
			domain.DateOnly(res.DepartureDate), valTime(res.BlockedUntil), valTime(res.PaymentDeadline),
			res.CreatedAt.UTC(),
		)
		return err
	})
	switch mysqlCode(err) {
	case errDuplicateKey:
		return fmt.Errorf("%w: reservation %s already exists", domain.ErrConflict, res.ID)
	case errNoParentRow:
		return fmt.Errorf("%w: unknown user or offer", domain.ErrNotFound)
	}
	return err
}

func (r *Repo) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, getReservationSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return res, err
}

func (r *Repo) ListReservations(ctx context.Context, q domain.ReservationQuery) ([]domain.Reservation, error) {
	var (
		where []string
		args  []any
	)
	if q.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *q.UserID)
	}
	if q.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*q.Status))
	}
	stmt := listReservationsSQL
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY created_at DESC, id"

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateReservation(ctx context.Context, res domain.Reservation, from domain.ReservationStatus) error {
	out, err := r.db.ExecContext(ctx, updateReservationSQL,
		string(res.Status), valTime(res.BlockedUntil), valTime(res.PaymentDeadline), res.ID, string(from))
	if err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n > 0 {
		return nil
	}
	var cur string
	if err := r.db.QueryRowContext(ctx, reservationExistsSQL, res.ID).Scan(&cur); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return fmt.Errorf("%w: reservation %s is %s, expected %s", domain.ErrConflict, res.ID, cur, from)
}

func (r *Repo) DeleteReservation(ctx context.Context, id string) error {
	out, err := r.db.ExecContext(ctx, deleteReservationSQL, id)
	if err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) ExpireHolds(ctx context.Context, now time.Time) (int64, error) {
	out, err := r.db.ExecContext(ctx, expireHoldsSQL, now.UTC())
	if err != nil {
		return 0, err
	}
	return out.RowsAffected()
}

// ---- favorites ----

func (r *Repo) AddFavorite(ctx context.Context, userID, offerID string) error {
	_, err := r.db.ExecContext(ctx, addFavoriteSQL, userID, offerID, time.Now().UTC())
	if mysqlCode(err) == errNoParentRow {
		return domain.ErrNotFound
	}
	return err
}

func (r *Repo) RemoveFavorite(ctx context.Context, userID, offerID string) error {
	_, err := r.db.ExecContext(ctx, removeFavoriteSQL, userID, offerID)
	return err
}

func (r *Repo) IsFavorite(ctx context.Context, userID, offerID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, isFavoriteSQL, userID, offerID).Scan(&ok)
	return ok, err
}

func (r *Repo) ListFavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listFavoritesSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ---- profiles ----

func scanUser(s rowScanner) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := s.Scan(&u.ID, &u.Email, &u.Name, &role, &u.CreatedAt); err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (r *Repo) UpsertUser(ctx context.Context, u domain.User) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, updateProfileSQL, u.Email, u.Name, string(u.Role), u.ID); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx, profileExistsSQL, u.ID).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		_, err := tx.ExecContext(ctx, insertProfileSQL, u.ID, u.Email, u.Name, string(u.Role), u.CreatedAt.UTC())
		return err
	})
	if mysqlCode(err) == errDuplicateKey {
		return fmt.Errorf("%w: email %s is taken", domain.ErrConflict, u.Email)
	}
	return err
}

func (r *Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, getProfileSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	return u, err
}

func (r *Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, listProfilesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteUser(ctx context.Context, id string) error {
	out, err := r.db.ExecContext(ctx, deleteProfileSQL, id)
	if err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) CountByRole(ctx context.Context) (map[domain.Role]int, error) {
	rows, err := r.db.QueryContext(ctx, countByRoleSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[domain.Role]int{}
	for rows.Next() {
		var (
			role string
			n    int
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[domain.Role(role)] = n
	}
	return out, rows.Err()
}
