package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"travel_booking/internal/domain"
)

// TokenVerifier validates an access token issued by the identity provider.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

type UserService struct {
	users    domain.UserRepository
	res      domain.ReservationRepository
	idp      domain.IdentityProvider
	verifier TokenVerifier
	now      func() time.Time
}

func NewUserService(u domain.UserRepository, r domain.ReservationRepository, idp domain.IdentityProvider, v TokenVerifier) *UserService {
	return &UserService{users: u, res: r, idp: idp, verifier: v, now: time.Now}
}

func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

func (s *UserService) SignUp(ctx context.Context, email, password, name string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	id, err := s.idp.SignUp(ctx, email, password, map[string]any{"name": name})
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{ID: id.ID, Email: email, Name: name, Role: domain.RoleClient, CreatedAt: s.now().UTC()}
	if err := s.users.UpsertUser(ctx, u); err != nil {
		log.Error().Err(err).Str("user_id", u.ID).Msg("create profile failed")
		return domain.User{}, err
	}
	return u, nil
}

func (s *UserService) SignIn(ctx context.Context, email, password string) (domain.User, domain.AuthTokens, error) {
	id, tokens, err := s.idp.SignIn(ctx, strings.ToLower(strings.TrimSpace(email)), password)
	if err != nil {
		return domain.User{}, domain.AuthTokens{}, err
	}
	u, err := s.ensureProfile(ctx, id)
	if err != nil {
		return domain.User{}, domain.AuthTokens{}, err
	}
	return u, tokens, nil
}

func (s *UserService) SignOut(ctx context.Context, sess domain.Session) error {
	return s.idp.SignOut(ctx, sess.Token)
}

// Provision creates or adopts an identity and stores its profile with role.
func (s *UserService) Provision(ctx context.Context, email, password, name string, role domain.Role) (domain.User, error) {
	if !role.Valid() {
		return domain.User{}, fmt.Errorf("%w: role %q", domain.ErrInvalid, role)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	id, err := s.idp.SignUp(ctx, email, password, map[string]any{"name": name})
	if errors.Is(err, domain.ErrConflict) {
		id, _, err = s.idp.SignIn(ctx, email, password)
	}
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{ID: id.ID, Email: email, Name: name, Role: role, CreatedAt: s.now().UTC()}
	if cur, err := s.users.GetUser(ctx, id.ID); err == nil {
		u.CreatedAt = cur.CreatedAt
	}
	if err := s.users.UpsertUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *UserService) ResetPassword(ctx context.Context, email string) error {
	return s.idp.ResetPassword(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// Authenticate turns a bearer token into the per-request session.
func (s *UserService) Authenticate(ctx context.Context, token string) (domain.Session, error) {
	id, err := s.verifier.Verify(token)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	u, err := s.ensureProfile(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{UserID: u.ID, Email: u.Email, Role: u.Role, Token: token}, nil
}

// ensureProfile returns the stored profile, creating a client profile for
// identities that signed up outside this service.
func (s *UserService) ensureProfile(ctx context.Context, id domain.Identity) (domain.User, error) {
	u, err := s.users.GetUser(ctx, id.ID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}
	u = domain.User{ID: id.ID, Email: id.Email, Name: id.Email, Role: domain.RoleClient, CreatedAt: s.now().UTC()}
	if err := s.users.UpsertUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, bool, error) {
	u, err := s.users.GetUser(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return u, true, nil
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.ListUsers(ctx)
}

func (s *UserService) Delete(ctx context.Context, sess domain.Session, id string) error {
	if !sess.IsAdmin() {
		return domain.ErrForbidden
	}
	if sess.UserID == id {
		return fmt.Errorf("%w: cannot delete your own account", domain.ErrConflict)
	}
	return s.users.DeleteUser(ctx, id)
}

// Stats counts the user's reservations and what their confirmed ones cost.
func (s *UserService) Stats(ctx context.Context, userID string) (domain.UserStats, error) {
	rs, err := s.res.ListReservations(ctx, domain.ReservationQuery{UserID: &userID})
	if err != nil {
		return domain.UserStats{}, err
	}
	st := domain.UserStats{ReservationsCount: len(rs)}
	for _, r := range rs {
		if r.Status == domain.StatusConfirmed {
			st.TotalSpent += r.TotalPrice
		}
	}
	return st, nil
}
