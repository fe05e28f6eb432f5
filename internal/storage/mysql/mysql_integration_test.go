//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"travel_booking/internal/domain"
	mysqlrepo "travel_booking/internal/storage/mysql"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func applyMigrations(t *testing.T, db *sql.DB, dir string) {
	t.Helper()
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(b)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// startMySQL runs a throwaway MySQL 8 container. The test is skipped when
// MIGRATIONS_DIR is unset or Docker is not reachable.
func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		t.Skip("MIGRATIONS_DIR not set (e.g. MIGRATIONS_DIR=$PWD/migrations)")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=travel"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/travel?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db, dir)
	return db
}

func seedOffer(id, country string, price int64, created time.Time, dates ...time.Time) domain.Offer {
	return domain.Offer{
		ID: id, Title: "Oferta " + id, Description: "opis", ShortDescription: "krótko",
		Destination: "Kreta", Country: country, Duration: 7, Price: domain.Zloty(price),
		Images: []string{"https://img/" + id + ".jpg"}, Meals: domain.MealsAllInclusive,
		TripType: domain.TripRelax, Season: domain.SeasonSummer, Rating: 4.5, ReviewCount: 10,
		Accommodation: "Hotel", Transport: "Samolot",
		Itinerary: []domain.ItineraryDay{
			{Day: 2, Title: "Plaża", Activities: []string{"pływanie"}},
			{Day: 1, Title: "Przylot", Activities: []string{}},
		},
		AvailableDates: dates,
		CreatedAt:      created,
	}
}

func TestRepo_MySQL_OffersReservationsFavorites(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.UpsertUser(ctx, domain.User{ID: "u1", Email: "a@x.pl", Name: "Ala", Role: domain.RoleClient, CreatedAt: base}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if err := repo.UpsertUser(ctx, domain.User{ID: "adm", Email: "adm@x.pl", Name: "Adm", Role: domain.RoleAdmin, CreatedAt: base}); err != nil {
		t.Fatalf("UpsertUser admin: %v", err)
	}

	o1 := seedOffer("o1", "Grecja", 2500, base, day(2025, 7, 10), day(2025, 6, 1))
	o2 := seedOffer("o2", "Egipt", 1800, base.Add(time.Hour), day(2025, 8, 20))
	for _, o := range []domain.Offer{o1, o2} {
		if err := repo.CreateOffer(ctx, o); err != nil {
			t.Fatalf("CreateOffer %s: %v", o.ID, err)
		}
	}
	if err := repo.CreateOffer(ctx, o1); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate offer: want ErrConflict, got %v", err)
	}

	got, err := repo.GetOffer(ctx, "o1")
	if err != nil {
		t.Fatalf("GetOffer: %v", err)
	}
	if len(got.Itinerary) != 2 || got.Itinerary[0].Day != 1 {
		t.Fatalf("itinerary not ordered by day: %+v", got.Itinerary)
	}
	if len(got.AvailableDates) != 2 || !got.AvailableDates[0].Equal(day(2025, 6, 1)) {
		t.Fatalf("dates not ascending: %v", got.AvailableDates)
	}

	from, to := day(2025, 7, 1), day(2025, 7, 31)
	list, err := repo.ListOffers(ctx, domain.OfferFilter{DateFrom: &from, DateTo: &to})
	if err != nil || len(list) != 1 || list[0].ID != "o1" {
		t.Fatalf("date overlap filter: %v %+v", err, list)
	}
	list, err = repo.ListOffers(ctx, domain.OfferFilter{Sort: domain.SortPriceAsc})
	if err != nil || len(list) != 2 || list[0].ID != "o2" {
		t.Fatalf("price_asc: %v %+v", err, list)
	}
	lower := "grecja"
	list, err = repo.ListOffers(ctx, domain.OfferFilter{Country: &lower})
	if err != nil || len(list) != 0 {
		t.Fatalf("country filter must be exact: %v %+v", err, list)
	}
	if err := repo.UpsertUser(ctx, domain.User{ID: "u9", Email: "a@x.pl", Name: "Dup", Role: domain.RoleClient, CreatedAt: base}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate email: want ErrConflict, got %v", err)
	}

	hold := base.Add(2 * time.Hour)
	r1 := domain.Reservation{
		ID: "r1", UserID: "u1", OfferID: "o1", Status: domain.StatusBlocked, Guests: 2,
		TotalPrice: domain.Zloty(5000), DepartureDate: day(2025, 7, 10), CreatedAt: base, BlockedUntil: &hold,
	}
	if err := repo.Reserve(ctx, r1, 3, base); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	r2 := r1
	r2.ID = "r2"
	if err := repo.Reserve(ctx, r2, 3, base); !errors.Is(err, domain.ErrSoldOut) {
		t.Fatalf("over capacity: want ErrSoldOut, got %v", err)
	}
	// Once the first hold has lapsed its seats are free again.
	if err := repo.Reserve(ctx, r2, 3, hold.Add(time.Minute)); err != nil {
		t.Fatalf("Reserve after lapse: %v", err)
	}

	next := r1
	next.Status = domain.StatusConfirmed
	next.BlockedUntil = nil
	if err := repo.UpdateReservation(ctx, next, domain.StatusBlocked); err != nil {
		t.Fatalf("UpdateReservation: %v", err)
	}
	if err := repo.UpdateReservation(ctx, next, domain.StatusBlocked); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("stale update: want ErrConflict, got %v", err)
	}

	n, err := repo.ExpireHolds(ctx, hold.Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("ExpireHolds: n=%d err=%v", n, err)
	}
	r2got, _ := repo.GetReservation(ctx, "r2")
	if r2got.Status != domain.StatusCancelled || r2got.BlockedUntil != nil {
		t.Fatalf("expired hold not cancelled: %+v", r2got)
	}

	uid := "u1"
	mine, err := repo.ListReservations(ctx, domain.ReservationQuery{UserID: &uid})
	if err != nil || len(mine) != 2 {
		t.Fatalf("ListReservations: %v %d", err, len(mine))
	}

	if err := repo.DeleteOffer(ctx, "o1"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("delete referenced offer: want ErrConflict, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := repo.AddFavorite(ctx, "u1", "o2"); err != nil {
			t.Fatalf("AddFavorite #%d: %v", i, err)
		}
	}
	ids, _ := repo.ListFavoriteIDs(ctx, "u1")
	if strings.Join(ids, ",") != "o2" {
		t.Fatalf("favorites: %v", ids)
	}
	if err := repo.DeleteOffer(ctx, "o2"); err != nil {
		t.Fatalf("DeleteOffer o2: %v", err)
	}
	if ok, _ := repo.IsFavorite(ctx, "u1", "o2"); ok {
		t.Fatalf("favorite should cascade with the offer")
	}

	roles, err := repo.CountByRole(ctx)
	if err != nil || roles[domain.RoleClient] != 1 || roles[domain.RoleAdmin] != 1 {
		t.Fatalf("CountByRole: %v %v", roles, err)
	}
}
